// Package browser owns the headless Chromium process and the per-page
// scan sessions that run inside it. The Pool supervises a single shared
// browser process and hands out leased tab contexts; a Session drives one
// page-load attempt in a leased tab, capturing console output, uncaught
// exceptions, CSP violations, and failed network requests through CDP
// events.
package browser
