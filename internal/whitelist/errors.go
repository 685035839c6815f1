package whitelist

import "errors"

// Whitelist loading errors, usable with errors.Is.
var (
	// ErrNotObject is returned when the whitelist file does not contain a
	// JSON object at the top level.
	ErrNotObject = errors.New("whitelist: file must contain a JSON object")

	// ErrInvalidPattern is returned when a pattern cannot be compiled as
	// a glob expression.
	ErrInvalidPattern = errors.New("whitelist: invalid glob pattern")
)
