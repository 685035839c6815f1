package config

// SiteConfig holds site-specific configuration for a single host.
// This allows customizing scan behavior per environment, e.g. auth cookies
// for a protected staging host.
type SiteConfig struct {
	// Cookies are attached to browser sessions and sitemap fetches for
	// this host.
	Cookies []Cookie `yaml:"cookies,omitempty"`

	// UserAgent overrides the global user agent for this host.
	UserAgent string `yaml:"userAgent,omitempty"`

	// ConsentMode overrides the global consent handling for this host.
	// Empty means use the global mode.
	ConsentMode ConsentMode `yaml:"consentMode,omitempty"`

	// Filter overrides the global URL substring filter for this host.
	Filter string `yaml:"filter,omitempty"`

	// Whitelist is the path to a whitelist file used for this host.
	Whitelist string `yaml:"whitelist,omitempty"`
}

// File represents the structure of the .consolescan configuration file.
type File struct {
	// Sites maps host names to their site-specific configurations.
	// Keys are bare hosts without a scheme (e.g., "staging.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with site-specific configuration if present
	if siteConfig, ok := cf.Sites[host]; ok {
		if len(siteConfig.Cookies) > 0 {
			result.Cookies = siteConfig.Cookies
		}
		if siteConfig.UserAgent != "" {
			result.UserAgent = siteConfig.UserAgent
		}
		if siteConfig.ConsentMode != "" {
			result.ConsentMode = siteConfig.ConsentMode
		}
		if siteConfig.Filter != "" {
			result.Filter = siteConfig.Filter
		}
		if siteConfig.Whitelist != "" {
			result.Whitelist = siteConfig.Whitelist
		}
	}

	return result
}
