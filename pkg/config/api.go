package config

import "fmt"

// DefaultAPIListen is the default listen address of the API server.
const DefaultAPIListen = ":8080"

// APIConfig contains all API server configuration.
type APIConfig struct {
	Server APIServerConfig `yaml:"server" mapstructure:"server"`
	Auth   APIAuthConfig   `yaml:"auth" mapstructure:"auth"`
}

// APIServerConfig contains HTTP server settings.
type APIServerConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// APIAuthConfig contains authentication settings.
type APIAuthConfig struct {
	AnonymousRead bool            `yaml:"anonymous_read" mapstructure:"anonymous_read"`
	Basic         BasicAuthConfig `yaml:"basic,omitempty" mapstructure:"basic"`
}

// BasicAuthConfig configures username/password authentication.
type BasicAuthConfig struct {
	Enabled bool            `yaml:"enabled" mapstructure:"enabled"`
	Users   []BasicAuthUser `yaml:"users,omitempty" mapstructure:"users"`
}

// BasicAuthUser defines a basic auth user. PasswordHash is a bcrypt hash.
type BasicAuthUser struct {
	Username     string `yaml:"username" mapstructure:"username"`
	PasswordHash string `yaml:"password_hash" mapstructure:"password_hash"`
}

func (a *APIConfig) applyDefaults() {
	if a.Server.Listen == "" {
		a.Server.Listen = DefaultAPIListen
	}
}

// Validate checks the API configuration for errors.
func (a *APIConfig) Validate() error {
	if a.Server.RateLimit.Enabled && a.Server.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf(
			"server.rate_limit.requests_per_minute must be positive when enabled",
		)
	}

	if !a.Auth.AnonymousRead && !a.Auth.Basic.Enabled {
		return fmt.Errorf(
			"auth.anonymous_read is false but no authentication method is enabled",
		)
	}

	if a.Auth.Basic.Enabled {
		if len(a.Auth.Basic.Users) == 0 {
			return fmt.Errorf("auth.basic.users must not be empty when basic auth is enabled")
		}

		seen := make(map[string]struct{}, len(a.Auth.Basic.Users))

		for i, u := range a.Auth.Basic.Users {
			if u.Username == "" || u.PasswordHash == "" {
				return fmt.Errorf("auth.basic.users[%d]: username and password_hash are required", i)
			}

			if _, ok := seen[u.Username]; ok {
				return fmt.Errorf("auth.basic.users[%d]: duplicate username %q", i, u.Username)
			}

			seen[u.Username] = struct{}{}
		}
	}

	return nil
}
