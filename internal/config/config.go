package config

import "time"

// Config holds the engine configuration. A read-only snapshot is handed to
// the active mapping; nothing re-reads it mid-flight.
type Config struct {
	PremiumAuthentication PremiumAuthentication `mapstructure:"premium_authentication" yaml:"premium_authentication"`
	Authentication        Authentication        `mapstructure:"authentication" yaml:"authentication"`
	Accounts              Accounts              `mapstructure:"accounts" yaml:"accounts"`
	Whitelist             Whitelist             `mapstructure:"whitelist" yaml:"whitelist"`
	Database              Database              `mapstructure:"database" yaml:"database"`
	Session               Session               `mapstructure:"session" yaml:"session"`
	Log                   Log                   `mapstructure:"log" yaml:"log"`
	Reports               Reports               `mapstructure:"reports" yaml:"reports"`
}

// PremiumAuthentication controls the verification of premium identities.
type PremiumAuthentication struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Authentication controls the in-game authentication requirement.
type Authentication struct {
	RequiredForPremiumPlayers bool `mapstructure:"required_for_premium_players" yaml:"required_for_premium_players"`
}

// Accounts holds account and nickname policy.
type Accounts struct {
	// MaximumAuthenticatedPerIP caps concurrent authenticated connections
	// per source address; 0 means unlimited.
	MaximumAuthenticatedPerIP int  `mapstructure:"maximum_authenticated_per_ip" yaml:"maximum_authenticated_per_ip"`
	CaseSensitiveNicknames    bool `mapstructure:"case_sensitive_nicknames" yaml:"case_sensitive_nicknames"`
}

// Whitelist holds connection admission policy.
type Whitelist struct {
	BlockedVersions   []int `mapstructure:"blocked_versions" yaml:"blocked_versions"`
	AllowCrackedUsers bool  `mapstructure:"allow_cracked_users" yaml:"allow_cracked_users"`
}

// Database locates the account persistence file.
type Database struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Session configures the session-authority client.
type Session struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Log configures logging output.
type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Reports configures the failure-report directory.
type Reports struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns the configuration used when no file or env overrides exist.
func Default() Config {
	return Config{
		PremiumAuthentication: PremiumAuthentication{Enabled: true},
		Accounts:              Accounts{MaximumAuthenticatedPerIP: 0},
		Whitelist:             Whitelist{AllowCrackedUsers: true},
		Database:              Database{Path: "authgate.db"},
		Session:               Session{Timeout: 15 * time.Second},
		Log:                   Log{Level: "info"},
		Reports:               Reports{Dir: "reports"},
	}
}
