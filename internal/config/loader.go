package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const defaultConfigName = "config.yaml"

// Load builds configuration from defaults, an optional config file, and env
// vars, and returns the resolved file path.
// Precedence: defaults < config file < env vars.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("premium_authentication.enabled", cfg.PremiumAuthentication.Enabled)
	v.SetDefault("authentication.required_for_premium_players", cfg.Authentication.RequiredForPremiumPlayers)
	v.SetDefault("accounts.maximum_authenticated_per_ip", cfg.Accounts.MaximumAuthenticatedPerIP)
	v.SetDefault("accounts.case_sensitive_nicknames", cfg.Accounts.CaseSensitiveNicknames)
	v.SetDefault("whitelist.blocked_versions", cfg.Whitelist.BlockedVersions)
	v.SetDefault("whitelist.allow_cracked_users", cfg.Whitelist.AllowCrackedUsers)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("session.url", cfg.Session.URL)
	v.SetDefault("session.timeout", cfg.Session.Timeout)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("reports.dir", cfg.Reports.Dir)

	v.SetEnvPrefix("AUTHGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
