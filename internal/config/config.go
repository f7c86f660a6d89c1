// Package config loads and validates the Encore configuration via viper.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Encore configuration
type Config struct {
	Arbiter   ArbiterConfig  `mapstructure:"arbiter"`
	Skill     SkillConfig    `mapstructure:"skill"`
	Vocab     VocabConfig    `mapstructure:"vocab"`
	Logging   LoggingConfig  `mapstructure:"logging"`
	Providers []ProviderSpec `mapstructure:"providers"`
}

// ArbiterConfig controls the query resolution window
type ArbiterConfig struct {
	// BaseTimeoutMs is the collection window when no provider asks for more
	// time (default: 1000)
	BaseTimeoutMs int `mapstructure:"base_timeout_ms"`
	// ExtensionTimeoutMs is the window while at least one provider is still
	// searching (default: 5000)
	ExtensionTimeoutMs int `mapstructure:"extension_timeout_ms"`
	// SettleTimeoutMs is the short grace period after a final bid or after
	// the last searching provider finishes (default: 0)
	SettleTimeoutMs int `mapstructure:"settle_timeout_ms"`
}

// SkillConfig controls intent handling behavior
type SkillConfig struct {
	// Hesitation speaks a short acknowledgement before each query round
	Hesitation bool `mapstructure:"hesitation"`
	// PlayTrigger is the word stripped from utterances to recover the
	// search phrase (default: "play")
	PlayTrigger string `mapstructure:"play_trigger"`
	// Lang is the language code for vocabulary lookups (default: "en-us")
	Lang string `mapstructure:"lang"`
}

// VocabConfig controls vocabulary resource lookup
type VocabConfig struct {
	// SkillDir is the skill's own resource directory (holds vocab/<lang>/)
	SkillDir string `mapstructure:"skill_dir"`
	// FrameworkDir is the shared framework resource directory
	// (holds text/<lang>/)
	FrameworkDir string `mapstructure:"framework_dir"`
	// Watch reloads vocabularies when their files change on disk
	Watch bool `mapstructure:"watch"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for the log file; empty logs to stderr
	Dir string `mapstructure:"dir"`
}

// ProviderSpec configures one scripted demo provider.
// Delays are in milliseconds.
type ProviderSpec struct {
	ID           string  `mapstructure:"id"`
	Confidence   float64 `mapstructure:"confidence"`
	BidDelayMs   int     `mapstructure:"bid_delay_ms"`
	Searching    bool    `mapstructure:"searching"`
	SearchTimeMs int     `mapstructure:"search_time_ms"`
	OwnSurface   bool    `mapstructure:"own_surface"`
	Track        string  `mapstructure:"track"`
	Artist       string  `mapstructure:"artist"`
	Album        string  `mapstructure:"album"`
}

// BaseTimeout returns the base collection window as a time.Duration
func (c *ArbiterConfig) BaseTimeout() time.Duration {
	return time.Duration(c.BaseTimeoutMs) * time.Millisecond
}

// ExtensionTimeout returns the extended window as a time.Duration
func (c *ArbiterConfig) ExtensionTimeout() time.Duration {
	return time.Duration(c.ExtensionTimeoutMs) * time.Millisecond
}

// SettleTimeout returns the post-bid grace period as a time.Duration
func (c *ArbiterConfig) SettleTimeout() time.Duration {
	return time.Duration(c.SettleTimeoutMs) * time.Millisecond
}

// BidDelay returns the bid delay as a time.Duration
func (p *ProviderSpec) BidDelay() time.Duration {
	return time.Duration(p.BidDelayMs) * time.Millisecond
}

// SearchTime returns the search duration as a time.Duration
func (p *ProviderSpec) SearchTime() time.Duration {
	return time.Duration(p.SearchTimeMs) * time.Millisecond
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Arbiter: ArbiterConfig{
			BaseTimeoutMs:      1000,
			ExtensionTimeoutMs: 5000,
			SettleTimeoutMs:    0,
		},
		Skill: SkillConfig{
			Hesitation:  false,
			PlayTrigger: "play",
			Lang:        "en-us",
		},
		Vocab: VocabConfig{
			SkillDir:     "", // Empty means resolve relative to the working directory
			FrameworkDir: "",
			Watch:        false,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
		Providers: []ProviderSpec{},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Arbiter defaults
	viper.SetDefault("arbiter.base_timeout_ms", defaults.Arbiter.BaseTimeoutMs)
	viper.SetDefault("arbiter.extension_timeout_ms", defaults.Arbiter.ExtensionTimeoutMs)
	viper.SetDefault("arbiter.settle_timeout_ms", defaults.Arbiter.SettleTimeoutMs)

	// Skill defaults
	viper.SetDefault("skill.hesitation", defaults.Skill.Hesitation)
	viper.SetDefault("skill.play_trigger", defaults.Skill.PlayTrigger)
	viper.SetDefault("skill.lang", defaults.Skill.Lang)

	// Vocab defaults
	viper.SetDefault("vocab.skill_dir", defaults.Vocab.SkillDir)
	viper.SetDefault("vocab.framework_dir", defaults.Vocab.FrameworkDir)
	viper.SetDefault("vocab.watch", defaults.Vocab.Watch)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load unmarshals the current viper state into a validated Config
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "encore")
	}
	// Fall back to ~/.config/encore
	home, err := os.UserHomeDir()
	if err != nil {
		return ".encore"
	}
	return filepath.Join(home, ".config", "encore")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
