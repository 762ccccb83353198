package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration. Secrets (passwords, API keys)
// are never stored here; see Secrets.
type Config struct {
	Version   int             `toml:"version"`
	Site      SiteConfig      `toml:"site"`
	Run       RunConfig       `toml:"run"`
	Content   ContentConfig   `toml:"content"`
	MediaHost MediaHostConfig `toml:"media_host"`
	Email     EmailConfig     `toml:"email"`
}

// SiteConfig describes the third-party target site. The site's markup is not
// under our control, so everything here is operator-tunable.
type SiteConfig struct {
	LoginURL   string `toml:"login_url"`
	ComposeURL string `toml:"compose_url"`
	Username   string `toml:"username"`
	Headless   bool   `toml:"headless"`
	// SelectorOverrides points at an optional YAML file that replaces the
	// built-in selector candidate sets when the site's DOM churns.
	SelectorOverrides string `toml:"selector_overrides"`
}

// RunConfig is the per-run policy: pacing and timeouts.
type RunConfig struct {
	ItemDelaySeconds      int    `toml:"item_delay_seconds"`
	SelectorTimeoutMS     int    `toml:"selector_timeout_ms"`
	LoginTimeoutSeconds   int    `toml:"login_timeout_seconds"`
	ConfirmTimeoutSeconds int    `toml:"confirm_timeout_seconds"`
	SkipPublished         bool   `toml:"skip_published"`
	Timezone              string `toml:"timezone"`
}

// ItemDelay returns the inter-item pacing delay.
func (r RunConfig) ItemDelay() time.Duration {
	return time.Duration(r.ItemDelaySeconds) * time.Second
}

// SelectorTimeout returns the per-role selector resolution budget.
func (r RunConfig) SelectorTimeout() time.Duration {
	return time.Duration(r.SelectorTimeoutMS) * time.Millisecond
}

// LoginTimeout returns the bound on the authentication flow.
func (r RunConfig) LoginTimeout() time.Duration {
	return time.Duration(r.LoginTimeoutSeconds) * time.Second
}

// ConfirmTimeout returns the bound on post-submission confirmation.
func (r RunConfig) ConfirmTimeout() time.Duration {
	return time.Duration(r.ConfirmTimeoutSeconds) * time.Second
}

type ContentConfig struct {
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	AgencyTag string `toml:"agency_tag"`
}

type MediaHostConfig struct {
	UploadURL  string `toml:"upload_url"`
	MaxUploads int    `toml:"max_concurrent_uploads"`
}

type EmailConfig struct {
	Enabled  bool   `toml:"enabled"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	FromAddr string `toml:"from_address"`
	ToAddr   string `toml:"to_address"`
}

// Secrets are read from the environment (optionally seeded from a .env file by
// the caller), never from the config file on disk.
type Secrets struct {
	SitePassword string
	AnthropicKey string
	MediaHostKey string
	SMTPPassword string
}

// SecretsFromEnv pulls secrets from the process environment.
func SecretsFromEnv() Secrets {
	return Secrets{
		SitePassword: os.Getenv("PROMOPOST_SITE_PASSWORD"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		MediaHostKey: os.Getenv("PROMOPOST_MEDIA_HOST_KEY"),
		SMTPPassword: os.Getenv("PROMOPOST_SMTP_PASSWORD"),
	}
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Site: SiteConfig{
			LoginURL:   "https://www.facebook.com/login",
			ComposeURL: "https://www.facebook.com/",
			Headless:   true,
		},
		Run: RunConfig{
			ItemDelaySeconds:      45,
			SelectorTimeoutMS:     8000,
			LoginTimeoutSeconds:   60,
			ConfirmTimeoutSeconds: 30,
			Timezone:              "Local",
		},
		Content: ContentConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 1024,
		},
		MediaHost: MediaHostConfig{
			MaxUploads: 3,
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "promopost"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "promopost"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from an explicit path
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// Validate checks the fields a run cannot proceed without.
func (c *Config) Validate() error {
	if c.Site.LoginURL == "" || c.Site.ComposeURL == "" {
		return fmt.Errorf("site login_url and compose_url are required")
	}
	if c.Run.ItemDelaySeconds < 0 {
		return fmt.Errorf("item_delay_seconds must not be negative")
	}
	if c.Run.SelectorTimeoutMS <= 0 {
		return fmt.Errorf("selector_timeout_ms must be positive")
	}
	return nil
}
