package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ZulipConfig holds the Zulip server and bot account settings. The bot
// account must be allowed to read target users and set its own status;
// in multi-user mode it acts on behalf of each resolved account.
type ZulipConfig struct {
	ServerURL string `yaml:"server_url" json:"server_url"`
	Email     string `yaml:"email" json:"email"`
	APIToken  string `yaml:"api_token" json:"-" env:"STATUSWATCH_ZULIP_TOKEN"`
}

// GoogleConfig holds service-account credentials for the Calendar and
// Admin Directory APIs.
type GoogleConfig struct {
	// CredentialsFile is the path to a service-account JSON key with
	// domain-wide delegation for the calendar.readonly and
	// admin.directory.group.member.readonly scopes.
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file" env:"STATUSWATCH_GOOGLE_CREDENTIALS"`
	// AdminSubject is the workspace admin impersonated for directory
	// group listing. Unused when no group is configured.
	AdminSubject string `yaml:"admin_subject" json:"admin_subject"`
}

// BasicAuthConfig enables HTTP Basic Auth on the observability endpoints.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-" env:"STATUSWATCH_WEB_PASSWORD"`
}

// FeedConfig is a supplemental ICS leave feed for one identity, typically
// an HR-tool export containing vacation entries.
type FeedConfig struct {
	Identity string `yaml:"identity" json:"identity"`
	URL      string `yaml:"url" json:"url"`
}

// Config is the top-level application configuration.
type Config struct {
	Zulip  ZulipConfig  `yaml:"zulip" json:"zulip"`
	Google GoogleConfig `yaml:"google" json:"google"`

	// Users is the static identity list (single-user and fallback mode).
	Users []string `yaml:"users" json:"users"`
	// Group is a Google Group email whose members are watched. When set,
	// membership is re-enumerated on every tick.
	Group string `yaml:"group" json:"group"`

	// AliasDomains are tried, in order, for the local part of an identity
	// whose verbatim email does not resolve to a live Zulip account.
	AliasDomains []string `yaml:"alias_domains" json:"alias_domains"`
	// AllowList restricts which directory members are resolved at all.
	// A member must contain one of these substrings (case-insensitive).
	// Empty means all members are allowed.
	AllowList []string `yaml:"allow_list" json:"allow_list"`

	// Separator splits user-authored status text from the auto segment.
	Separator string `yaml:"separator" json:"separator"`
	// Tick is a robfig/cron schedule expression for the update loop.
	Tick string `yaml:"tick" json:"tick"`

	Listen    string           `yaml:"listen" json:"listen"`
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	LeaveFeeds []FeedConfig `yaml:"leave_feeds" json:"leave_feeds"`
	// CacheDir backs the ICS feed conditional-GET cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	LogLevel string `yaml:"log_level" json:"log_level" env:"STATUSWATCH_LOG_LEVEL"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Users:        []string{},
		AliasDomains: []string{},
		AllowList:    []string{},
		Separator:    "|",
		Tick:         "@every 20s",
		Listen:       "127.0.0.1:8080",
		LeaveFeeds:   []FeedConfig{},
		CacheDir:     "./var/feed-cache",
		LogLevel:     "info",
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	if c.Separator == "" {
		c.Separator = "|"
	}
	if c.Tick == "" {
		c.Tick = "@every 20s"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/feed-cache"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Users == nil {
		c.Users = []string{}
	}
	if c.AliasDomains == nil {
		c.AliasDomains = []string{}
	}
	if c.AllowList == nil {
		c.AllowList = []string{}
	}
	if c.LeaveFeeds == nil {
		c.LeaveFeeds = []FeedConfig{}
	}
}

// Validate reports configuration errors that would make the daemon
// useless at runtime.
func (c *Config) Validate() error {
	if c.Zulip.ServerURL == "" {
		return errors.New("zulip.server_url is required")
	}
	if c.Zulip.Email == "" {
		return errors.New("zulip.email is required")
	}
	if c.Zulip.APIToken == "" {
		return errors.New("zulip.api_token is required (or STATUSWATCH_ZULIP_TOKEN)")
	}
	if len(c.Users) == 0 && c.Group == "" {
		return errors.New("either users or group must be configured")
	}
	if c.Group != "" && c.Google.AdminSubject == "" {
		return errors.New("google.admin_subject is required when group is set")
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - Missing file: a default config is written with 0600 perms and returned.
//   - Existing file: YAML is unmarshaled, defaults normalized.
//   - Environment variables override file values last.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if saveErr := Save(path, cfg); saveErr != nil {
			return cfg, saveErr
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
		cfg.Normalize()
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".statuswatch-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
