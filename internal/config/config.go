package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single ICS subscription source whose events are
// imported as read-only entries.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
}

// ColorRule assigns a CSS color token to imported entries whose title
// contains the keyword. The first matching rule wins.
type ColorRule struct {
	Keyword string `yaml:"keyword" json:"keyword"`
	Color   string `yaml:"color" json:"color"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the widget API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as canonical display zone for
	// imported events (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday the widget treats as the first day
	// of the week. Supported values: "monday" (default), "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// driving periodic re-import of the ICS sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is the number of future days imported entries cover.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// BackfillDays is the number of past days to keep in the import window.
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// Colors maps title keywords of imported entries to CSS color tokens.
	Colors []ColorRule `yaml:"colors" json:"colors"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     "UTC",
		WeekStart:    "monday",
		RefreshCron:  "*/15 * * * *",
		HorizonDays:  30,
		BackfillDays: 1,
		Colors:       []ColorRule{},
		ICS:          []ICSConfig{},
		BasicAuth:    nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown or unset; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 30
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.Colors == nil {
		c.Colors = []ColorRule{}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// ColorFor returns the color token for an imported entry title, or "" when
// no rule matches.
func (c *Config) ColorFor(title string) string {
	for _, rule := range c.Colors {
		if rule.Keyword == "" || rule.Color == "" {
			continue
		}
		if strings.Contains(strings.ToLower(title), strings.ToLower(rule.Keyword)) {
			return rule.Color
		}
	}
	return ""
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create the parent directory if needed,
//     write a default config with 0600 perms, and return the default config.
//   - If the file exists: read YAML, unmarshal into Config, normalize.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".calwidget-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up the temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
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

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
