package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	GitHub GitHubConfig      `yaml:"github"`
	Sync   SyncConfig        `yaml:"sync"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.GitHub.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, when set, receives the JSON log with size-based rotation
	// instead of stdout.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
	// Theme is the glamour style used by the show command.
	Theme         string        `yaml:"theme"`
	AutoSync      bool          `yaml:"auto_sync"`
	AutoSyncDelay time.Duration `yaml:"auto_sync_delay"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Theme, validation.In("auto", "dark", "light", "notty", "ascii", "dracula", "tokyo-night", "pink")),
		validation.Field(&c.AutoSyncDelay, validation.When(c.AutoSync, validation.Required, validation.Min(time.Second))),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// GitHubConfig identifies the remote repository and the local clone of the
// Hugo site.
type GitHubConfig struct {
	Owner       string `yaml:"owner"`
	Repo        string `yaml:"repo"`
	Token       string `yaml:"token"`
	LocalPath   string `yaml:"local_path"`
	Branch      string `yaml:"branch"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Validate validates the GitHub configuration. Owner and Repo go together.
func (c *GitHubConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LocalPath, validation.Required),
		validation.Field(&c.Branch, validation.Required),
		validation.Field(&c.Owner, validation.When(c.Repo != "", validation.Required)),
		validation.Field(&c.Repo, validation.When(c.Owner != "", validation.Required)),
	)
}

// Configured reports whether a remote repository is set.
func (c *GitHubConfig) Configured() bool {
	return c.Owner != "" && c.Repo != ""
}

// AbsLocalPath returns LocalPath made absolute.
func (c *GitHubConfig) AbsLocalPath() string {
	abs, err := filepath.Abs(c.LocalPath)
	if err != nil {
		return c.LocalPath
	}
	return abs
}

// SyncConfig holds the per-operation deadlines for remote git operations.
type SyncConfig struct {
	PullTimeout      time.Duration `yaml:"pull_timeout"`
	PushTimeout      time.Duration `yaml:"push_timeout"`
	RetryPushTimeout time.Duration `yaml:"retry_push_timeout"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PullTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.PushTimeout, validation.Required, validation.Min(time.Second)),
		// The retry runs after a failed push, so it gets the shorter budget.
		validation.Field(&c.RetryPushTimeout, validation.Required, validation.Min(time.Second),
			validation.Max(c.PushTimeout-time.Nanosecond)),
	)
}

// SQLiteConfig holds the sync history database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			Theme:         "auto",
			AutoSyncDelay: 30 * time.Second,
		},
		GitHub: GitHubConfig{
			LocalPath:   "./site",
			Branch:      "main",
			AuthorName:  "Cookbook Manager",
			AuthorEmail: "cookbook@localhost",
		},
		Sync: SyncConfig{
			PullTimeout:      30 * time.Second,
			PushTimeout:      45 * time.Second,
			RetryPushTimeout: 20 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: "./cookbook.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
