package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tonearm/internal/extract"
	"github.com/starford/tonearm/internal/housekeeping"
	"github.com/starford/tonearm/internal/index"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// State drivers.
const (
	StateDriverSQLite = "sqlite"
	StateDriverRedis  = "redis"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Library LibraryConfig     `yaml:"library"`
	Cache   CacheConfig       `yaml:"cache"`
	Index   IndexConfig       `yaml:"index"`
	State   StateConfig       `yaml:"state"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Library, &c.Cache, &c.Index, &c.State, &c.Auth} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	Log      LogConfig  `yaml:"log"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// LogConfig configures the optional rotating log file. Logs always go to
// stdout; File adds a second sink.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSizeMB, validation.Min(0)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
		validation.Field(&c.MaxAgeDays, validation.Min(0)),
	)
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

// LibraryConfig points at the music library.
type LibraryConfig struct {
	Root       string   `yaml:"root"`
	Extensions []string `yaml:"extensions"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Extensions, validation.Each(validation.Required)),
	)
}

// CacheConfig locates the index data and the default state database.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// IndexDir is where the index data lives.
func (c *CacheConfig) IndexDir() string {
	return filepath.Join(c.Dir, "index")
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// IndexConfig tunes crawling and watching.
type IndexConfig struct {
	StaleAfter  time.Duration `yaml:"stale_after"`
	Workers     int           `yaml:"workers"`
	OnExisting  string        `yaml:"on_existing"`
	CommitDelay time.Duration `yaml:"commit_delay"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	if c.OnExisting == "" {
		c.OnExisting = string(index.SkipExisting)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.StaleAfter, validation.Min(time.Duration(0))),
		validation.Field(&c.Workers, validation.Min(0), validation.Max(256)),
		validation.Field(&c.OnExisting, validation.In(string(index.SkipExisting), string(index.ReplaceExisting))),
		validation.Field(&c.CommitDelay, validation.Min(time.Duration(0))),
	)
}

// StateConfig selects the key-value store used for housekeeping.
type StateConfig struct {
	Driver string       `yaml:"driver"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	Redis  RedisConfig  `yaml:"redis"`
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// Validate validates the state configuration.
func (c *StateConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = StateDriverSQLite
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(StateDriverSQLite, StateDriverRedis)),
	); err != nil {
		return err
	}
	switch c.Driver {
	case StateDriverSQLite:
		return validation.ValidateStruct(&c.SQLite,
			validation.Field(&c.SQLite.Path, validation.Required),
		)
	default:
		return validation.ValidateStruct(&c.Redis,
			validation.Field(&c.Redis.Addr, validation.Required),
			validation.Field(&c.Redis.DB, validation.Min(0)),
		)
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
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

// NewDefaultConfig returns a new Config with defaults under the user's
// XDG music and cache directories.
func NewDefaultConfig() *Config {
	cacheDir := filepath.Join(xdg.CacheHome, "tonearm")
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			Log: LogConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Library: LibraryConfig{
			Root:       xdg.UserDirs.Music,
			Extensions: append([]string(nil), extract.DefaultExtensions...),
		},
		Cache: CacheConfig{
			Dir: cacheDir,
		},
		Index: IndexConfig{
			StaleAfter:  housekeeping.DefaultStaleAfter,
			Workers:     index.DefaultWorkers,
			OnExisting:  string(index.SkipExisting),
			CommitDelay: index.DefaultCommitDelay,
		},
		State: StateConfig{
			Driver: StateDriverSQLite,
			SQLite: SQLiteConfig{
				Path: filepath.Join(cacheDir, "state.db"),
			},
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  "tonearm:state",
			},
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
