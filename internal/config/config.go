// Package config loads the service configuration from a YAML file and
// ACDOCS_* environment variables. Environment values win over the file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/storage"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Log formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Store         StoreConfig         `yaml:"store"`
	Cache         CacheConfig         `yaml:"cache"`
	Session       SessionConfig       `yaml:"session"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Authorization AuthorizationConfig `yaml:"authorization"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// AllowedOrigins restricts websocket upgrades. Empty allows any origin.
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`

	// Seed loads the demo data set into an empty store at startup.
	Seed       bool `yaml:"seed"`
	BcryptCost int  `yaml:"bcryptCost"`
}

// CacheConfig sets the per-collection stale windows of the read cache.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Size       int           `yaml:"size"`
	Users      time.Duration `yaml:"users"`
	Groups     time.Duration `yaml:"groups"`
	Categories time.Duration `yaml:"categories"`
	Documents  time.Duration `yaml:"documents"`
	Audit      time.Duration `yaml:"audit"`
}

// SessionConfig controls sign-in sessions.
type SessionConfig struct {
	// TTL expires sessions after login. Zero keeps them until logout.
	TTL time.Duration `yaml:"ttl"`
}

// NotificationsConfig controls the expiration alert sweep.
type NotificationsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// AuthorizationConfig optionally replaces the built-in permission matrix.
type AuthorizationConfig struct {
	Matrix map[string][]string `yaml:"matrix"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cache := storage.DefaultCacheConfig()

	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatJSON,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Seed:   true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Size:       cache.Size,
			Users:      cache.Users,
			Groups:     cache.Groups,
			Categories: cache.Categories,
			Documents:  cache.Documents,
			Audit:      cache.Audit,
		},
		Session: SessionConfig{
			TTL: 12 * time.Hour,
		},
		Notifications: NotificationsConfig{
			Enabled:  true,
			Schedule: "0 8 * * *",
		},
	}
}

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load reads the YAML file at path, if any, then applies the process
// environment and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil, os.LookupEnv)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return Parse(f, os.LookupEnv)
}

// Parse decodes YAML from r over the defaults, applies the variables
// returned by env and validates the result. r may be nil.
func Parse(r io.Reader, env LookupFunc) (*Config, error) {
	cfg := Default()

	if r != nil {
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)

		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	if env != nil {
		if err := cfg.applyEnv(env); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(env LookupFunc) error {
	e := envReader{lookup: env}

	e.stringVar("ACDOCS_ADDR", &c.Server.Addr)
	e.durationVar("ACDOCS_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	e.listVar("ACDOCS_ALLOWED_ORIGINS", &c.Server.AllowedOrigins)
	e.stringVar("ACDOCS_LOG_LEVEL", &c.Log.Level)
	e.stringVar("ACDOCS_LOG_FORMAT", &c.Log.Format)
	e.stringVar("ACDOCS_STORE_DRIVER", &c.Store.Driver)
	e.stringVar("ACDOCS_STORE_DSN", &c.Store.DSN)
	e.boolVar("ACDOCS_SEED", &c.Store.Seed)
	e.intVar("ACDOCS_BCRYPT_COST", &c.Store.BcryptCost)
	e.boolVar("ACDOCS_CACHE_ENABLED", &c.Cache.Enabled)
	e.durationVar("ACDOCS_SESSION_TTL", &c.Session.TTL)
	e.boolVar("ACDOCS_NOTIFICATIONS_ENABLED", &c.Notifications.Enabled)
	e.stringVar("ACDOCS_NOTIFICATIONS_SCHEDULE", &c.Notifications.Schedule)

	return e.err
}

// Validate checks that every setting can be used as is.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server address is required", ErrInvalid)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalid, err)
	}

	switch c.Log.Format {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: sqlite store requires a dsn", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver)
	}

	if c.Store.BcryptCost < 0 {
		return fmt.Errorf("%w: bcrypt cost must not be negative", ErrInvalid)
	}

	for name, d := range map[string]time.Duration{
		"cache.users":            c.Cache.Users,
		"cache.groups":           c.Cache.Groups,
		"cache.categories":       c.Cache.Categories,
		"cache.documents":        c.Cache.Documents,
		"cache.audit":            c.Cache.Audit,
		"session.ttl":            c.Session.TTL,
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalid, name)
		}
	}

	if c.Notifications.Enabled {
		if _, err := cron.ParseStandard(c.Notifications.Schedule); err != nil {
			return fmt.Errorf("%w: notifications schedule: %w", ErrInvalid, err)
		}
	}

	if _, err := c.Matrix(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

// Matrix builds the configured permission matrix, or the built-in one when
// none is configured.
func (c *Config) Matrix() (*acl.Matrix, error) {
	if len(c.Authorization.Matrix) == 0 {
		return acl.DefaultMatrix(), nil
	}

	table := make(map[model.Role][]string, len(c.Authorization.Matrix))

	for name, grants := range c.Authorization.Matrix {
		role, err := model.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("authorization matrix: %w", err)
		}

		table[role] = grants
	}

	return acl.NewMatrix(table)
}

// StoreCache converts the cache settings for storage.NewCachedStore.
func (c *Config) StoreCache() storage.CacheConfig {
	return storage.CacheConfig{
		Size:       c.Cache.Size,
		Users:      c.Cache.Users,
		Groups:     c.Cache.Groups,
		Categories: c.Cache.Categories,
		Documents:  c.Cache.Documents,
		Audit:      c.Cache.Audit,
	}
}

// Logger builds a logrus logger writing to out.
func (c LogConfig) Logger(out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	if level, err := logrus.ParseLevel(c.Level); err == nil {
		log.SetLevel(level)
	}

	if c.Format == FormatText {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	return log
}

// envReader applies environment variables to config fields and keeps the
// first parse error.
type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}

	v = strings.TrimSpace(v)

	return v, v != ""
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%w: %s: %w", ErrInvalid, key, err)
	}
}

func (e *envReader) stringVar(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) listVar(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}

	out := make([]string, 0)

	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	*dst = out
}

func (e *envReader) boolVar(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, err)

		return
	}

	*dst = b
}

func (e *envReader) intVar(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)

		return
	}

	*dst = n
}

func (e *envReader) durationVar(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)

		return
	}

	*dst = d
}
