// Package config resolves server settings from defaults, an optional YAML
// file, and the environment, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/passgate/internal/logging"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MinSecretLength is the shortest JWT_SECRET that starts without a warning.
const MinSecretLength = 32

type Config struct {
	// Server
	Port                   string `yaml:"port"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`

	// Storage
	DBDriver    string `yaml:"db_driver"`
	DatabaseURL string `yaml:"database_url"`

	// Tokens; the secret is only ever read from the environment
	JWTSecret   []byte `yaml:"-"`
	TokenIssuer string `yaml:"token_issuer"`

	// Password hashing
	PasswordAlgorithm string `yaml:"password_algorithm"`
	BcryptCost        int    `yaml:"bcrypt_cost"`
	HashWorkers       int    `yaml:"hash_workers"` // 0 = GOMAXPROCS

	// Login throttling
	LoginMaxAttempts    int  `yaml:"login_max_attempts"`
	LoginWindowSeconds  int  `yaml:"login_window_seconds"`
	LoginResetOnSuccess bool `yaml:"login_reset_on_success"`
	LimiterSweepSeconds int  `yaml:"limiter_sweep_seconds"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// ConfigFile is the YAML overlay this config was read with, if any.
	ConfigFile string `yaml:"-"`

	lookup LookupFunc
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

func Defaults() *Config {
	return &Config{
		Port:                   "8080",
		ShutdownTimeoutSeconds: 10,
		DBDriver:               "sqlite",
		DatabaseURL:            "passgate.db",
		PasswordAlgorithm:      "bcrypt",
		BcryptCost:             10,
		LoginMaxAttempts:       5,
		LoginWindowSeconds:     300,
		LoginResetOnSuccess:    true,
		LimiterSweepSeconds:    60,
		LogLevel:               "info",
		LogFormat:              "text",
	}
}

// Load reads a .env file from the working directory if there is one, then
// resolves the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %v", err)
	}
	return Parse(os.LookupEnv)
}

// Parse resolves a Config against lookup without touching the process
// environment.
func Parse(lookup LookupFunc) (*Config, error) {
	cfg := Defaults()
	cfg.lookup = lookup

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Reload resolves the config again with the same environment, picking up
// changes to the YAML file.
func (c *Config) Reload() (*Config, error) {
	lookup := c.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return Parse(lookup)
}

func (c *Config) LoginWindow() time.Duration {
	return time.Duration(c.LoginWindowSeconds) * time.Second
}

func (c *Config) LimiterSweepInterval() time.Duration {
	return time.Duration(c.LimiterSweepSeconds) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) WeakSecret() bool {
	return len(c.JWTSecret) < MinSecretLength
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %v", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %v", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	env := envReader{lookup: lookup}

	env.setString("PORT", &c.Port)
	env.setInt("SHUTDOWN_TIMEOUT_SECONDS", &c.ShutdownTimeoutSeconds)
	env.setString("DB_DRIVER", &c.DBDriver)
	env.setString("DATABASE_URL", &c.DatabaseURL)
	if secret, ok := lookup("JWT_SECRET"); ok {
		c.JWTSecret = []byte(secret)
	}
	env.setString("TOKEN_ISSUER", &c.TokenIssuer)
	env.setString("PASSWORD_ALGORITHM", &c.PasswordAlgorithm)
	env.setInt("BCRYPT_COST", &c.BcryptCost)
	env.setInt("HASH_WORKERS", &c.HashWorkers)
	env.setInt("LOGIN_MAX_ATTEMPTS", &c.LoginMaxAttempts)
	env.setInt("LOGIN_WINDOW_SECONDS", &c.LoginWindowSeconds)
	env.setBool("LOGIN_RESET_ON_SUCCESS", &c.LoginResetOnSuccess)
	env.setInt("LIMITER_SWEEP_SECONDS", &c.LimiterSweepSeconds)
	env.setString("LOG_LEVEL", &c.LogLevel)
	env.setString("LOG_FORMAT", &c.LogFormat)

	return errors.Join(env.errs...)
}

func (c *Config) validate() error {
	var errs []error

	if len(c.JWTSecret) == 0 {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if _, err := strconv.ParseUint(c.Port, 10, 16); err != nil {
		errs = append(errs, fmt.Errorf("PORT must be a port number, got %q", c.Port))
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.PasswordAlgorithm {
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_ALGORITHM must be bcrypt or argon2id, got %q", c.PasswordAlgorithm))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}
	if c.HashWorkers < 0 {
		errs = append(errs, fmt.Errorf("HASH_WORKERS must not be negative, got %d", c.HashWorkers))
	}

	for _, v := range []struct {
		name  string
		value int
	}{
		{"LOGIN_MAX_ATTEMPTS", c.LoginMaxAttempts},
		{"LOGIN_WINDOW_SECONDS", c.LoginWindowSeconds},
		{"LIMITER_SWEEP_SECONDS", c.LimiterSweepSeconds},
		{"SHUTDOWN_TIMEOUT_SECONDS", c.ShutdownTimeoutSeconds},
	} {
		if v.value < 1 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", v.name, v.value))
		}
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %v", err))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) setString(key string, dst *string) {
	if value, ok := e.lookup(key); ok && value != "" {
		*dst = value
	}
}

func (e *envReader) setInt(key string, dst *int) {
	value, ok := e.lookup(key)
	if !ok || value == "" {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be an integer, got %q", key, value))
		return
	}
	*dst = n
}

func (e *envReader) setBool(key string, dst *bool) {
	value, ok := e.lookup(key)
	if !ok || value == "" {
		return
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be a boolean, got %q", key, value))
		return
	}
	*dst = b
}
