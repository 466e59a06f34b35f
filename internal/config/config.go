package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Smartflo SmartfloConfig
	Calls    CallsConfig
}

type AppConfig struct {
	Env  string
	Port int
	// LogLevel overrides the env-derived level: debug, info, warn, error.
	LogLevel string
	// LogFile, when set, also writes JSON logs to a size-rotated file.
	LogFile string
	// CORSOrigins lists the dashboard origins allowed to call the API.
	CORSOrigins []string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// MaxOpenConns caps the shared pool; 0 keeps the pool default.
	MaxOpenConns int
	// Migrate applies the embedded schema migrations on startup.
	Migrate bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// SmartfloConfig configures the click-to-call vendor.
type SmartfloConfig struct {
	BaseURL  string
	APIToken string
	CallerID string
	// PollMode is "handle" (poll the URL returned by origination) or
	// "live_calls" (search the live calls list by customer number).
	PollMode string
}

// CallsConfig tunes the call session tracker.
type CallsConfig struct {
	PollInterval   time.Duration
	PollTimeout    time.Duration
	RefreshDelay   time.Duration
	RequestTimeout time.Duration
	LockTTL        time.Duration
}

// Load reads the process environment. Malformed values and failed
// validation are reported together.
func Load() (Config, error) {
	e := &envReader{}
	c := Config{
		App: AppConfig{
			Env:         e.str("APP_ENV"),
			Port:        e.requiredInt("APP_PORT"),
			LogLevel:    strings.ToLower(e.str("LOG_LEVEL")),
			LogFile:     e.str("LOG_FILE"),
			CORSOrigins: e.list("CORS_ALLOWED_ORIGINS"),
		},
		DB: DBConfig{
			Host:         e.str("DB_HOST"),
			Port:         e.requiredInt("DB_PORT"),
			User:         e.str("DB_USER"),
			Password:     os.Getenv("DB_PASSWORD"),
			Name:         e.str("DB_NAME"),
			SSLMode:      e.str("DB_SSLMODE"),
			MaxOpenConns: e.optionalInt("DB_MAX_OPEN_CONNS"),
			Migrate:      e.optionalBool("DB_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     e.str("REDIS_HOST"),
			Port:     e.requiredInt("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       e.optionalInt("REDIS_DB"),
		},
		Auth: AuthConfig{
			JWTSecret:   os.Getenv("JWT_SECRET"),
			JWTIssuer:   e.str("JWT_ISSUER"),
			JWTAudience: e.str("JWT_AUDIENCE"),
			// Durations are optional; Validate fills defaults.
			AccessTokenTTL:  e.duration("JWT_ACCESS_TTL"),
			RefreshTokenTTL: e.duration("JWT_REFRESH_TTL"),
		},
		Smartflo: SmartfloConfig{
			BaseURL:  strings.TrimRight(e.str("SMARTFLO_BASE_URL"), "/"),
			APIToken: os.Getenv("SMARTFLO_API_TOKEN"),
			CallerID: e.str("SMARTFLO_CALLER_ID"),
			PollMode: e.str("SMARTFLO_POLL_MODE"),
		},
		Calls: CallsConfig{
			PollInterval:   e.duration("CALL_POLL_INTERVAL"),
			PollTimeout:    e.duration("CALL_POLL_TIMEOUT"),
			RefreshDelay:   e.duration("CALL_REFRESH_DELAY"),
			RequestTimeout: e.duration("CALL_REQUEST_TIMEOUT"),
			LockTTL:        e.duration("CALL_LOCK_TTL"),
		},
	}

	if err := joinErrors(e.errs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults for optional ones.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, c.validateApp()...)
	errs = append(errs, c.validateDB()...)
	errs = append(errs, c.validateRedis()...)
	errs = append(errs, c.validateAuth()...)
	errs = append(errs, c.validateSmartflo()...)
	errs = append(errs, c.validateCalls()...)
	return joinErrors(errs)
}

func (c *Config) validateApp() []error {
	var errs []error
	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !oneOf(c.App.Env, "local", "dev", "staging", "production") {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if !validPort(c.App.Port) {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.LogLevel != "" && !oneOf(c.App.LogLevel, "debug", "info", "warn", "error") {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.App.LogLevel))
	}
	for _, o := range c.App.CORSOrigins {
		if o != "*" && !isHTTPURL(o) {
			errs = append(errs, fmt.Errorf("CORS_ALLOWED_ORIGINS entries must be http(s) origins, got %q", o))
		}
	}
	return errs
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if !validPort(c.DB.Port) {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	switch {
	case c.DB.SSLMode == "" && c.IsProduction():
		errs = append(errs, errors.New("DB_SSLMODE is required in production"))
	case c.DB.SSLMode == "":
		// Local-friendly default; production must be explicit.
		c.DB.SSLMode = "disable"
	case !oneOf(c.DB.SSLMode, "disable", "require", "verify-ca", "verify-full"):
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	if c.DB.MaxOpenConns < 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 0, got %d", c.DB.MaxOpenConns))
	}
	return errs
}

func (c *Config) validateRedis() []error {
	var errs []error
	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if !validPort(c.Redis.Port) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("REDIS_DB must be >= 0, got %d", c.Redis.DB))
	}
	return errs
}

func (c *Config) validateAuth() []error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	setDefault(&c.Auth.AccessTokenTTL, 15*time.Minute)
	setDefault(&c.Auth.RefreshTokenTTL, 30*24*time.Hour)
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}
	return errs
}

func (c *Config) validateSmartflo() []error {
	var errs []error
	if c.Smartflo.BaseURL == "" {
		errs = append(errs, errors.New("SMARTFLO_BASE_URL is required"))
	} else if !isHTTPURL(c.Smartflo.BaseURL) {
		errs = append(errs, fmt.Errorf("SMARTFLO_BASE_URL must be an http(s) URL, got %q", c.Smartflo.BaseURL))
	}
	if c.Smartflo.APIToken == "" {
		errs = append(errs, errors.New("SMARTFLO_API_TOKEN is required"))
	}
	if c.Smartflo.PollMode == "" {
		c.Smartflo.PollMode = "handle"
	}
	if !oneOf(c.Smartflo.PollMode, "handle", "live_calls") {
		errs = append(errs, fmt.Errorf("SMARTFLO_POLL_MODE must be one of handle, live_calls, got %q", c.Smartflo.PollMode))
	}
	return errs
}

func (c *Config) validateCalls() []error {
	setDefault(&c.Calls.PollInterval, 5*time.Second)
	setDefault(&c.Calls.PollTimeout, 30*time.Second)
	setDefault(&c.Calls.RefreshDelay, 5*time.Second)
	setDefault(&c.Calls.RequestTimeout, 10*time.Second)
	// Upper bound on a single call; a crashed instance frees the agent after this.
	setDefault(&c.Calls.LockTTL, 2*time.Hour)
	if c.Calls.PollTimeout <= c.Calls.PollInterval {
		return []error{errors.New("CALL_POLL_TIMEOUT must be greater than CALL_POLL_INTERVAL")}
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// envReader reads typed values and collects every parse failure.
type envReader struct {
	errs []error
}

func (e *envReader) str(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func (e *envReader) fail(err error) {
	e.errs = append(e.errs, err)
}

func (e *envReader) requiredInt(key string) int {
	v := e.str(key)
	if v == "" {
		e.fail(fmt.Errorf("%s is required", key))
		return 0
	}
	return e.parseInt(key, v)
}

func (e *envReader) optionalInt(key string) int {
	v := e.str(key)
	if v == "" {
		return 0
	}
	return e.parseInt(key, v)
}

func (e *envReader) parseInt(key, v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(fmt.Errorf("%s must be an integer, got %q", key, v))
		return 0
	}
	return n
}

func (e *envReader) optionalBool(key string) bool {
	v := e.str(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(fmt.Errorf("%s must be a boolean, got %q", key, v))
		return false
	}
	return b
}

// duration returns 0 when key is unset so Validate can apply the default.
func (e *envReader) duration(key string) time.Duration {
	v := e.str(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(fmt.Errorf("%s must be a duration like 5s or 2m, got %q", key, v))
		return 0
	}
	return d
}

// list splits a comma-separated value, dropping blanks and trailing slashes.
func (e *envReader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.TrimRight(p, "/"))
		}
	}
	return out
}

func setDefault(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

func isHTTPURL(v string) bool {
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
