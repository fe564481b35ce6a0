package conf

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paper-guides/backend/captcha"
	"github.com/paper-guides/backend/subm"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	ListenAddr      string   `toml:"listen_addr"`
	JwtKey          string   `toml:"jwt_key"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	MaxBlobBytes    int64    `toml:"max_blob_bytes"`
	MaxRequestBytes int64    `toml:"max_request_bytes"`

	Captcha  CaptchaConfig  `toml:"captcha"`
	Postgres PostgresConfig `toml:"postgres"`
	Log      LogConfig      `toml:"log"`
}

type CaptchaConfig struct {
	Secret     string `toml:"secret"`
	VerifyURL  string `toml:"verify_url"`
	MaxRetries int    `toml:"max_retries"`
}

type PostgresConfig struct {
	Host               string `toml:"host"`
	Port               string `toml:"port"`
	User               string `toml:"user"`
	Password           string `toml:"password"`
	DB                 string `toml:"db"`
	SSLMode            string `toml:"sslmode"`
	PasswordSecretName string `toml:"password_secret_name"`
}

type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Load reads the optional TOML file at path, applies environment
// overrides and fills in defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setStr(&c.ListenAddr, "LISTEN_ADDR")
	setStr(&c.JwtKey, "JWT_KEY")
	setStr(&c.Captcha.Secret, "TURNSTILE_SECRET")
	setStr(&c.Captcha.VerifyURL, "TURNSTILE_VERIFY_URL")
	setStr(&c.Postgres.Host, "POSTGRES_HOST")
	setStr(&c.Postgres.Port, "POSTGRES_PORT")
	setStr(&c.Postgres.User, "POSTGRES_USER")
	setStr(&c.Postgres.Password, "POSTGRES_PW")
	setStr(&c.Postgres.DB, "POSTGRES_DB")
	setStr(&c.Postgres.SSLMode, "POSTGRES_SSLMODE")
	setStr(&c.Postgres.PasswordSecretName, "POSTGRES_PASSWORD_SECRET_NAME")
	setStr(&c.Log.Level, "LOG_LEVEL")

	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		c.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}

	var errs []error
	if v, ok := os.LookupEnv("CAPTCHA_MAX_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CAPTCHA_MAX_RETRIES: %w", err))
		}
		c.Captcha.MaxRetries = n
	}
	if v, ok := os.LookupEnv("MAX_BLOB_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_BLOB_BYTES: %w", err))
		}
		c.MaxBlobBytes = n
	}
	if v, ok := os.LookupEnv("MAX_REQUEST_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_REQUEST_BYTES: %w", err))
		}
		c.MaxRequestBytes = n
	}
	if v, ok := os.LookupEnv("LOG_JSON"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOG_JSON: %w", err))
		}
		c.Log.JSON = b
	}
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.MaxBlobBytes <= 0 {
		c.MaxBlobBytes = subm.DefaultMaxBlobBytes
	}
	if c.MaxRequestBytes <= 0 {
		// two blobs plus form overhead
		c.MaxRequestBytes = 2*c.MaxBlobBytes + 1<<20
	}
	if c.Captcha.VerifyURL == "" {
		c.Captcha.VerifyURL = captcha.DefaultVerifyURL
	}
	if c.Captcha.MaxRetries <= 0 {
		c.Captcha.MaxRetries = captcha.DefaultMaxRetries
	}
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == "" {
		c.Postgres.Port = "5432"
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"http://localhost:3000"}
	}
}

// ValidateServer checks the settings the HTTP server cannot start without.
func (c *Config) ValidateServer() error {
	var missing []string
	if c.JwtKey == "" {
		missing = append(missing, "JWT_KEY")
	}
	if c.Captcha.Secret == "" {
		missing = append(missing, "TURNSTILE_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) CaptchaConfig() captcha.Config {
	return captcha.Config{
		Secret:     c.Captcha.Secret,
		VerifyURL:  c.Captcha.VerifyURL,
		MaxRetries: c.Captcha.MaxRetries,
	}
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
