package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "GUARDIAN"

// MinSecretLength is the shortest accepted HS256 signing secret.
const MinSecretLength = 32

// Config holds runtime configuration for the service and tokenctl.
type Config struct {
	Env            string        `envconfig:"ENV" default:"development"`
	Addr           string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout    time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	AuthSecret string        `envconfig:"AUTH_SECRET" required:"true"`
	TokenTTL   time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	PGDSN string `envconfig:"PG_DSN"`
}

// DatabaseConfig is the subset read by tools that never sign tokens.
type DatabaseConfig struct {
	PGDSN     string `envconfig:"PG_DSN"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

func loadEnvFiles(envFiles []string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads an optional .env file and then the GUARDIAN_* environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants envconfig tags cannot express.
func (c *Config) Validate() error {
	if len(strings.TrimSpace(c.AuthSecret)) < MinSecretLength {
		return fmt.Errorf("%s_AUTH_SECRET must be at least %d bytes", envPrefix, MinSecretLength)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%s_TOKEN_TTL must be positive", envPrefix)
	}
	return nil
}

// IsProduction returns true when the service runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// LoadDatabase is Load for DatabaseConfig. It does not require a secret.
func LoadDatabase(envFiles ...string) (*DatabaseConfig, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}
	var cfg DatabaseConfig
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
