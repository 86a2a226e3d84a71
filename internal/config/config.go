package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/heliotropix/places-auth/internal/twitter"
)

// Store backend names accepted by STORE_BACKEND.
const (
	StoreFile    = "file"
	StoreKeyring = "keyring"
)

// Config holds all environment-based configuration for places-auth.
type Config struct {
	// Consumer credentials issued for the application. Always required.
	ConsumerKey    string `env:"TWITTER_CONSUMER_KEY"`
	ConsumerSecret string `env:"TWITTER_CONSUMER_SECRET"`

	// Custom URL scheme the authorization callback arrives on.
	CallbackScheme string `env:"CALLBACK_SCHEME" envDefault:"helioplaces"`

	// Where tokens are persisted: "file" (bbolt database) or "keyring"
	// (the OS credential store).
	StoreBackend string `env:"STORE_BACKEND" envDefault:"file"`

	// Path of the bbolt state database. Empty means the default under
	// the user's home directory. Ignored for the keyring backend.
	StatePath string `env:"STATE_PATH"`

	// Optional YAML file overriding the service endpoints, used to point
	// the client at a staging or mock server.
	EndpointsFile string `env:"ENDPOINTS_FILE"`

	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Resolve StatePath to an absolute path at startup so it stays
	// stable if the process changes directory later.
	if cfg.StatePath != "" {
		absPath, err := filepath.Abs(cfg.StatePath)
		if err != nil {
			return nil, fmt.Errorf("resolving state path to absolute path: %w", err)
		}

		cfg.StatePath = absPath
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ConsumerKey == "" {
		return fmt.Errorf("TWITTER_CONSUMER_KEY is required")
	}

	if c.ConsumerSecret == "" {
		return fmt.Errorf("TWITTER_CONSUMER_SECRET is required")
	}

	if c.CallbackScheme == "" {
		return fmt.Errorf("CALLBACK_SCHEME must not be empty")
	}

	if c.StoreBackend != StoreFile && c.StoreBackend != StoreKeyring {
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreFile, StoreKeyring, c.StoreBackend)
	}

	return nil
}

// Endpoints returns the service endpoints, applying the override file
// when one is configured. Fields absent from the file keep their
// production values.
func (c *Config) Endpoints() (twitter.Endpoints, error) {
	endpoints := twitter.DefaultEndpoints()

	if c.EndpointsFile == "" {
		return endpoints, nil
	}

	data, err := os.ReadFile(c.EndpointsFile)
	if err != nil {
		return twitter.Endpoints{}, fmt.Errorf("reading endpoints file: %w", err)
	}

	if err := yaml.Unmarshal(data, &endpoints); err != nil {
		return twitter.Endpoints{}, fmt.Errorf("parsing endpoints file: %w", err)
	}

	return endpoints, nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
