package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	RestCountriesAPIBaseURL     string        `env:"RESTCOUNTRIES_API_BASE_URL,default=https://restcountries.com/v3.1"`
	AuthAPIBaseURL              string        `env:"AUTH_API_BASE_URL,default=http://localhost:5001"`
	StateDriver                 string        `env:"STATE_DRIVER,default=sqlite"`
	SQLitePath                  string        `env:"SQLITE_PATH,default=data/country-explorer.db"`
	MongoURI                    string        `env:"MONGO_URI"`
	MongoAuthDB                 string        `env:"MONGO_AUTH_DB,default=admin"`
	MongoUser                   string        `env:"MONGO_USER"`
	MongoPass                   string        `env:"MONGO_PASS"`
	DBLocalState                string        `env:"DB_LOCAL_STATE_NAME,default=country_explorer"`
	CollectionLocalState        string        `env:"COLLECTION_LOCAL_STATE,default=local_state"`
	CollectionMigrationsHistory string        `env:"COLLECTION_MIGRATIONS_HISTORY,default=migrations_history"`
	RequestTimeout              time.Duration `env:"REQUEST_TIMEOUT,default=15s"`
	WorkerCount                 int           `env:"WORKER_COUNT,default=4"`
	SessionCheckInterval        time.Duration `env:"SESSION_CHECK_INTERVAL,default=10m"`
	HTTPAddr                    string        `env:"HTTP_ADDR,default=127.0.0.1:8080"`
	LogLevel                    string        `env:"LOG_LEVEL,default=info"`
	FailurePolicy               string        `env:"FAILURE_POLICY,default=empty"`
	BrowseDispatch              string        `env:"BROWSE_DISPATCH,default=inline"`
}

// Load reads the optional .env file and decodes the environment into a Config.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("error decoding environment: %w", err)
	}

	if cfg.MongoURI == "" {
		cfg.MongoURI = getMongoURI()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that would otherwise fail much later.
func (c *Config) Validate() error {
	switch c.StateDriver {
	case "sqlite", "mongo", "memory":
	default:
		return fmt.Errorf("unsupported STATE_DRIVER %q", c.StateDriver)
	}
	switch c.FailurePolicy {
	case "empty", "keep":
	default:
		return fmt.Errorf("unsupported FAILURE_POLICY %q", c.FailurePolicy)
	}
	switch c.BrowseDispatch {
	case "inline", "pool":
	default:
		return fmt.Errorf("unsupported BROWSE_DISPATCH %q", c.BrowseDispatch)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.StateDriver == "mongo" && c.MongoURI == "" {
		return errors.New("STATE_DRIVER=mongo requires MONGO_URI or MONGO_HOST")
	}
	return nil
}

// getMongoURI constructs the MongoDB URI from environment variables
func getMongoURI() string {
	host := os.Getenv("MONGO_HOST")
	if host == "" {
		return ""
	}
	port := os.Getenv("MONGO_PORT")
	if port == "" {
		port = "27017"
	}
	user := os.Getenv("MONGO_USER")
	pass := os.Getenv("MONGO_PASS")
	if user == "" {
		return "mongodb://" + host + ":" + port
	}

	return "mongodb://" + user + ":" + pass + "@" + host + ":" + port
}
