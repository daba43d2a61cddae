package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"strings"
	"time"
)

// Config represents the application configuration structure
type Config struct {
	Environment string `default:"prod"`

	// APIBaseURL is the fixed root every backend path is appended to (i.e. 'http://localhost:8080/api')
	APIBaseURL string `default:"http://localhost:8080/api" split_words:"true"`

	// RequestTimeout bounds a single backend call; 0 disables the timeout
	RequestTimeout time.Duration `default:"0s" split_words:"true"`

	ConsoleListenAddress string `default:":8081" split_words:"true"`
	ConsoleAllowedOrigin string `default:"http://localhost:5173" split_words:"true"`
	ConsoleSecureCookies bool   `default:"false" split_words:"true"`

	// TabLifetime is the idle time after which a tab's session (and its persisted token) is forgotten
	TabLifetime time.Duration `default:"12h" split_words:"true"`

	// TabSweepInterval defines how often expired tabs are swept
	TabSweepInterval time.Duration `default:"1m" split_words:"true"`
}

// IsEnvProduction returns whether the application runs in production mode
func (config *Config) IsEnvProduction() bool {
	return strings.ToLower(config.Environment) == "prod"
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	// Load a new configuration structure using environment variables
	config := new(Config)
	if err := envconfig.Process("rc", config); err != nil {
		return nil, err
	}
	config.APIBaseURL = strings.TrimRight(config.APIBaseURL, "/")
	return config, nil
}
