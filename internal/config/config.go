// Package config provides configuration loading for the PACT servers.
//
// Configuration is loaded from a single YAML file specified by:
//   - the PACT_CONFIG environment variable, or
//   - the --config flag passed to the command
//
// When no file is present, development defaults are used.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can use Go duration
// syntax ("72h", "15m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Environment identifies the deployment type.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the master configuration shared by cmd/pact and cmd/pact-web.
type Config struct {
	// Environment identifies the deployment type. Production enables
	// Secure cookies.
	Environment Environment `yaml:"environment"`

	// Listen is the API server's TCP listen address.
	Listen string `yaml:"listen"`

	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Web      WebConfig      `yaml:"web"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path is the sqlite database file path.
	Path string `yaml:"path"`
}

// AuthConfig configures token issuance and external identity login.
type AuthConfig struct {
	// TokenSecret is the HMAC key for auth tokens. If empty, the API
	// server generates an ephemeral secret at startup (tokens do not
	// survive a restart).
	TokenSecret string `yaml:"token_secret"`

	// TokenTTL is how long issued tokens stay valid.
	TokenTTL Duration `yaml:"token_ttl"`

	Google GoogleConfig `yaml:"google"`
}

// GoogleConfig holds the OAuth client registration. Google login is
// disabled when ClientID is empty.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// WebConfig configures the frontend server.
type WebConfig struct {
	// Listen is the frontend server's TCP listen address.
	Listen string `yaml:"listen"`

	// APIURL is where the same-origin proxy forwards /api requests.
	APIURL string `yaml:"api_url"`

	// BaseURL is the public origin of the frontend, used as the
	// post-login redirect target for OAuth callbacks.
	BaseURL string `yaml:"base_url"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Environment: Development,
		Listen:      ":8080",
		Database:    DatabaseConfig{Path: "pact.db"},
		Auth:        AuthConfig{TokenTTL: Duration(72 * time.Hour)},
		Web: WebConfig{
			Listen:  ":3000",
			APIURL:  "http://localhost:8080",
			BaseURL: "http://localhost:3000",
		},
	}
}

// Load reads the config file at path, or falls back to PACT_CONFIG when
// path is empty. A missing file is not an error: defaults are returned.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv("PACT_CONFIG")
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = Duration(72 * time.Hour)
	}
	if cfg.Environment != Production {
		cfg.Environment = Development
	}

	return cfg, nil
}
