package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// Config is the gateway configuration, read from AUTH_* environment
// variables.
type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	BackendURL  string `env:"BACKEND_URL" envDefault:"http://localhost:8080"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	RoutePrefix string `env:"ROUTE_PREFIX" envDefault:"/auth"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`

	SigningKey string        `env:"SIGNING_KEY"`
	Issuer     string        `env:"ISSUER" envDefault:"go-auth-gateway"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"5m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"24h"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCertsURL     string `env:"GOOGLE_CERTS_URL" envDefault:"https://www.googleapis.com/oauth2/v3/certs"`

	FacebookClientID     string `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"FACEBOOK_CLIENT_SECRET"`
	FacebookState        string `env:"FACEBOOK_STATE"`

	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"file:auth.db?cache=shared"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	UseHashid bool `env:"USE_HASHID" envDefault:"false"`
	Debug     bool `env:"DEBUG" envDefault:"false"`
}

// LoadConfig parses the environment and validates the result.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(nil)
}

// LoadConfigFrom parses environment, or the process environment when
// environment is nil.
func LoadConfigFrom(environment map[string]string) (Config, error) {
	opts := env.Options{Prefix: "AUTH_"}
	if environment != nil {
		opts.Environment = environment
	}

	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryBadInput, "failed to parse configuration")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryValidation, "invalid configuration")
	}

	return cfg, nil
}

// Validate checks required values and URL formats.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.BackendURL, validation.Required, is.URL),
		validation.Field(&c.FrontendURL, validation.Required, is.URL),
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.AccessTTL, validation.Required),
		validation.Field(&c.RefreshTTL, validation.Required),
	)
	if err != nil {
		return err
	}

	if c.FacebookEnabled() && c.FacebookState == "" {
		return validation.Errors{
			"FacebookState": errors.New("cannot be blank when facebook is enabled", errors.CategoryValidation),
		}
	}
	return nil
}

func (c Config) GetBackendURL() string {
	return c.BackendURL
}

func (c Config) GetFrontendURL() string {
	return c.FrontendURL
}

func (c Config) GetRoutePrefix() string {
	return c.RoutePrefix
}

func (c Config) GetUseHashid() bool {
	return c.UseHashid
}

func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c Config) FacebookEnabled() bool {
	return c.FacebookClientID != "" && c.FacebookClientSecret != ""
}
