package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/gadgethub-api/internal/domain/auth"
)

const (
	defaultAddr = "0.0.0.0:8080"
	// minSecretLen is the HS256 key size in bytes.
	minSecretLen = 32
)

// Config holds the application configuration, loadable from environment
// variables (GADGETHUB_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (GADGETHUB_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	JWT         JWTConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// JWTConfig controls bearer token signing.
type JWTConfig struct {
	Secret   string        `usage:"HS256 signing secret, at least 32 bytes (GADGETHUB_JWT_SECRET or JWT_SECRET)" flag:"jwt-secret"`
	Issuer   string        `default:"GadgetHubAPI" usage:"Token issuer"`
	Audience string        `default:"GadgetHubAPI" usage:"Token audience"`
	TTL      time.Duration `default:"168h" usage:"Token lifetime"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window, 0 disables limiting"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from the environment, flags and YAML files,
// applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "GADGETHUB",
		Files:     []string{"config.yaml", "/etc/gadgethub/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set GADGETHUB_DATABASE_URL or DATABASE_URL")
	}
	if len(c.JWT.Secret) < minSecretLen {
		return errors.Errorf("jwt secret must be at least %d bytes: set GADGETHUB_JWT_SECRET or JWT_SECRET", minSecretLen)
	}
	if c.JWT.TTL <= 0 {
		return errors.Errorf("jwt ttl must be positive, got %s", c.JWT.TTL)
	}
	return nil
}

// Auth returns the token parameters for the credential manager.
func (c *Config) Auth() auth.Config {
	return auth.Config{
		Secret:   []byte(c.JWT.Secret),
		Issuer:   c.JWT.Issuer,
		Audience: c.JWT.Audience,
		TTL:      c.JWT.TTL,
	}
}

// applyPlatformDefaults maps the unprefixed DATABASE_URL, JWT_SECRET and PORT
// variables set by hosting platforms.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.JWT.Secret == "" {
		c.JWT.Secret = os.Getenv("JWT_SECRET")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
