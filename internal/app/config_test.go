package app

import (
	"strings"
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testLoader() aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "GADGETHUB",
		SkipFiles: true,
		SkipFlags: true,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GADGETHUB_DATABASE_URL", "postgres://localhost/gadgethub")
	t.Setenv("GADGETHUB_JWT_SECRET", testSecret)

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, "GadgetHubAPI", cfg.JWT.Issuer)
	assert.Equal(t, "GadgetHubAPI", cfg.JWT.Audience)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)

	ac := cfg.Auth()
	assert.Equal(t, []byte(testSecret), ac.Secret)
	assert.Equal(t, cfg.JWT.TTL, ac.TTL)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "9000")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, testSecret, cfg.JWT.Secret)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_PrefixedWins(t *testing.T) {
	t.Setenv("GADGETHUB_DATABASE_URL", "postgres://prefixed/db")
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("GADGETHUB_JWT_SECRET", testSecret)

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)
	assert.Equal(t, "postgres://prefixed/db", cfg.DatabaseURL)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseURL: "postgres://localhost/db",
			JWT:         JWTConfig{Secret: testSecret, TTL: time.Hour},
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "database URL is required"},
		{name: "missing secret", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: "at least 32 bytes"},
		{name: "short secret", mutate: func(c *Config) { c.JWT.Secret = strings.Repeat("x", 31) }, wantErr: "at least 32 bytes"},
		{name: "zero ttl", mutate: func(c *Config) { c.JWT.TTL = 0 }, wantErr: "ttl must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
