package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:               "8080",
		Env:                "production",
		DBPassword:         "secure-password",
		DBSSLMode:          "require",
		ClerkSecretKey:     "sk_live_x",
		ClerkJWTKey:        "-----BEGIN PUBLIC KEY-----",
		ImageKitPrivateKey: "private_x",
		UploadMaxSizeMB:    10,
		UpstreamTimeout:    30 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid production", func(_ *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"default db password in production", func(c *Config) { c.DBPassword = "password" }, true},
		{"ssl disabled in production", func(c *Config) { c.DBSSLMode = "disable" }, true},
		{"prod alias checks ssl", func(c *Config) { c.Env = "prod"; c.DBSSLMode = "" }, true},
		{"missing clerk secret in production", func(c *Config) { c.ClerkSecretKey = "" }, true},
		{"missing jwt key in production", func(c *Config) { c.ClerkJWTKey = "" }, true},
		{"missing imagekit key in production", func(c *Config) { c.ImageKitPrivateKey = "" }, true},
		{"development tolerates defaults", func(c *Config) {
			c.Env = "development"
			c.DBPassword = "password"
			c.DBSSLMode = "disable"
			c.ClerkSecretKey = ""
			c.ImageKitPrivateKey = ""
		}, false},
		{"zero upload limit", func(c *Config) { c.UploadMaxSizeMB = 0 }, true},
		{"zero upstream timeout", func(c *Config) { c.UpstreamTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvOverridesAndNormalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("CLERK_API_URL", "https://api.clerk.test/v1/")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("CLERK_AUTHORIZED_PARTIES", "http://localhost:3000, https://marvel.example ,")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "https://api.clerk.test/v1", c.ClerkAPIURL)
	assert.Equal(t, 5*time.Second, c.UpstreamTimeout)
	assert.Equal(t, int64(10*1024*1024), c.UploadMaxBytes())
	assert.Equal(t, []string{"http://localhost:3000", "https://marvel.example"}, c.AuthorizedParties())
	assert.False(t, c.IsProduction())
}
