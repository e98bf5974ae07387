package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:               ":8080",
		DatabaseURL:        "postgres://localhost/paycore",
		Environment:        "development",
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 120,
		DefaultLeaveGrant:  20,
	}
}

func TestValidateRequiresDatabaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = " "
	require.Error(t, cfg.Validate())
}

func TestValidateProductionRequiresJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "production"
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "a-strong-secret"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsNegativeLeaveGrant(t *testing.T) {
	cfg := validConfig()
	cfg.DefaultLeaveGrant = -1
	require.Error(t, cfg.Validate())
}

func TestValidateOK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}
