package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		viper.Reset()
		cfg := LoadConfig()

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, GatewaySimulated, cfg.PaymentGateway)
		assert.Equal(t, 0.8, cfg.PaymentSuccessRate)
		assert.Equal(t, 2*time.Second, cfg.PaymentDelay)
		assert.Equal(t, 20*time.Second, cfg.BackendTimeout)
		assert.Equal(t, "IGL", cfg.BookingReferencePrefix)
		assert.Equal(t, 20, cfg.MaxTravelers)
		assert.Equal(t, "/packages", cfg.CatalogPath)
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		viper.Reset()
		t.Setenv("PAYMENT_DELAY", "150ms")
		t.Setenv("PAYMENT_SUCCESS_RATE", "1")
		t.Setenv("MAX_TRAVELERS", "8")
		t.Setenv("BACKEND_URL", "http://api.internal")
		t.Setenv("PAYMENT_GATEWAY", "backend")
		cfg := LoadConfig()

		assert.Equal(t, 150*time.Millisecond, cfg.PaymentDelay)
		assert.Equal(t, 1.0, cfg.PaymentSuccessRate)
		assert.Equal(t, 8, cfg.MaxTravelers)
		assert.Equal(t, "http://api.internal", cfg.BackendURL)
		assert.Equal(t, GatewayBackend, cfg.PaymentGateway)
	})

	t.Run("UnknownGatewayFallsBack", func(t *testing.T) {
		viper.Reset()
		t.Setenv("PAYMENT_GATEWAY", "stripe")
		cfg := LoadConfig()
		assert.Equal(t, GatewaySimulated, cfg.PaymentGateway)
	})
}
