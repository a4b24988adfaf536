package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
db:
  dsn: "postgres://localhost/phonestore"
orders:
  decrement_stock: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Orders.DecrementStock)
	assert.Equal(t, "eur", cfg.Checkout.Currency)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, int64(60), cfg.Worker.IntervalSeconds)
	assert.Equal(t, 50, cfg.Worker.BatchSize)
	assert.Contains(t, cfg.Checkout.AllowedCountries, "FR")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
db:
  dsn: "postgres://localhost/phonestore"
`)
	t.Setenv("DB_DSN", "postgres://db/override")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("CHECKOUT_ALLOWED_COUNTRIES", "FR, DE,,")
	t.Setenv("DECREMENT_STOCK", "true")
	t.Setenv("WORKER_BATCH_SIZE", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://db/override", cfg.DB.DSN)
	assert.Equal(t, "whsec_test", cfg.Stripe.WebhookSecret)
	assert.Equal(t, []string{"FR", "DE"}, cfg.Checkout.AllowedCountries)
	assert.True(t, cfg.Orders.DecrementStock)
	assert.Equal(t, 50, cfg.Worker.BatchSize)
}

func TestLoad_MissingRequired(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.dsn")
}
