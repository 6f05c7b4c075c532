package config

import (
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shop")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "pgx", cfg.DB.Driver)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL())
	assert.Equal(t, "usd", cfg.Stripe.Currency)
	assert.Equal(t, 200, cfg.RateLimit.PerMinute)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.CORS.Origins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "products", cfg.Elastic.Index)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("JWT_EXPIRES", "15m")
	t.Setenv("REFRESH_TOKEN_EXPIRES_DAYS", "30")
	t.Setenv("CURRENCY", "eur")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.RefreshTTL())
	assert.Equal(t, "eur", cfg.Stripe.Currency)
}

func TestMigrate(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable("order_items"))
}
