package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("KAFKA_ENABLED", "")
	t.Setenv("DATABASE_MIGRATE", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("SALE_CACHE_TTL_SECONDS", "")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Database.Migrate)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "ledger-changes", cfg.Kafka.TopicChanges)
	assert.Equal(t, 5*time.Minute, cfg.Business.SaleCacheTTL())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("DATABASE_MIGRATE", "false")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DEFAULT_OWNER_ID", "shop-7")
	t.Setenv("SALE_CACHE_TTL_SECONDS", "30")

	cfg := Load()
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.False(t, cfg.Database.Migrate)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "shop-7", cfg.Business.DefaultOwnerID)
	assert.Equal(t, 30*time.Second, cfg.Business.SaleCacheTTL())
}
