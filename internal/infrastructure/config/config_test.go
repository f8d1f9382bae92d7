package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "sklad-fulfillment", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "sklad", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "", cfg.Redis.Addr())

		assert.Equal(t, 15*time.Second, cfg.Cache.NewOrdersTTL)
		assert.Equal(t, 12*time.Second, cfg.Cache.OrdersTTL)
		assert.Equal(t, 5*time.Second, cfg.Cache.SuppliesTTL)
		assert.Equal(t, 6*time.Hour, cfg.Cache.ProductTTL)
		assert.Equal(t, 15*time.Minute, cfg.Cache.ProductMissTTL)
		assert.Equal(t, 12*time.Hour, cfg.Cache.CatalogTTL)

		assert.Equal(t, 100, cfg.Supply.OrderBatchSize)
		assert.Equal(t, 0, cfg.Supply.MaxCreateCount)
		assert.Equal(t, 30, cfg.Supply.ResolveBatch)
		assert.Equal(t, 60*time.Second, cfg.Supply.SyncInterval)
		assert.Equal(t, 60*time.Second, cfg.Supply.RateBackoff)

		assert.Equal(t, "png", cfg.Labels.Type)
		assert.Equal(t, 58, cfg.Labels.Width)
		assert.Equal(t, 40, cfg.Labels.Height)
		assert.Equal(t, 100, cfg.Labels.BatchSize)

		assert.True(t, cfg.Backfill.Enabled)
		assert.Equal(t, 30, cfg.Backfill.BatchSize)
		assert.Equal(t, 10*time.Minute, cfg.Backfill.Interval)
		assert.Equal(t, 8*time.Second, cfg.Backfill.InitialDelay)

		assert.Equal(t, 200*time.Millisecond, cfg.Marketplace.ListInterval)
		assert.Equal(t, 650*time.Millisecond, cfg.Marketplace.TrashInterval)
		assert.Equal(t, 10*time.Minute, cfg.ProductStatus.CacheTTL)
		assert.True(t, cfg.Telemetry.MetricsEnabled)
		assert.True(t, cfg.Storage.ForcePathStyle)
		assert.Equal(t, "ru-1", cfg.Storage.Region)
		assert.Empty(t, cfg.Marketplace.Stores)
	})

	t.Run("loads values from environment variables with SKLAD prefix", func(t *testing.T) {
		t.Setenv("SKLAD_APP_PORT", "9000")
		t.Setenv("SKLAD_DATABASE_HOST", "testdb.local")
		t.Setenv("SKLAD_DATABASE_PORT", "5433")
		t.Setenv("SKLAD_REDIS_HOST", "cache.local")
		t.Setenv("SKLAD_SUPPLY_MAX_CREATE_COUNT", "500")
		t.Setenv("SKLAD_CACHE_CACHE_DIR", "/tmp/sklad")
		t.Setenv("SKLAD_BACKFILL_ENABLED", "false")
		t.Setenv("SKLAD_S3_BUCKET", "labels")
		t.Setenv("SKLAD_S3_ENDPOINT", "https://storage.example.net")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "cache.local:6379", cfg.Redis.Addr())
		assert.Equal(t, 500, cfg.Supply.MaxCreateCount)
		assert.Equal(t, "/tmp/sklad", cfg.Cache.CacheDir)
		assert.False(t, cfg.Backfill.Enabled)
		assert.Equal(t, "labels", cfg.Storage.PublicBucket)
		assert.Equal(t, "https://storage.example.net", cfg.Storage.PublicEndpoint)
	})

	t.Run("registers env stores", func(t *testing.T) {
		t.Setenv("SKLAD_STORE_1_ID", "Main")
		t.Setenv("SKLAD_STORE_1_NAME", "Main store")
		t.Setenv("SKLAD_STORE_1_TOKEN", "token-1")
		t.Setenv("SKLAD_STORE_2_TOKEN", "token-2")
		t.Setenv("SKLAD_STORE_2_CLIENT_SECRET", "secret-2")

		cfg, err := Load()
		require.NoError(t, err)

		require.Len(t, cfg.Marketplace.Stores, 2)
		assert.Equal(t, StoreConfig{ID: "Main", Name: "Main store", Token: "token-1"}, cfg.Marketplace.Stores[0])
		assert.Equal(t, "store_2", cfg.Marketplace.Stores[1].ID)
		assert.Equal(t, "secret-2", cfg.Marketplace.Stores[1].ClientSecret)
	})

	t.Run("skips env store without token", func(t *testing.T) {
		t.Setenv("SKLAD_STORE_1_ID", "main")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Empty(t, cfg.Marketplace.Stores)
	})

	t.Run("validates max_idle_conns does not exceed max_open_conns", func(t *testing.T) {
		t.Setenv("SKLAD_DATABASE_MAX_OPEN_CONNS", "5")
		t.Setenv("SKLAD_DATABASE_MAX_IDLE_CONNS", "10")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns (10) cannot exceed")
	})

	t.Run("rejects label batches above the remote limit", func(t *testing.T) {
		t.Setenv("SKLAD_LABELS_BATCH_SIZE", "250")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "labels.batch_size")
	})

	t.Run("rejects negative max_create_count", func(t *testing.T) {
		t.Setenv("SKLAD_SUPPLY_MAX_CREATE_COUNT", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_create_count")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("SKLAD_APP_ENV", "production")
		t.Setenv("SKLAD_DATABASE_PASSWORD", "secure-password")
		t.Setenv("SKLAD_STORE_1_TOKEN", "token")
		t.Setenv("SKLAD_S3_BUCKET", "labels")
		t.Setenv("SKLAD_S3_ACCESS_KEY", "key")
		t.Setenv("SKLAD_S3_SECRET_KEY", "secret")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
		assert.True(t, cfg.Storage.Enabled())
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("SKLAD_DATABASE_PASSWORD", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires a store in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("SKLAD_STORE_1_TOKEN", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "marketplace store")
	})

	t.Run("requires object storage in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("SKLAD_S3_SECRET_KEY", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "s3 bucket and credentials")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
