package persistence

import (
	"testing"

	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupFulfillmentTestDB opens a private in-memory SQLite database with the fulfillment tables.
func setupFulfillmentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would otherwise see its own empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.SupplySettingsModel{},
		&models.SupplyAccessUserModel{},
		&models.SupplyOrderModel{},
	))
	return db
}

func ptrTo[T any](v T) *T {
	return &v
}
