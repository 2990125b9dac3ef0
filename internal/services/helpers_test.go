package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/eventdeskhq/eventdesk/internal/models"
)

// openTestDB gives each test its own named in-memory database so rows never
// leak between tests sharing the process.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Account{},
		&models.CustomerExtension{},
		&models.OrganizerExtension{},
		&models.CoordinatorExtension{},
		&models.VenueAdminExtension{},
		&models.AdministratorExtension{},
		&models.VerificationToken{},
		&models.OneTimeCode{},
		&models.Credential{},
		&models.AuditLog{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
