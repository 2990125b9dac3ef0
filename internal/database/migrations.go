package database

import (
	"gorm.io/gorm"

	"github.com/eventdeskhq/eventdesk/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Credential{},
		&models.Account{},
		&models.CustomerExtension{},
		&models.OrganizerExtension{},
		&models.CoordinatorExtension{},
		&models.VenueAdminExtension{},
		&models.AdministratorExtension{},
		&models.VerificationToken{},
		&models.OneTimeCode{},
		&models.AuditLog{},
	)
}
