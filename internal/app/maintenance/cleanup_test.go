package maintenance

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/eventdeskhq/eventdesk/internal/models"
	"github.com/eventdeskhq/eventdesk/internal/services"
)

func openCleanupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.VerificationToken{},
		&models.OneTimeCode{},
		&models.AuditLog{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func TestCleanupTokensRemovesExpiredArtifacts(t *testing.T) {
	db := openCleanupTestDB(t)
	now := time.Now()

	require.NoError(t, db.Create(&models.VerificationToken{
		AccountID: "expired-unverified",
		TokenHash: "a",
		ExpiresAt: now.Add(-time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.VerificationToken{
		AccountID: "expired-verified",
		TokenHash: "b",
		ExpiresAt: now.Add(-time.Hour),
		Verified:  true,
	}).Error)
	require.NoError(t, db.Create(&models.VerificationToken{
		AccountID: "live",
		TokenHash: "c",
		ExpiresAt: now.Add(time.Hour),
	}).Error)

	require.NoError(t, db.Create(&models.OneTimeCode{
		AccountID: "expired-code",
		CodeHash:  "d",
		ExpiresAt: now.Add(-time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.OneTimeCode{
		AccountID: "live-code",
		CodeHash:  "e",
		ExpiresAt: now.Add(time.Minute),
	}).Error)

	stats, err := CleanupTokens(context.Background(), db, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.VerificationTokens)
	require.Equal(t, int64(1), stats.OneTimeCodes)

	// Verified rows survive expiry: they back the account's verified flag.
	var verifications int64
	require.NoError(t, db.Model(&models.VerificationToken{}).Count(&verifications).Error)
	require.Equal(t, int64(2), verifications)

	var codes int64
	require.NoError(t, db.Model(&models.OneTimeCode{}).Count(&codes).Error)
	require.Equal(t, int64(1), codes)
}

func TestCleanerRunOnceCoversAllJobs(t *testing.T) {
	db := openCleanupTestDB(t)
	now := time.Now()

	require.NoError(t, db.Create(&models.OneTimeCode{
		AccountID: "expired-code",
		CodeHash:  "a",
		ExpiresAt: now.Add(-time.Minute),
	}).Error)

	old := models.AuditLog{Action: "provision.complete", Result: "success"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&old).Update("created_at", now.AddDate(0, 0, -30)).Error)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(db, audit,
		WithNow(func() time.Time { return now }),
		WithAuditRetentionDays(7),
	)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var codes int64
	require.NoError(t, db.Model(&models.OneTimeCode{}).Count(&codes).Error)
	require.Zero(t, codes)

	var logs int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&logs).Error)
	require.Zero(t, logs)
}

func TestCleanerStartRegistersSchedules(t *testing.T) {
	db := openCleanupTestDB(t)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(db, audit)
	require.NoError(t, cleaner.Start())

	stopCtx := cleaner.Stop()
	<-stopCtx.Done()
}
