package auth

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/eventdeskhq/eventdesk/internal/models"
	"github.com/eventdeskhq/eventdesk/pkg/crypto"
)

func openCredentialTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Credential{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func TestCreateCredentialStoresHashedPassword(t *testing.T) {
	db := openCredentialTestDB(t)
	provider, err := NewLocalCredentialProvider(db)
	require.NoError(t, err)

	ref, err := provider.CreateCredential(context.Background(), "Jane.Doe@Example.com", "Sup3rSecret!")
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	var credential models.Credential
	require.NoError(t, db.First(&credential, "id = ?", ref).Error)
	require.Equal(t, "jane.doe@example.com", credential.Email)
	require.NotEqual(t, "Sup3rSecret!", credential.PasswordHash)
	require.True(t, crypto.VerifyPassword(credential.PasswordHash, "Sup3rSecret!"))
}

func TestCreateCredentialRejectsDuplicateEmail(t *testing.T) {
	db := openCredentialTestDB(t)
	provider, err := NewLocalCredentialProvider(db)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = provider.CreateCredential(ctx, "jane.doe@example.com", "Sup3rSecret!")
	require.NoError(t, err)

	_, err = provider.CreateCredential(ctx, "JANE.DOE@example.com", "An0therPass!")
	require.ErrorIs(t, err, ErrCredentialExists)
}

func TestDeleteCredentialRemovesRow(t *testing.T) {
	db := openCredentialTestDB(t)
	provider, err := NewLocalCredentialProvider(db)
	require.NoError(t, err)

	ctx := context.Background()
	ref, err := provider.CreateCredential(ctx, "jane.doe@example.com", "Sup3rSecret!")
	require.NoError(t, err)

	require.NoError(t, provider.DeleteCredential(ctx, ref))

	var count int64
	require.NoError(t, db.Model(&models.Credential{}).Count(&count).Error)
	require.Zero(t, count)

	// Deleting a blank or unknown reference is a no-op.
	require.NoError(t, provider.DeleteCredential(ctx, ""))
	require.NoError(t, provider.DeleteCredential(ctx, "missing"))
}
