package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventdeskhq/eventdesk/internal/models"
)

func newAccountFixture(t *testing.T, db *gorm.DB) *AccountService {
	t.Helper()

	audit, err := NewAuditService(db)
	require.NoError(t, err)
	svc, err := NewAccountService(db, audit, &stubCredentialProvider{})
	require.NoError(t, err)
	return svc
}

func seedAccount(t *testing.T, db *gorm.DB, email string, role models.AccountRole) models.Account {
	t.Helper()

	account := models.Account{
		Email:     email,
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      role,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&account).Error)
	return account
}

func TestEmailExistsIsCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	svc := newAccountFixture(t, db)
	seedAccount(t, db, "jane.doe@example.com", models.RoleCustomer)

	ctx := context.Background()
	for _, candidate := range []string{
		"jane.doe@example.com",
		"JANE.DOE@EXAMPLE.COM",
		"  Jane.Doe@Example.com  ",
	} {
		exists, err := svc.EmailExists(ctx, candidate, DuplicateCheckReactive)
		require.NoError(t, err)
		require.True(t, exists, "expected hit for %q", candidate)
	}

	exists, err := svc.EmailExists(ctx, "other@example.com", DuplicateCheckAuthoritative)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestListProjectsAccountRows(t *testing.T) {
	db := openTestDB(t)
	svc := newAccountFixture(t, db)
	account := seedAccount(t, db, "jane.doe@example.com", models.RoleEventOrganizer)

	require.NoError(t, db.Create(&models.VerificationToken{
		AccountID: account.ID,
		TokenHash: "abc",
		Verified:  true,
	}).Error)

	rows, total, err := svc.List(context.Background(), ListAccountsOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, "Jane Doe", row.FullName)
	require.Equal(t, "JD", row.Initials)
	require.Equal(t, "Event Organizer", row.RoleLabel)
	require.True(t, row.Verified)
	require.True(t, row.IsActive)
}

func TestListFiltersByQueryAndActive(t *testing.T) {
	db := openTestDB(t)
	svc := newAccountFixture(t, db)
	seedAccount(t, db, "jane.doe@example.com", models.RoleCustomer)
	other := seedAccount(t, db, "bob.smith@example.com", models.RoleCustomer)
	require.NoError(t, db.Model(&other).Update("is_active", false).Error)

	ctx := context.Background()

	rows, total, err := svc.List(ctx, ListAccountsOptions{Query: "jane"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "jane.doe@example.com", rows[0].Email)

	active := true
	rows, total, err = svc.List(ctx, ListAccountsOptions{IsActive: &active})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "jane.doe@example.com", rows[0].Email)
}

func TestRoleLabelRendering(t *testing.T) {
	require.Equal(t, "Customer", RoleLabel(models.RoleCustomer))
	require.Equal(t, "Event Organizer", RoleLabel(models.RoleEventOrganizer))
	require.Equal(t, "Venue Admin", RoleLabel(models.RoleVenueAdmin))
	require.Equal(t, "Administrator", RoleLabel(models.RoleAdministrator))
}

func TestGetDetailLoadsMatchingExtension(t *testing.T) {
	db := openTestDB(t)
	svc := newAccountFixture(t, db)
	account := seedAccount(t, db, "jane.doe@example.com", models.RoleCoordinator)
	require.NoError(t, db.Create(&models.CoordinatorExtension{
		AccountID:      account.ID,
		Specialization: "Weddings",
	}).Error)

	detail, err := svc.GetDetail(context.Background(), account.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Coordinator)
	require.Equal(t, "Weddings", detail.Coordinator.Specialization)
	require.Nil(t, detail.Customer)
	require.Nil(t, detail.Organizer)
}

func TestGetDetailToleratesMissingExtension(t *testing.T) {
	db := openTestDB(t)
	svc := newAccountFixture(t, db)
	account := seedAccount(t, db, "jane.doe@example.com", models.RoleCustomer)

	detail, err := svc.GetDetail(context.Background(), account.ID)
	require.NoError(t, err)
	require.Nil(t, detail.Customer)
	require.Equal(t, account.ID, detail.Account.ID)
}

func TestUpdateNormalisesAndValidates(t *testing.T) {
	db := openTestDB(t)
	svc := newAccountFixture(t, db)
	account := seedAccount(t, db, "jane.doe@example.com", models.RoleAdministrator)
	require.NoError(t, db.Create(&models.AdministratorExtension{
		AccountID: account.ID,
		Position:  "Support Lead",
	}).Error)

	ctx := context.Background()

	name := "  jAnEt "
	updated, err := svc.Update(ctx, account.ID, UpdateAccountInput{FirstName: &name})
	require.NoError(t, err)
	require.Equal(t, "Janet", updated.FirstName)

	short := "j"
	_, err = svc.Update(ctx, account.ID, UpdateAccountInput{FirstName: &short})
	require.Error(t, err)

	// One multi-byte character is still one character short of the minimum.
	accented := "é"
	_, err = svc.Update(ctx, account.ID, UpdateAccountInput{LastName: &accented})
	require.Error(t, err)

	// Clearing the administrator position falls back to the default.
	blank := ""
	_, err = svc.Update(ctx, account.ID, UpdateAccountInput{Position: &blank})
	require.NoError(t, err)

	var extension models.AdministratorExtension
	require.NoError(t, db.Where("account_id = ?", account.ID).First(&extension).Error)
	require.Equal(t, models.DefaultAdministratorPosition, extension.Position)
}

func TestUpdateUnknownAccount(t *testing.T) {
	db := openTestDB(t)
	svc := newAccountFixture(t, db)

	name := "Jane"
	_, err := svc.Update(context.Background(), "missing-id", UpdateAccountInput{FirstName: &name})
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestDeleteRemovesOwnedRows(t *testing.T) {
	db := openTestDB(t)
	svc := newAccountFixture(t, db)
	account := seedAccount(t, db, "jane.doe@example.com", models.RoleCustomer)
	require.NoError(t, db.Create(&models.CustomerExtension{AccountID: account.ID}).Error)
	require.NoError(t, db.Create(&models.VerificationToken{AccountID: account.ID, TokenHash: "abc"}).Error)
	require.NoError(t, db.Create(&models.OneTimeCode{AccountID: account.ID, CodeHash: "def"}).Error)

	require.NoError(t, svc.Delete(context.Background(), account.ID))

	for _, model := range []any{
		&models.Account{},
		&models.CustomerExtension{},
		&models.VerificationToken{},
		&models.OneTimeCode{},
	} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		require.Zero(t, count)
	}
}

func TestSetActiveTogglesState(t *testing.T) {
	db := openTestDB(t)
	svc := newAccountFixture(t, db)
	account := seedAccount(t, db, "jane.doe@example.com", models.RoleCustomer)

	ctx := context.Background()
	require.NoError(t, svc.SetActive(ctx, account.ID, false))

	var reloaded models.Account
	require.NoError(t, db.First(&reloaded, "id = ?", account.ID).Error)
	require.False(t, reloaded.IsActive)

	require.ErrorIs(t, svc.SetActive(ctx, "missing-id", true), ErrAccountNotFound)
}
