package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventdeskhq/eventdesk/internal/models"
)

func TestOTPIssueAndVerifyRoundTrip(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewOTPService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()
	code, err := svc.Issue(ctx, "account-1", "jane.doe@example.com")
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, c := range code {
		require.True(t, c >= '0' && c <= '9', "code must be numeric: %q", code)
	}

	// Only the hash is stored.
	var record models.OneTimeCode
	require.NoError(t, db.Where("account_id = ?", "account-1").First(&record).Error)
	require.NotEqual(t, code, record.CodeHash)

	require.NoError(t, svc.Verify(ctx, "account-1", code))

	// A successful verification consumes the code.
	require.ErrorIs(t, svc.Verify(ctx, "account-1", code), ErrCodeNotFound)
}

func TestOTPIssueReplacesExistingCode(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewOTPService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := svc.Issue(ctx, "account-1", "")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, "account-1", "")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OneTimeCode{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	if first != second {
		require.ErrorIs(t, svc.Verify(ctx, "account-1", first), ErrCodeMismatch)
	}
	require.NoError(t, svc.Verify(ctx, "account-1", second))
}

func TestOTPVerifyCountsFailedAttempts(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewOTPService(db, nil, WithOTPMaxAttempts(3))
	require.NoError(t, err)

	ctx := context.Background()
	code, err := svc.Issue(ctx, "account-1", "")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, svc.Verify(ctx, "account-1", wrong), ErrCodeMismatch)
	}

	// The budget is spent; even the correct code is rejected now.
	require.ErrorIs(t, svc.Verify(ctx, "account-1", code), ErrCodeAttemptsExceeded)
}

func TestOTPVerifyRejectsExpiredCode(t *testing.T) {
	db := openTestDB(t)

	current := time.Now()
	svc, err := NewOTPService(db, nil, WithOTPClock(func() time.Time { return current }))
	require.NoError(t, err)

	ctx := context.Background()
	code, err := svc.Issue(ctx, "account-1", "")
	require.NoError(t, err)

	current = current.Add(11 * time.Minute)
	require.ErrorIs(t, svc.Verify(ctx, "account-1", code), ErrCodeExpired)
}
