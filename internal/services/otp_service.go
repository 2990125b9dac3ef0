package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/hotp"
	"gorm.io/gorm"

	"github.com/eventdeskhq/eventdesk/internal/models"
	"github.com/eventdeskhq/eventdesk/pkg/crypto"
	"github.com/eventdeskhq/eventdesk/pkg/mail"
)

const (
	defaultOTPExpiry      = 10 * time.Minute
	defaultMaxOTPAttempts = 5
	otpSecretBytes        = 20
)

var (
	// ErrCodeNotFound indicates no one-time code exists for the account.
	ErrCodeNotFound = errors.New("one-time code: not found")
	// ErrCodeExpired indicates the code's lifetime has elapsed.
	ErrCodeExpired = errors.New("one-time code: expired")
	// ErrCodeMismatch indicates the submitted code does not match.
	ErrCodeMismatch = errors.New("one-time code: mismatch")
	// ErrCodeAttemptsExceeded indicates too many failed submissions.
	ErrCodeAttemptsExceeded = errors.New("one-time code: attempts exceeded")
)

// OTPOption customises the OTPService.
type OTPOption func(*OTPService)

// WithOTPExpiry overrides the code lifetime.
func WithOTPExpiry(d time.Duration) OTPOption {
	return func(s *OTPService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithOTPMaxAttempts overrides the failed-attempt budget.
func WithOTPMaxAttempts(limit int) OTPOption {
	return func(s *OTPService) {
		if limit > 0 {
			s.maxAttempts = limit
		}
	}
}

// WithOTPClock injects a custom time source.
func WithOTPClock(clock func() time.Time) OTPOption {
	return func(s *OTPService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// OTPService issues and verifies the 6-digit one-time login codes created at
// provisioning time. Codes are derived with HOTP over a fresh random secret
// and persisted only as hashes.
type OTPService struct {
	db          *gorm.DB
	mailer      mail.Mailer
	expiry      time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewOTPService constructs an OTPService with the provided dependencies.
func NewOTPService(db *gorm.DB, mailer mail.Mailer, opts ...OTPOption) (*OTPService, error) {
	if db == nil {
		return nil, errors.New("otp service: db is required")
	}

	service := &OTPService{
		db:          db,
		mailer:      mailer,
		expiry:      defaultOTPExpiry,
		maxAttempts: defaultMaxOTPAttempts,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue generates a fresh 6-digit code for the account, replacing any
// existing one, and dispatches it when a mailer is configured. The display
// code is returned exactly once; only its hash is stored.
func (s *OTPService) Issue(ctx context.Context, accountID, email string) (string, error) {
	ctx = ensureContext(ctx)

	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", errors.New("otp service: account id is required")
	}

	code, err := generateDisplayCode()
	if err != nil {
		return "", fmt.Errorf("otp service: generate code: %w", err)
	}

	now := s.now()
	record := models.OneTimeCode{
		AccountID:  accountID,
		CodeHash:   crypto.HashToken(code),
		ExpiresAt:  now.Add(s.expiry),
		Attempts:   0,
		LastSentAt: now,
	}

	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.OneTimeCode{}).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("otp service: cleanup existing: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("otp service: create code: %w", err)
	}

	if s.mailer != nil && email != "" {
		message := mail.Message{
			To:      []string{email},
			Subject: "Your EventDesk login code",
			Body:    fmt.Sprintf("Your one-time login code is %s. It expires in 10 minutes.\n", code),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, mail.ErrSMTPDisabled) {
			return "", fmt.Errorf("otp service: send email: %w", mailErr)
		}
	}

	return code, nil
}

// Verify checks a submitted code against the stored hash, counting every
// failed attempt. A successful verification consumes the code.
func (s *OTPService) Verify(ctx context.Context, accountID, code string) error {
	ctx = ensureContext(ctx)

	accountID = strings.TrimSpace(accountID)
	code = strings.TrimSpace(code)
	if accountID == "" || code == "" {
		return errors.New("otp service: account id and code are required")
	}

	var record models.OneTimeCode
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("otp service: load code: %w", err)
	}

	if record.ExpiresAt.Before(s.now()) {
		return ErrCodeExpired
	}
	if record.Attempts >= s.maxAttempts {
		return ErrCodeAttemptsExceeded
	}

	submitted := crypto.HashToken(code)
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(record.CodeHash)) != 1 {
		if err := s.db.WithContext(ctx).
			Model(&record).
			Update("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return fmt.Errorf("otp service: record attempt: %w", err)
		}
		return ErrCodeMismatch
	}

	if err := s.db.WithContext(ctx).Delete(&record).Error; err != nil {
		return fmt.Errorf("otp service: consume code: %w", err)
	}

	return nil
}

// generateDisplayCode derives a 6-digit numeric code from a random HOTP
// secret. HOTP's dynamic truncation yields a uniformly distributed numeric
// code without hand-rolling modular arithmetic over raw bytes.
func generateDisplayCode() (string, error) {
	buf := make([]byte, otpSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	secret := base32.StdEncoding.EncodeToString(buf)
	return hotp.GenerateCode(secret, 0)
}
