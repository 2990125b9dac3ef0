package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/eventdeskhq/eventdesk/internal/models"
	"github.com/eventdeskhq/eventdesk/pkg/crypto"
	"github.com/eventdeskhq/eventdesk/pkg/mail"
)

const (
	// Verification artifacts are provisioning-time secrets meant for
	// immediate first use, hence the short lifetime.
	defaultVerificationExpiry     = 10 * time.Minute
	defaultVerificationTokenBytes = 32
)

var (
	// ErrVerificationNotFound indicates the token does not exist.
	ErrVerificationNotFound = errors.New("email verification: not found")
	// ErrVerificationExpired indicates the verification token has expired.
	ErrVerificationExpired = errors.New("email verification: expired")
	// ErrVerificationUsed signals that the token has already been consumed.
	ErrVerificationUsed = errors.New("email verification: already verified")
)

// VerificationOption customises the VerificationService.
type VerificationOption func(*VerificationService)

// WithVerificationBaseURL sets the base URL used in verification links.
func WithVerificationBaseURL(url string) VerificationOption {
	return func(s *VerificationService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithVerificationExpiry overrides the token lifetime.
func WithVerificationExpiry(d time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithVerificationClock injects a custom time source.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// VerificationService manages email-verification tokens for accounts.
type VerificationService struct {
	db          *gorm.DB
	mailer      mail.Mailer
	baseURL     string
	expiry      time.Duration
	tokenLength int
	now         func() time.Time
}

// NewVerificationService constructs a verification service with the provided dependencies.
func NewVerificationService(db *gorm.DB, mailer mail.Mailer, opts ...VerificationOption) (*VerificationService, error) {
	if db == nil {
		return nil, errors.New("verification service: db is required")
	}

	service := &VerificationService{
		db:          db,
		mailer:      mailer,
		expiry:      defaultVerificationExpiry,
		tokenLength: defaultVerificationTokenBytes,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue creates the verification token row for an account and dispatches the
// link when a mailer is configured. The token itself is a digest of
// email + issue timestamp + a random component; only its hash is stored.
// preVerified reflects operator-initiated provisioning, where the account is
// trusted at creation and the self-service confirmation step is bypassed.
func (s *VerificationService) Issue(ctx context.Context, accountID, email string, preVerified bool) (string, error) {
	ctx = ensureContext(ctx)

	accountID = strings.TrimSpace(accountID)
	email = strings.TrimSpace(strings.ToLower(email))
	if accountID == "" {
		return "", errors.New("verification service: account id is required")
	}
	if email == "" {
		return "", errors.New("verification service: email is required")
	}

	random, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return "", fmt.Errorf("verification service: generate token: %w", err)
	}

	now := s.now()
	token := crypto.HashToken(fmt.Sprintf("%s:%d:%s", email, now.UnixNano(), random))

	verification := models.VerificationToken{
		AccountID:  accountID,
		TokenHash:  crypto.HashToken(token),
		ExpiresAt:  now.Add(s.expiry),
		Verified:   preVerified,
		LastSentAt: now,
	}

	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.VerificationToken{}).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("verification service: cleanup existing: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(&verification).Error; err != nil {
		return "", fmt.Errorf("verification service: create token: %w", err)
	}

	if s.mailer != nil {
		message := mail.Message{
			To:      []string{email},
			Subject: "Verify your EventDesk account",
			Body:    s.verificationBody(s.verificationLink(token)),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, mail.ErrSMTPDisabled) {
			return "", fmt.Errorf("verification service: send email: %w", mailErr)
		}
	}

	return token, nil
}

// Confirm validates and consumes a verification token (self-service path).
func (s *VerificationService) Confirm(ctx context.Context, token string) (*models.VerificationToken, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("verification service: token is required")
	}

	var verification models.VerificationToken
	if err := s.db.WithContext(ctx).
		Where("token_hash = ?", crypto.HashToken(token)).
		First(&verification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, fmt.Errorf("verification service: find token: %w", err)
	}

	if verification.ExpiresAt.Before(s.now()) {
		return nil, ErrVerificationExpired
	}
	if verification.Verified {
		return nil, ErrVerificationUsed
	}

	if err := s.db.WithContext(ctx).
		Model(&verification).
		Update("verified", true).Error; err != nil {
		return nil, fmt.Errorf("verification service: mark verified: %w", err)
	}

	verification.Verified = true
	return &verification, nil
}

// IsVerified reports the verification flag for an account; missing rows read
// as unverified.
func (s *VerificationService) IsVerified(ctx context.Context, accountID string) (bool, error) {
	ctx = ensureContext(ctx)

	var verification models.VerificationToken
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&verification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verification service: load token: %w", err)
	}
	return verification.Verified, nil
}

func (s *VerificationService) verificationLink(token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s?token=%s", s.baseURL, token)
}

func (s *VerificationService) verificationBody(link string) string {
	return fmt.Sprintf("Welcome to EventDesk!\n\nPlease confirm your email address by visiting the link below:\n%s\n\nThis link expires in 10 minutes.\n", link)
}
