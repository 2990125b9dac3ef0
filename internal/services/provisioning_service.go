package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/eventdeskhq/eventdesk/internal/auth"
	"github.com/eventdeskhq/eventdesk/internal/models"
	"github.com/eventdeskhq/eventdesk/pkg/crypto"
	apperrors "github.com/eventdeskhq/eventdesk/pkg/errors"
	"github.com/eventdeskhq/eventdesk/pkg/logger"
	"github.com/eventdeskhq/eventdesk/pkg/metrics"
)

// ProvisionState names the steps of one provisioning run. Steps execute
// strictly in order; Aborted is reachable from any non-terminal state.
type ProvisionState string

const (
	StateValidating            ProvisionState = "validating"
	StateCheckingDuplicate     ProvisionState = "checking_duplicate"
	StateCreatingIdentity      ProvisionState = "creating_identity"
	StateCreatingRoleExtension ProvisionState = "creating_role_extension"
	StateIssuingTokens         ProvisionState = "issuing_tokens"
	StateComplete              ProvisionState = "complete"
	StateAborted               ProvisionState = "aborted"
)

// Outcome labels for the provisioning metrics counter.
const (
	outcomeComplete             = "complete"
	outcomeValidationFailed     = "validation_failed"
	outcomeDuplicate            = "duplicate"
	outcomeDuplicateCheckFailed = "duplicate_check_failed"
	outcomeAuthProviderFailed   = "auth_provider_failed"
	outcomeIdentityFailed       = "identity_failed"
	outcomePartial              = "partial"
)

// ProvisionResult is returned to the caller for one-time display. The
// generated password is never persisted and never surfaced again.
type ProvisionResult struct {
	State             ProvisionState  `json:"state"`
	Account           *models.Account `json:"account,omitempty"`
	Email             string          `json:"email,omitempty"`
	GeneratedPassword string          `json:"generated_password,omitempty"`
	Warnings          []string        `json:"warnings,omitempty"`
}

// ProvisioningOption customises the ProvisioningService.
type ProvisioningOption func(*ProvisioningService)

// WithProvisioningClock injects a custom time source.
func WithProvisioningClock(clock func() time.Time) ProvisioningOption {
	return func(s *ProvisioningService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// ProvisioningService orchestrates the ordered multi-entity write that turns
// validated form input into an Account, its role extension, and its security
// artifacts. There is no multi-table transaction across steps: each write is
// a separate step with defined partial-failure semantics.
type ProvisioningService struct {
	db            *gorm.DB
	accounts      *AccountService
	credentials   auth.CredentialProvider
	verifications *VerificationService
	codes         *OTPService
	audit         *AuditService
	log           *zap.Logger
	now           func() time.Time
}

// NewProvisioningService wires the provisioning workflow.
func NewProvisioningService(
	db *gorm.DB,
	accounts *AccountService,
	credentials auth.CredentialProvider,
	verifications *VerificationService,
	codes *OTPService,
	audit *AuditService,
	opts ...ProvisioningOption,
) (*ProvisioningService, error) {
	if db == nil {
		return nil, errors.New("provisioning service: db is required")
	}
	if accounts == nil {
		return nil, errors.New("provisioning service: account service is required")
	}
	if credentials == nil {
		return nil, errors.New("provisioning service: credential provider is required")
	}
	if verifications == nil {
		return nil, errors.New("provisioning service: verification service is required")
	}
	if codes == nil {
		return nil, errors.New("provisioning service: otp service is required")
	}

	service := &ProvisioningService{
		db:            db,
		accounts:      accounts,
		credentials:   credentials,
		verifications: verifications,
		codes:         codes,
		audit:         audit,
		log:           logger.WithModule("provisioning"),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Provision runs the full state machine. On success the result carries the
// plaintext password for one-time display plus any non-fatal warnings from
// the extension and token steps. On abort the returned error describes the
// failing step and the result records where the run stopped.
func (s *ProvisioningService) Provision(ctx context.Context, input ProvisionInput) (*ProvisionResult, error) {
	ctx = ensureContext(ctx)
	started := s.now()
	defer func() {
		metrics.ProvisioningDuration.Observe(time.Since(started).Seconds())
	}()

	// Validating: pure field rules, no I/O on failure.
	input.Normalize()
	if verr := input.Validate(); verr != nil {
		metrics.ProvisioningAttempts.WithLabelValues(outcomeValidationFailed).Inc()
		return &ProvisionResult{State: StateAborted},
			apperrors.NewBadRequest(verr.Message)
	}

	// CheckingDuplicate: the authoritative pre-commit check. The reactive
	// check may have passed long ago; another operator can have registered
	// the email since.
	exists, err := s.accounts.EmailExists(ctx, input.Email, DuplicateCheckAuthoritative)
	if err != nil {
		metrics.ProvisioningAttempts.WithLabelValues(outcomeDuplicateCheckFailed).Inc()
		return &ProvisionResult{State: StateAborted},
			apperrors.Wrap(err, "duplicate check failed")
	}
	if exists {
		metrics.ProvisioningAttempts.WithLabelValues(outcomeDuplicate).Inc()
		s.auditStep(ctx, nil, "provision.duplicate", input.Email, "aborted", nil)
		return &ProvisionResult{State: StateAborted},
			apperrors.NewDuplicateEmail(input.Email)
	}

	// CreatingIdentity: external credential first, then the account row.
	password, err := crypto.GeneratePassword()
	if err != nil {
		metrics.ProvisioningAttempts.WithLabelValues(outcomeIdentityFailed).Inc()
		return &ProvisionResult{State: StateAborted},
			apperrors.Wrap(err, "generate password")
	}

	credentialRef, err := s.credentials.CreateCredential(ctx, input.Email, password)
	if err != nil {
		metrics.ProvisioningAttempts.WithLabelValues(outcomeAuthProviderFailed).Inc()
		s.auditStep(ctx, nil, "provision.credential", input.Email, "failed",
			map[string]any{"error": err.Error()})
		if errors.Is(err, auth.ErrCredentialExists) {
			return &ProvisionResult{State: StateAborted}, apperrors.NewDuplicateEmail(input.Email)
		}
		return &ProvisionResult{State: StateAborted},
			apperrors.ErrAuthProviderFailure.WithInternal(err)
	}

	account := &models.Account{
		Email:         input.Email,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Phone:         input.Phone,
		Role:          input.Role,
		CredentialRef: credentialRef,
		IsActive:      true,
	}

	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		// The external credential already exists and is not compensated;
		// reconciliation is manual (logged below).
		s.log.Error("account write failed after credential creation",
			zap.String("email", input.Email),
			zap.String("credential_ref", credentialRef),
			zap.Error(err))
		s.auditStep(ctx, nil, "provision.identity", input.Email, "failed",
			map[string]any{"credential_ref": credentialRef, "error": err.Error()})
		if isUniqueConstraintError(err) {
			metrics.ProvisioningAttempts.WithLabelValues(outcomeDuplicate).Inc()
			return &ProvisionResult{State: StateAborted}, apperrors.NewDuplicateEmail(input.Email)
		}
		metrics.ProvisioningAttempts.WithLabelValues(outcomeIdentityFailed).Inc()
		return &ProvisionResult{State: StateAborted},
			apperrors.Wrap(err, "create account")
	}

	// From here on the account exists: later failures degrade to warnings
	// rather than rolling back. An account without an extension is a
	// recoverable, editable state; an extension without an account must
	// never occur, which is why the identity write came first.
	var (
		warnings []string
		partial  error
	)

	// CreatingRoleExtension.
	if err := s.createRoleExtension(ctx, account, input); err != nil {
		partial = multierr.Append(partial, err)
		warnings = append(warnings, "role extension was not created; edit the account to complete it")
		s.log.Error("role extension write failed",
			zap.String("step", string(StateCreatingRoleExtension)),
			zap.String("account_id", account.ID),
			zap.String("email", account.Email),
			zap.Error(err))
		s.auditStep(ctx, &account.ID, "provision.extension", account.Email, "failed",
			map[string]any{"role": string(account.Role), "error": err.Error()})
	}

	// IssuingTokens: verification token, pre-verified for operator-created
	// accounts, then the one-time login code.
	if _, err := s.verifications.Issue(ctx, account.ID, account.Email, true); err != nil {
		partial = multierr.Append(partial, err)
		warnings = append(warnings, "email verification token was not issued")
		s.log.Error("verification token write failed",
			zap.String("step", string(StateIssuingTokens)),
			zap.String("account_id", account.ID),
			zap.String("email", account.Email),
			zap.Error(err))
		s.auditStep(ctx, &account.ID, "provision.verification", account.Email, "failed",
			map[string]any{"error": err.Error()})
	}

	if _, err := s.codes.Issue(ctx, account.ID, account.Email); err != nil {
		partial = multierr.Append(partial, err)
		warnings = append(warnings, "one-time login code was not issued; trigger a resend before first login")
		s.log.Error("one-time code write failed",
			zap.String("step", string(StateIssuingTokens)),
			zap.String("account_id", account.ID),
			zap.String("email", account.Email),
			zap.Error(err))
		s.auditStep(ctx, &account.ID, "provision.otp", account.Email, "failed",
			map[string]any{"error": err.Error()})
	}

	outcome := outcomeComplete
	result := "success"
	if partial != nil {
		outcome = outcomePartial
		result = "partial"
	}
	metrics.ProvisioningAttempts.WithLabelValues(outcome).Inc()
	s.auditStep(ctx, &account.ID, "provision.complete", account.Email, result,
		map[string]any{"role": string(account.Role), "warnings": len(warnings)})

	return &ProvisionResult{
		State:             StateComplete,
		Account:           account,
		Email:             account.Email,
		GeneratedPassword: password,
		Warnings:          warnings,
	}, nil
}

// createRoleExtension writes exactly one extension variant keyed to the new
// account, applying role-specific defaults.
func (s *ProvisioningService) createRoleExtension(ctx context.Context, account *models.Account, input ProvisionInput) error {
	switch account.Role {
	case models.RoleCustomer:
		ext := models.CustomerExtension{AccountID: account.ID}
		if len(input.Preferences) > 0 {
			encoded, err := json.Marshal(input.Preferences)
			if err != nil {
				return fmt.Errorf("encode preferences: %w", err)
			}
			ext.Preferences = encoded
		}
		return s.db.WithContext(ctx).Create(&ext).Error

	case models.RoleEventOrganizer:
		ext := models.OrganizerExtension{
			AccountID:      account.ID,
			CompanyName:    input.CompanyName,
			CompanyAddress: input.CompanyAddress,
			BusinessEmail:  input.BusinessEmail,
			BusinessPhone:  input.BusinessPhone,
		}
		return s.db.WithContext(ctx).Create(&ext).Error

	case models.RoleCoordinator:
		// OrganizerID stays unset; assignment happens in a later flow.
		ext := models.CoordinatorExtension{
			AccountID:      account.ID,
			Specialization: input.Specialization,
		}
		return s.db.WithContext(ctx).Create(&ext).Error

	case models.RoleVenueAdmin:
		// VenueID stays unset; assignment happens in a later flow.
		ext := models.VenueAdminExtension{AccountID: account.ID}
		return s.db.WithContext(ctx).Create(&ext).Error

	case models.RoleAdministrator:
		position := input.Position
		if position == "" {
			position = models.DefaultAdministratorPosition
		}
		ext := models.AdministratorExtension{
			AccountID:       account.ID,
			Position:        position,
			RoleDescription: input.RoleDescription,
		}
		return s.db.WithContext(ctx).Create(&ext).Error
	}

	return fmt.Errorf("unsupported role %q", account.Role)
}

func (s *ProvisioningService) auditStep(ctx context.Context, accountID *string, action, email, result string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["email"] = email
	recordAudit(s.audit, ctx, AuditEntry{
		AccountID: accountID,
		Action:    action,
		Resource:  email,
		Result:    result,
		Metadata:  metadata,
	})
}
