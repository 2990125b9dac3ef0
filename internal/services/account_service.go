package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/eventdeskhq/eventdesk/internal/auth"
	"github.com/eventdeskhq/eventdesk/internal/models"
	apperrors "github.com/eventdeskhq/eventdesk/pkg/errors"
	"github.com/eventdeskhq/eventdesk/pkg/metrics"
	"github.com/eventdeskhq/eventdesk/pkg/normalize"
	"github.com/eventdeskhq/eventdesk/pkg/validator"
)

// ErrAccountNotFound indicates the requested account does not exist.
var ErrAccountNotFound = apperrors.New("ACCOUNT_NOT_FOUND", "Account not found", http.StatusNotFound)

// DuplicateCheckMode distinguishes the advisory probe performed while the
// operator types from the blocking check run immediately before commit.
type DuplicateCheckMode string

const (
	DuplicateCheckReactive      DuplicateCheckMode = "reactive"
	DuplicateCheckAuthoritative DuplicateCheckMode = "authoritative"
)

// AccountRow is the operator-facing projection of one account.
type AccountRow struct {
	ID        string             `json:"id"`
	Email     string             `json:"email"`
	FullName  string             `json:"full_name"`
	Initials  string             `json:"initials"`
	Role      models.AccountRole `json:"role"`
	RoleLabel string             `json:"role_label"`
	Phone     string             `json:"phone,omitempty"`
	AvatarURL string             `json:"avatar_url,omitempty"`
	IsActive  bool               `json:"is_active"`
	Verified  bool               `json:"verified"`
	CreatedAt time.Time          `json:"created_at"`
}

// AccountDetail re-hydrates an account together with its role extension for
// editing. Exactly one extension pointer is non-nil, matching Account.Role.
type AccountDetail struct {
	Account       models.Account                 `json:"account"`
	Customer      *models.CustomerExtension      `json:"customer,omitempty"`
	Organizer     *models.OrganizerExtension     `json:"organizer,omitempty"`
	Coordinator   *models.CoordinatorExtension   `json:"coordinator,omitempty"`
	VenueAdmin    *models.VenueAdminExtension    `json:"venue_admin,omitempty"`
	Administrator *models.AdministratorExtension `json:"administrator,omitempty"`
}

// UpdateAccountInput enumerates mutable account attributes. Email and role are
// deliberately absent: both are read-only after creation.
type UpdateAccountInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	AvatarURL *string

	Preferences     map[string]any
	CompanyName     *string
	CompanyAddress  *string
	BusinessEmail   *string
	BusinessPhone   *string
	Specialization  *string
	Position        *string
	RoleDescription *string
}

// ListAccountsOptions controls pagination and filtering for the projection.
type ListAccountsOptions struct {
	Page     int
	PageSize int
	Query    string
	IsActive *bool
}

// AccountService manages the account read projection and post-creation
// lifecycle: update, delete, activation. Creation belongs to the
// ProvisioningService.
type AccountService struct {
	db          *gorm.DB
	audit       *AuditService
	credentials auth.CredentialProvider
}

// NewAccountService constructs an AccountService instance. The credential
// provider may be nil when credential cleanup on delete is not wanted.
func NewAccountService(db *gorm.DB, audit *AuditService, credentials auth.CredentialProvider) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	return &AccountService{db: db, audit: audit, credentials: credentials}, nil
}

// EmailExists performs the case-insensitive duplicate lookup, limited to one
// row. Both detector modes share this query; the mode only labels metrics.
func (s *AccountService) EmailExists(ctx context.Context, email string, mode DuplicateCheckMode) (bool, error) {
	ctx = ensureContext(ctx)

	email = normalize.Email(email)
	if email == "" {
		return false, apperrors.NewBadRequest("email is required")
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("LOWER(email) = ?", email).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("account service: duplicate lookup: %w", err)
	}

	result := "miss"
	if count > 0 {
		result = "hit"
	}
	metrics.DuplicateChecks.WithLabelValues(string(mode), result).Inc()

	return count > 0, nil
}

// List retrieves projection rows matching the supplied filters. Verification
// status is looked up per account, which is acceptable at console scale.
func (s *AccountService) List(ctx context.Context, opts ListAccountsOptions) ([]AccountRow, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.Account{})
	if opts.IsActive != nil {
		query = query.Where("is_active = ?", *opts.IsActive)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("account service: count accounts: %w", err)
	}

	var accounts []models.Account
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&accounts).Error; err != nil {
		return nil, 0, fmt.Errorf("account service: list accounts: %w", err)
	}

	rows := make([]AccountRow, 0, len(accounts))
	for _, account := range accounts {
		rows = append(rows, s.projectRow(ctx, account))
	}

	return rows, total, nil
}

func (s *AccountService) projectRow(ctx context.Context, account models.Account) AccountRow {
	verified := false
	var token models.VerificationToken
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", account.ID).
		First(&token).Error; err == nil {
		verified = token.Verified
	}

	return AccountRow{
		ID:        account.ID,
		Email:     account.Email,
		FullName:  strings.TrimSpace(account.FirstName + " " + account.LastName),
		Initials:  initials(account.FirstName, account.LastName),
		Role:      account.Role,
		RoleLabel: RoleLabel(account.Role),
		Phone:     account.Phone,
		AvatarURL: account.AvatarURL,
		IsActive:  account.IsActive,
		Verified:  verified,
		CreatedAt: account.CreatedAt,
	}
}

// RoleLabel renders a role key as its human-readable form: underscores become
// spaces and each word is title-cased.
func RoleLabel(role models.AccountRole) string {
	words := strings.Split(strings.ReplaceAll(string(role), "_", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func initials(firstName, lastName string) string {
	var b strings.Builder
	for _, name := range []string{firstName, lastName} {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		b.WriteString(strings.ToUpper(trimmed[:1]))
	}
	return b.String()
}

// GetDetail loads an account and its role extension for editing.
func (s *AccountService) GetDetail(ctx context.Context, id string) (*AccountDetail, error) {
	ctx = ensureContext(ctx)

	var account models.Account
	err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account service: load account: %w", err)
	}

	detail := &AccountDetail{Account: account}

	switch account.Role {
	case models.RoleCustomer:
		var ext models.CustomerExtension
		if err := s.loadExtension(ctx, account.ID, &ext); err != nil {
			return nil, err
		} else if ext.ID != "" {
			detail.Customer = &ext
		}
	case models.RoleEventOrganizer:
		var ext models.OrganizerExtension
		if err := s.loadExtension(ctx, account.ID, &ext); err != nil {
			return nil, err
		} else if ext.ID != "" {
			detail.Organizer = &ext
		}
	case models.RoleCoordinator:
		var ext models.CoordinatorExtension
		if err := s.loadExtension(ctx, account.ID, &ext); err != nil {
			return nil, err
		} else if ext.ID != "" {
			detail.Coordinator = &ext
		}
	case models.RoleVenueAdmin:
		var ext models.VenueAdminExtension
		if err := s.loadExtension(ctx, account.ID, &ext); err != nil {
			return nil, err
		} else if ext.ID != "" {
			detail.VenueAdmin = &ext
		}
	case models.RoleAdministrator:
		var ext models.AdministratorExtension
		if err := s.loadExtension(ctx, account.ID, &ext); err != nil {
			return nil, err
		} else if ext.ID != "" {
			detail.Administrator = &ext
		}
	}

	return detail, nil
}

// loadExtension fetches the extension row for an account; a missing row is not
// an error (partial provisioning leaves accounts without extensions).
func (s *AccountService) loadExtension(ctx context.Context, accountID string, dest any) error {
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(dest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("account service: load extension: %w", err)
	}
	return nil
}

// Update persists mutable identity fields and the matching extension's mutable
// fields. Email and role cannot be changed through this workflow.
func (s *AccountService) Update(ctx context.Context, id string, input UpdateAccountInput) (*models.Account, error) {
	ctx = ensureContext(ctx)

	var account models.Account
	err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account service: load account: %w", err)
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		if name := normalize.Name(*input.FirstName); utf8.RuneCountInString(name) >= minNameLength {
			updates["first_name"] = name
		} else {
			return nil, apperrors.NewBadRequest("first name must be at least 2 characters")
		}
	}
	if input.LastName != nil {
		if name := normalize.Name(*input.LastName); utf8.RuneCountInString(name) >= minNameLength {
			updates["last_name"] = name
		} else {
			return nil, apperrors.NewBadRequest("last name must be at least 2 characters")
		}
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone != "" {
			if digits := normalize.PhoneDigits(phone); digits < minPhoneDigits || digits > maxPhoneDigits {
				return nil, apperrors.NewBadRequest("phone number must contain 10 to 15 digits")
			}
		}
		updates["phone"] = phone
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*input.AvatarURL)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&account).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("account service: update account: %w", err)
		}
	}

	if err := s.updateExtension(ctx, account, input); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("account service: reload account: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		AccountID: &account.ID,
		Action:    "account.update",
		Resource:  account.ID,
		Result:    "success",
		Metadata:  map[string]any{"fields": len(updates)},
	})

	return &account, nil
}

func (s *AccountService) updateExtension(ctx context.Context, account models.Account, input UpdateAccountInput) error {
	switch account.Role {
	case models.RoleCustomer:
		if input.Preferences == nil {
			return nil
		}
		encoded, err := json.Marshal(input.Preferences)
		if err != nil {
			return fmt.Errorf("account service: encode preferences: %w", err)
		}
		return s.applyExtensionUpdates(ctx, &models.CustomerExtension{}, account.ID,
			map[string]any{"preferences": encoded})

	case models.RoleEventOrganizer:
		updates := map[string]any{}
		if input.CompanyName != nil {
			updates["company_name"] = strings.TrimSpace(*input.CompanyName)
		}
		if input.CompanyAddress != nil {
			updates["company_address"] = strings.TrimSpace(*input.CompanyAddress)
		}
		if input.BusinessEmail != nil {
			email := normalize.Email(*input.BusinessEmail)
			if email != "" && !validator.IsEmail(email) {
				return apperrors.NewBadRequest("business email must be a valid email address")
			}
			updates["business_email"] = email
		}
		if input.BusinessPhone != nil {
			phone := strings.TrimSpace(*input.BusinessPhone)
			if phone != "" {
				if digits := normalize.PhoneDigits(phone); digits < minPhoneDigits || digits > maxPhoneDigits {
					return apperrors.NewBadRequest("business phone must contain 10 to 15 digits")
				}
			}
			updates["business_phone"] = phone
		}
		if len(updates) == 0 {
			return nil
		}
		return s.applyExtensionUpdates(ctx, &models.OrganizerExtension{}, account.ID, updates)

	case models.RoleCoordinator:
		if input.Specialization == nil {
			return nil
		}
		return s.applyExtensionUpdates(ctx, &models.CoordinatorExtension{}, account.ID,
			map[string]any{"specialization": strings.TrimSpace(*input.Specialization)})

	case models.RoleVenueAdmin:
		// The venue link is managed by the assignment flow, not account edit.
		return nil

	case models.RoleAdministrator:
		updates := map[string]any{}
		if input.Position != nil {
			position := strings.TrimSpace(*input.Position)
			if position == "" {
				position = models.DefaultAdministratorPosition
			}
			updates["position"] = position
		}
		if input.RoleDescription != nil {
			updates["role_description"] = strings.TrimSpace(*input.RoleDescription)
		}
		if len(updates) == 0 {
			return nil
		}
		return s.applyExtensionUpdates(ctx, &models.AdministratorExtension{}, account.ID, updates)
	}

	return nil
}

func (s *AccountService) applyExtensionUpdates(ctx context.Context, model any, accountID string, updates map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(model).
		Where("account_id = ?", accountID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("account service: update extension: %w", result.Error)
	}
	// RowsAffected == 0 means the extension row is missing (partial
	// provisioning); the account stays editable, the extension is recreated
	// only by the assignment flows.
	return nil
}

// Delete removes an account together with its owned rows and credential.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	var account models.Account
	err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("account service: load account: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, owned := range []any{
			&models.CustomerExtension{},
			&models.OrganizerExtension{},
			&models.CoordinatorExtension{},
			&models.VenueAdminExtension{},
			&models.AdministratorExtension{},
			&models.VerificationToken{},
			&models.OneTimeCode{},
		} {
			if err := tx.Where("account_id = ?", account.ID).Delete(owned).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&account).Error
	})
	if err != nil {
		return fmt.Errorf("account service: delete account: %w", err)
	}

	if s.credentials != nil && account.CredentialRef != "" {
		if err := s.credentials.DeleteCredential(ctx, account.CredentialRef); err != nil {
			return fmt.Errorf("account service: delete credential: %w", err)
		}
	}

	recordAudit(s.audit, ctx, AuditEntry{
		AccountID: &account.ID,
		Action:    "account.delete",
		Resource:  account.ID,
		Result:    "success",
		Metadata:  map[string]any{"email": account.Email},
	})

	return nil
}

// SetActive toggles the active state of an account.
func (s *AccountService) SetActive(ctx context.Context, id string, active bool) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("account service: update active state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	action := "account.activate"
	if !active {
		action = "account.deactivate"
	}

	recordAudit(s.audit, ctx, AuditEntry{
		AccountID: &id,
		Action:    action,
		Resource:  id,
		Result:    "success",
	})

	return nil
}
