package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/eventdeskhq/eventdesk/internal/models"
	"github.com/eventdeskhq/eventdesk/pkg/crypto"
)

// ErrCredentialExists signals the provider already holds a credential for the
// email address.
var ErrCredentialExists = errors.New("credential provider: email already registered")

// CredentialProvider is the authentication collaborator consumed by
// provisioning: create a credential for (email, password) and receive an
// opaque identifier to store on the account.
type CredentialProvider interface {
	CreateCredential(ctx context.Context, email, password string) (string, error)
	DeleteCredential(ctx context.Context, ref string) error
}

// LocalCredentialProvider keeps bcrypt-hashed credentials in the application
// database. Deployments backed by an external identity service swap in their
// own CredentialProvider implementation.
type LocalCredentialProvider struct {
	db *gorm.DB
}

// NewLocalCredentialProvider constructs the database-backed provider.
func NewLocalCredentialProvider(db *gorm.DB) (*LocalCredentialProvider, error) {
	if db == nil {
		return nil, errors.New("credential provider: db is required")
	}
	return &LocalCredentialProvider{db: db}, nil
}

// CreateCredential hashes the password and stores a credential row, returning
// its id. The plaintext password is never persisted.
func (p *LocalCredentialProvider) CreateCredential(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("credential provider: email is required")
	}
	if password == "" {
		return "", errors.New("credential provider: password is required")
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("credential provider: hash password: %w", err)
	}

	credential := models.Credential{
		Email:        email,
		PasswordHash: hashed,
	}
	if err := p.db.WithContext(ctx).Create(&credential).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			return "", ErrCredentialExists
		}
		return "", fmt.Errorf("credential provider: create credential: %w", err)
	}

	return credential.ID, nil
}

// DeleteCredential removes a credential by its opaque reference. Used when an
// account is deleted; provisioning never calls it on failure (the orphaned
// credential after an account-write failure is an accepted inconsistency).
func (p *LocalCredentialProvider) DeleteCredential(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}

	if err := p.db.WithContext(ctx).Delete(&models.Credential{}, "id = ?", ref).Error; err != nil {
		return fmt.Errorf("credential provider: delete credential: %w", err)
	}
	return nil
}
