package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eventdeskhq/eventdesk/internal/models"
	"github.com/eventdeskhq/eventdesk/internal/services"
	appErrors "github.com/eventdeskhq/eventdesk/pkg/errors"
	"github.com/eventdeskhq/eventdesk/pkg/response"
)

// AccountHandler exposes the account provisioning and management endpoints.
type AccountHandler struct {
	provisioning  *services.ProvisioningService
	accounts      *services.AccountService
	verifications *services.VerificationService
	codes         *services.OTPService
}

// NewAccountHandler wires the account endpoints to their services.
func NewAccountHandler(
	provisioning *services.ProvisioningService,
	accounts *services.AccountService,
	verifications *services.VerificationService,
	codes *services.OTPService,
) (*AccountHandler, error) {
	if provisioning == nil {
		return nil, errors.New("account handler: provisioning service is required")
	}
	if accounts == nil {
		return nil, errors.New("account handler: account service is required")
	}
	if verifications == nil {
		return nil, errors.New("account handler: verification service is required")
	}
	if codes == nil {
		return nil, errors.New("account handler: otp service is required")
	}
	return &AccountHandler{
		provisioning:  provisioning,
		accounts:      accounts,
		verifications: verifications,
		codes:         codes,
	}, nil
}

type provisionRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Phone     string `json:"phone"`
	Role      string `json:"role" validate:"required"`

	Preferences map[string]any `json:"preferences"`

	CompanyName    string `json:"company_name"`
	CompanyAddress string `json:"company_address"`
	BusinessEmail  string `json:"business_email"`
	BusinessPhone  string `json:"business_phone"`

	Specialization string `json:"specialization"`

	Position        string `json:"position"`
	RoleDescription string `json:"role_description"`
}

type provisionResponse struct {
	Account           *models.Account `json:"account"`
	GeneratedPassword string          `json:"generated_password"`
}

// POST /api/accounts
func (h *AccountHandler) Provision(c *gin.Context) {
	var body provisionRequest
	if !bindAndValidate(c, &body) {
		return
	}

	input := services.ProvisionInput{
		FirstName:       body.FirstName,
		LastName:        body.LastName,
		Email:           body.Email,
		Phone:           body.Phone,
		Role:            models.AccountRole(strings.ToLower(strings.TrimSpace(body.Role))),
		Preferences:     body.Preferences,
		CompanyName:     body.CompanyName,
		CompanyAddress:  body.CompanyAddress,
		BusinessEmail:   body.BusinessEmail,
		BusinessPhone:   body.BusinessPhone,
		Specialization:  body.Specialization,
		Position:        body.Position,
		RoleDescription: body.RoleDescription,
	}

	result, err := h.provisioning.Provision(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := provisionResponse{
		Account:           result.Account,
		GeneratedPassword: result.GeneratedPassword,
	}

	// Partial provisioning still created the account: 201 with warnings.
	if len(result.Warnings) > 0 {
		response.SuccessWithWarnings(c, http.StatusCreated, payload, result.Warnings)
		return
	}
	response.Success(c, http.StatusCreated, payload)
}

// GET /api/accounts
func (h *AccountHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	opts := services.ListAccountsOptions{
		Page:     page,
		PageSize: perPage,
		Query:    c.Query("q"),
	}
	if raw := strings.TrimSpace(c.Query("active")); raw != "" {
		active := raw == "true" || raw == "1"
		opts.IsActive = &active
	}

	rows, total, err := h.accounts.List(c.Request.Context(), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, rows, &response.Meta{
		Page:    page,
		PerPage: perPage,
		Total:   int(total),
	})
}

// GET /api/accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	detail, err := h.accounts.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

type updateAccountRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatar_url"`

	Preferences     map[string]any `json:"preferences"`
	CompanyName     *string        `json:"company_name"`
	CompanyAddress  *string        `json:"company_address"`
	BusinessEmail   *string        `json:"business_email"`
	BusinessPhone   *string        `json:"business_phone"`
	Specialization  *string        `json:"specialization"`
	Position        *string        `json:"position"`
	RoleDescription *string        `json:"role_description"`
}

// PATCH /api/accounts/:id
func (h *AccountHandler) Update(c *gin.Context) {
	var body updateAccountRequest
	if !bindAndValidate(c, &body) {
		return
	}

	account, err := h.accounts.Update(c.Request.Context(), c.Param("id"), services.UpdateAccountInput{
		FirstName:       body.FirstName,
		LastName:        body.LastName,
		Phone:           body.Phone,
		AvatarURL:       body.AvatarURL,
		Preferences:     body.Preferences,
		CompanyName:     body.CompanyName,
		CompanyAddress:  body.CompanyAddress,
		BusinessEmail:   body.BusinessEmail,
		BusinessPhone:   body.BusinessPhone,
		Specialization:  body.Specialization,
		Position:        body.Position,
		RoleDescription: body.RoleDescription,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, account)
}

// DELETE /api/accounts/:id
func (h *AccountHandler) Delete(c *gin.Context) {
	if err := h.accounts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// PATCH /api/accounts/:id/active
func (h *AccountHandler) SetActive(c *gin.Context) {
	var body setActiveRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.accounts.SetActive(c.Request.Context(), c.Param("id"), *body.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"active": *body.Active})
}

// GET /api/accounts/check-email
//
// The advisory probe backing the registration form; the provisioning workflow
// repeats the lookup authoritatively before committing.
func (h *AccountHandler) CheckEmail(c *gin.Context) {
	email := c.Query("email")
	if strings.TrimSpace(email) == "" {
		response.Error(c, appErrors.NewBadRequest("email query parameter is required"))
		return
	}

	exists, err := h.accounts.EmailExists(c.Request.Context(), email, services.DuplicateCheckReactive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"available": !exists})
}

// POST /api/accounts/:id/otp/resend
func (h *AccountHandler) ResendOTP(c *gin.Context) {
	detail, err := h.accounts.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if _, err := h.codes.Issue(c.Request.Context(), detail.Account.ID, detail.Account.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sent": true})
}

type verifyOTPRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

// POST /api/accounts/:id/otp/verify
func (h *AccountHandler) VerifyOTP(c *gin.Context) {
	var body verifyOTPRequest
	if !bindAndValidate(c, &body) {
		return
	}

	err := h.codes.Verify(c.Request.Context(), c.Param("id"), body.Code)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, gin.H{"verified": true})
	case errors.Is(err, services.ErrCodeNotFound):
		response.Error(c, appErrors.New("OTP_NOT_FOUND", "No one-time code is pending for this account", http.StatusNotFound))
	case errors.Is(err, services.ErrCodeExpired):
		response.Error(c, appErrors.New("OTP_EXPIRED", "The one-time code has expired", http.StatusGone))
	case errors.Is(err, services.ErrCodeAttemptsExceeded):
		response.Error(c, appErrors.New("OTP_ATTEMPTS_EXCEEDED", "Too many failed attempts; request a new code", http.StatusTooManyRequests))
	case errors.Is(err, services.ErrCodeMismatch):
		response.Error(c, appErrors.New("OTP_MISMATCH", "The one-time code is incorrect", http.StatusBadRequest))
	default:
		response.Error(c, err)
	}
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// POST /api/verify-email
func (h *AccountHandler) VerifyEmail(c *gin.Context) {
	var body verifyEmailRequest
	if !bindAndValidate(c, &body) {
		return
	}

	verification, err := h.verifications.Confirm(c.Request.Context(), body.Token)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, gin.H{"verified": true, "account_id": verification.AccountID})
	case errors.Is(err, services.ErrVerificationNotFound):
		response.Error(c, appErrors.New("VERIFICATION_NOT_FOUND", "Verification token not found", http.StatusNotFound))
	case errors.Is(err, services.ErrVerificationExpired):
		response.Error(c, appErrors.New("VERIFICATION_EXPIRED", "The verification link has expired", http.StatusGone))
	case errors.Is(err, services.ErrVerificationUsed):
		response.Error(c, appErrors.New("VERIFICATION_ALREADY_USED", "This email address is already verified", http.StatusConflict))
	default:
		response.Error(c, err)
	}
}
