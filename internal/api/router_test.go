package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/eventdeskhq/eventdesk/internal/app"
	"github.com/eventdeskhq/eventdesk/internal/auth"
	"github.com/eventdeskhq/eventdesk/internal/database"
	"github.com/eventdeskhq/eventdesk/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	credentials, err := auth.NewLocalCredentialProvider(db)
	require.NoError(t, err)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	accounts, err := services.NewAccountService(db, audit, credentials)
	require.NoError(t, err)

	verifications, err := services.NewVerificationService(db, nil)
	require.NoError(t, err)

	codes, err := services.NewOTPService(db, nil)
	require.NoError(t, err)

	provisioning, err := services.NewProvisioningService(db, accounts, credentials, verifications, codes, audit)
	require.NoError(t, err)

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)

	router, err := NewRouter(db, cfg, Services{
		Provisioning:  provisioning,
		Accounts:      accounts,
		Verifications: verifications,
		Codes:         codes,
	})
	require.NoError(t, err)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouterProvisioningFlow(t *testing.T) {
	router := newTestRouter(t)

	// The reactive probe reports the address as free.
	rec := doJSON(t, router, http.MethodGet, "/api/accounts/check-email?email=jane.doe@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"available":true`)

	rec = doJSON(t, router, http.MethodPost, "/api/accounts", map[string]any{
		"first_name": " jAnE ",
		"last_name":  "doe",
		"email":      "Jane.Doe@Example.COM",
		"role":       "event_organizer",
		"company_name": "Acme Events",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Success bool `json:"success"`
		Data    struct {
			Account struct {
				ID    string `json:"id"`
				Email string `json:"email"`
			} `json:"account"`
			GeneratedPassword string `json:"generated_password"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, created.Success)
	require.Equal(t, "jane.doe@example.com", created.Data.Account.Email)
	require.Len(t, created.Data.GeneratedPassword, 12)

	// The probe now reports the address as taken.
	rec = doJSON(t, router, http.MethodGet, "/api/accounts/check-email?email=JANE.DOE@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"available":false`)

	// Repeating the provision collides.
	rec = doJSON(t, router, http.MethodPost, "/api/accounts", map[string]any{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      "jane.doe@example.com",
		"role":       "customer",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "ACCOUNT_DUPLICATE_EMAIL")

	// The listing projects the new account.
	rec = doJSON(t, router, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"full_name":"Jane Doe"`)
	require.Contains(t, rec.Body.String(), `"role_label":"Event Organizer"`)

	// Account management endpoints.
	accountID := created.Data.Account.ID
	rec = doJSON(t, router, http.MethodPatch, "/api/accounts/"+accountID, map[string]any{
		"first_name": "Janet",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/api/accounts/"+accountID+"/active", map[string]any{
		"active": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Requesting a resend replaces the pending code.
	rec = doJSON(t, router, http.MethodPost, "/api/accounts/"+accountID+"/otp/resend", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/accounts/"+accountID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/accounts/"+accountID+"/otp/verify", map[string]any{
		"code": "000000",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterValidationFailures(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/accounts", map[string]any{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      "not-an-email",
		"role":       "customer",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/accounts", map[string]any{
		"first_name": "Jane",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/accounts/check-email", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterMonitoringEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
