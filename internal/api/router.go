package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/eventdeskhq/eventdesk/internal/app"
	"github.com/eventdeskhq/eventdesk/internal/handlers"
	"github.com/eventdeskhq/eventdesk/internal/middleware"
	"github.com/eventdeskhq/eventdesk/internal/services"
)

// Services bundles the constructed service layer for route registration.
type Services struct {
	Provisioning  *services.ProvisioningService
	Accounts      *services.AccountService
	Verifications *services.VerificationService
	Codes         *services.OTPService
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, cfg *app.Config, svcs Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	if cfg.Monitoring.Health.Enabled {
		r.GET("/healthz", handlers.Health(db))
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	accountHandler, err := handlers.NewAccountHandler(svcs.Provisioning, svcs.Accounts, svcs.Verifications, svcs.Codes)
	if err != nil {
		return nil, err
	}
	auditHandler, err := handlers.NewAuditHandler(db)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")

	registerAccountRoutes(api, accountHandler)
	api.GET("/audit", auditHandler.List)
	api.POST("/verify-email", accountHandler.VerifyEmail)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
