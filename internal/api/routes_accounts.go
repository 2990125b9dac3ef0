package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eventdeskhq/eventdesk/internal/handlers"
)

func registerAccountRoutes(api *gin.RouterGroup, handler *handlers.AccountHandler) {
	accounts := api.Group("/accounts")
	{
		accounts.POST("", handler.Provision)
		accounts.GET("", handler.List)
		accounts.GET("/check-email", handler.CheckEmail)
		accounts.GET("/:id", handler.Get)
		accounts.PATCH("/:id", handler.Update)
		accounts.DELETE("/:id", handler.Delete)
		accounts.PATCH("/:id/active", handler.SetActive)
		accounts.POST("/:id/otp/resend", handler.ResendOTP)
		accounts.POST("/:id/otp/verify", handler.VerifyOTP)
	}
}
