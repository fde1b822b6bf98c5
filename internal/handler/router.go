package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/waflow/accountd/internal/middleware"
)

type RouterDeps struct {
	Auth            *AuthHandler
	JWTSecret       []byte
	RateLimitWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("/auth")
	if deps.RateLimitWindow > 0 {
		authGroup.Use(middleware.RateLimit(deps.RateLimitWindow))
	}
	authGroup.POST("/register", deps.Auth.Register)
	authGroup.POST("/login", deps.Auth.Login)
	authGroup.POST("/forgot-password", deps.Auth.ForgotPassword)
	authGroup.POST("/reset-password", deps.Auth.ResetPassword)
	authGroup.POST("/verify-email", deps.Auth.VerifyEmail)
	authGroup.POST("/resend-verification", deps.Auth.ResendVerification)

	me := api.Group("/auth")
	me.Use(middleware.JWTAuth(deps.JWTSecret))
	me.GET("/me", deps.Auth.Me)
}
