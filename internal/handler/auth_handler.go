package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/waflow/accountd/internal/pkg/response"
	"github.com/waflow/accountd/internal/service"
)

type AuthHandler struct {
	accounts *service.AccountService
	// exposeTokens echoes raw verification/reset tokens in responses.
	// Debug only, off by default.
	exposeTokens bool
}

func NewAuthHandler(accounts *service.AccountService, exposeTokens bool) *AuthHandler {
	return &AuthHandler{accounts: accounts, exposeTokens: exposeTokens}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type verifyEmailRequest struct {
	Code string `json:"code" binding:"required"`
}

type resendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type createdAccountView struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"emailVerified"`
	CreatedAt     int64  `json:"createdAt"`
}

type sessionAccountView struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"emailVerified"`
	Theme         string `json:"theme"`
	FontSize      string `json:"fontSize"`
}

type verifiedAccountView struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"emailVerified"`
}

type currentAccountView struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"emailVerified"`
	Theme         string `json:"theme"`
	FontSize      string `json:"fontSize"`
	CreatedAt     int64  `json:"createdAt"`
	UpdatedAt     int64  `json:"updatedAt"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	account, code, err := h.accounts.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	body := gin.H{
		"message": "User registered successfully. Please verify your email.",
		"user": createdAccountView{
			ID:            account.ID,
			Email:         account.Email,
			Name:          account.Name,
			EmailVerified: account.EmailVerified,
			CreatedAt:     account.Ctime,
		},
	}
	if h.exposeTokens {
		body["verificationToken"] = code
	}
	response.JSON(c, http.StatusCreated, body)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	account, token, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"accessToken": token,
		"user": sessionAccountView{
			ID:            account.ID,
			Email:         account.Email,
			Name:          account.Name,
			EmailVerified: account.EmailVerified,
			Theme:         account.Theme,
			FontSize:      account.FontSize,
		},
	})
}

// ForgotPassword responds identically whether or not the email is known.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	token, err := h.accounts.ForgotPassword(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		handleError(c, err)
		return
	}
	body := gin.H{"message": "If the email exists, a password reset link has been sent."}
	if h.exposeTokens && token != "" {
		body["resetToken"] = token
	}
	response.JSON(c, http.StatusOK, body)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.accounts.ResetPassword(c.Request.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		handleError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "Password has been reset successfully"})
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	account, err := h.accounts.VerifyEmail(c.Request.Context(), strings.TrimSpace(req.Code))
	if err != nil {
		handleError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"message": "Email verified successfully",
		"user": verifiedAccountView{
			ID:            account.ID,
			Email:         account.Email,
			Name:          account.Name,
			EmailVerified: account.EmailVerified,
		},
	})
}

// ResendVerification responds identically whether or not the email is known.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req resendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	code, err := h.accounts.ResendVerification(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		handleError(c, err)
		return
	}
	body := gin.H{"message": "If the email exists and is not verified, a new verification code has been sent."}
	if h.exposeTokens && code != "" {
		body["verificationToken"] = code
	}
	response.JSON(c, http.StatusOK, body)
}

func (h *AuthHandler) Me(c *gin.Context) {
	account, err := h.accounts.GetCurrentAccount(c.Request.Context(), getAccountID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, currentAccountView{
		ID:            account.ID,
		Email:         account.Email,
		Name:          account.Name,
		EmailVerified: account.EmailVerified,
		Theme:         account.Theme,
		FontSize:      account.FontSize,
		CreatedAt:     account.Ctime,
		UpdatedAt:     account.Mtime,
	})
}
