package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/waflow/accountd/internal/handler"
	"github.com/waflow/accountd/internal/pkg/jwt"
	"github.com/waflow/accountd/internal/service"
	"github.com/waflow/accountd/internal/testutil"
)

type noopSender struct{}

func (noopSender) Send(to, subject, body string) error {
	return nil
}

func setupRouter(t *testing.T, exposeTokens bool) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutil.NewMemStore()
	signer := jwt.NewSigner([]byte("test-secret"), time.Hour)
	accountService := service.NewAccountService(store, signer, noopSender{})

	engine := gin.New()
	api := engine.Group("/api/v1")
	handler.RegisterRoutes(api, handler.RouterDeps{
		Auth:      handler.NewAuthHandler(accountService, exposeTokens),
		JWTSecret: []byte("test-secret"),
	})
	return engine
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	router := setupRouter(t, true)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		map[string]string{"email": "user@example.com", "password": "password123", "name": "Test User"}, "")
	require.Equal(t, http.StatusCreated, resp.Code)
	body := decode(t, resp)
	require.Equal(t, "User registered successfully. Please verify your email.", body["message"])
	user := body["user"].(map[string]interface{})
	require.Equal(t, "user@example.com", user["email"])
	require.Equal(t, false, user["emailVerified"])
	code, _ := body["verificationToken"].(string)
	require.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	// login before verification
	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "user@example.com", "password": "password123"}, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Equal(t, "Please verify your email before logging in", decode(t, resp)["message"])

	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/verify-email",
		map[string]string{"code": code}, "")
	require.Equal(t, http.StatusOK, resp.Code)
	body = decode(t, resp)
	require.Equal(t, "Email verified successfully", body["message"])
	require.Equal(t, true, body["user"].(map[string]interface{})["emailVerified"])

	// a consumed code cannot verify twice
	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/verify-email",
		map[string]string{"code": code}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "Invalid verification code", decode(t, resp)["message"])

	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "user@example.com", "password": "password123"}, "")
	require.Equal(t, http.StatusOK, resp.Code)
	body = decode(t, resp)
	token, _ := body["accessToken"].(string)
	require.NotEmpty(t, token)
	loginUser := body["user"].(map[string]interface{})
	require.Equal(t, "system", loginUser["theme"])
	require.Equal(t, "md", loginUser["fontSize"])

	resp = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil, token)
	require.Equal(t, http.StatusOK, resp.Code)
	me := decode(t, resp)
	require.Equal(t, "user@example.com", me["email"])
	require.Equal(t, "Test User", me["name"])
	require.Equal(t, true, me["emailVerified"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router := setupRouter(t, true)

	payload := map[string]string{"email": "user@example.com", "password": "password123", "name": "Test User"}
	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", payload, "")
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", payload, "")
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, "User with this email already exists", decode(t, resp)["message"])
}

func TestForgotPasswordResponseParity(t *testing.T) {
	router := setupRouter(t, false)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		map[string]string{"email": "user@example.com", "password": "password123"}, "")
	require.Equal(t, http.StatusCreated, resp.Code)

	known := doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password",
		map[string]string{"email": "user@example.com"}, "")
	unknown := doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password",
		map[string]string{"email": "nobody@nowhere.com"}, "")
	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	require.Equal(t, known.Body.String(), unknown.Body.String())
	require.Equal(t, "If the email exists, a password reset link has been sent.", decode(t, known)["message"])
}

func TestResendVerificationResponseParity(t *testing.T) {
	router := setupRouter(t, false)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		map[string]string{"email": "user@example.com", "password": "password123"}, "")
	require.Equal(t, http.StatusCreated, resp.Code)

	known := doJSON(t, router, http.MethodPost, "/api/v1/auth/resend-verification",
		map[string]string{"email": "user@example.com"}, "")
	unknown := doJSON(t, router, http.MethodPost, "/api/v1/auth/resend-verification",
		map[string]string{"email": "nobody@nowhere.com"}, "")
	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	require.Equal(t, known.Body.String(), unknown.Body.String())
	require.Equal(t, "If the email exists and is not verified, a new verification code has been sent.", decode(t, known)["message"])
}

func TestResetPasswordFlow(t *testing.T) {
	router := setupRouter(t, true)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		map[string]string{"email": "user@example.com", "password": "password123"}, "")
	require.Equal(t, http.StatusCreated, resp.Code)
	code := decode(t, resp)["verificationToken"].(string)
	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/verify-email",
		map[string]string{"code": code}, "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password",
		map[string]string{"email": "user@example.com"}, "")
	require.Equal(t, http.StatusOK, resp.Code)
	token, _ := decode(t, resp)["resetToken"].(string)
	require.Len(t, token, 64)

	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/reset-password",
		map[string]string{"token": token, "password": "new-password", "confirmPassword": "mismatch"}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "Passwords do not match", decode(t, resp)["message"])

	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/reset-password",
		map[string]string{"token": token, "password": "new-password", "confirmPassword": "new-password"}, "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "Password has been reset successfully", decode(t, resp)["message"])

	// reset token is single use
	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/reset-password",
		map[string]string{"token": token, "password": "other", "confirmPassword": "other"}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "Invalid or expired reset token", decode(t, resp)["message"])

	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "user@example.com", "password": "new-password"}, "")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestVerifyEmailInvalidCode(t *testing.T) {
	router := setupRouter(t, true)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/verify-email",
		map[string]string{"code": "000000"}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "Invalid verification code", decode(t, resp)["message"])
}

func TestMeRequiresToken(t *testing.T) {
	router := setupRouter(t, true)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}
