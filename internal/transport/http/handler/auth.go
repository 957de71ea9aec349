package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sonoralabs/sonora/internal/domain"
	"github.com/sonoralabs/sonora/internal/transport/http/middleware"
	"github.com/sonoralabs/sonora/internal/usecase"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	SignUp(ctx context.Context, input usecase.SignUpInput) (*domain.User, error)
	VerifyEmail(ctx context.Context, rawToken string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	RequestMagicLink(ctx context.Context, email string) error
	RedeemMagicLink(ctx context.Context, rawToken string) (*domain.User, error)
	OAuthCallback(ctx context.Context, profile usecase.OAuthProfile) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
}

type sessionBridger interface {
	IssueSession(user *domain.User) (string, error)
	FromPrincipal(ctx context.Context, p domain.Principal) (*domain.User, error)
}

type googleVerifier interface {
	Verify(ctx context.Context, idToken string) (*usecase.OAuthProfile, error)
}

type AuthHandler struct {
	auth     authUsecaser
	sessions sessionBridger
	google   googleVerifier
	logger   *slog.Logger
}

func NewAuthHandler(auth authUsecaser, sessions sessionBridger, google googleVerifier, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		google:   google,
		logger:   logger.With("component", "auth_handler"),
	}
}

type signUpRequest struct {
	Email       string `json:"email"        binding:"required,email"`
	Password    string `json:"password"     binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
}

type userResponse struct {
	ID            int64   `json:"id"`
	Email         string  `json:"email"`
	DisplayName   string  `json:"display_name"`
	AuthProvider  string  `json:"auth_provider"`
	EmailVerified bool    `json:"email_verified"`
	ProfileImage  *string `json:"profile_image_url,omitempty"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		AuthProvider:  string(u.AuthProvider),
		EmailVerified: u.EmailVerified,
		ProfileImage:  u.ProfileImageURL,
	}
}

// POST /auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.SignUp(c.Request.Context(), usecase.SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": errEmailTaken})
			return
		}
		h.logger.Error("signup", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// GET /auth/verify-email?token=<raw>
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	user, err := h.auth.VerifyEmail(c.Request.Context(), rawToken)
	if err != nil {
		h.rejectToken(c, "verify email", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "verified", "user": toUserResponse(user)})
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/login
// Every authentication failure maps to the same 401 body so the
// response cannot be used to probe which emails have accounts.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidCredentials})
			return
		}
		h.logger.Error("login", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	h.issueSession(c, user)
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// POST /auth/magic-link
// Always returns 200 to avoid revealing whether the email exists.
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.RequestMagicLink(c.Request.Context(), req.Email); err != nil {
		h.logger.Error("request magic link", "error", err)
	}

	c.Status(http.StatusOK)
}

// GET /auth/magic-link/verify?token=<raw>
func (h *AuthHandler) VerifyMagicLink(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	user, err := h.auth.RedeemMagicLink(c.Request.Context(), rawToken)
	if err != nil {
		h.rejectToken(c, "verify magic link", err)
		return
	}

	h.issueSession(c, user)
}

type googleRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// POST /auth/google
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	var req googleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.google.Verify(c.Request.Context(), req.IDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	user, err := h.auth.OAuthCallback(c.Request.Context(), *profile)
	if err != nil {
		h.logger.Error("oauth callback", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	h.issueSession(c, user)
}

// POST /auth/forgot-password
// Always returns 200; a missing account must look identical to a hit.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.logger.Error("request password reset", "error", err)
	}

	c.Status(http.StatusOK)
}

type resetPasswordRequest struct {
	Token    string `json:"token"    binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.rejectToken(c, "reset password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password_reset"})
}

// GET /auth/me (behind Auth middleware)
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorizedBody})
		return
	}

	user, err := h.sessions.FromPrincipal(c.Request.Context(), principal)
	if err != nil {
		// A vanished user means the session no longer authenticates.
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorizedBody})
			return
		}
		h.logger.Error("resolve principal", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *AuthHandler) issueSession(c *gin.Context, user *domain.User) {
	session, err := h.sessions.IssueSession(user)
	if err != nil {
		h.logger.Error("issue session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": session, "user": toUserResponse(user)})
}

// rejectToken collapses every token failure to one 401 body. The real
// reason stays in the logs.
func (h *AuthHandler) rejectToken(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenAlreadyUsed),
		errors.Is(err, domain.ErrTokenNotFound),
		errors.Is(err, domain.ErrTokenPurposeMismatch):
		h.logger.Info(op+" rejected", "reason", err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
	default:
		h.logger.Error(op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
