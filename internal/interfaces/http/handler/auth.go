package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/resepku/backend/internal/application/identity"
	"github.com/resepku/backend/internal/interfaces/http/dto"
	"github.com/resepku/backend/internal/interfaces/http/middleware"
)

// AuthHandler exposes the session provider
type AuthHandler struct {
	BaseHandler
	sessions *identity.SessionService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *identity.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Register godoc
// @ID           registerAuth
// @Summary      Sign up
// @Description  Create an account and sign it in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration form"
// @Success      201 {object} APIResponse[identity.SessionResult]
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.sessions.SignUp(c.Request.Context(), identity.SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Login godoc
// @ID           loginAuth
// @Summary      Sign in
// @Description  Authenticate with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} APIResponse[identity.SessionResult]
// @Failure      401 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.sessions.SignIn(c.Request.Context(), identity.SignInInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RefreshToken godoc
// @ID           refreshAuth
// @Summary      Refresh tokens
// @Description  Exchange a refresh token for a new token pair. The used refresh token is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest true "Refresh token"
// @Success      200 {object} APIResponse[identity.TokenResponse]
// @Failure      401 {object} ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.sessions.Refresh(c.Request.Context(), identity.RefreshInput{RefreshToken: req.RefreshToken})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Logout godoc
// @ID           logoutAuth
// @Summary      Sign out
// @Description  Revoke the current access token and, if given, the refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LogoutRequest false "Refresh token to revoke"
// @Success      200 {object} APIResponse[MessageData]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Error(c, dto.ErrCodeUnauthenticated, "Authentication required")
		return
	}

	// The body is optional
	var req LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	err := h.sessions.SignOut(c.Request.Context(), identity.SignOutInput{
		UserID:       middleware.GetIdentity(c).ID,
		TokenJTI:     claims.ID,
		ExpiresAt:    claims.GetExpiresAtTime(),
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Signed out"})
}

// GetCurrentUser godoc
// @ID           currentUserAuth
// @Summary      Current user
// @Description  Returns the signed-in user, or null data when there is no usable session
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[identity.UserResponse]
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.sessions.CurrentUser(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if user == nil {
		h.Success(c, nil)
		return
	}
	h.Success(c, user)
}
