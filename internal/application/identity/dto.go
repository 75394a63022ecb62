package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/resepku/backend/internal/domain/identity"
	"github.com/resepku/backend/internal/infrastructure/auth"
)

// SignUpInput contains the registration form
type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
}

// SignInInput contains the login form
type SignInInput struct {
	Email    string
	Password string
}

// SignOutInput identifies the tokens to revoke. RefreshToken is optional.
type SignOutInput struct {
	UserID       uuid.UUID
	TokenJTI     string
	ExpiresAt    time.Time
	RefreshToken string
}

// RefreshInput contains the refresh token to exchange
type RefreshInput struct {
	RefreshToken string
}

// UserResponse is the public view of the signed-in user
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// TokenResponse is an issued access/refresh token pair
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// SessionResult is returned by SignUp and SignIn
type SessionResult struct {
	User  UserResponse  `json:"user"`
	Token TokenResponse `json:"token"`
}

// ToUserResponse converts a domain user
func ToUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

// Identity returns the identity carried by the response
func (r UserResponse) Identity() identity.Identity {
	return identity.Identity{ID: r.ID, Email: r.Email, DisplayName: r.DisplayName}
}

func toTokenResponse(p *auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:           p.AccessToken,
		RefreshToken:          p.RefreshToken,
		AccessTokenExpiresAt:  p.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: p.RefreshTokenExpiresAt,
		TokenType:             p.TokenType,
	}
}
