package handler

// RegisterRequest represents the request body for sign up
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email,max=200"`
	Password        string `json:"password" binding:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	DisplayName     string `json:"display_name" binding:"max=100"`
}

// LoginRequest represents the request body for sign in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,max=200"`
	Password string `json:"password" binding:"required,max=72"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally names the refresh token to revoke with the session
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}
