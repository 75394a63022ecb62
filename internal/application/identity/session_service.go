// Package identity implements the session provider: registration, sign in,
// sign out, token refresh and current user lookup.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/resepku/backend/internal/domain/identity"
	"github.com/resepku/backend/internal/domain/shared"
	"github.com/resepku/backend/internal/infrastructure/auth"
	"github.com/resepku/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Event names reported to the EventRecorder
const (
	EventSignUp  = "sign_up"
	EventSignIn  = "sign_in"
	EventSignOut = "sign_out"
	EventRefresh = "refresh"
)

// Token errors returned by Refresh. All of them mean "sign in again".
var (
	ErrTokenExpired    = shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	ErrTokenInvalid    = shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	ErrTokenRevoked    = shared.NewDomainError("TOKEN_REVOKED", "Refresh token has been revoked")
	ErrTokenMaxRefresh = shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please sign in again")
)

// EventRecorder receives the outcome of every session event
type EventRecorder interface {
	RecordAuthEvent(event string, err error)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthEvent(string, error) {}

// Option configures a SessionService
type Option func(*SessionService)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *SessionService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the event recorder
func WithRecorder(r EventRecorder) Option {
	return func(s *SessionService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// SessionService is the only issuer of identities. Credentials never leave it;
// the rest of the application sees identity.Identity values only.
type SessionService struct {
	users     identity.UserRepository
	tokens    *auth.JWTService
	blacklist auth.TokenBlacklist
	recorder  EventRecorder
	logger    *zap.Logger
}

// NewSessionService creates a session service. blacklist may be nil, in
// which case sign out only ends the session client-side.
func NewSessionService(users identity.UserRepository, tokens *auth.JWTService, blacklist auth.TokenBlacklist, opts ...Option) *SessionService {
	s := &SessionService{
		users:     users,
		tokens:    tokens,
		blacklist: blacklist,
		recorder:  noopRecorder{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUp registers a new account and signs it in
func (s *SessionService) SignUp(ctx context.Context, input SignUpInput) (result *SessionResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "session", EventSignUp)
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordAuthEvent(EventSignUp, err)
	}()

	email := identity.NormalizeEmail(input.Email)
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Info("Sign up with registered email", zap.String("email", email))
		return nil, shared.ErrEmailAlreadyRegistered
	}

	user, err := identity.NewUser(email, input.Password, input.DisplayName)
	if err != nil {
		return nil, err
	}
	// The unique index still decides when two sign ups race
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// SignIn checks credentials. An unknown email and a wrong password yield the
// same InvalidCredentials error.
func (s *SessionService) SignIn(ctx context.Context, input SignInInput) (result *SessionResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "session", EventSignIn)
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordAuthEvent(EventSignIn, err)
	}()

	email := identity.NormalizeEmail(input.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Sign in for unknown email", zap.String("email", email))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, shared.ErrInvalidCredentials
	}

	s.logger.Info("User signed in", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// SignOut revokes the access token and, when given, the refresh token.
// Signing out twice is not an error.
func (s *SessionService) SignOut(ctx context.Context, input SignOutInput) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "session", EventSignOut)
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordAuthEvent(EventSignOut, err)
	}()

	if s.blacklist == nil {
		s.logger.Debug("No token blacklist configured, sign out is client-side only")
		return nil
	}

	if input.TokenJTI != "" {
		if err := s.blacklist.Revoke(ctx, input.TokenJTI, time.Until(input.ExpiresAt)); err != nil {
			return shared.NewStoreError("sign out", err)
		}
	}
	if input.RefreshToken != "" {
		// An unusable refresh token has nothing left to revoke
		if claims, verr := s.tokens.ValidateRefreshToken(input.RefreshToken); verr == nil {
			if err := s.blacklist.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
				return shared.NewStoreError("sign out", err)
			}
		}
	}

	s.logger.Info("User signed out", zap.String("user_id", input.UserID.String()))
	return nil
}

// Refresh exchanges a refresh token for a new pair. The used refresh token is
// revoked so that it cannot be replayed.
func (s *SessionService) Refresh(ctx context.Context, input RefreshInput) (result *TokenResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "session", EventRefresh)
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordAuthEvent(EventRefresh, err)
	}()

	claims, err := s.tokens.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, mapTokenError(err)
	}
	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, shared.NewStoreError("refresh", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	pair, err := s.tokens.RefreshTokenPair(input.RefreshToken, user.Email, user.DisplayName)
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, mapTokenError(err)
	}
	if s.blacklist != nil {
		if err := s.blacklist.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
			s.logger.Error("Failed to revoke used refresh token", zap.Error(err))
		}
	}

	out := toTokenResponse(pair)
	return &out, nil
}

// CurrentUser returns the signed-in user, or nil when caller is anonymous or
// its account no longer exists. Only store failures are errors.
func (s *SessionService) CurrentUser(ctx context.Context, caller identity.Identity) (*UserResponse, error) {
	if caller.IsZero() {
		return nil, nil
	}
	user, err := s.users.FindByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := ToUserResponse(user)
	return &out, nil
}

func (s *SessionService) issue(user *identity.User) (*SessionResult, error) {
	pair, err := s.tokens.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}
	return &SessionResult{
		User:  ToUserResponse(user),
		Token: toTokenResponse(pair),
	}, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return ErrTokenExpired
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return ErrTokenMaxRefresh
	default:
		return ErrTokenInvalid
	}
}
