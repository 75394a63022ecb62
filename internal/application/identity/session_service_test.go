package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/resepku/backend/internal/domain/identity"
	"github.com/resepku/backend/internal/domain/shared"
	"github.com/resepku/backend/internal/infrastructure/auth"
	"github.com/resepku/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (r *fakeRecorder) RecordAuthEvent(event string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.errs = append(r.errs, err)
}

func newTestJWT(maxRefresh int) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "session-test-secret-at-least-32-chars",
		RefreshSecret:          "session-test-refresh-secret-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "resepku-test",
		MaxRefreshCount:        maxRefresh,
	})
}

type sessionFixture struct {
	svc       *SessionService
	repo      *MockUserRepository
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
	recorder  *fakeRecorder
	logs      *observer.ObservedLogs
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	f := &sessionFixture{
		repo:      new(MockUserRepository),
		jwt:       newTestJWT(5),
		blacklist: auth.NewInMemoryTokenBlacklist(),
		recorder:  &fakeRecorder{},
		logs:      logs,
	}
	f.svc = NewSessionService(f.repo, f.jwt, f.blacklist,
		WithLogger(zap.New(core)),
		WithRecorder(f.recorder),
	)
	return f
}

var (
	sitiOnce sync.Once
	sitiUser *identity.User
)

// siti returns a copy of a registered user; hashing is slow so it is done once
func siti(t *testing.T) *identity.User {
	t.Helper()
	sitiOnce.Do(func() {
		u, err := identity.NewUser("siti@example.com", "rahasia", "Siti")
		if err != nil {
			panic(err)
		}
		sitiUser = u
	})
	u := *sitiUser
	return &u
}

func TestSessionService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("registers and signs in", func(t *testing.T) {
		f := newSessionFixture(t)
		f.repo.On("ExistsByEmail", mock.Anything, "budi@example.com").Return(false, nil)
		f.repo.On("Create", mock.Anything, mock.MatchedBy(func(u *identity.User) bool {
			return u.Email == "budi@example.com" && u.DisplayName == "Budi" && u.VerifyPassword("rahasia")
		})).Return(nil)

		result, err := f.svc.SignUp(ctx, SignUpInput{
			Email:       "  Budi@Example.com ",
			Password:    "rahasia",
			DisplayName: "Budi",
		})
		require.NoError(t, err)

		assert.Equal(t, "budi@example.com", result.User.Email)
		assert.Equal(t, "Budi", result.User.DisplayName)
		assert.NotEqual(t, uuid.Nil, result.User.ID)

		claims, err := f.jwt.ValidateAccessToken(result.Token.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, result.User.ID.String(), claims.UserID)
		assert.Equal(t, "Bearer", result.Token.TokenType)

		assert.Equal(t, []string{EventSignUp}, f.recorder.events)
		assert.Equal(t, []error{nil}, f.recorder.errs)
		f.repo.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newSessionFixture(t)
		f.repo.On("ExistsByEmail", mock.Anything, "siti@example.com").Return(true, nil)

		_, err := f.svc.SignUp(ctx, SignUpInput{Email: "SITI@example.com", Password: "rahasia"})

		assert.ErrorIs(t, err, shared.ErrEmailAlreadyRegistered)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate detected by the store", func(t *testing.T) {
		f := newSessionFixture(t)
		f.repo.On("ExistsByEmail", mock.Anything, "siti@example.com").Return(false, nil)
		f.repo.On("Create", mock.Anything, mock.Anything).Return(shared.ErrEmailAlreadyRegistered)

		_, err := f.svc.SignUp(ctx, SignUpInput{Email: "siti@example.com", Password: "rahasia"})

		assert.ErrorIs(t, err, shared.ErrEmailAlreadyRegistered)
	})

	t.Run("short password is a validation error", func(t *testing.T) {
		f := newSessionFixture(t)
		f.repo.On("ExistsByEmail", mock.Anything, "siti@example.com").Return(false, nil)

		_, err := f.svc.SignUp(ctx, SignUpInput{Email: "siti@example.com", Password: "123"})

		assert.ErrorIs(t, err, shared.ErrValidation)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Contains(t, domainErr.Details, "password")
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newSessionFixture(t)
		f.repo.On("ExistsByEmail", mock.Anything, "siti@example.com").
			Return(false, shared.NewStoreError("check email", errors.New("connection refused")))

		_, err := f.svc.SignUp(ctx, SignUpInput{Email: "siti@example.com", Password: "rahasia"})

		assert.ErrorIs(t, err, shared.ErrStore)
		assert.Contains(t, err.Error(), "connection refused")
		require.Len(t, f.recorder.errs, 1)
		assert.ErrorIs(t, f.recorder.errs[0], shared.ErrStore)
	})
}

func TestSessionService_SignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		f := newSessionFixture(t)
		user := siti(t)
		f.repo.On("FindByEmail", mock.Anything, "siti@example.com").Return(user, nil)

		result, err := f.svc.SignIn(ctx, SignInInput{Email: "Siti@Example.com", Password: "rahasia"})
		require.NoError(t, err)

		assert.Equal(t, user.ID, result.User.ID)
		assert.Equal(t, user.Identity(), result.User.Identity())
		assert.NotEmpty(t, result.Token.RefreshToken)
	})

	t.Run("unknown email and wrong password look the same", func(t *testing.T) {
		f := newSessionFixture(t)
		f.repo.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, shared.ErrNotFound)
		f.repo.On("FindByEmail", mock.Anything, "siti@example.com").Return(siti(t), nil)

		_, errUnknown := f.svc.SignIn(ctx, SignInInput{Email: "nobody@example.com", Password: "rahasia"})
		_, errWrong := f.svc.SignIn(ctx, SignInInput{Email: "siti@example.com", Password: "salah123"})

		assert.ErrorIs(t, errUnknown, shared.ErrInvalidCredentials)
		assert.ErrorIs(t, errWrong, shared.ErrInvalidCredentials)
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
		assert.Equal(t, 1, f.logs.FilterMessage("Invalid password attempt").Len())
	})

	t.Run("store failure is not masked", func(t *testing.T) {
		f := newSessionFixture(t)
		f.repo.On("FindByEmail", mock.Anything, "siti@example.com").
			Return(nil, shared.NewStoreError("find user by email", errors.New("timeout")))

		_, err := f.svc.SignIn(ctx, SignInInput{Email: "siti@example.com", Password: "rahasia"})

		assert.ErrorIs(t, err, shared.ErrStore)
		assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
	})
}

func TestSessionService_SignOut(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	user := siti(t)
	f.repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)
	access, err := f.jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	input := SignOutInput{
		UserID:       user.ID,
		TokenJTI:     access.ID,
		ExpiresAt:    access.GetExpiresAtTime(),
		RefreshToken: pair.RefreshToken,
	}
	require.NoError(t, f.svc.SignOut(ctx, input))

	revoked, err := f.blacklist.IsRevoked(ctx, access.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	t.Run("refresh token is revoked too", func(t *testing.T) {
		_, err := f.svc.Refresh(ctx, RefreshInput{RefreshToken: pair.RefreshToken})
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("signing out twice is fine", func(t *testing.T) {
		assert.NoError(t, f.svc.SignOut(ctx, input))
	})

	t.Run("garbage refresh token is ignored", func(t *testing.T) {
		assert.NoError(t, f.svc.SignOut(ctx, SignOutInput{RefreshToken: "not-a-token"}))
	})

	t.Run("without blacklist", func(t *testing.T) {
		svc := NewSessionService(f.repo, f.jwt, nil)
		assert.NoError(t, svc.SignOut(ctx, input))
	})
}

func TestSessionService_Refresh(t *testing.T) {
	ctx := context.Background()
	user := siti(t)

	t.Run("rotates the pair", func(t *testing.T) {
		f := newSessionFixture(t)
		f.repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID})
		require.NoError(t, err)

		next, err := f.svc.Refresh(ctx, RefreshInput{RefreshToken: pair.RefreshToken})
		require.NoError(t, err)

		claims, err := f.jwt.ValidateAccessToken(next.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.Email, claims.Email)
		assert.Equal(t, user.DisplayName, claims.DisplayName)

		_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: pair.RefreshToken})
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newSessionFixture(t)
		_, err := f.svc.Refresh(ctx, RefreshInput{RefreshToken: "nope"})
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		f := newSessionFixture(t)
		pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID})
		require.NoError(t, err)

		_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: pair.AccessToken})
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("deleted account", func(t *testing.T) {
		f := newSessionFixture(t)
		f.repo.On("FindByID", mock.Anything, user.ID).Return(nil, shared.ErrNotFound)
		pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID})
		require.NoError(t, err)

		_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: pair.RefreshToken})
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("refresh limit", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		jwt := newTestJWT(1)
		svc := NewSessionService(repo, jwt, auth.NewInMemoryTokenBlacklist())

		pair, err := jwt.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID})
		require.NoError(t, err)
		next, err := svc.Refresh(ctx, RefreshInput{RefreshToken: pair.RefreshToken})
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, RefreshInput{RefreshToken: next.RefreshToken})
		assert.ErrorIs(t, err, ErrTokenMaxRefresh)
	})
}

func TestSessionService_CurrentUser(t *testing.T) {
	ctx := context.Background()
	user := siti(t)

	t.Run("anonymous is nil without error", func(t *testing.T) {
		f := newSessionFixture(t)
		got, err := f.svc.CurrentUser(ctx, identity.Identity{})
		assert.NoError(t, err)
		assert.Nil(t, got)
		f.repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("signed in", func(t *testing.T) {
		f := newSessionFixture(t)
		f.repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		got, err := f.svc.CurrentUser(ctx, user.Identity())
		require.NoError(t, err)
		assert.Equal(t, ToUserResponse(user), *got)
	})

	t.Run("account gone is nil without error", func(t *testing.T) {
		f := newSessionFixture(t)
		f.repo.On("FindByID", mock.Anything, user.ID).Return(nil, shared.ErrNotFound)

		got, err := f.svc.CurrentUser(ctx, user.Identity())
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newSessionFixture(t)
		f.repo.On("FindByID", mock.Anything, user.ID).Return(nil, shared.NewStoreError("find user", errors.New("down")))

		_, err := f.svc.CurrentUser(ctx, user.Identity())
		assert.ErrorIs(t, err, shared.ErrStore)
	})
}
