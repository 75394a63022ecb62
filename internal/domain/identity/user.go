package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/resepku/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Password cost for bcrypt
const bcryptCost = 12

const (
	minPasswordLength    = 6
	maxPasswordLength    = 72 // bcrypt ignores bytes beyond 72
	maxDisplayNameLength = 100
	maxEmailLength       = 200
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is a registered account.
// It owns the credentials; the rest of the system only ever sees its Identity.
type User struct {
	shared.BaseEntity
	Email        string
	DisplayName  string
	PasswordHash string
}

// NewUser validates the registration input and hashes the password
func NewUser(email, password, displayName string) (*User, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if err := validateDisplayName(displayName); err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = defaultDisplayName(email)
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	return &User{
		BaseEntity:   shared.NewBaseEntity(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
	}, nil
}

// Identity returns the public identity of the user
func (u *User) Identity() Identity {
	return Identity{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
	}
}

// VerifyPassword checks if the provided password matches the stored hash
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// SetDisplayName sets the user's display name
func (u *User) SetDisplayName(displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if err := validateDisplayName(displayName); err != nil {
		return err
	}
	if displayName == "" {
		displayName = defaultDisplayName(u.Email)
	}

	u.DisplayName = displayName
	u.UpdatedAt = time.Now()
	return nil
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// defaultDisplayName falls back to the local part of the email
func defaultDisplayName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

func validatePassword(password string) error {
	if password == "" {
		return invalidField("password", "Password cannot be empty")
	}
	if len(password) < minPasswordLength {
		return invalidField("password", "Password must be at least 6 characters")
	}
	if len(password) > maxPasswordLength {
		return invalidField("password", "Password cannot exceed 72 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return invalidField("email", "Email cannot be empty")
	}
	if len(email) > maxEmailLength {
		return invalidField("email", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return invalidField("email", "Invalid email format")
	}
	return nil
}

func validateDisplayName(displayName string) error {
	if len(displayName) > maxDisplayNameLength {
		return invalidField("display_name", "Display name cannot exceed 100 characters")
	}
	return nil
}

func invalidField(field, message string) error {
	return shared.NewValidationError(message).WithDetail(field, message)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
