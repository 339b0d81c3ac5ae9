package domain

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Password length bounds. The upper bound is bcrypt's input limit.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
	MaxUsernameLength = 150
	MaxNameLength     = 150
	MaxBioLength      = 500
)

var validate = validator.New()

// User represents a registered account.
type User struct {
	ID                     uuid.UUID  `json:"id"`
	Email                  string     `json:"email"`
	Username               string     `json:"username"`
	FirstName              string     `json:"first_name"`
	LastName               string     `json:"last_name"`
	Bio                    string     `json:"bio"`
	AvatarURL              string     `json:"avatar_url,omitempty"`
	Password               string     `json:"-"` // Plaintext password, used temporarily during registration/updates
	HashedPassword         string     `json:"-"`
	IsActive               bool       `json:"is_active"`
	IsEmailVerified        bool       `json:"is_email_verified"`
	EmailVerificationToken string     `json:"-"`
	LoginCount             int        `json:"login_count"`
	LastActivity           *time.Time `json:"last_activity,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// NewUser creates an active, unverified user with the given email, username and
// plaintext password. The caller is responsible for hashing the password before
// storing the user.
func NewUser(email, username, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Email:     NormalizeEmail(email),
		Username:  strings.TrimSpace(username),
		Password:  password,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if user.Username == "" {
		user.Username = usernameFromEmail(user.Email)
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "user ID cannot be empty", ErrInvalidID)
	}

	if u.Email == "" {
		return NewValidationError("email", "email cannot be empty", ErrInvalidEmail)
	}
	if err := validate.Var(u.Email, "email"); err != nil {
		return NewValidationError("email", "invalid email format", ErrInvalidEmail)
	}

	if u.Username == "" || len(u.Username) > MaxUsernameLength {
		return NewValidationError("username", "username must be 1-150 characters", nil)
	}

	if len(u.FirstName) > MaxNameLength || len(u.LastName) > MaxNameLength {
		return NewValidationError("name", "names must be at most 150 characters", nil)
	}

	if len(u.Bio) > MaxBioLength {
		return NewValidationError("bio", "bio must be at most 500 characters", nil)
	}

	if u.Password != "" {
		return ValidatePassword(u.Password)
	}
	if u.HashedPassword == "" {
		return NewValidationError("password", "password cannot be empty", ErrInvalidPassword)
	}

	return nil
}

// ValidatePassword checks the plaintext length bounds.
func ValidatePassword(password string) error {
	switch n := len(password); {
	case n == 0:
		return NewValidationError("password", "password cannot be empty", ErrInvalidPassword)
	case n < MinPasswordLength:
		return NewValidationError("password", "password must be at least 8 characters long", ErrInvalidPassword)
	case n > MaxPasswordLength:
		return NewValidationError("password", "password must be at most 72 characters long", ErrInvalidPassword)
	}
	return nil
}

// ProfileUpdate carries a partial profile change. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Username  *string
	Bio       *string
}

// ApplyProfile applies a partial update and revalidates the user.
func (u *User) ApplyProfile(p ProfileUpdate) error {
	if p.FirstName != nil {
		u.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		u.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.Username != nil {
		u.Username = strings.TrimSpace(*p.Username)
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	u.UpdatedAt = time.Now().UTC()
	return u.Validate()
}

// RecordLogin bumps the login counter and last activity timestamp.
func (u *User) RecordLogin(now time.Time) {
	u.LoginCount++
	t := now.UTC()
	u.LastActivity = &t
	u.UpdatedAt = t
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func usernameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
