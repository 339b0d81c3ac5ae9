package mocks

import (
	"errors"
	"strings"
)

// MockPasswordVerifier implements auth.PasswordVerifier for testing
type MockPasswordVerifier struct {
	// ShouldSucceed determines whether the password comparison should succeed
	ShouldSucceed bool

	// CompareFn allows for custom comparison logic in tests
	CompareFn func(hashedPassword, password string) error

	// CompareCallCount tracks how many times Compare was called
	CompareCallCount int
}

// Compare implements the auth.PasswordVerifier interface
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.CompareCallCount++
	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if m.ShouldSucceed {
		return nil
	}
	return errors.New("password mismatch")
}

// PrefixVerifier checks passwords stored by MockUserStore.
func PrefixVerifier() *MockPasswordVerifier {
	return &MockPasswordVerifier{
		CompareFn: func(hashedPassword, password string) error {
			if strings.TrimPrefix(hashedPassword, HashPrefix) != password {
				return errors.New("password mismatch")
			}
			return nil
		},
	}
}
