package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/FranMor97/Book-Server/internal/models"
	"gorm.io/gorm"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id uint, firstName, lastName string) *models.User {
	if id == 0 {
		id = 1
	}
	if firstName == "" {
		firstName = "Test"
	}

	return &models.User{
		ID:        id,
		FirstName: firstName,
		LastName1: lastName,
		Email:     "reader@example.com",
		Avatar:    "https://example.com/avatar.jpg",
		Role:      "client",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("WS_AUTH_GRACE", "")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("WS_AUTH_GRACE")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// GetRecordNotFoundError returns the error gorm reports for a missing row
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}
