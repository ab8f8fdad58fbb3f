package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEmailFormatValid(t *testing.T) {
	result := CheckEmailFormat("jane.doe@example.com")

	assert.True(t, result.FormatValid)
	assert.True(t, result.IsValid)
	assert.False(t, result.IsDisposable)
	assert.False(t, result.IsRoleBased)
	assert.Equal(t, 100, result.Score)
	assert.Empty(t, result.Errors)
}

func TestCheckEmailFormatNormalizesInput(t *testing.T) {
	result := CheckEmailFormat("  Jane.Doe@Example.COM  ")
	assert.Equal(t, "jane.doe@example.com", result.Email)
	assert.True(t, result.FormatValid)
}

func TestCheckEmailFormatInvalid(t *testing.T) {
	for _, email := range []string{"not-an-email", "@example.com", "a@", ""} {
		result := CheckEmailFormat(email)
		assert.False(t, result.FormatValid, email)
		assert.False(t, result.IsValid, email)
		assert.Equal(t, 0, result.Score, email)
		require.NotEmpty(t, result.Errors, email)
	}
}

func TestCheckEmailFormatDisposable(t *testing.T) {
	result := CheckEmailFormat("throwaway@mailinator.com")

	assert.True(t, result.FormatValid)
	assert.True(t, result.IsDisposable)
	assert.False(t, result.IsValid)
	assert.Equal(t, 50, result.Score)
}

func TestCheckEmailFormatRoleBased(t *testing.T) {
	result := CheckEmailFormat("support@example.com")

	assert.True(t, result.IsRoleBased)
	// Role-based addresses are penalized but still deliverable
	assert.True(t, result.IsValid)
	assert.Equal(t, 80, result.Score)
}

func TestCheckEmailFormatTypoSuggestion(t *testing.T) {
	result := CheckEmailFormat("jane@gmial.com")

	assert.Equal(t, "jane@gmail.com", result.Suggestion)
	assert.False(t, result.IsValid)
	assert.Equal(t, 60, result.Score)
}

func TestCheckEmailFormatScoreFloor(t *testing.T) {
	// Disposable + role-based stacks deductions but never goes negative
	result := CheckEmailFormat("admin@yopmail.com")
	assert.GreaterOrEqual(t, result.Score, 0)
}
