package utils

import (
	"testing"

	"pulsemail/config"
	"pulsemail/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestJWTTokenRoundTrip(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret-do-not-use"

	user := &models.User{
		Model:          gorm.Model{ID: 7},
		OrganizationID: 3,
		Email:          "jane@example.com",
	}

	access, refresh, err := GenerateJWTToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	claims, err := ParseJWTToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, uint(3), claims.OrganizationID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
}

func TestParseJWTTokenRejectsGarbage(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret-do-not-use"

	_, err := ParseJWTToken("not.a.token")
	assert.Error(t, err)
}

func TestParseJWTTokenRejectsWrongSecret(t *testing.T) {
	config.AppConfig.JWTSecret = "secret-a"
	user := &models.User{Model: gorm.Model{ID: 1}, OrganizationID: 1}
	access, _, err := GenerateJWTToken(user)
	require.NoError(t, err)

	config.AppConfig.JWTSecret = "secret-b"
	_, err = ParseJWTToken(access)
	assert.Error(t, err)
}
