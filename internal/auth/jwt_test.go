package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestkey/server/internal/models"
)

func TestGenerateAndParseToken(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "buyer@example.com", Role: models.RoleUser}

	token, err := GenerateToken("secret", user)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestParseToken_WrongSecret(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "buyer@example.com", Role: models.RoleUser}

	token, err := GenerateToken("secret", user)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("secret", "not-a-token")
	assert.Error(t, err)
}
