package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erpsite/api/models"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Generate(&models.User{ID: 7, Email: "m@example.com", Role: models.RoleMarketer})
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "m@example.com", claims.Email)
	assert.Equal(t, models.RoleMarketer, claims.Role)
}

func TestTokenIssuer_RejectsForeignAndExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	other := NewTokenIssuer("other-secret", time.Hour)

	token, err := other.Generate(&models.User{ID: 1})
	require.NoError(t, err)
	_, err = issuer.Validate(token)
	assert.Error(t, err)

	expired := NewTokenIssuer("test-secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err = expired.Generate(&models.User{ID: 1})
	require.NoError(t, err)
	_, err = issuer.Validate(token)
	assert.Error(t, err)
}

func TestTokenIssuer_NoSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour).Generate(&models.User{ID: 1})
	assert.Error(t, err)
}
