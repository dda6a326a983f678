package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richharbor/access-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	franchise := "f-1"

	token, expiresAt, err := tm.GenerateToken("u-1", domain.SubjectTypeUser, &franchise)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeUser, claims.Subject)
	require.NotNil(t, claims.FranchiseID)
	assert.Equal(t, "f-1", *claims.FranchiseID)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", 10).GenerateToken("a-1", domain.SubjectTypeAdmin, nil)
	require.NoError(t, err)

	_, err = NewTokenManager("two", 10).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpires(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	token, _, err := tm.GenerateToken("u-1", domain.SubjectTypeUser, nil)
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "wrong"))

	_, err = HashPassword(string(make([]byte, 73)), 4)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
