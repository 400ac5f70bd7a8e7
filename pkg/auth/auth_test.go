package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewJWTManagerShortSecret(t *testing.T) {
	_, err := NewJWTManager("short", time.Hour)
	assert.ErrorIs(t, err, ErrShortSecret)
}

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewJWTManager(testSecret, time.Hour)
	require.NoError(t, err)

	token, err := m.GenerateToken("u1", "alice", RoleAssessor)
	require.NoError(t, err)

	claims, err := m.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, RoleAssessor, claims.Role)
}

func TestGenerateTokenValidation(t *testing.T) {
	m, err := NewJWTManager(testSecret, time.Hour)
	require.NoError(t, err)

	_, err = m.GenerateToken("", "alice", RoleViewer)
	assert.ErrorIs(t, err, ErrEmptyUserID)

	_, err = m.GenerateToken("u1", "", RoleViewer)
	assert.ErrorIs(t, err, ErrEmptyUsername)

	_, err = m.GenerateToken("u1", "alice", "superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	m, err := NewJWTManager(testSecret, time.Hour)
	require.NoError(t, err)

	_, err = m.ValidateToken(context.Background(), "not.a.token")
	assert.Error(t, err)
}

func TestValidateTokenWrongKey(t *testing.T) {
	m1, _ := NewJWTManager(testSecret, time.Hour)
	m2, _ := NewJWTManager(strings.Repeat("z", 32), time.Hour)

	token, err := m1.GenerateToken("u1", "alice", RoleAdmin)
	require.NoError(t, err)

	_, err = m2.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	store := NewUserStore()

	user, err := store.CreateUser("alice", "password123", RoleAssessor)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, RoleAssessor, user.Role)

	got, err := store.Authenticate("alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = store.Authenticate("alice", "wrong-password")
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = store.Authenticate("nobody", "password123")
	assert.Error(t, err)
}

func TestCreateUserValidation(t *testing.T) {
	store := NewUserStore()

	_, err := store.CreateUser("ab", "password123", RoleViewer)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = store.CreateUser("with spaces", "password123", RoleViewer)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = store.CreateUser("alice", "short", RoleViewer)
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = store.CreateUser("alice", "password123", "superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = store.CreateUser("alice", "password123", RoleViewer)
	require.NoError(t, err)
	_, err = store.CreateUser("alice", "otherpassword", RoleViewer)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestGetUser(t *testing.T) {
	store := NewUserStore()
	user, err := store.CreateUser("alice", "password123", RoleAdmin)
	require.NoError(t, err)

	got, err := store.GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = store.GetUser("missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
