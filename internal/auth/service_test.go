package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorbell-hub/internal/database"
)

func newTestService(t *testing.T) (*Service, *database.DB) {
	t.Helper()

	db, err := database.NewDB(database.Config{
		DatabasePath:  filepath.Join(t.TempDir(), "test.db"),
		EncryptionKey: "test-key",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return NewService(db, "test-jwt-secret", time.Hour, logger.WithField("test", true)), db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register("owner", "hunter22", "owner@example.com", "+15551234567")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.True(t, user.IsActive)

	token, loggedIn, err := svc.Login("owner", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "owner", claims.Username)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register("owner", "hunter22", "", "")
	require.NoError(t, err)

	_, err = svc.Register("owner", "different", "", "")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register("owner", "hunter22", "", "")
	require.NoError(t, err)

	_, _, err = svc.Login("owner", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("nobody", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register("owner", "hunter22", "", "")
	require.NoError(t, err)

	token, _, err := svc.Login("owner", "hunter22")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(claims))

	// the JWT is still signed correctly but its session is gone
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPreferencesFallBackToAccountContacts(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register("owner", "hunter22", "owner@example.com", "+15551234567")
	require.NoError(t, err)

	require.NoError(t, svc.RegisterDeviceToken(user.ID, "push-token-1", "android"))

	prefs, err := svc.Preferences(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", prefs.EmailTo)
	assert.Equal(t, "+15551234567", prefs.PhoneTo)
	assert.Equal(t, "push-token-1", prefs.PushToken)
}
