package services

import (
	"testing"
	"time"

	"anime-loyalty-system/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthTestService(db *gorm.DB) *AuthService {
	points := NewPointsService(db)
	tasks := NewDailyTaskService(db, points)
	return NewAuthService(db, points, tasks, "test-secret", time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	auth := newAuthTestService(db)

	user, err := auth.Register("Misato@Example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, "misato@example.com", user.Email)
	require.Equal(t, "misato", user.Name)
	require.Equal(t, models.TierBronze, user.Tier)
	require.NotEqual(t, "hunter2hunter2", user.PasswordHash)

	logged, err := auth.Login("misato@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, user.ID, logged.ID)

	_, err = auth.Login("misato@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login("nobody@example.com", "hunter2hunter2")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	auth := newAuthTestService(db)

	_, err := auth.Register("shinji@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = auth.Register("shinji@example.com", "another-password")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	auth := newAuthTestService(db)

	_, err := auth.Register("not-an-email", "hunter2hunter2")
	require.Error(t, err)

	_, err = auth.Register("rei@example.com", "short")
	require.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	auth := newAuthTestService(db)

	user, err := auth.Register("asuka@example.com", "hunter2hunter2")
	require.NoError(t, err)

	token, err := auth.IssueToken(user)
	require.NoError(t, err)

	userID, err := auth.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)

	_, err = auth.ParseToken(token + "tampered")
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestProfileReconstructsDerivedState(t *testing.T) {
	db := setupTestDB(t)
	auth := newAuthTestService(db)

	user, err := auth.Register("kaji@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = auth.Points.GrantPoints(user.ID, 1200, "memory")
	require.NoError(t, err)

	profile, err := auth.Profile(user.ID)
	require.NoError(t, err)
	require.Equal(t, 1200, profile.Points)
	require.Equal(t, models.TierSilver, profile.Tier)
	require.NotEmpty(t, profile.Activities)
	require.NotNil(t, profile.DailyTasks)
	require.Empty(t, profile.Purchases)
}

func TestProfileHealsStaleTier(t *testing.T) {
	db := setupTestDB(t)
	auth := newAuthTestService(db)

	user, err := auth.Register("ritsuko@example.com", "hunter2hunter2")
	require.NoError(t, err)

	// Balance changed without going through GrantPoints (e.g. a backfill).
	require.NoError(t, db.Create(&models.PointRecord{
		ID:     "backfill-1",
		UserID: user.ID,
		Points: 3000,
	}).Error)

	profile, err := auth.Profile(user.ID)
	require.NoError(t, err)
	require.Equal(t, models.TierGold, profile.Tier)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	require.Equal(t, models.TierGold, stored.Tier)
}
