package services

import (
	"testing"
	"time"

	"anime-loyalty-system/models"

	"github.com/stretchr/testify/require"
)

func TestCompleteTaskPaysOnce(t *testing.T) {
	db := setupTestDB(t)
	points := NewPointsService(db)
	tasks := NewDailyTaskService(db, points)
	user := createTestUser(t, db)

	view, completed, err := tasks.CompleteTask(user.ID, TaskNewsRead)
	require.NoError(t, err)
	require.True(t, completed)
	require.True(t, view.Tasks.NewsRead)

	// Second call on the same day is a no-op.
	view, completed, err = tasks.CompleteTask(user.ID, TaskNewsRead)
	require.NoError(t, err)
	require.False(t, completed)
	require.True(t, view.Tasks.NewsRead)

	total, err := points.TotalPoints(user.ID)
	require.NoError(t, err)
	require.Equal(t, 50, total)
}

func TestCompleteTaskDayRollover(t *testing.T) {
	db := setupTestDB(t)
	points := NewPointsService(db)
	tasks := NewDailyTaskService(db, points)
	user := createTestUser(t, db)

	yesterday := time.Now().AddDate(0, 0, -1).Format(taskDateLayout)
	require.NoError(t, db.Create(&models.DailyTaskState{
		UserID:      user.ID,
		LastUpdated: yesterday,
		Purchase:    true,
	}).Error)

	view, completed, err := tasks.CompleteTask(user.ID, TaskGameAttempted)
	require.NoError(t, err)
	require.True(t, completed)

	// Yesterday's purchase completion is not inherited.
	require.False(t, view.Tasks.Purchase)
	require.True(t, view.Tasks.GameAttempted)
	require.False(t, view.Tasks.NewsRead)
	require.Equal(t, time.Now().Format(taskDateLayout), view.LastUpdated)

	total, err := points.TotalPoints(user.ID)
	require.NoError(t, err)
	require.Equal(t, 50, total)
}

func TestCompleteTaskRewardAmounts(t *testing.T) {
	db := setupTestDB(t)
	points := NewPointsService(db)
	tasks := NewDailyTaskService(db, points)
	user := createTestUser(t, db)

	_, _, err := tasks.CompleteTask(user.ID, TaskPurchase)
	require.NoError(t, err)
	_, _, err = tasks.CompleteTask(user.ID, TaskGameAttempted)
	require.NoError(t, err)
	_, _, err = tasks.CompleteTask(user.ID, TaskNewsRead)
	require.NoError(t, err)

	total, err := points.TotalPoints(user.ID)
	require.NoError(t, err)
	require.Equal(t, 200, total)

	// Every grant went through the ledger with the task category.
	var records []models.PointRecord
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&records).Error)
	require.Len(t, records, 3)
	for _, r := range records {
		require.Equal(t, "task_completed", r.Category)
	}
}

func TestCompleteTaskUnknownType(t *testing.T) {
	db := setupTestDB(t)
	tasks := NewDailyTaskService(db, NewPointsService(db))
	user := createTestUser(t, db)

	_, _, err := tasks.CompleteTask(user.ID, "sleeping")
	require.Error(t, err)
}

func TestViewAppliesLazyReset(t *testing.T) {
	db := setupTestDB(t)
	tasks := NewDailyTaskService(db, NewPointsService(db))
	user := createTestUser(t, db)

	yesterday := time.Now().AddDate(0, 0, -1).Format(taskDateLayout)
	require.NoError(t, db.Create(&models.DailyTaskState{
		UserID:        user.ID,
		LastUpdated:   yesterday,
		Purchase:      true,
		GameAttempted: true,
		NewsRead:      true,
	}).Error)

	view, err := tasks.View(user.ID)
	require.NoError(t, err)
	require.False(t, view.Tasks.Purchase)
	require.False(t, view.Tasks.GameAttempted)
	require.False(t, view.Tasks.NewsRead)
}
