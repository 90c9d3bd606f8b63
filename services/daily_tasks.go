package services

import (
	"errors"
	"fmt"
	"time"

	"anime-loyalty-system/models"

	"gorm.io/gorm"
)

// Daily task types and their fixed one-per-day rewards.
const (
	TaskPurchase      = "purchase"
	TaskGameAttempted = "gameAttempted"
	TaskNewsRead      = "newsRead"
)

var DailyTaskRewards = map[string]int{
	TaskPurchase:      100,
	TaskGameAttempted: 50,
	TaskNewsRead:      50,
}

const taskDateLayout = "2006-01-02"

// DailyTaskService gates the once-per-day bonus grants. Reset is lazy: a
// stored date older than today means every flag reads as false.
type DailyTaskService struct {
	DB     *gorm.DB
	Points *PointsService
}

func NewDailyTaskService(db *gorm.DB, points *PointsService) *DailyTaskService {
	return &DailyTaskService{DB: db, Points: points}
}

// CompleteTask grants the task reward at most once per local calendar day.
// The completion flag is only persisted after the grant succeeds, so a failed
// grant leaves the task claimable. Returns the fresh view and whether the
// reward was actually paid out this call.
func (s *DailyTaskService) CompleteTask(userID, taskType string) (*models.DailyTasksView, bool, error) {
	reward, ok := DailyTaskRewards[taskType]
	if !ok {
		return nil, false, fmt.Errorf("unknown daily task %q", taskType)
	}

	var state models.DailyTaskState
	err := s.DB.First(&state, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = models.DailyTaskState{UserID: userID}
	} else if err != nil {
		return nil, false, err
	}

	today := time.Now().Format(taskDateLayout)
	sameDay := state.LastUpdated == today

	if sameDay && taskDone(&state, taskType) {
		view := buildView(&state, today)
		return view, false, nil
	}

	if _, err := s.Points.GrantPoints(userID, reward, "task_completed"); err != nil {
		return nil, false, err
	}

	if !sameDay {
		// New day: yesterday's completions are not inherited.
		state.Purchase = false
		state.GameAttempted = false
		state.NewsRead = false
	}
	state.LastUpdated = today
	markDone(&state, taskType)

	if err := s.DB.Save(&state).Error; err != nil {
		return nil, false, err
	}

	view := buildView(&state, today)
	return view, true, nil
}

// View returns the daily task state with the lazy date reset applied.
func (s *DailyTaskService) View(userID string) (*models.DailyTasksView, error) {
	var state models.DailyTaskState
	err := s.DB.First(&state, "user_id = ?", userID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return buildView(&state, time.Now().Format(taskDateLayout)), nil
}

func taskDone(state *models.DailyTaskState, taskType string) bool {
	switch taskType {
	case TaskPurchase:
		return state.Purchase
	case TaskGameAttempted:
		return state.GameAttempted
	case TaskNewsRead:
		return state.NewsRead
	}
	return false
}

func markDone(state *models.DailyTaskState, taskType string) {
	switch taskType {
	case TaskPurchase:
		state.Purchase = true
	case TaskGameAttempted:
		state.GameAttempted = true
	case TaskNewsRead:
		state.NewsRead = true
	}
}

func buildView(state *models.DailyTaskState, today string) *models.DailyTasksView {
	view := &models.DailyTasksView{LastUpdated: today}
	if state.LastUpdated == today {
		view.Tasks.Purchase = state.Purchase
		view.Tasks.GameAttempted = state.GameAttempted
		view.Tasks.NewsRead = state.NewsRead
	}
	return view
}
