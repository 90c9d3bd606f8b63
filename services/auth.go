package services

import (
	"errors"
	"strings"
	"time"

	"anime-loyalty-system/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	// Never retried, surfaces immediately.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is a duplicate registration. Never retried.
	ErrEmailTaken = errors.New("an account with this email already exists")
	// ErrSessionInvalid means the presented token failed verification.
	ErrSessionInvalid = errors.New("session token is invalid or expired")
)

// UserProfile is the session user reconstructed from the durable store:
// derived points, current tier, recent history, and daily task state.
type UserProfile struct {
	models.User
	Points     int                    `json:"points"`
	Purchases  []models.Purchase      `json:"purchases"`
	Activities []models.Activity      `json:"activities"`
	DailyTasks *models.DailyTasksView `json:"daily_tasks"`
}

// AuthService owns account creation, credential login, and stateless HS256
// session tokens. There is no ambient current-user state; handlers resolve
// the session explicitly per request.
type AuthService struct {
	DB        *gorm.DB
	Points    *PointsService
	Tasks     *DailyTaskService
	JWTSecret []byte
	TokenTTL  time.Duration
}

func NewAuthService(db *gorm.DB, points *PointsService, tasks *DailyTaskService, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		DB:        db,
		Points:    points,
		Tasks:     tasks,
		JWTSecret: []byte(jwtSecret),
		TokenTTL:  tokenTTL,
	}
}

// Register creates a new account. The display name defaults to the local part
// of the email, matching what the client shows before the user edits it.
func (s *AuthService) Register(email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid email is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	var n int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.SplitN(email, "@", 2)[0],
		PasswordHash: string(hash),
		Tier:         models.TierBronze,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and returns the account.
func (s *AuthService) Login(email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.DB.First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// IssueToken mints a session token for the user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.TokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.JWTSecret)
}

// ParseToken verifies a session token and returns the user id it carries.
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSessionInvalid
		}
		return s.JWTSecret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrSessionInvalid
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrSessionInvalid
	}
	return claims.Subject, nil
}

// Profile reconstructs the session user from the durable store. The tier is
// re-derived from the authoritative point sum on every restore, so a balance
// that changed elsewhere can never leave a stale tier behind.
func (s *AuthService) Profile(userID string) (*UserProfile, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	total, err := s.Points.TotalPoints(userID)
	if err != nil {
		return nil, err
	}

	if user.Tier != models.TierAdmin {
		if tier := CalculateTier(total); tier != user.Tier {
			if err := s.DB.Model(&user).Update("tier", tier).Error; err != nil {
				return nil, err
			}
			user.Tier = tier
		}
	}

	activities, err := s.Points.RecentActivities(userID, DefaultActivityLimit)
	if err != nil {
		return nil, err
	}

	var purchases []models.Purchase
	if err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&purchases).Error; err != nil {
		return nil, err
	}

	tasks, err := s.Tasks.View(userID)
	if err != nil {
		return nil, err
	}

	return &UserProfile{
		User:       user,
		Points:     total,
		Purchases:  purchases,
		Activities: activities,
		DailyTasks: tasks,
	}, nil
}
