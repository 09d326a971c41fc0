package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"doorbell-hub/internal/database"
	"doorbell-hub/internal/types"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserInactive       = errors.New("user account is inactive")
)

// Claims is the JWT payload issued on login
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Service handles account registration, login and token validation
type Service struct {
	db        *database.DB
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *logrus.Entry
}

// NewService creates an auth service
func NewService(db *database.DB, jwtSecret string, tokenTTL time.Duration, logger *logrus.Entry) *Service {
	return &Service{
		db:        db,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// Register creates a new account with a bcrypt-hashed password and
// default notification preferences.
func (s *Service) Register(username, password, email, phone string) (*database.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	if _, err := s.db.GetUserByUsername(username); err == nil {
		return nil, ErrUserExists
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &database.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Email:        email,
		PhoneNumber:  phone,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.db.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": username,
	}).Info("User registered")

	return user, nil
}

// Login verifies credentials and issues a signed JWT backed by a
// session row, so tokens can be revoked server-side.
func (s *Service) Login(username, password string) (string, *database.User, error) {
	user, err := s.db.GetUserByUsername(username)
	if err == sql.ErrNoRows {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.IsActive {
		return "", nil, ErrUserInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	session := &database.Session{
		SessionID: uuid.New().String(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenTTL),
		IsActive:  true,
	}
	if err := s.db.CreateSession(session); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	claims := Claims{
		UserID:    user.ID,
		Username:  user.Username,
		SessionID: session.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			Issuer:    "doorbell-hub",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.db.UpdateLastLogin(user.ID, now); err != nil {
		s.logger.WithField("user_id", user.ID).Warn("Failed to stamp last login")
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": username,
	}).Info("User logged in")

	return signed, user, nil
}

// ValidateToken verifies a JWT's signature and its backing session
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}

	valid, err := s.db.SessionValid(claims.SessionID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if !valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Logout revokes the session behind a token
func (s *Service) Logout(claims *Claims) error {
	if err := s.db.InvalidateSession(claims.SessionID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	s.logger.WithField("user_id", claims.UserID).Info("User logged out")
	return nil
}

// Preferences loads a user's notification preferences, resolving the
// push recipient from their most recently used active device token.
func (s *Service) Preferences(userID string) (*types.Preferences, error) {
	prefs, err := s.db.GetPreferences(userID)
	if err != nil {
		return nil, err
	}

	user, err := s.db.GetUserByID(userID)
	if err == nil {
		if prefs.EmailTo == "" {
			prefs.EmailTo = user.Email
		}
		if prefs.PhoneTo == "" {
			prefs.PhoneTo = user.PhoneNumber
		}
	}

	if prefs.PushToken == "" {
		tokens, err := s.db.ActiveDeviceTokens(userID)
		if err == nil && len(tokens) > 0 {
			prefs.PushToken = tokens[0]
		}
	}

	return prefs, nil
}

// SavePreferences persists a user's notification preferences
func (s *Service) SavePreferences(userID string, prefs *types.Preferences) error {
	return s.db.SavePreferences(userID, prefs)
}

// RegisterDeviceToken stores a push token for the user
func (s *Service) RegisterDeviceToken(userID, token, platform string) error {
	return s.db.UpsertDeviceToken(userID, token, platform)
}
