package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/microgridplanner/planner-core/internal/config"
	"github.com/microgridplanner/planner-core/internal/metrics"
	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/internal/monitoring"
	"github.com/microgridplanner/planner-core/internal/repo"
	"github.com/microgridplanner/planner-core/pkg/cache"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

// ErrInvalidCredentials covers both unknown accounts and wrong passwords so
// login failures do not reveal which one it was.
var ErrInvalidCredentials = fmt.Errorf("invalid email or password")

// AuthService handles account registration and the JWT/session lifecycle.
// Sessions live in the cache; tokens carry the session id so logout can
// invalidate them before expiry.
type AuthService struct {
	store  repo.Store
	cache  cache.ValkeyCluster
	cfg    config.AuthConfig
	logger logger.Logger
}

func NewAuthService(store repo.Store, c cache.ValkeyCluster, cfg config.AuthConfig, log logger.Logger) *AuthService {
	return &AuthService{store: store, cache: c, cfg: cfg, logger: log}
}

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID    string   `json:"user_id"`
	SessionID string   `json:"session_id"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// LoginResponse is returned by Login and carries everything the browser needs
// to authenticate subsequent requests.
type LoginResponse struct {
	Token     string       `json:"token"`
	SessionID string       `json:"session_id"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Register creates a new account. Emails are unique case-insensitively.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid email address is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("an account with email %s already exists", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Roles:        []string{"planner"},
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("persist user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Login verifies the credentials, opens a cached session and issues a JWT
// bound to it.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*LoginResponse, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		monitoring.RecordAuthAttempt("password", "failure")
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		monitoring.RecordAuthAttempt("password", "failure")
		s.logger.Warn("failed login attempt", "email", email, "ip", ipAddress)
		return nil, ErrInvalidCredentials
	}
	monitoring.RecordAuthAttempt("password", "success")

	session := &models.UserSession{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Roles:     user.Roles,
		CreatedAt: time.Now().UTC(),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	if err := s.cache.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	metrics.ActiveSessions.Inc()

	expiresAt := time.Now().Add(s.tokenLifetime())
	token, err := s.issueToken(user, session.ID, expiresAt)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "session_id", session.ID)
	return &LoginResponse{
		Token:     token,
		SessionID: session.ID,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// Logout invalidates the cached session; the JWT becomes useless even though
// it has not expired.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.cache.InvalidateSession(ctx, sessionID); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	metrics.ActiveSessions.Dec()
	return nil
}

// ValidateToken parses and verifies a bearer token and checks that its
// session is still live.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil {
		monitoring.RecordAuthAttempt("jwt", "failure")
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		monitoring.RecordAuthAttempt("jwt", "failure")
		return nil, fmt.Errorf("token is not valid")
	}

	if _, err := s.cache.GetSession(ctx, claims.SessionID); err != nil {
		monitoring.RecordAuthAttempt("jwt", "failure")
		return nil, fmt.Errorf("session expired or logged out")
	}

	monitoring.RecordAuthAttempt("jwt", "success")
	return claims, nil
}

// Sessions lists the user's live sessions.
func (s *AuthService) Sessions(ctx context.Context, userID string) ([]*models.UserSession, error) {
	return s.cache.GetActiveSessions(ctx, userID)
}

// User loads an account by id.
func (s *AuthService) User(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *AuthService) issueToken(user *models.User, sessionID string, expiresAt time.Time) (string, error) {
	claims := &Claims{
		UserID:    user.ID,
		SessionID: sessionID,
		Roles:     user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    config.ServiceName,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) tokenLifetime() time.Duration {
	if s.cfg.JWT.ExpiryMinutes > 0 {
		return time.Duration(s.cfg.JWT.ExpiryMinutes) * time.Minute
	}
	return time.Hour
}
