package service

import (
	"errors"
	"time"

	"lessonplayer/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthConfig holds host credentials and signing settings
type AuthConfig struct {
	HostUsername string
	HostPassword string
	JWTSecret    string
	LearnerTTL   time.Duration
}

// AuthService handles host and learner authentication
type AuthService struct {
	hostUsername string
	hostPassword string
	jwtSecret    []byte
	learnerTTL   time.Duration
	now          func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthConfig) *AuthService {
	if cfg.LearnerTTL <= 0 {
		cfg.LearnerTTL = 24 * time.Hour
	}
	return &AuthService{
		hostUsername: cfg.HostUsername,
		hostPassword: cfg.HostPassword,
		jwtSecret:    []byte(cfg.JWTSecret),
		learnerTTL:   cfg.LearnerTTL,
		now:          time.Now,
	}
}

// Login validates credentials and returns a permanent host token
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	if username == "" || username != s.hostUsername || password != s.hostPassword {
		return nil, ErrInvalidCredentials
	}

	hostID := "host_" + uuid.New().String()[:8]

	claims := &model.HostClaims{
		HostID: hostID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:  tokenString,
		HostID: hostID,
	}, nil
}

// ValidateHostToken validates a host JWT and returns claims
func (s *AuthService) ValidateHostToken(tokenString string) (*model.HostClaims, error) {
	claims := &model.HostClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.HostID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateLearnerToken creates a learner-scoped token
func (s *AuthService) GenerateLearnerToken(studentID, classID string) (string, error) {
	if studentID == "" {
		return "", errors.New("student id is required")
	}
	now := s.now()
	claims := &model.LearnerClaims{
		StudentID: studentID,
		ClassID:   classID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   studentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.learnerTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateLearnerToken validates a learner JWT and returns claims
func (s *AuthService) ValidateLearnerToken(tokenString string) (*model.LearnerClaims, error) {
	claims := &model.LearnerClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.StudentID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
