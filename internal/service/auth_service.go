package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/repository"
)

const (
	// RoleStudent is the role carried by every issued session token.
	RoleStudent = "student"

	defaultSessionTTL = 24 * time.Hour
)

// AuthService handles the demo login flow.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	ListStudents(ctx context.Context) ([]dto.StudentListItem, error)
}

type authService struct {
	students repository.StudentRepository
	secret   []byte
	ttl      time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAuthService builds the login service. Tokens are HS256 signed with secret.
func NewAuthService(students repository.StudentRepository, secret string, ttl time.Duration, logger zerolog.Logger) AuthService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &authService{
		students: students,
		secret:   []byte(secret),
		ttl:      ttl,
		logger:   logger.With().Str("component", "auth_service").Logger(),
		now:      time.Now,
	}
}

// Login checks the zID and password pair and issues a session token. Every
// mismatch reports ErrInvalidCredentials so callers cannot tell which zIDs exist.
func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	zid := strings.TrimSpace(req.ZID)
	if zid == "" || req.Password == "" {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	student, err := s.students.GetByZID(ctx, zid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info().Str("z_id", zid).Msg("login rejected: unknown zID")
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info().Str("student_id", student.ID).Msg("login rejected: wrong password")
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  student.ID,
		"zid":  student.ZID,
		"role": RoleStudent,
		"iat":  issuedAt.Unix(),
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return dto.LoginResponse{}, fmt.Errorf("sign session token: %w", err)
	}

	s.logger.Info().Str("student_id", student.ID).Msg("student logged in")
	return dto.LoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt.UTC(),
		Student:   dto.StudentListItem{ID: student.ID, Name: student.Name, ZID: student.ZID},
	}, nil
}

func (s *authService) ListStudents(ctx context.Context) ([]dto.StudentListItem, error) {
	students, err := s.students.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.StudentListItem, 0, len(students))
	for _, student := range students {
		items = append(items, dto.StudentListItem{ID: student.ID, Name: student.Name, ZID: student.ZID})
	}
	return items, nil
}
