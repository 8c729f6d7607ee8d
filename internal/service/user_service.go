package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pairchat/internal/domain"
	"pairchat/internal/repository"
)

// UserService coordina registro, autenticación y directorio de usuarios.
type UserService struct {
	logger  *zap.Logger
	users   repository.UserRepository
	limiter AuthRateLimiter
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, limiter AuthRateLimiter) *UserService {
	if limiter == nil {
		limiter = NewAuthRateLimiter(time.Minute, 10)
	}
	return &UserService{
		logger:  logger,
		users:   users,
		limiter: limiter,
	}
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("missing required fields")
	ErrRateLimited        = errors.New("rate limited")
)

const uniqueViolationCode = "23505"

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	password := strings.TrimSpace(input.Password)

	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if name == "" || password == "" {
		return domain.User{}, ErrMissingFields
	}
	if !s.limiter.Allow(emailAddr) {
		return domain.User{}, ErrRateLimited
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        emailAddr,
		PasswordHash: string(hashBytes),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if !s.limiter.Allow(emailAddr) {
		return domain.User{}, ErrRateLimited
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// ListOthers devuelve el directorio de usuarios excluyendo al solicitante.
func (s *UserService) ListOthers(ctx context.Context, callerID string) ([]domain.UserSummary, error) {
	if s.users == nil {
		return nil, errors.New("user service not configured")
	}
	users, err := s.users.ListOthers(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.UserSummary{}
	}
	return users, nil
}

func normalizeEmail(emailAddr string) string {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return ""
	}
	return emailAddr
}
