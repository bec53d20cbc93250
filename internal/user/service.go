package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidUsername    = errors.New("username is required")
	ErrInvalidEmail       = errors.New("email is invalid")
	ErrWeakPassword       = errors.New("password must have at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const MinPasswordLen = 8

// Service is the identity provider used by the auth middleware and the auth endpoints.
type Service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log}
}

func (s *Service) Register(ctx context.Context, in RegisterRequest) (*User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, ErrInvalidUsername
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLen {
		return nil, ErrWeakPassword
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// Authenticate returns ErrInvalidCredentials for an unknown email and a wrong password alike.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// EnsureAdmin creates the account if needed and grants it the admin flag.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*User, error) {
	u, err := s.Register(ctx, RegisterRequest{Username: "admin", Email: email, Password: password})
	if errors.Is(err, ErrAlreadyExist) {
		addr, _ := normalizeEmail(email)
		u, err = s.repo.GetByEmail(ctx, addr)
	}
	if err != nil {
		return nil, err
	}
	if !u.IsAdmin {
		if err := s.repo.SetAdmin(ctx, u.ID, true); err != nil {
			return nil, err
		}
		u.IsAdmin = true
		s.log.Info("admin granted", zap.String("user_id", u.ID))
	}
	return u, nil
}

func normalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", ErrInvalidEmail
	}
	return s, nil
}
