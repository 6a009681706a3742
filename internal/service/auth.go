package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/BuzzLyutic/kanban-board/internal/model"
	"github.com/BuzzLyutic/kanban-board/internal/repo"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// TokenIssuer выдает сессионный токен для пользователя.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Session is returned by register and login.
type Session struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

type AuthService struct {
	users  repo.UserRepository
	tokens TokenIssuer
	cost   int
	newID  func() string
}

func NewAuthService(users repo.UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		newID:  uuid.NewString,
	}
}

func (s *AuthService) Register(ctx context.Context, in model.RegisterInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateRegister(in); err != nil {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, model.User{
		ID:           s.newID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, repo.ErrorConflict) {
		return Session{}, ErrEmailTaken
	}
	if err != nil {
		return Session{}, err
	}
	return s.session(u)
}

// Login не различает неизвестный email и неверный пароль.
func (s *AuthService) Login(ctx context.Context, in model.LoginInput) (Session, error) {
	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		return Session{}, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if in.Password == "" {
		return Session{}, fmt.Errorf("%w: password is required", ErrValidation)
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repo.ErrorNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *AuthService) session(u model.User) (Session, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail принимает только голый адрес, без имени и угловых скобок.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validateRegister(in model.RegisterInput) error {
	if n := utf8.RuneCountInString(in.Name); n < 2 || n > 50 {
		return fmt.Errorf("%w: name must be 2 to 50 characters", ErrValidation)
	}
	if !validEmail(in.Email) {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(in.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	// bcrypt принимает не больше 72 байт
	if len(in.Password) > 72 {
		return fmt.Errorf("%w: password too long", ErrValidation)
	}
	return nil
}
