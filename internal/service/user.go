package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"SecureVault/internal/model"
	"SecureVault/internal/repo"
)

// UserService — регистрация и вход. Мастер-ключ генерируется в тот же
// момент, что и учётная запись, и никакой in-scope операцией не
// пересоздаётся.
type UserService struct {
	repo     repo.UserRepository
	keys     *KeyService
	security *SecurityService
	audit    *AuditService
}

func NewUserService(r repo.UserRepository, keys *KeyService, security *SecurityService, audit *AuditService) *UserService {
	return &UserService{repo: r, keys: keys, security: security, audit: audit}
}

// Register создаёт пользователя с bcrypt-хешем пароля и сразу же
// генерирует и сохраняет его мастер-ключ.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}

	existing, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	masterKey, err := s.keys.Generate()
	if err != nil {
		return nil, err
	}
	if err := s.keys.Store(ctx, user.ID, masterKey); err != nil {
		return nil, err
	}

	s.audit.Success(ctx, user.ID, "register", fmt.Sprintf("user %q registered", username))
	return user, nil
}

// Login проверяет учётные данные. Неудачи считаются SecurityService;
// блокировка действует, пока жив её TTL-ключ, и отклоняет вход до
// проверки пароля. После истечения ключа первый успешный вход снимает
// оставшийся флаг в БД.
func (s *UserService) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.audit.Log(ctx, nil, "login", model.AuditFailure,
			fmt.Sprintf("unknown user %q", username))
		return nil, ErrInvalidCredentials
	}
	locked, err := s.security.IsLocked(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if locked {
		s.audit.Failure(ctx, user.ID, "login", "account locked")
		return nil, ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.audit.Failure(ctx, user.ID, "login", "wrong password")
		if _, err := s.security.RecordFailedLogin(ctx, user.ID); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	if user.IsLocked {
		if err := s.security.ClearLock(ctx, user.ID); err != nil {
			return nil, err
		}
		user.IsLocked = false
	} else if err := s.security.ResetFailedLogins(ctx, user.ID); err != nil {
		return nil, err
	}
	if err := s.repo.TouchLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	s.audit.Success(ctx, user.ID, "login", "ok")
	return user, nil
}
