package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"SecureVault/internal/cache"
	"SecureVault/internal/repo"
)

// SecurityService — счётчики для эвристик вторжений поверх инжектируемого
// key-value: неудачные входы считаются в окне с TTL, переполнение порога
// блокирует аккаунт. Хранилище передаётся явно, не глобально.
type SecurityService struct {
	kv     cache.KeyValue
	users  repo.UserRepository
	audit  *AuditService
	logger *zap.SugaredLogger

	maxFailed int
	window    time.Duration
}

func NewSecurityService(
	kv cache.KeyValue,
	users repo.UserRepository,
	audit *AuditService,
	logger *zap.SugaredLogger,
	maxFailed int,
	window time.Duration,
) *SecurityService {
	if maxFailed <= 0 {
		maxFailed = 5
	}
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &SecurityService{
		kv:        kv,
		users:     users,
		audit:     audit,
		logger:    logger,
		maxFailed: maxFailed,
		window:    window,
	}
}

func failedLoginsKey(userID int64) string {
	return fmt.Sprintf("failed_logins:%d", userID)
}

func accountLockKey(userID int64) string {
	return fmt.Sprintf("account_lock:%d", userID)
}

// RecordFailedLogin инкрементирует счётчик пользователя; при превышении
// порога блокирует аккаунт. Возвращает true, если блокировка произошла.
func (s *SecurityService) RecordFailedLogin(ctx context.Context, userID int64) (locked bool, err error) {
	key := failedLoginsKey(userID)
	n, err := s.kv.Incr(ctx, key)
	if err != nil {
		return false, err
	}
	if n == 1 {
		// Окно отсчитывается от первой неудачи.
		if err := s.kv.Expire(ctx, key, s.window); err != nil {
			return false, err
		}
	}
	if int(n) < s.maxFailed {
		return false, nil
	}

	// Блокировка живёт ровно окно: по истечении TTL вход открывается сам.
	if err := s.kv.Set(ctx, accountLockKey(userID), "1", s.window); err != nil {
		return false, err
	}
	if err := s.users.SetLocked(ctx, userID, true); err != nil {
		return false, err
	}
	s.audit.Failure(ctx, userID, "account_lock",
		fmt.Sprintf("%d failed login attempts within %s", n, s.window))
	s.logger.Warnw("account locked after repeated failed logins",
		"user_id", userID, "attempts", n)
	return true, nil
}

// IsLocked — действует ли блокировка входа. Воротами служит ключ с TTL,
// а не флаг в БД: тот остаётся меткой для журнала до следующего
// успешного входа.
func (s *SecurityService) IsLocked(ctx context.Context, userID int64) (bool, error) {
	v, err := s.kv.Get(ctx, accountLockKey(userID))
	if err != nil {
		return false, err
	}
	return v != "", nil
}

// ClearLock снимает пережившую TTL блокировку: удаляет ключ и счётчик,
// сбрасывает флаг в БД.
func (s *SecurityService) ClearLock(ctx context.Context, userID int64) error {
	if err := s.kv.Del(ctx, accountLockKey(userID), failedLoginsKey(userID)); err != nil {
		return err
	}
	return s.users.SetLocked(ctx, userID, false)
}

// ResetFailedLogins сбрасывает счётчик после успешного входа.
func (s *SecurityService) ResetFailedLogins(ctx context.Context, userID int64) error {
	return s.kv.Del(ctx, failedLoginsKey(userID))
}
