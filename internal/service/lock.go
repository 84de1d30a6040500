package service

import (
	"context"
	"fmt"
	"time"

	"SecureVault/internal/model"
	"SecureVault/internal/repo"
)

// LockService — аренда на эксклюзивную запись в файл. Пока аренда
// не истекла, получить или продлить её может только держатель; чужая
// попытка отклоняется конфликтом. Истёкшую аренду вправе перехватить
// любой без согласования с прежним держателем.
type LockService struct {
	locks repo.LockRepository
	files repo.FileRepository
	audit *AuditService
	ttl   time.Duration

	// now подменяется в тестах фиктивными часами.
	now func() time.Time
}

func NewLockService(locks repo.LockRepository, files repo.FileRepository, audit *AuditService, ttl time.Duration) *LockService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &LockService{locks: locks, files: files, audit: audit, ttl: ttl, now: time.Now}
}

// WithClock заменяет источник времени; для детерминированных тестов.
func (s *LockService) WithClock(now func() time.Time) *LockService {
	s.now = now
	return s
}

// Acquire берёт лок на файл: свободный или истёкший — создаёт заново,
// свой — продлевает, чужой неистёкший — ErrFileLocked.
func (s *LockService) Acquire(ctx context.Context, fileID, userID int64) (*model.FileLock, error) {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: file %d", ErrNotFound, fileID)
	}
	if f.OwnerID != userID && f.RoomID == nil {
		return nil, fmt.Errorf("%w: file %d", ErrPermissionDenied, fileID)
	}

	now := s.now().UTC()
	existing, err := s.locks.GetByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch {
		case existing.Expired(now):
			// Перехват истёкшей аренды.
			if err := s.locks.Delete(ctx, fileID); err != nil {
				return nil, err
			}
		case existing.LockedBy == userID:
			existing.ExpiresAt = now.Add(s.ttl)
			if err := s.locks.Save(ctx, existing); err != nil {
				return nil, err
			}
			return existing, nil
		default:
			return nil, ErrFileLocked
		}
	}

	lock := &model.FileLock{
		FileID:    fileID,
		LockedBy:  userID,
		LockedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.locks.Create(ctx, lock); err != nil {
		return nil, err
	}

	s.audit.Success(ctx, userID, "file_lock", fmt.Sprintf("acquired lock on file %d", fileID))
	return lock, nil
}

// Release снимает лок. Держатель — всегда; прочие — только когда аренда
// истекла. Отсутствие лока — no-op без ошибки.
func (s *LockService) Release(ctx context.Context, fileID, userID int64) error {
	lock, err := s.locks.GetByFile(ctx, fileID)
	if err != nil {
		return err
	}
	if lock == nil {
		return nil
	}
	if lock.LockedBy != userID && !lock.Expired(s.now().UTC()) {
		return fmt.Errorf("%w: only the lock holder can release the lock", ErrPermissionDenied)
	}
	if err := s.locks.Delete(ctx, fileID); err != nil {
		return err
	}
	s.audit.Success(ctx, userID, "file_unlock", fmt.Sprintf("released lock on file %d", fileID))
	return nil
}

// Status возвращает действующий лок либо nil; истёкший лок попутно
// убирается и снаружи выглядит как отсутствие лока.
func (s *LockService) Status(ctx context.Context, fileID int64) (*model.FileLock, error) {
	lock, err := s.locks.GetByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, nil
	}
	if lock.Expired(s.now().UTC()) {
		if err := s.locks.Delete(ctx, fileID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return lock, nil
}
