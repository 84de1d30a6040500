package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"SecureVault/internal/model"
)

// LockRepository — доступ к файловым локам (не более одного на файл).
type LockRepository interface {
	// GetByFile возвращает (nil, nil), если лока нет.
	GetByFile(ctx context.Context, fileID int64) (*model.FileLock, error)
	Create(ctx context.Context, lock *model.FileLock) error
	Save(ctx context.Context, lock *model.FileLock) error
	Delete(ctx context.Context, fileID int64) error
}

type lockRepo struct {
	db *gorm.DB
}

// NewLockRepository создаёт реализацию репозитория для FileLock.
func NewLockRepository(db *gorm.DB) LockRepository {
	return &lockRepo{db: db}
}

func (r *lockRepo) GetByFile(ctx context.Context, fileID int64) (*model.FileLock, error) {
	var l model.FileLock
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *lockRepo) Create(ctx context.Context, lock *model.FileLock) error {
	return r.db.WithContext(ctx).Create(lock).Error
}

func (r *lockRepo) Save(ctx context.Context, lock *model.FileLock) error {
	return r.db.WithContext(ctx).Save(lock).Error
}

func (r *lockRepo) Delete(ctx context.Context, fileID int64) error {
	return r.db.WithContext(ctx).Where("file_id = ?", fileID).
		Delete(&model.FileLock{}).Error
}
