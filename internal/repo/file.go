package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"SecureVault/internal/model"
)

// FileRepository — доступ к записям файлов и их версиям.
type FileRepository interface {
	Create(ctx context.Context, f *model.File) error
	// GetByID возвращает (nil, nil), если записи нет.
	GetByID(ctx context.Context, id int64) (*model.File, error)
	ListPersonal(ctx context.Context, ownerID int64) ([]model.File, error)
	ListByRoom(ctx context.Context, roomID int64) ([]model.File, error)
	// Save перезаписывает изменённые поля записи (restore версии).
	Save(ctx context.Context, f *model.File) error
	// Delete удаляет запись файла вместе с версиями, локами и ссылками.
	Delete(ctx context.Context, id int64) error

	CreateVersion(ctx context.Context, v *model.FileVersion) error
	ListVersions(ctx context.Context, fileID int64) ([]model.FileVersion, error)
	GetVersion(ctx context.Context, fileID int64, versionNumber int) (*model.FileVersion, error)
	// MaxVersionNumber — наибольший номер снимка файла, 0 если снимков нет.
	MaxVersionNumber(ctx context.Context, fileID int64) (int, error)

	// ListExpired — файлы, чей срок хранения прошёл к моменту now.
	ListExpired(ctx context.Context, now time.Time) ([]model.File, error)
}

type fileRepo struct {
	db *gorm.DB
}

// NewFileRepository создаёт реализацию репозитория для File.
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepo{db: db}
}

func (r *fileRepo) Create(ctx context.Context, f *model.File) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *fileRepo) GetByID(ctx context.Context, id int64) (*model.File, error) {
	var f model.File
	err := r.db.WithContext(ctx).First(&f, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *fileRepo) ListPersonal(ctx context.Context, ownerID int64) ([]model.File, error) {
	var files []model.File
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND room_id IS NULL", ownerID).
		Order("upload_time DESC").Find(&files).Error
	return files, err
}

func (r *fileRepo) ListByRoom(ctx context.Context, roomID int64) ([]model.File, error) {
	var files []model.File
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("upload_time DESC").Find(&files).Error
	return files, err
}

func (r *fileRepo) Save(ctx context.Context, f *model.File) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *fileRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", id).Delete(&model.FileVersion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", id).Delete(&model.FileLock{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", id).Delete(&model.ShareLink{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.File{}, id).Error
	})
}

func (r *fileRepo) CreateVersion(ctx context.Context, v *model.FileVersion) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *fileRepo) ListVersions(ctx context.Context, fileID int64) ([]model.FileVersion, error) {
	var versions []model.FileVersion
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("version_number DESC").Find(&versions).Error
	return versions, err
}

func (r *fileRepo) GetVersion(ctx context.Context, fileID int64, versionNumber int) (*model.FileVersion, error) {
	var v model.FileVersion
	err := r.db.WithContext(ctx).
		Where("file_id = ? AND version_number = ?", fileID, versionNumber).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *fileRepo) MaxVersionNumber(ctx context.Context, fileID int64) (int, error) {
	var n int
	err := r.db.WithContext(ctx).Model(&model.FileVersion{}).
		Where("file_id = ?", fileID).
		Select("COALESCE(MAX(version_number), 0)").Scan(&n).Error
	return n, err
}

func (r *fileRepo) ListExpired(ctx context.Context, now time.Time) ([]model.File, error) {
	var files []model.File
	err := r.db.WithContext(ctx).
		Where("expiry_time IS NOT NULL AND expiry_time <= ?", now).
		Find(&files).Error
	return files, err
}
