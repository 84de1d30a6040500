package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"SecureVault/internal/model"
)

// ShareRepository — доступ к ссылкам-возможностям.
type ShareRepository interface {
	Create(ctx context.Context, link *model.ShareLink) error
	// GetByToken возвращает (nil, nil), если токен неизвестен.
	GetByToken(ctx context.Context, token string) (*model.ShareLink, error)
	Delete(ctx context.Context, id int64) error
}

type shareRepo struct {
	db *gorm.DB
}

// NewShareRepository создаёт реализацию репозитория для ShareLink.
func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepo{db: db}
}

func (r *shareRepo) Create(ctx context.Context, link *model.ShareLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *shareRepo) GetByToken(ctx context.Context, token string) (*model.ShareLink, error) {
	var l model.ShareLink
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *shareRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.ShareLink{}, id).Error
}
