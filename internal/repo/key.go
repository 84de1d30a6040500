package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"SecureVault/internal/model"
)

// KeyRepository — доступ к завёрнутым мастер-ключам.
type KeyRepository interface {
	// Upsert сохраняет обёртку ключа пользователя; повторный вызов
	// перезаписывает, второй записи не появляется.
	Upsert(ctx context.Context, key *model.MasterKey) error
	// GetByUser возвращает (nil, nil), если ключа у пользователя нет.
	GetByUser(ctx context.Context, userID int64) (*model.MasterKey, error)
}

type keyRepo struct {
	db *gorm.DB
}

// NewKeyRepository создаёт реализацию репозитория для MasterKey.
func NewKeyRepository(db *gorm.DB) KeyRepository {
	return &keyRepo{db: db}
}

func (r *keyRepo) Upsert(ctx context.Context, key *model.MasterKey) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"wrapped_key", "wrap_nonce"}),
	}).Create(key).Error
}

func (r *keyRepo) GetByUser(ctx context.Context, userID int64) (*model.MasterKey, error) {
	var k model.MasterKey
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}
