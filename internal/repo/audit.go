package repo

import (
	"context"

	"gorm.io/gorm"

	"SecureVault/internal/model"
)

// AuditRepository — журнал аудита. Ядро только пишет; выборки — для
// security-эндпоинтов мониторинга.
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.AuditLog, error)
	ListFailedLogins(ctx context.Context, limit int) ([]model.AuditLog, error)
}

type auditRepo struct {
	db *gorm.DB
}

// NewAuditRepository создаёт реализацию репозитория для AuditLog.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

func (r *auditRepo) ListFailedLogins(ctx context.Context, limit int) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("action = ? AND status = ?", "login", model.AuditFailure).
		Order("timestamp DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
