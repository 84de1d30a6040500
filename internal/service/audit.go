package service

import (
	"context"

	"go.uber.org/zap"

	"SecureVault/internal/model"
	"SecureVault/internal/repo"
)

// AuditService пишет одно структурированное событие на каждую операцию,
// меняющую состояние: актор, действие, исход, детали. Событие попадает
// в БД и зеркалируется в zap; обратно ядро журнал не читает.
type AuditService struct {
	repo   repo.AuditRepository
	logger *zap.SugaredLogger
}

func NewAuditService(r repo.AuditRepository, logger *zap.SugaredLogger) *AuditService {
	return &AuditService{repo: r, logger: logger}
}

// Log фиксирует событие. Ошибка записи журнала логируется, но не
// прерывает операцию, которую журналируем.
func (s *AuditService) Log(ctx context.Context, userID *int64, action, status, detail string) {
	entry := &model.AuditLog{
		UserID: userID,
		Action: action,
		Status: status,
		Detail: detail,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Errorw("audit: failed to persist entry",
			"action", action, "error", err)
	}
	s.logger.Infow("audit",
		"user_id", userID, "action", action, "status", status, "detail", detail)
}

// Success — событие с исходом success.
func (s *AuditService) Success(ctx context.Context, userID int64, action, detail string) {
	s.Log(ctx, &userID, action, model.AuditSuccess, detail)
}

// Failure — событие с исходом failure.
func (s *AuditService) Failure(ctx context.Context, userID int64, action, detail string) {
	s.Log(ctx, &userID, action, model.AuditFailure, detail)
}

// UserLogs — последние события пользователя.
func (s *AuditService) UserLogs(ctx context.Context, userID int64, limit int) ([]model.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// FailedLogins — последние неудачные попытки входа.
func (s *AuditService) FailedLogins(ctx context.Context, limit int) ([]model.AuditLog, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListFailedLogins(ctx, limit)
}
