package model

import "time"

// Статусы записей аудита.
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// AuditLog — одно структурированное событие на каждую операцию,
// меняющую состояние: кто, что, исход и детали.
type AuditLog struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	UserID *int64 `gorm:"index"` // nil для анонимных попыток
	Action string `gorm:"size:100;not null"`
	Status string `gorm:"size:20;not null;default:success"`
	Detail string `gorm:"type:text"`

	Timestamp time.Time `gorm:"autoCreateTime;index"`
}
