package repository

import (
	"context"

	"member-intake/internal/domain/entity"

	"gorm.io/gorm"
)

type AuditLogRepository interface {
	Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error
	FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) ([]entity.AuditLog, error)
}
