package service

import (
	"context"

	"member-intake/internal/domain/entity"
	"member-intake/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuditService interface {
	Record(ctx context.Context, sessionID uuid.UUID, action string, metadata entity.JSON) error
	FindBySession(ctx context.Context, sessionID uuid.UUID) ([]entity.AuditLog, error)
}

type auditService struct {
	db        *gorm.DB
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(db *gorm.DB, log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		db:        db,
		log:       log,
		auditRepo: auditRepo,
	}
}

// Record writes one audit entry for a form session.
func (s *auditService) Record(ctx context.Context, sessionID uuid.UUID, action string, metadata entity.JSON) error {
	auditLog := &entity.AuditLog{
		SessionID: &sessionID,
		Action:    action,
		Metadata:  metadata,
	}

	if err := s.auditRepo.Create(ctx, s.db, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}

	return nil
}

// FindBySession lists the audit entries of a session, oldest first.
func (s *auditService) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]entity.AuditLog, error) {
	logs, err := s.auditRepo.FindBySessionID(ctx, s.db, sessionID.String())
	if err != nil {
		s.log.Warnf("Failed to find audit logs: %+v", err)
		return nil, err
	}
	return logs, nil
}
