package usecase

import (
	"context"

	"member-intake/internal/converter"
	"member-intake/internal/delivery/dto"
	"member-intake/internal/delivery/http/middleware"
	"member-intake/internal/service"

	"github.com/sirupsen/logrus"
)

type AuditLogUsecase interface {
	GetSessionAuditLogs(ctx context.Context) (*dto.AuditLogListResponse, error)
}

type auditLogUsecase struct {
	log          *logrus.Logger
	auditService service.AuditService
}

func NewAuditLogUsecase(
	log *logrus.Logger,
	auditService service.AuditService,
) AuditLogUsecase {
	return &auditLogUsecase{
		log:          log,
		auditService: auditService,
	}
}

// GetSessionAuditLogs lists what happened to the current form session.
func (u *auditLogUsecase) GetSessionAuditLogs(ctx context.Context) (*dto.AuditLogListResponse, error) {
	sessionID, ok := middleware.GetSessionIDFromContext(ctx)
	if !ok {
		return nil, ErrSessionRequired
	}

	logs, err := u.auditService.FindBySession(ctx, sessionID)
	if err != nil {
		u.log.Warnf("Failed to find audit logs for session %s: %+v", sessionID, err)
		return nil, err
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: len(logs),
	}, nil
}
