package handler

import (
	"errors"
	"net/http"

	"member-intake/internal/usecase"
	"member-intake/pkg/response"
)

type AuditLogHandler struct {
	auditLogUsecase usecase.AuditLogUsecase
}

func NewAuditLogHandler(auditLogUsecase usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUsecase: auditLogUsecase,
	}
}

// GetSessionAuditLogs lists the audit trail of the current form session
// @Summary List audit logs of the form session
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /forms/current/audit-logs [get]
func (h *AuditLogHandler) GetSessionAuditLogs(w http.ResponseWriter, r *http.Request) {
	auditLogs, err := h.auditLogUsecase.GetSessionAuditLogs(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrSessionRequired) {
			response.Unauthorized(w, "Form session token is required")
			return
		}
		response.InternalServerError(w, "Failed to get audit logs")
		return
	}

	response.Success(w, http.StatusOK, "Audit logs retrieved successfully", auditLogs)
}
