package repository

import (
	"context"
	"errors"

	"member-intake/internal/domain/entity"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("form session not found")

type FormSessionRepository interface {
	Save(ctx context.Context, session *entity.FormSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.FormSession, error)
}
