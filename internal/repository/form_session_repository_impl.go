package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"member-intake/internal/domain/entity"
	domainRepo "member-intake/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const formSessionKeyPrefix = "form_session:"

type formSessionRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewFormSessionRepository stores sessions as JSON in Redis. Every save extends
// the session's lifetime by ttl.
func NewFormSessionRepository(redisClient *redis.Client, ttl time.Duration) domainRepo.FormSessionRepository {
	return &formSessionRepository{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func formSessionKey(id uuid.UUID) string {
	return formSessionKeyPrefix + id.String()
}

func (r *formSessionRepository) Save(ctx context.Context, session *entity.FormSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode form session: %w", err)
	}
	return r.redisClient.Set(ctx, formSessionKey(session.ID), data, r.ttl).Err()
}

func (r *formSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.FormSession, error) {
	data, err := r.redisClient.Get(ctx, formSessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domainRepo.ErrSessionNotFound
		}
		return nil, err
	}

	var session entity.FormSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode form session: %w", err)
	}
	return &session, nil
}
