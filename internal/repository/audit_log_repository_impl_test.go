package repository

import (
	"context"
	"regexp"
	"testing"

	"member-intake/internal/domain/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func TestAuditLogRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAuditLogRepository()
	sessionID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "audit_logs"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	log := &entity.AuditLog{
		SessionID: &sessionID,
		Action:    entity.AuditActionMemberSubmit,
		Metadata:  entity.JSON{"status": "ok"},
	}
	require.NoError(t, repo.Create(context.Background(), db, log))

	assert.Equal(t, int64(7), log.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLogRepository_FindBySessionID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAuditLogRepository()
	sessionID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "session_id", "action", "metadata"}).
		AddRow(1, sessionID.String(), entity.AuditActionFormStart, nil).
		AddRow(2, sessionID.String(), entity.AuditActionMemberSubmit, []byte(`{"status":"ok"}`))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "audit_logs" WHERE session_id = $1`)).
		WithArgs(sessionID.String()).
		WillReturnRows(rows)

	logs, err := repo.FindBySessionID(context.Background(), db, sessionID.String())
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, entity.AuditActionFormStart, logs[0].Action)
	assert.Nil(t, logs[0].Metadata)
	assert.Equal(t, "ok", logs[1].Metadata["status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
