package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/smd-edu/syllabus-api/internal/models"
)

func TestRevisionRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRevisionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO revision_sessions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.RevisionSession{
		SyllabusID:       "syl-1",
		InitiatedBy:      "admin-1",
		AssignedLecturer: "lect-1",
	}
	require.NoError(t, repo.Create(context.Background(), session))
	require.NotEmpty(t, session.ID)
	require.Equal(t, models.RevisionOpen, session.Status)
	require.False(t, session.InitiatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevisionRepositoryActiveBySyllabus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRevisionRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "syllabus_id", "session_number", "status", "initiated_by", "assigned_lecturer", "initiated_at", "created_at", "updated_at"}).
		AddRow("rev-1", "syl-1", 2, "IN_PROGRESS", "admin-1", "lect-1", now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, syllabus_id, session_number")).
		WithArgs("syl-1").
		WillReturnRows(rows)

	session, err := repo.ActiveBySyllabus(context.Background(), "syl-1")
	require.NoError(t, err)
	require.Equal(t, "rev-1", session.ID)
	require.Equal(t, models.RevisionInProgress, session.Status)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, syllabus_id, session_number")).
		WithArgs("syl-2").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.ActiveBySyllabus(context.Background(), "syl-2")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevisionRepositoryUpdateStateGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRevisionRepository(db)
	session := &models.RevisionSession{ID: "rev-1", Status: models.RevisionPendingHOD}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE revision_sessions SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateState(context.Background(), session, models.RevisionInProgress))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE revision_sessions SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateState(context.Background(), session, models.RevisionInProgress)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevisionRepositoryUpdateStateWithSyllabus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRevisionRepository(db)
	session := &models.RevisionSession{ID: "rev-1", Status: models.RevisionCompleted}
	syllabus := &models.Syllabus{ID: "syl-1", Status: models.StatusPublished, Version: 4}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE revision_sessions SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE syllabi SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateStateWithSyllabus(context.Background(), session, models.RevisionPendingHOD, syllabus, 4))
	require.Equal(t, 5, syllabus.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevisionRepositoryUpdateStateWithSyllabusRollsBackOnVersionMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRevisionRepository(db)
	session := &models.RevisionSession{ID: "rev-1", Status: models.RevisionCompleted}
	syllabus := &models.Syllabus{ID: "syl-1", Status: models.StatusPublished, Version: 4}

	// The session write lands but the syllabus version guard misses; the
	// whole pair must roll back.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE revision_sessions SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE syllabi SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateStateWithSyllabus(context.Background(), session, models.RevisionPendingHOD, syllabus, 4)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevisionRepositoryCreateWithSyllabusRollsBackOnVersionMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRevisionRepository(db)
	session := &models.RevisionSession{SyllabusID: "syl-1", InitiatedBy: "admin-1", AssignedLecturer: "lect-1"}
	syllabus := &models.Syllabus{ID: "syl-1", Status: models.StatusRevisionInProgress, Version: 2}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO revision_sessions")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE syllabi SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CreateWithSyllabus(context.Background(), session, syllabus, 2)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevisionRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRevisionRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "syllabus_id", "session_number", "status", "initiated_by", "assigned_lecturer", "initiated_at", "created_at", "updated_at"}).
		AddRow("rev-1", "syl-1", 1, "PENDING_HOD", "admin-1", "lect-1", now.Add(-time.Hour), now, now).
		AddRow("rev-2", "syl-2", 1, "PENDING_HOD", "admin-1", "lect-2", now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, syllabus_id, session_number")).
		WithArgs("PENDING_HOD").
		WillReturnRows(rows)

	sessions, err := repo.ListByStatus(context.Background(), models.RevisionPendingHOD)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "rev-1", sessions[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
