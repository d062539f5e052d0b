package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/smd-edu/syllabus-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSyllabusRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSyllabusRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO syllabi")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := &models.Syllabus{
		SubjectID:     "subj-1",
		SubjectCode:   "INT1001",
		SubjectNameVI: "Nhập môn lập trình",
		SubjectNameEN: "Introduction to Programming",
		CreditCount:   3,
		OwnerID:       "lect-1",
		OwnerName:     "Nguyen Van A",
		VersionNo:     "V1.0",
	}
	require.NoError(t, repo.Create(context.Background(), s))
	require.NotEmpty(t, s.ID)
	require.Equal(t, models.StatusDraft, s.Status)
	require.Equal(t, 1, s.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyllabusRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSyllabusRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "subject_id", "version_no", "version", "subject_code", "status", "owner_id", "owner_name", "republish_count", "credit_count", "created_at", "updated_at"}).
		AddRow("syl-1", "subj-1", "V1.0", 2, "INT1001", "PENDING_HOD", "lect-1", "Nguyen Van A", 0, 3, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, subject_id, term_id")).
		WithArgs("PENDING_HOD", "PENDING_AA", "lect-1").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.SyllabusFilter{
		Status:  []models.SyllabusStatus{models.StatusPendingHOD, models.StatusPendingAA},
		OwnerID: "lect-1",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "syl-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyllabusRepositoryUpdateWorkflowStateVersionGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSyllabusRepository(db)
	s := &models.Syllabus{ID: "syl-1", Status: models.StatusPendingAA, OwnerID: "lect-1", Version: 4}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE syllabi SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateWorkflowState(context.Background(), s, 4))
	require.Equal(t, 5, s.Version)

	// Stale writer loses: zero rows affected surfaces as ErrNoRows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE syllabi SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateWorkflowState(context.Background(), s, 4)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyllabusRepositoryApprovalHistory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSyllabusRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO approval_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := &models.ApprovalHistory{
		SyllabusID: "syl-1",
		ActorID:    "hod-1",
		ActorRole:  models.RoleHOD,
		Action:     models.ActionApprove,
		FromStatus: models.StatusPendingHOD,
		ToStatus:   models.StatusPendingAA,
	}
	require.NoError(t, repo.CreateApprovalHistory(context.Background(), h))
	require.NotEmpty(t, h.ID)

	rows := sqlmock.NewRows([]string{"id", "syllabus_id", "actor_id", "actor_role", "action", "from_status", "to_status", "comment", "created_at"}).
		AddRow(h.ID, "syl-1", "hod-1", "HOD", "APPROVE", "PENDING_HOD", "PENDING_AA", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, syllabus_id, actor_id")).
		WithArgs("syl-1").
		WillReturnRows(rows)

	history, err := repo.ListApprovalHistory(context.Background(), "syl-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, models.ActionApprove, history[0].Action)
	require.NoError(t, mock.ExpectationsWereMet())
}
