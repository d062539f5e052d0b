package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smd-edu/syllabus-api/internal/models"
)

const revisionColumns = `id, syllabus_id, session_number, status, description,
       initiated_by, assigned_lecturer, submit_summary,
       hod_reviewed_by, hod_reviewed_at, hod_decision, hod_comment,
       republished_by, republished_at,
       initiated_at, started_at, submitted_at, completed_at, cancelled_at,
       created_at, updated_at`

// RevisionRepository persists post-publication revision sessions.
type RevisionRepository struct {
	db *sqlx.DB
}

// NewRevisionRepository constructs the repository.
func NewRevisionRepository(db *sqlx.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

// Create inserts a session, numbering it sequentially per syllabus.
func (r *RevisionRepository) Create(ctx context.Context, session *models.RevisionSession) error {
	return insertRevisionSession(ctx, r.db, session)
}

// CreateWithSyllabus inserts the session and applies the paired syllabus
// transition in one transaction. A version-CAS miss on the syllabus rolls the
// session insert back and surfaces sql.ErrNoRows, so a race loser leaves no
// orphan OPEN session behind.
func (r *RevisionRepository) CreateWithSyllabus(ctx context.Context, session *models.RevisionSession, syllabus *models.Syllabus, expectedVersion int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revision create: %w", err)
	}
	defer tx.Rollback()
	if err := insertRevisionSession(ctx, tx, session); err != nil {
		return err
	}
	if err := updateSyllabusWorkflowState(ctx, tx, syllabus, expectedVersion); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revision create: %w", err)
	}
	return nil
}

// UpdateStateWithSyllabus advances the session and the paired syllabus
// transition in one transaction. Either CAS missing rolls both writes back
// and surfaces sql.ErrNoRows.
func (r *RevisionRepository) UpdateStateWithSyllabus(ctx context.Context, session *models.RevisionSession, expected models.RevisionStatus, syllabus *models.Syllabus, expectedVersion int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revision update: %w", err)
	}
	defer tx.Rollback()
	if err := updateRevisionState(ctx, tx, session, expected); err != nil {
		return err
	}
	if err := updateSyllabusWorkflowState(ctx, tx, syllabus, expectedVersion); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revision update: %w", err)
	}
	return nil
}

func insertRevisionSession(ctx context.Context, ext sqlx.ExtContext, session *models.RevisionSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = models.RevisionOpen
	}
	now := time.Now().UTC()
	if session.InitiatedAt.IsZero() {
		session.InitiatedAt = now
	}
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO revision_sessions
	(id, syllabus_id, session_number, status, description,
	 initiated_by, assigned_lecturer, submit_summary,
	 hod_reviewed_by, hod_reviewed_at, hod_decision, hod_comment,
	 republished_by, republished_at,
	 initiated_at, started_at, submitted_at, completed_at, cancelled_at,
	 created_at, updated_at)
	VALUES (:id, :syllabus_id,
	 (SELECT COUNT(*) + 1 FROM revision_sessions WHERE syllabus_id = :syllabus_id),
	 :status, :description,
	 :initiated_by, :assigned_lecturer, :submit_summary,
	 :hod_reviewed_by, :hod_reviewed_at, :hod_decision, :hod_comment,
	 :republished_by, :republished_at,
	 :initiated_at, :started_at, :submitted_at, :completed_at, :cancelled_at,
	 :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, session); err != nil {
		return fmt.Errorf("create revision session: %w", err)
	}
	return nil
}

// GetByID fetches a session by identifier.
func (r *RevisionRepository) GetByID(ctx context.Context, id string) (*models.RevisionSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM revision_sessions WHERE id = $1`, revisionColumns)
	var session models.RevisionSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ActiveBySyllabus returns the single non-terminal session for a syllabus,
// or sql.ErrNoRows when none exists.
func (r *RevisionRepository) ActiveBySyllabus(ctx context.Context, syllabusID string) (*models.RevisionSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM revision_sessions
	WHERE syllabus_id = $1 AND status IN ('OPEN', 'IN_PROGRESS', 'PENDING_HOD')
	ORDER BY initiated_at DESC LIMIT 1`, revisionColumns)
	var session models.RevisionSession
	if err := r.db.GetContext(ctx, &session, query, syllabusID); err != nil {
		return nil, err
	}
	return &session, nil
}

// LatestCompletedBySyllabus returns the most recent COMPLETED session.
func (r *RevisionRepository) LatestCompletedBySyllabus(ctx context.Context, syllabusID string) (*models.RevisionSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM revision_sessions
	WHERE syllabus_id = $1 AND status = 'COMPLETED'
	ORDER BY completed_at DESC LIMIT 1`, revisionColumns)
	var session models.RevisionSession
	if err := r.db.GetContext(ctx, &session, query, syllabusID); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByStatus returns sessions in a given state, oldest first so reviewers
// work the queue in arrival order.
func (r *RevisionRepository) ListByStatus(ctx context.Context, status models.RevisionStatus) ([]models.RevisionSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM revision_sessions WHERE status = $1 ORDER BY initiated_at ASC`, revisionColumns)
	var sessions []models.RevisionSession
	if err := r.db.SelectContext(ctx, &sessions, query, status); err != nil {
		return nil, fmt.Errorf("list revision sessions: %w", err)
	}
	return sessions, nil
}

// UpdateState persists a session transition guarded by the status the caller
// read, so racing writers cannot both advance the same session.
func (r *RevisionRepository) UpdateState(ctx context.Context, session *models.RevisionSession, expected models.RevisionStatus) error {
	return updateRevisionState(ctx, r.db, session, expected)
}

func updateRevisionState(ctx context.Context, ext sqlx.ExtContext, session *models.RevisionSession, expected models.RevisionStatus) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE revision_sessions SET
		status = :status,
		submit_summary = :submit_summary,
		hod_reviewed_by = :hod_reviewed_by, hod_reviewed_at = :hod_reviewed_at,
		hod_decision = :hod_decision, hod_comment = :hod_comment,
		republished_by = :republished_by, republished_at = :republished_at,
		started_at = :started_at, submitted_at = :submitted_at,
		completed_at = :completed_at, cancelled_at = :cancelled_at,
		updated_at = :updated_at
	WHERE id = :id AND status = :expected_status`
	arg := map[string]interface{}{
		"id":              session.ID,
		"status":          session.Status,
		"expected_status": expected,
		"submit_summary":  session.SubmitSummary,
		"hod_reviewed_by": session.HODReviewedBy,
		"hod_reviewed_at": session.HODReviewedAt,
		"hod_decision":    session.HODDecision,
		"hod_comment":     session.HODComment,
		"republished_by":  session.RepublishedBy,
		"republished_at":  session.RepublishedAt,
		"started_at":      session.StartedAt,
		"submitted_at":    session.SubmittedAt,
		"completed_at":    session.CompletedAt,
		"cancelled_at":    session.CancelledAt,
		"updated_at":      session.UpdatedAt,
	}
	result, err := sqlx.NamedExecContext(ctx, ext, query, arg)
	if err != nil {
		return fmt.Errorf("update revision session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check revision update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
