package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/smd-edu/syllabus-api/internal/models"
)

// FeedbackRepository reads and stamps the feedback fields the revision
// workflow touches. Feedback authoring lives in the feedback collaborator.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// FindByIDs loads feedback rows for the given ids.
func (r *FeedbackRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Feedback, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, syllabus_id, author_id, status, revision_session_id,
	       resolved_by, resolved_at, resolved_version_no, created_at
	FROM feedback WHERE id IN (%s)`, strings.Join(placeholders, ","))
	var feedback []models.Feedback
	if err := r.db.SelectContext(ctx, &feedback, query, args...); err != nil {
		return nil, fmt.Errorf("find feedback: %w", err)
	}
	return feedback, nil
}

// FindBySession loads all feedback linked to a revision session.
func (r *FeedbackRepository) FindBySession(ctx context.Context, sessionID string) ([]models.Feedback, error) {
	const query = `SELECT id, syllabus_id, author_id, status, revision_session_id,
	       resolved_by, resolved_at, resolved_version_no, created_at
	FROM feedback WHERE revision_session_id = $1 ORDER BY created_at ASC`
	var feedback []models.Feedback
	if err := r.db.SelectContext(ctx, &feedback, query, sessionID); err != nil {
		return nil, fmt.Errorf("find session feedback: %w", err)
	}
	return feedback, nil
}

// AttachToSession links feedback rows to a session and marks them awaiting
// revision.
func (r *FeedbackRepository) AttachToSession(ctx context.Context, sessionID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := []interface{}{sessionID, models.FeedbackAwaitingRevision}
	for i, id := range ids {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf(`UPDATE feedback SET revision_session_id = $1, status = $2 WHERE id IN (%s)`,
		strings.Join(placeholders, ","))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("attach feedback to session: %w", err)
	}
	return nil
}

// UpdateStatusBySession moves every feedback item of a session to the given
// workflow status.
func (r *FeedbackRepository) UpdateStatusBySession(ctx context.Context, sessionID string, status models.FeedbackStatus) error {
	const query = `UPDATE feedback SET status = $1 WHERE revision_session_id = $2`
	if _, err := r.db.ExecContext(ctx, query, status, sessionID); err != nil {
		return fmt.Errorf("update session feedback status: %w", err)
	}
	return nil
}

// ResolveBySession stamps the session's feedback as resolved in the
// republished version.
func (r *FeedbackRepository) ResolveBySession(ctx context.Context, sessionID, resolverID, versionNo string, resolvedAt time.Time) error {
	const query = `UPDATE feedback SET status = $1, resolved_by = $2, resolved_at = $3, resolved_version_no = $4
	WHERE revision_session_id = $5`
	if _, err := r.db.ExecContext(ctx, query, models.FeedbackResolved, resolverID, resolvedAt, versionNo, sessionID); err != nil {
		return fmt.Errorf("resolve session feedback: %w", err)
	}
	return nil
}
