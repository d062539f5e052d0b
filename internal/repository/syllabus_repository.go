package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smd-edu/syllabus-api/internal/models"
)

const syllabusColumns = `id, subject_id, term_id, version_no, version,
       subject_code, subject_name_vi, subject_name_en, credit_count,
       content, description, keywords,
       status, owner_id, owner_name, unpublish_reason, rejection_reason, effective_date, republish_count,
       submitted_at, hod_approved_at, hod_approved_by, aa_approved_at, aa_approved_by,
       principal_approved_at, principal_approved_by, published_at, published_by,
       archived_at, archived_by, created_at, updated_at`

// SyllabusRepository persists syllabus versions and their approval history.
type SyllabusRepository struct {
	db *sqlx.DB
}

// NewSyllabusRepository constructs the repository.
func NewSyllabusRepository(db *sqlx.DB) *SyllabusRepository {
	return &SyllabusRepository{db: db}
}

// Create inserts a new syllabus version in DRAFT.
func (r *SyllabusRepository) Create(ctx context.Context, s *models.Syllabus) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = models.StatusDraft
	}
	if s.Version == 0 {
		s.Version = 1
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	const query = `INSERT INTO syllabi
	(id, subject_id, term_id, version_no, version,
	 subject_code, subject_name_vi, subject_name_en, credit_count,
	 content, description, keywords,
	 status, owner_id, owner_name, unpublish_reason, rejection_reason, effective_date, republish_count,
	 submitted_at, hod_approved_at, hod_approved_by, aa_approved_at, aa_approved_by,
	 principal_approved_at, principal_approved_by, published_at, published_by,
	 archived_at, archived_by, created_at, updated_at)
	VALUES (:id, :subject_id, :term_id, :version_no, :version,
	 :subject_code, :subject_name_vi, :subject_name_en, :credit_count,
	 :content, :description, :keywords,
	 :status, :owner_id, :owner_name, :unpublish_reason, :rejection_reason, :effective_date, :republish_count,
	 :submitted_at, :hod_approved_at, :hod_approved_by, :aa_approved_at, :aa_approved_by,
	 :principal_approved_at, :principal_approved_by, :published_at, :published_by,
	 :archived_at, :archived_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("create syllabus: %w", err)
	}
	return nil
}

// GetByID fetches a syllabus version by identifier.
func (r *SyllabusRepository) GetByID(ctx context.Context, id string) (*models.Syllabus, error) {
	query := fmt.Sprintf(`SELECT %s FROM syllabi WHERE id = $1`, syllabusColumns)
	var s models.Syllabus
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns syllabi matching the filter (latest updates first).
func (r *SyllabusRepository) List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM syllabi", syllabusColumns))

	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(subject_code) LIKE $%d OR LOWER(subject_name_vi) LIKE $%d OR LOWER(subject_name_en) LIKE $%d)",
			len(args), len(args), len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY updated_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var syllabi []models.Syllabus
	if err := r.db.SelectContext(ctx, &syllabi, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list syllabi: %w", err)
	}
	return syllabi, nil
}

// UpdateWorkflowState persists a transition outcome guarded by the version
// the caller read. Exactly one of two concurrent writers wins; the loser
// gets sql.ErrNoRows and must reload.
func (r *SyllabusRepository) UpdateWorkflowState(ctx context.Context, s *models.Syllabus, expectedVersion int) error {
	return updateSyllabusWorkflowState(ctx, r.db, s, expectedVersion)
}

// updateSyllabusWorkflowState runs the guarded syllabus UPDATE against either
// the pool or an open transaction, so revision writes can pair it with a
// session write atomically.
func updateSyllabusWorkflowState(ctx context.Context, ext sqlx.ExtContext, s *models.Syllabus, expectedVersion int) error {
	const query = `UPDATE syllabi SET
		status = :status,
		version = :expected_version + 1,
		owner_id = :owner_id,
		unpublish_reason = :unpublish_reason,
		rejection_reason = :rejection_reason,
		effective_date = :effective_date,
		republish_count = :republish_count,
		submitted_at = :submitted_at,
		hod_approved_at = :hod_approved_at, hod_approved_by = :hod_approved_by,
		aa_approved_at = :aa_approved_at, aa_approved_by = :aa_approved_by,
		principal_approved_at = :principal_approved_at, principal_approved_by = :principal_approved_by,
		published_at = :published_at, published_by = :published_by,
		archived_at = :archived_at, archived_by = :archived_by,
		updated_at = :updated_at
	WHERE id = :id AND version = :expected_version`
	arg := map[string]interface{}{
		"id":                    s.ID,
		"status":                s.Status,
		"expected_version":      expectedVersion,
		"owner_id":              s.OwnerID,
		"unpublish_reason":      s.UnpublishReason,
		"rejection_reason":      s.RejectionReason,
		"effective_date":        s.EffectiveDate,
		"republish_count":       s.RepublishCount,
		"submitted_at":          s.SubmittedAt,
		"hod_approved_at":       s.HODApprovedAt,
		"hod_approved_by":       s.HODApprovedBy,
		"aa_approved_at":        s.AAApprovedAt,
		"aa_approved_by":        s.AAApprovedBy,
		"principal_approved_at": s.PrincipalApprovedAt,
		"principal_approved_by": s.PrincipalApprovedBy,
		"published_at":          s.PublishedAt,
		"published_by":          s.PublishedBy,
		"archived_at":           s.ArchivedAt,
		"archived_by":           s.ArchivedBy,
		"updated_at":            s.UpdatedAt,
	}
	result, err := sqlx.NamedExecContext(ctx, ext, query, arg)
	if err != nil {
		return fmt.Errorf("update syllabus workflow state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check syllabus update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	s.Version = expectedVersion + 1
	return nil
}

// CreateApprovalHistory appends one decision record.
func (r *SyllabusRepository) CreateApprovalHistory(ctx context.Context, h *models.ApprovalHistory) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO approval_history
	(id, syllabus_id, actor_id, actor_role, action, from_status, to_status, comment, created_at)
	VALUES (:id, :syllabus_id, :actor_id, :actor_role, :action, :from_status, :to_status, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, h); err != nil {
		return fmt.Errorf("create approval history: %w", err)
	}
	return nil
}

// ListApprovalHistory returns the decision trail for a syllabus, newest first.
func (r *SyllabusRepository) ListApprovalHistory(ctx context.Context, syllabusID string) ([]models.ApprovalHistory, error) {
	const query = `SELECT id, syllabus_id, actor_id, actor_role, action, from_status, to_status, comment, created_at
	FROM approval_history WHERE syllabus_id = $1 ORDER BY created_at DESC`
	var history []models.ApprovalHistory
	if err := r.db.SelectContext(ctx, &history, query, syllabusID); err != nil {
		return nil, fmt.Errorf("list approval history: %w", err)
	}
	return history, nil
}
