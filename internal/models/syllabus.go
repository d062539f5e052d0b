package models

import "time"

// SyllabusStatus enumerates the approval workflow states of a syllabus version.
type SyllabusStatus string

const (
	// StatusDraft is the initial state while the lecturer is editing.
	StatusDraft SyllabusStatus = "DRAFT"
	// StatusPendingHOD means the syllabus awaits Head of Department review.
	StatusPendingHOD SyllabusStatus = "PENDING_HOD"
	// StatusPendingAA means the syllabus awaits Academic Affairs review.
	StatusPendingAA SyllabusStatus = "PENDING_AA"
	// StatusPendingPrincipal means the syllabus awaits final Principal approval.
	StatusPendingPrincipal SyllabusStatus = "PENDING_PRINCIPAL"
	// StatusApproved means the Principal approved; ready for publication.
	StatusApproved SyllabusStatus = "APPROVED"
	// StatusPublished means the syllabus is live and visible to students.
	StatusPublished SyllabusStatus = "PUBLISHED"
	// StatusRejected marks a syllabus sent back by a reviewer.
	StatusRejected SyllabusStatus = "REJECTED"
	// StatusRevisionInProgress marks a published syllabus being corrected.
	StatusRevisionInProgress SyllabusStatus = "REVISION_IN_PROGRESS"
	// StatusPendingHODRevision means the revision awaits HOD re-review.
	StatusPendingHODRevision SyllabusStatus = "PENDING_HOD_REVISION"
	// StatusPendingAdminRepublish means the approved revision awaits republication.
	StatusPendingAdminRepublish SyllabusStatus = "PENDING_ADMIN_REPUBLISH"
	// StatusInactive marks a syllabus no longer in use.
	StatusInactive SyllabusStatus = "INACTIVE"
	// StatusArchived marks an old version retired after a newer publication.
	StatusArchived SyllabusStatus = "ARCHIVED"
)

// IsPending reports whether the status awaits someone's decision.
func (s SyllabusStatus) IsPending() bool {
	switch s {
	case StatusPendingHOD, StatusPendingAA, StatusPendingPrincipal,
		StatusPendingHODRevision, StatusPendingAdminRepublish:
		return true
	}
	return false
}

// IsEditable reports whether the lecturer may modify content in this status.
func (s SyllabusStatus) IsEditable() bool {
	return s == StatusDraft || s == StatusRejected || s == StatusRevisionInProgress
}

// IsFinal reports whether the primary approval cycle has concluded.
func (s SyllabusStatus) IsFinal() bool {
	return s == StatusPublished || s == StatusArchived || s == StatusInactive
}

// Syllabus is the aggregate under workflow control. One row per syllabus
// version; Version is bumped on every workflow write and doubles as the
// optimistic concurrency token.
type Syllabus struct {
	ID        string `db:"id" json:"id"`
	SubjectID string `db:"subject_id" json:"subjectId"`
	TermID    *string `db:"term_id" json:"termId,omitempty"`
	VersionNo string `db:"version_no" json:"versionNo"`
	Version   int    `db:"version" json:"version"`

	// Subject snapshot captured at creation time so published versions
	// survive later subject renames.
	SubjectCode   string `db:"subject_code" json:"subjectCode"`
	SubjectNameVI string `db:"subject_name_vi" json:"subjectNameVi"`
	SubjectNameEN string `db:"subject_name_en" json:"subjectNameEn"`
	CreditCount   int    `db:"credit_count" json:"creditCount"`

	Content     []byte  `db:"content" json:"content,omitempty"`
	Description *string `db:"description" json:"description,omitempty"`
	Keywords    *string `db:"keywords" json:"keywords,omitempty"`

	Status          SyllabusStatus `db:"status" json:"status"`
	OwnerID         string         `db:"owner_id" json:"ownerId"`
	OwnerName       string         `db:"owner_name" json:"ownerName"`
	UnpublishReason *string        `db:"unpublish_reason" json:"unpublishReason,omitempty"`
	RejectionReason *string        `db:"rejection_reason" json:"rejectionReason,omitempty"`
	EffectiveDate   *time.Time     `db:"effective_date" json:"effectiveDate,omitempty"`
	RepublishCount  int            `db:"republish_count" json:"republishCount"`

	SubmittedAt          *time.Time `db:"submitted_at" json:"submittedAt,omitempty"`
	HODApprovedAt        *time.Time `db:"hod_approved_at" json:"hodApprovedAt,omitempty"`
	HODApprovedBy        *string    `db:"hod_approved_by" json:"hodApprovedBy,omitempty"`
	AAApprovedAt         *time.Time `db:"aa_approved_at" json:"aaApprovedAt,omitempty"`
	AAApprovedBy         *string    `db:"aa_approved_by" json:"aaApprovedBy,omitempty"`
	PrincipalApprovedAt  *time.Time `db:"principal_approved_at" json:"principalApprovedAt,omitempty"`
	PrincipalApprovedBy  *string    `db:"principal_approved_by" json:"principalApprovedBy,omitempty"`
	PublishedAt          *time.Time `db:"published_at" json:"publishedAt,omitempty"`
	PublishedBy          *string    `db:"published_by" json:"publishedBy,omitempty"`
	ArchivedAt           *time.Time `db:"archived_at" json:"archivedAt,omitempty"`
	ArchivedBy           *string    `db:"archived_by" json:"archivedBy,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// SyllabusFilter constrains listing queries.
type SyllabusFilter struct {
	Status  []SyllabusStatus
	OwnerID string
	Search  string
	Limit   int
	Offset  int
}

// ApprovalAction is the decision an actor takes on a pending syllabus.
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "APPROVE"
	ActionReject  ApprovalAction = "REJECT"
)

// ApprovalHistory records one approve/reject decision for the audit trail.
type ApprovalHistory struct {
	ID         string         `db:"id" json:"id"`
	SyllabusID string         `db:"syllabus_id" json:"syllabusId"`
	ActorID    string         `db:"actor_id" json:"actorId"`
	ActorRole  UserRole       `db:"actor_role" json:"actorRole"`
	Action     ApprovalAction `db:"action" json:"action"`
	FromStatus SyllabusStatus `db:"from_status" json:"fromStatus"`
	ToStatus   SyllabusStatus `db:"to_status" json:"toStatus"`
	Comment    *string        `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}
