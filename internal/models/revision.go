package models

import "time"

// RevisionStatus enumerates the states of a post-publication revision session.
type RevisionStatus string

const (
	// RevisionOpen means the session was created but the lecturer has not started.
	RevisionOpen RevisionStatus = "OPEN"
	// RevisionInProgress means the lecturer is working on the fix.
	RevisionInProgress RevisionStatus = "IN_PROGRESS"
	// RevisionPendingHOD means the fix awaits HOD review.
	RevisionPendingHOD RevisionStatus = "PENDING_HOD"
	// RevisionCompleted is reached only through a successful republish.
	RevisionCompleted RevisionStatus = "COMPLETED"
	// RevisionCancelled marks a session abandoned before HOD review.
	RevisionCancelled RevisionStatus = "CANCELLED"
)

// IsTerminal reports whether the session can no longer progress.
func (s RevisionStatus) IsTerminal() bool {
	return s == RevisionCompleted || s == RevisionCancelled
}

// RevisionDecision is the HOD verdict on a submitted revision.
type RevisionDecision string

const (
	RevisionDecisionApproved RevisionDecision = "APPROVED"
	RevisionDecisionRejected RevisionDecision = "REJECTED"
)

// RevisionSession tracks one correction cycle of a published syllabus.
// At most one non-terminal session exists per syllabus at a time.
type RevisionSession struct {
	ID            string         `db:"id" json:"id"`
	SyllabusID    string         `db:"syllabus_id" json:"syllabusId"`
	SessionNumber int            `db:"session_number" json:"sessionNumber"`
	Status        RevisionStatus `db:"status" json:"status"`
	Description   *string        `db:"description" json:"description,omitempty"`

	InitiatedBy      string  `db:"initiated_by" json:"initiatedBy"`
	AssignedLecturer string  `db:"assigned_lecturer" json:"assignedLecturer"`
	SubmitSummary    *string `db:"submit_summary" json:"submitSummary,omitempty"`

	HODReviewedBy *string           `db:"hod_reviewed_by" json:"hodReviewedBy,omitempty"`
	HODReviewedAt *time.Time        `db:"hod_reviewed_at" json:"hodReviewedAt,omitempty"`
	HODDecision   *RevisionDecision `db:"hod_decision" json:"hodDecision,omitempty"`
	HODComment    *string           `db:"hod_comment" json:"hodComment,omitempty"`

	RepublishedBy *string    `db:"republished_by" json:"republishedBy,omitempty"`
	RepublishedAt *time.Time `db:"republished_at" json:"republishedAt,omitempty"`

	InitiatedAt time.Time  `db:"initiated_at" json:"initiatedAt"`
	StartedAt   *time.Time `db:"started_at" json:"startedAt,omitempty"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submittedAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// FeedbackCount is derived from the linked feedback rows, never stored.
	FeedbackCount int `db:"-" json:"feedbackCount"`
}
