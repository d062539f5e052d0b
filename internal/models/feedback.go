package models

import "time"

// FeedbackStatus tracks a feedback item through the revision cycle. The
// workflow only moves these markers; authoring and triage of feedback live
// in the feedback collaborator service.
type FeedbackStatus string

const (
	FeedbackAccepted         FeedbackStatus = "ACCEPTED"
	FeedbackAwaitingRevision FeedbackStatus = "AWAITING_REVISION"
	FeedbackInRevision       FeedbackStatus = "IN_REVISION"
	FeedbackResolved         FeedbackStatus = "RESOLVED"
)

// Feedback holds the subset of a feedback record the workflow reads and stamps.
type Feedback struct {
	ID                string         `db:"id" json:"id"`
	SyllabusID        string         `db:"syllabus_id" json:"syllabusId"`
	AuthorID          string         `db:"author_id" json:"authorId"`
	Status            FeedbackStatus `db:"status" json:"status"`
	RevisionSessionID *string        `db:"revision_session_id" json:"revisionSessionId,omitempty"`
	ResolvedBy        *string        `db:"resolved_by" json:"resolvedBy,omitempty"`
	ResolvedAt        *time.Time     `db:"resolved_at" json:"resolvedAt,omitempty"`
	ResolvedVersionNo *string        `db:"resolved_version_no" json:"resolvedVersionNo,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
}
