package models

import "time"

// NotificationType categorizes workflow notifications.
type NotificationType string

const (
	NotificationSubmitted        NotificationType = "SYLLABUS_SUBMITTED"
	NotificationApproved         NotificationType = "SYLLABUS_APPROVED"
	NotificationRejected         NotificationType = "SYLLABUS_REJECTED"
	NotificationPublished        NotificationType = "SYLLABUS_PUBLISHED"
	NotificationArchived         NotificationType = "SYLLABUS_ARCHIVED"
	NotificationRevisionStarted  NotificationType = "REVISION_STARTED"
	NotificationRevisionPending  NotificationType = "REVISION_PENDING_REVIEW"
	NotificationRevisionReviewed NotificationType = "REVISION_REVIEWED"
	NotificationRepublished      NotificationType = "SYLLABUS_REPUBLISHED"
)

// Notification is a persisted in-app notification row.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipientId"`
	Type        NotificationType `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	SyllabusID  *string          `db:"syllabus_id" json:"syllabusId,omitempty"`
	Read        bool             `db:"read" json:"read"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
}

// NotificationFilter constrains notification listing.
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Limit       int
	Offset      int
}
