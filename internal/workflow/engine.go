package workflow

import (
	"fmt"
	"time"

	"github.com/smd-edu/syllabus-api/internal/models"
	appErrors "github.com/smd-edu/syllabus-api/pkg/errors"
)

// Event describes a completed status transition. It is handed to the
// notification dispatcher after the write commits; delivery failures never
// roll the transition back.
type Event struct {
	SyllabusID string                `json:"syllabusId"`
	From       models.SyllabusStatus `json:"fromStatus"`
	To         models.SyllabusStatus `json:"toStatus"`
	ActorID    string                `json:"actorId"`
	ActorRole  models.UserRole       `json:"actorRole"`
	At         time.Time             `json:"at"`
}

// ApprovalInput carries everything a primary-cycle transition needs.
type ApprovalInput struct {
	Action        models.ApprovalAction
	ActorID       string
	ActorRole     models.UserRole
	Reason        string
	EffectiveDate *time.Time
}

func invalidTransition(action models.ApprovalAction, status models.SyllabusStatus) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition,
		fmt.Sprintf("cannot %s in status %s", action, status))
}

// ApplyApproval advances the primary approval cycle. It returns the mutated
// copy and the event to emit; the caller persists both atomically. Role
// authorization happens before this is called; the function still fails
// closed when the current status has no successor for the action.
func ApplyApproval(s models.Syllabus, in ApprovalInput, now time.Time) (models.Syllabus, Event, error) {
	from := s.Status

	switch in.Action {
	case models.ActionApprove:
		switch from {
		case models.StatusPendingHOD:
			s.Status = models.StatusPendingAA
			s.HODApprovedAt, s.HODApprovedBy = &now, &in.ActorID
		case models.StatusPendingAA:
			s.Status = models.StatusPendingPrincipal
			s.AAApprovedAt, s.AAApprovedBy = &now, &in.ActorID
		case models.StatusPendingPrincipal:
			s.Status = models.StatusApproved
			s.PrincipalApprovedAt, s.PrincipalApprovedBy = &now, &in.ActorID
		case models.StatusApproved:
			// Publication is the only transition with an extra required input.
			if in.EffectiveDate == nil {
				return s, Event{}, appErrors.Clone(appErrors.ErrValidation, "effectiveDate is required to publish")
			}
			s.Status = models.StatusPublished
			s.PublishedAt, s.PublishedBy = &now, &in.ActorID
			s.EffectiveDate = in.EffectiveDate
		default:
			return s, Event{}, invalidTransition(in.Action, from)
		}

	case models.ActionReject:
		if in.Reason == "" {
			return s, Event{}, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
		}
		switch from {
		case models.StatusPendingHOD, models.StatusPendingAA, models.StatusPendingPrincipal:
			// Rollback always targets DRAFT. Stamps recorded by earlier
			// stages are kept as history and do not block the next cycle.
			s.Status = models.StatusDraft
			s.RejectionReason = &in.Reason
		default:
			return s, Event{}, invalidTransition(in.Action, from)
		}

	default:
		return s, Event{}, appErrors.Clone(appErrors.ErrValidation, "action must be APPROVE or REJECT")
	}

	s.UpdatedAt = now
	return s, event(s.ID, from, s.Status, in.ActorID, in.ActorRole, now), nil
}

// Submit moves an editable syllabus into the approval pipeline.
func Submit(s models.Syllabus, actorID string, now time.Time) (models.Syllabus, Event, error) {
	from := s.Status
	if !from.IsEditable() {
		return s, Event{}, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot submit in status %s", from))
	}
	s.Status = models.StatusPendingHOD
	s.SubmittedAt = &now
	s.UpdatedAt = now
	return s, event(s.ID, from, s.Status, actorID, models.RoleLecturer, now), nil
}

// Archive retires a published syllabus. Archival is a status, never a delete.
func Archive(s models.Syllabus, actorID string, actorRole models.UserRole, reason string, now time.Time) (models.Syllabus, Event, error) {
	from := s.Status
	if from != models.StatusPublished {
		return s, Event{}, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot archive in status %s", from))
	}
	if reason == "" {
		return s, Event{}, appErrors.Clone(appErrors.ErrValidation, "archive reason is required")
	}
	s.Status = models.StatusArchived
	s.ArchivedAt, s.ArchivedBy = &now, &actorID
	s.UnpublishReason = &reason
	s.UpdatedAt = now
	return s, event(s.ID, from, s.Status, actorID, actorRole, now), nil
}

// The functions below are the revision-session callbacks into the primary
// machine. They keep the two state machines from drifting: the session
// manager never assigns a syllabus status directly.

// BeginRevision marks a published syllabus as under correction.
func BeginRevision(s models.Syllabus, actorID string, now time.Time) (models.Syllabus, Event, error) {
	return shift(s, models.StatusPublished, models.StatusRevisionInProgress, actorID, models.RoleAdmin, now)
}

// SubmitRevision hands the corrected syllabus to the HOD.
func SubmitRevision(s models.Syllabus, actorID string, now time.Time) (models.Syllabus, Event, error) {
	return shift(s, models.StatusRevisionInProgress, models.StatusPendingHODRevision, actorID, models.RoleLecturer, now)
}

// ReviewRevision applies the HOD verdict on a submitted revision.
func ReviewRevision(s models.Syllabus, decision models.RevisionDecision, actorID string, now time.Time) (models.Syllabus, Event, error) {
	switch decision {
	case models.RevisionDecisionApproved:
		return shift(s, models.StatusPendingHODRevision, models.StatusPendingAdminRepublish, actorID, models.RoleHOD, now)
	case models.RevisionDecisionRejected:
		return shift(s, models.StatusPendingHODRevision, models.StatusRevisionInProgress, actorID, models.RoleHOD, now)
	default:
		return s, Event{}, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or REJECTED")
	}
}

// Republish restores PUBLISHED after a completed revision, stamping a fresh
// publication record and bumping the republish counter.
func Republish(s models.Syllabus, actorID string, now time.Time) (models.Syllabus, Event, error) {
	next, ev, err := shift(s, models.StatusPendingAdminRepublish, models.StatusPublished, actorID, models.RoleAdmin, now)
	if err != nil {
		return s, Event{}, err
	}
	next.PublishedAt, next.PublishedBy = &now, &actorID
	next.RepublishCount++
	return next, ev, nil
}

// CancelRevision abandons a revision before HOD review and restores
// PUBLISHED without a republication stamp.
func CancelRevision(s models.Syllabus, actorID string, now time.Time) (models.Syllabus, Event, error) {
	return shift(s, models.StatusRevisionInProgress, models.StatusPublished, actorID, models.RoleAdmin, now)
}

func shift(s models.Syllabus, want, to models.SyllabusStatus, actorID string, role models.UserRole, now time.Time) (models.Syllabus, Event, error) {
	from := s.Status
	if from != want {
		return s, Event{}, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("expected status %s, found %s", want, from))
	}
	s.Status = to
	s.UpdatedAt = now
	return s, event(s.ID, from, to, actorID, role, now), nil
}

func event(id string, from, to models.SyllabusStatus, actorID string, role models.UserRole, at time.Time) Event {
	return Event{SyllabusID: id, From: from, To: to, ActorID: actorID, ActorRole: role, At: at}
}
