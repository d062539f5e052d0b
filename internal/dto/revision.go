package dto

import "github.com/smd-edu/syllabus-api/internal/models"

// StartRevisionRequest opens a correction cycle for a published syllabus.
type StartRevisionRequest struct {
	SyllabusID  string   `json:"syllabusId"`
	FeedbackIDs []string `json:"feedbackIds"`
	Description string   `json:"description"`
}

// SubmitRevisionRequest hands the fix to the HOD with an optional summary.
type SubmitRevisionRequest struct {
	Summary string `json:"summary"`
}

// ReviewRevisionRequest captures the HOD verdict.
type ReviewRevisionRequest struct {
	Decision models.RevisionDecision `json:"decision"`
	Comment  string                  `json:"comment"`
}

// RevisionSessionResponse decorates a session with its feedback linkage.
type RevisionSessionResponse struct {
	models.RevisionSession
	FeedbackIDs []string `json:"feedbackIds"`
}
