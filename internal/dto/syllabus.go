package dto

import (
	"encoding/json"
	"time"

	"github.com/smd-edu/syllabus-api/internal/models"
)

// CreateSyllabusRequest payload for drafting a new syllabus version.
type CreateSyllabusRequest struct {
	SubjectID     string          `json:"subjectId"`
	TermID        *string         `json:"termId"`
	VersionNo     string          `json:"versionNo"`
	SubjectCode   string          `json:"subjectCode"`
	SubjectNameVI string          `json:"subjectNameVi"`
	SubjectNameEN string          `json:"subjectNameEn"`
	CreditCount   int             `json:"creditCount"`
	Content       json.RawMessage `json:"content"`
	Description   string          `json:"description"`
	Keywords      string          `json:"keywords"`
}

// ApprovalRequest captures an approve/reject decision on a pending syllabus.
type ApprovalRequest struct {
	Action        models.ApprovalAction `json:"action"`
	Reason        string                `json:"reason"`
	Comment       string                `json:"comment"`
	EffectiveDate *time.Time            `json:"effectiveDate"`
}

// ArchiveSyllabusRequest carries the mandatory archival reason.
type ArchiveSyllabusRequest struct {
	Reason string `json:"reason"`
}

// SyllabusQuery mirrors supported listing filters.
type SyllabusQuery struct {
	Status []models.SyllabusStatus
	Search string
	Limit  int
	Offset int
}

// StatusTab is one entry of the role-filtered status tab bar.
type StatusTab struct {
	Key   models.SyllabusStatus `json:"key"`
	Label string                `json:"label"`
}
