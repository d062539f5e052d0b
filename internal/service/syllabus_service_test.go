package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smd-edu/syllabus-api/internal/dto"
	"github.com/smd-edu/syllabus-api/internal/models"
	"github.com/smd-edu/syllabus-api/internal/workflow"
	appErrors "github.com/smd-edu/syllabus-api/pkg/errors"
)

type syllabusRepoStub struct {
	syllabi map[string]*models.Syllabus
	filter  models.SyllabusFilter
	history []*models.ApprovalHistory

	failUpdate bool
}

func newSyllabusRepoStub() *syllabusRepoStub {
	return &syllabusRepoStub{syllabi: make(map[string]*models.Syllabus)}
}

func (m *syllabusRepoStub) Create(ctx context.Context, s *models.Syllabus) error {
	if s.ID == "" {
		s.ID = "syl-1"
	}
	s.Status = models.StatusDraft
	s.Version = 1
	m.syllabi[s.ID] = s
	return nil
}

func (m *syllabusRepoStub) GetByID(ctx context.Context, id string) (*models.Syllabus, error) {
	if s, ok := m.syllabi[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *syllabusRepoStub) List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error) {
	m.filter = filter
	result := make([]models.Syllabus, 0, len(m.syllabi))
	for _, s := range m.syllabi {
		result = append(result, *s)
	}
	return result, nil
}

func (m *syllabusRepoStub) UpdateWorkflowState(ctx context.Context, s *models.Syllabus, expectedVersion int) error {
	if m.failUpdate {
		return sql.ErrNoRows
	}
	current, ok := m.syllabi[s.ID]
	if !ok || current.Version != expectedVersion {
		return sql.ErrNoRows
	}
	s.Version = expectedVersion + 1
	copy := *s
	m.syllabi[s.ID] = &copy
	return nil
}

func (m *syllabusRepoStub) CreateApprovalHistory(ctx context.Context, h *models.ApprovalHistory) error {
	m.history = append(m.history, h)
	return nil
}

func (m *syllabusRepoStub) ListApprovalHistory(ctx context.Context, syllabusID string) ([]models.ApprovalHistory, error) {
	result := make([]models.ApprovalHistory, 0, len(m.history))
	for _, h := range m.history {
		if h.SyllabusID == syllabusID {
			result = append(result, *h)
		}
	}
	return result, nil
}

type auditTrailStub struct {
	logs []*models.AuditLog
}

func (a *auditTrailStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type emitterStub struct {
	events []workflow.Event
}

func (e *emitterStub) Emit(ctx context.Context, ev workflow.Event) {
	e.events = append(e.events, ev)
}

func claims(userID string, role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: role, FullName: "Test User"}
}

func seedSyllabus(repo *syllabusRepoStub, status models.SyllabusStatus) *models.Syllabus {
	s := &models.Syllabus{
		ID:            "syl-1",
		SubjectID:     "sub-1",
		VersionNo:     "v1.0",
		Version:       3,
		SubjectCode:   "INT1001",
		SubjectNameVI: "Nhập môn lập trình",
		Status:        status,
		OwnerID:       "lect-1",
	}
	repo.syllabi[s.ID] = s
	return s
}

func requireAppErrCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
}

func TestSyllabusServiceCreateDraft(t *testing.T) {
	repo := newSyllabusRepoStub()
	audit := &auditTrailStub{}
	svc := NewSyllabusService(repo, audit, nil)

	req := dto.CreateSyllabusRequest{
		SubjectID:     "sub-1",
		VersionNo:     "v1.0",
		SubjectCode:   "INT1001",
		SubjectNameVI: "Nhập môn lập trình",
		CreditCount:   3,
		Content:       []byte(`{"chapters":[]}`),
	}
	syllabus, err := svc.Create(context.Background(), req, claims("lect-1", models.RoleLecturer))
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, syllabus.Status)
	require.Equal(t, "lect-1", syllabus.OwnerID)
	require.Len(t, audit.logs, 1)
}

func TestSyllabusServiceCreateRequiresLecturer(t *testing.T) {
	svc := NewSyllabusService(newSyllabusRepoStub(), nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateSyllabusRequest{
		SubjectID: "sub-1", VersionNo: "v1.0", SubjectCode: "INT1001", SubjectNameVI: "NMLT",
	}, claims("hod-1", models.RoleHOD))
	requireAppErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestSyllabusServiceSubmitOwnerOnly(t *testing.T) {
	repo := newSyllabusRepoStub()
	seedSyllabus(repo, models.StatusDraft)
	emitter := &emitterStub{}
	svc := NewSyllabusService(repo, nil, nil, WithSyllabusEmitter(emitter))

	_, err := svc.Submit(context.Background(), "syl-1", claims("lect-2", models.RoleLecturer))
	requireAppErrCode(t, err, appErrors.ErrForbidden.Code)

	syllabus, err := svc.Submit(context.Background(), "syl-1", claims("lect-1", models.RoleLecturer))
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingHOD, syllabus.Status)
	require.NotNil(t, syllabus.SubmittedAt)
	require.Len(t, emitter.events, 1)
	require.Equal(t, models.StatusDraft, emitter.events[0].From)
}

func TestSyllabusServiceDecideEnforcesStageRole(t *testing.T) {
	repo := newSyllabusRepoStub()
	seedSyllabus(repo, models.StatusPendingHOD)
	svc := NewSyllabusService(repo, nil, nil)

	// AA cannot decide the HOD stage.
	_, err := svc.Decide(context.Background(), "syl-1", dto.ApprovalRequest{
		Action: models.ActionApprove,
	}, claims("aa-1", models.RoleAA))
	requireAppErrCode(t, err, appErrors.ErrForbidden.Code)

	syllabus, err := svc.Decide(context.Background(), "syl-1", dto.ApprovalRequest{
		Action:  models.ActionApprove,
		Comment: "nội dung đạt yêu cầu",
	}, claims("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingAA, syllabus.Status)
	require.Equal(t, "hod-1", *syllabus.HODApprovedBy)
	require.Len(t, repo.history, 1)
	require.Equal(t, models.ActionApprove, repo.history[0].Action)
	require.Equal(t, models.StatusPendingHOD, repo.history[0].FromStatus)
}

func TestSyllabusServiceDecideRejectReturnsToDraft(t *testing.T) {
	repo := newSyllabusRepoStub()
	seedSyllabus(repo, models.StatusPendingPrincipal)
	svc := NewSyllabusService(repo, nil, nil)

	syllabus, err := svc.Decide(context.Background(), "syl-1", dto.ApprovalRequest{
		Action: models.ActionReject,
		Reason: "thiếu chuẩn đầu ra",
	}, claims("pr-1", models.RolePrincipal))
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, syllabus.Status)
	require.Equal(t, "thiếu chuẩn đầu ra", *syllabus.RejectionReason)
}

func TestSyllabusServiceDecideRejectRequiresReason(t *testing.T) {
	repo := newSyllabusRepoStub()
	seedSyllabus(repo, models.StatusPendingHOD)
	svc := NewSyllabusService(repo, nil, nil)

	_, err := svc.Decide(context.Background(), "syl-1", dto.ApprovalRequest{
		Action: models.ActionReject,
	}, claims("hod-1", models.RoleHOD))
	requireAppErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestSyllabusServicePublishRequiresEffectiveDate(t *testing.T) {
	repo := newSyllabusRepoStub()
	seedSyllabus(repo, models.StatusApproved)
	svc := NewSyllabusService(repo, nil, nil)

	_, err := svc.Decide(context.Background(), "syl-1", dto.ApprovalRequest{
		Action: models.ActionApprove,
	}, claims("adm-1", models.RoleAdmin))
	requireAppErrCode(t, err, appErrors.ErrValidation.Code)

	effective := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	syllabus, err := svc.Decide(context.Background(), "syl-1", dto.ApprovalRequest{
		Action:        models.ActionApprove,
		EffectiveDate: &effective,
	}, claims("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, models.StatusPublished, syllabus.Status)
	require.True(t, effective.Equal(*syllabus.EffectiveDate))
}

func TestSyllabusServiceDecideStaleWrite(t *testing.T) {
	repo := newSyllabusRepoStub()
	seedSyllabus(repo, models.StatusPendingHOD)
	repo.failUpdate = true
	svc := NewSyllabusService(repo, nil, nil)

	_, err := svc.Decide(context.Background(), "syl-1", dto.ApprovalRequest{
		Action: models.ActionApprove,
	}, claims("hod-1", models.RoleHOD))
	requireAppErrCode(t, err, appErrors.ErrStale.Code)
}

func TestSyllabusServiceDecideFromTerminalStatus(t *testing.T) {
	repo := newSyllabusRepoStub()
	seedSyllabus(repo, models.StatusArchived)
	svc := NewSyllabusService(repo, nil, nil)

	_, err := svc.Decide(context.Background(), "syl-1", dto.ApprovalRequest{
		Action: models.ActionApprove,
	}, claims("adm-1", models.RoleAdmin))
	requireAppErrCode(t, err, appErrors.ErrInvalidTransition.Code)
}

func TestSyllabusServiceArchive(t *testing.T) {
	repo := newSyllabusRepoStub()
	seedSyllabus(repo, models.StatusPublished)
	svc := NewSyllabusService(repo, nil, nil)

	_, err := svc.Archive(context.Background(), "syl-1", dto.ArchiveSyllabusRequest{Reason: "thay thế"}, claims("hod-1", models.RoleHOD))
	requireAppErrCode(t, err, appErrors.ErrForbidden.Code)

	syllabus, err := svc.Archive(context.Background(), "syl-1", dto.ArchiveSyllabusRequest{Reason: "thay thế"}, claims("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, models.StatusArchived, syllabus.Status)
	require.Equal(t, "adm-1", *syllabus.ArchivedBy)
}

func TestSyllabusServiceListScopesLecturerToOwn(t *testing.T) {
	repo := newSyllabusRepoStub()
	seedSyllabus(repo, models.StatusDraft)
	svc := NewSyllabusService(repo, nil, nil)

	_, err := svc.List(context.Background(), dto.SyllabusQuery{}, claims("lect-1", models.RoleLecturer))
	require.NoError(t, err)
	require.Equal(t, "lect-1", repo.filter.OwnerID)
	require.ElementsMatch(t, workflow.VisibleStatuses("LECTURER"), repo.filter.Status)
}

func TestSyllabusServiceListDropsInvisibleStatuses(t *testing.T) {
	repo := newSyllabusRepoStub()
	seedSyllabus(repo, models.StatusPublished)
	svc := NewSyllabusService(repo, nil, nil)

	// PUBLISHED is outside the HOD visibility set; nothing should be queried.
	result, err := svc.List(context.Background(), dto.SyllabusQuery{
		Status: []models.SyllabusStatus{models.StatusPublished},
	}, claims("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Empty(t, result)
}

func TestSyllabusServiceGetVisibility(t *testing.T) {
	repo := newSyllabusRepoStub()
	seedSyllabus(repo, models.StatusDraft)
	svc := NewSyllabusService(repo, nil, nil)

	// Drafts are invisible to reviewers but always visible to the owner.
	_, err := svc.Get(context.Background(), "syl-1", claims("hod-1", models.RoleHOD))
	requireAppErrCode(t, err, appErrors.ErrForbidden.Code)

	syllabus, err := svc.Get(context.Background(), "syl-1", claims("lect-1", models.RoleLecturer))
	require.NoError(t, err)
	require.Equal(t, "syl-1", syllabus.ID)
}

func TestSyllabusServiceStatusTabs(t *testing.T) {
	svc := NewSyllabusService(newSyllabusRepoStub(), nil, nil)

	tabs, err := svc.StatusTabs(claims("lect-1", models.RoleLecturer))
	require.NoError(t, err)
	require.Len(t, tabs, len(workflow.VisibleStatuses("LECTURER")))
	require.Equal(t, "Bản nháp", tabs[0].Label)

	_, err = svc.StatusTabs(claims("x", "GUEST"))
	requireAppErrCode(t, err, appErrors.ErrForbidden.Code)
}
