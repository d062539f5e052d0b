package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smd-edu/syllabus-api/internal/dto"
	"github.com/smd-edu/syllabus-api/internal/models"
	appErrors "github.com/smd-edu/syllabus-api/pkg/errors"
)

type revisionRepoStub struct {
	sessions map[string]*models.RevisionSession
	syllabi  *syllabusRepoStub
}

func newRevisionRepoStub(syllabi *syllabusRepoStub) *revisionRepoStub {
	return &revisionRepoStub{
		sessions: make(map[string]*models.RevisionSession),
		syllabi:  syllabi,
	}
}

func (m *revisionRepoStub) CreateWithSyllabus(ctx context.Context, session *models.RevisionSession, syllabus *models.Syllabus, expectedVersion int) error {
	// Mirror the transactional contract: the syllabus CAS losing means the
	// session insert never happened.
	if err := m.syllabi.UpdateWorkflowState(ctx, syllabus, expectedVersion); err != nil {
		return err
	}
	if session.ID == "" {
		session.ID = "rev-1"
	}
	session.SessionNumber = len(m.sessions) + 1
	m.sessions[session.ID] = session
	return nil
}

func (m *revisionRepoStub) GetByID(ctx context.Context, id string) (*models.RevisionSession, error) {
	if session, ok := m.sessions[id]; ok {
		copy := *session
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *revisionRepoStub) ActiveBySyllabus(ctx context.Context, syllabusID string) (*models.RevisionSession, error) {
	for _, session := range m.sessions {
		if session.SyllabusID == syllabusID && !session.Status.IsTerminal() {
			copy := *session
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *revisionRepoStub) LatestCompletedBySyllabus(ctx context.Context, syllabusID string) (*models.RevisionSession, error) {
	var latest *models.RevisionSession
	for _, session := range m.sessions {
		if session.SyllabusID != syllabusID || session.Status != models.RevisionCompleted {
			continue
		}
		if latest == nil || (session.CompletedAt != nil && latest.CompletedAt != nil && session.CompletedAt.After(*latest.CompletedAt)) {
			latest = session
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	copy := *latest
	return &copy, nil
}

func (m *revisionRepoStub) ListByStatus(ctx context.Context, status models.RevisionStatus) ([]models.RevisionSession, error) {
	result := make([]models.RevisionSession, 0, len(m.sessions))
	for _, session := range m.sessions {
		if session.Status == status {
			result = append(result, *session)
		}
	}
	return result, nil
}

func (m *revisionRepoStub) UpdateStateWithSyllabus(ctx context.Context, session *models.RevisionSession, expected models.RevisionStatus, syllabus *models.Syllabus, expectedVersion int) error {
	current, ok := m.sessions[session.ID]
	if !ok || current.Status != expected {
		return sql.ErrNoRows
	}
	// Both writes commit or neither does, like the real transaction.
	if err := m.syllabi.UpdateWorkflowState(ctx, syllabus, expectedVersion); err != nil {
		return err
	}
	copy := *session
	m.sessions[session.ID] = &copy
	return nil
}

type feedbackRepoStub struct {
	items    map[string]*models.Feedback
	attached map[string][]string
	statuses []models.FeedbackStatus
	resolved bool
}

func newFeedbackRepoStub() *feedbackRepoStub {
	return &feedbackRepoStub{
		items:    make(map[string]*models.Feedback),
		attached: make(map[string][]string),
	}
}

func (m *feedbackRepoStub) FindByIDs(ctx context.Context, ids []string) ([]models.Feedback, error) {
	result := make([]models.Feedback, 0, len(ids))
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (m *feedbackRepoStub) FindBySession(ctx context.Context, sessionID string) ([]models.Feedback, error) {
	result := make([]models.Feedback, 0)
	for _, id := range m.attached[sessionID] {
		if item, ok := m.items[id]; ok {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (m *feedbackRepoStub) AttachToSession(ctx context.Context, sessionID string, ids []string) error {
	m.attached[sessionID] = append(m.attached[sessionID], ids...)
	return nil
}

func (m *feedbackRepoStub) UpdateStatusBySession(ctx context.Context, sessionID string, status models.FeedbackStatus) error {
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *feedbackRepoStub) ResolveBySession(ctx context.Context, sessionID, resolverID, versionNo string, resolvedAt time.Time) error {
	m.resolved = true
	return nil
}

type revisionFixture struct {
	svc      *RevisionService
	sessions *revisionRepoStub
	syllabi  *syllabusRepoStub
	feedback *feedbackRepoStub
	emitter  *emitterStub
}

func newRevisionFixture() *revisionFixture {
	syllabi := newSyllabusRepoStub()
	f := &revisionFixture{
		sessions: newRevisionRepoStub(syllabi),
		syllabi:  syllabi,
		feedback: newFeedbackRepoStub(),
		emitter:  &emitterStub{},
	}
	f.svc = NewRevisionService(f.sessions, f.syllabi, f.feedback, nil, nil, WithRevisionEmitter(f.emitter))
	return f
}

func (f *revisionFixture) seedPublished() *models.Syllabus {
	return seedSyllabus(f.syllabi, models.StatusPublished)
}

func (f *revisionFixture) seedFeedback(id string, status models.FeedbackStatus) {
	f.feedback.items[id] = &models.Feedback{ID: id, SyllabusID: "syl-1", Status: status}
}

func TestRevisionServiceStart(t *testing.T) {
	f := newRevisionFixture()
	f.seedPublished()
	f.seedFeedback("fb-1", models.FeedbackAccepted)

	session, err := f.svc.Start(context.Background(), dto.StartRevisionRequest{
		SyllabusID:  "syl-1",
		FeedbackIDs: []string{"fb-1"},
		Description: "cập nhật chuẩn đầu ra",
	}, claims("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, models.RevisionOpen, session.Status)
	require.Equal(t, "lect-1", session.AssignedLecturer)
	require.Equal(t, 1, session.FeedbackCount)

	syllabus, _ := f.syllabi.GetByID(context.Background(), "syl-1")
	require.Equal(t, models.StatusRevisionInProgress, syllabus.Status)
}

func TestRevisionServiceStartRejectsSecondActiveSession(t *testing.T) {
	f := newRevisionFixture()
	f.seedPublished()
	f.sessions.sessions["rev-0"] = &models.RevisionSession{
		ID: "rev-0", SyllabusID: "syl-1", Status: models.RevisionInProgress,
	}

	_, err := f.svc.Start(context.Background(), dto.StartRevisionRequest{SyllabusID: "syl-1"}, claims("adm-1", models.RoleAdmin))
	requireAppErrCode(t, err, appErrors.ErrConflict.Code)
}

func TestRevisionServiceStartRequiresPublished(t *testing.T) {
	f := newRevisionFixture()
	seedSyllabus(f.syllabi, models.StatusApproved)

	_, err := f.svc.Start(context.Background(), dto.StartRevisionRequest{SyllabusID: "syl-1"}, claims("adm-1", models.RoleAdmin))
	requireAppErrCode(t, err, appErrors.ErrInvalidTransition.Code)
}

func TestRevisionServiceStartRejectsForeignFeedback(t *testing.T) {
	f := newRevisionFixture()
	f.seedPublished()
	f.feedback.items["fb-9"] = &models.Feedback{ID: "fb-9", SyllabusID: "syl-2", Status: models.FeedbackAccepted}

	_, err := f.svc.Start(context.Background(), dto.StartRevisionRequest{
		SyllabusID:  "syl-1",
		FeedbackIDs: []string{"fb-9"},
	}, claims("adm-1", models.RoleAdmin))
	requireAppErrCode(t, err, appErrors.ErrValidation.Code)
}

func seedActiveSession(f *revisionFixture, status models.RevisionStatus) *models.RevisionSession {
	session := &models.RevisionSession{
		ID:               "rev-1",
		SyllabusID:       "syl-1",
		Status:           status,
		InitiatedBy:      "adm-1",
		AssignedLecturer: "lect-1",
	}
	f.sessions.sessions[session.ID] = session
	return session
}

func TestRevisionServiceSubmit(t *testing.T) {
	f := newRevisionFixture()
	seedSyllabus(f.syllabi, models.StatusRevisionInProgress)
	seedActiveSession(f, models.RevisionOpen)

	session, err := f.svc.Submit(context.Background(), "rev-1", dto.SubmitRevisionRequest{
		Summary: "đã bổ sung tài liệu tham khảo",
	}, claims("lect-1", models.RoleLecturer))
	require.NoError(t, err)
	require.Equal(t, models.RevisionPendingHOD, session.Status)
	require.NotNil(t, session.StartedAt)
	require.NotNil(t, session.SubmittedAt)

	syllabus, _ := f.syllabi.GetByID(context.Background(), "syl-1")
	require.Equal(t, models.StatusPendingHODRevision, syllabus.Status)
	require.Equal(t, []models.FeedbackStatus{models.FeedbackInRevision}, f.feedback.statuses)
}

func TestRevisionServiceSubmitOnlyAssignedLecturer(t *testing.T) {
	f := newRevisionFixture()
	seedSyllabus(f.syllabi, models.StatusRevisionInProgress)
	seedActiveSession(f, models.RevisionOpen)

	_, err := f.svc.Submit(context.Background(), "rev-1", dto.SubmitRevisionRequest{}, claims("lect-2", models.RoleLecturer))
	requireAppErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestRevisionServiceReviewApproveKeepsSessionOpen(t *testing.T) {
	f := newRevisionFixture()
	seedSyllabus(f.syllabi, models.StatusPendingHODRevision)
	session := seedActiveSession(f, models.RevisionPendingHOD)

	reviewed, err := f.svc.Review(context.Background(), session.ID, dto.ReviewRevisionRequest{
		Decision: models.RevisionDecisionApproved,
		Comment:  "đồng ý",
	}, claims("hod-1", models.RoleHOD))
	require.NoError(t, err)
	// The session parks with its verdict; only republish completes it.
	require.Equal(t, models.RevisionPendingHOD, reviewed.Status)
	require.Equal(t, models.RevisionDecisionApproved, *reviewed.HODDecision)
	require.False(t, reviewed.Status.IsTerminal())

	syllabus, _ := f.syllabi.GetByID(context.Background(), "syl-1")
	require.Equal(t, models.StatusPendingAdminRepublish, syllabus.Status)
}

func TestRevisionServiceReviewRejectLoopsBack(t *testing.T) {
	f := newRevisionFixture()
	seedSyllabus(f.syllabi, models.StatusPendingHODRevision)
	session := seedActiveSession(f, models.RevisionPendingHOD)

	reviewed, err := f.svc.Review(context.Background(), session.ID, dto.ReviewRevisionRequest{
		Decision: models.RevisionDecisionRejected,
		Comment:  "chưa xử lý hết góp ý",
	}, claims("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Equal(t, models.RevisionInProgress, reviewed.Status)

	syllabus, _ := f.syllabi.GetByID(context.Background(), "syl-1")
	require.Equal(t, models.StatusRevisionInProgress, syllabus.Status)
}

func TestRevisionServiceRepublish(t *testing.T) {
	f := newRevisionFixture()
	syllabus := seedSyllabus(f.syllabi, models.StatusPendingAdminRepublish)
	syllabus.RepublishCount = 0
	session := seedActiveSession(f, models.RevisionPendingHOD)
	decision := models.RevisionDecisionApproved
	session.HODDecision = &decision
	f.feedback.attached[session.ID] = []string{"fb-1"}

	completed, err := f.svc.Republish(context.Background(), session.ID, claims("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, models.RevisionCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.True(t, f.feedback.resolved)

	republished, _ := f.syllabi.GetByID(context.Background(), "syl-1")
	require.Equal(t, models.StatusPublished, republished.Status)
	require.Equal(t, 1, republished.RepublishCount)
}

func TestRevisionServiceRepublishRequiresApprovedVerdict(t *testing.T) {
	f := newRevisionFixture()
	seedSyllabus(f.syllabi, models.StatusPendingAdminRepublish)
	seedActiveSession(f, models.RevisionPendingHOD)

	_, err := f.svc.Republish(context.Background(), "rev-1", claims("adm-1", models.RoleAdmin))
	requireAppErrCode(t, err, appErrors.ErrInvalidTransition.Code)
}

func TestRevisionServiceRepublishStaleSyllabusLeavesSessionOpen(t *testing.T) {
	f := newRevisionFixture()
	seedSyllabus(f.syllabi, models.StatusPendingAdminRepublish)
	session := seedActiveSession(f, models.RevisionPendingHOD)
	decision := models.RevisionDecisionApproved
	session.HODDecision = &decision

	f.syllabi.failUpdate = true
	_, err := f.svc.Republish(context.Background(), session.ID, claims("adm-1", models.RoleAdmin))
	requireAppErrCode(t, err, appErrors.ErrStale.Code)

	// Losing the syllabus write must not half-commit: the session keeps its
	// approved verdict and the syllabus stays where it was, so the caller can
	// simply reload and republish again.
	stored, err := f.sessions.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, models.RevisionPendingHOD, stored.Status)
	require.NotNil(t, stored.HODDecision)
	require.Equal(t, models.RevisionDecisionApproved, *stored.HODDecision)
	syllabus, _ := f.syllabi.GetByID(context.Background(), "syl-1")
	require.Equal(t, models.StatusPendingAdminRepublish, syllabus.Status)

	f.syllabi.failUpdate = false
	completed, err := f.svc.Republish(context.Background(), session.ID, claims("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, models.RevisionCompleted, completed.Status)
	republished, _ := f.syllabi.GetByID(context.Background(), "syl-1")
	require.Equal(t, models.StatusPublished, republished.Status)
}

func TestRevisionServiceStartStaleSyllabusLeavesNoSession(t *testing.T) {
	f := newRevisionFixture()
	f.seedPublished()

	f.syllabi.failUpdate = true
	_, err := f.svc.Start(context.Background(), dto.StartRevisionRequest{SyllabusID: "syl-1"}, claims("adm-1", models.RoleAdmin))
	requireAppErrCode(t, err, appErrors.ErrStale.Code)

	// No orphan OPEN session may survive the lost race; a retry starts clean.
	_, err = f.sessions.ActiveBySyllabus(context.Background(), "syl-1")
	require.ErrorIs(t, err, sql.ErrNoRows)

	f.syllabi.failUpdate = false
	session, err := f.svc.Start(context.Background(), dto.StartRevisionRequest{SyllabusID: "syl-1"}, claims("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, models.RevisionOpen, session.Status)
}

func TestRevisionServiceCancel(t *testing.T) {
	f := newRevisionFixture()
	seedSyllabus(f.syllabi, models.StatusRevisionInProgress)
	seedActiveSession(f, models.RevisionInProgress)

	cancelled, err := f.svc.Cancel(context.Background(), "rev-1", claims("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, models.RevisionCancelled, cancelled.Status)

	syllabus, _ := f.syllabi.GetByID(context.Background(), "syl-1")
	require.Equal(t, models.StatusPublished, syllabus.Status)
	require.Equal(t, []models.FeedbackStatus{models.FeedbackAccepted}, f.feedback.statuses)
}

func TestRevisionServiceCancelAfterSubmitRejected(t *testing.T) {
	f := newRevisionFixture()
	seedSyllabus(f.syllabi, models.StatusPendingHODRevision)
	seedActiveSession(f, models.RevisionPendingHOD)

	_, err := f.svc.Cancel(context.Background(), "rev-1", claims("adm-1", models.RoleAdmin))
	requireAppErrCode(t, err, appErrors.ErrInvalidTransition.Code)
}

func TestRevisionServiceCompletedSession(t *testing.T) {
	f := newRevisionFixture()
	earlier := time.Now().Add(-time.Hour)
	later := time.Now()
	f.sessions.sessions["rev-1"] = &models.RevisionSession{ID: "rev-1", SyllabusID: "syl-1", Status: models.RevisionCompleted, CompletedAt: &earlier}
	f.sessions.sessions["rev-2"] = &models.RevisionSession{ID: "rev-2", SyllabusID: "syl-1", Status: models.RevisionCompleted, CompletedAt: &later}
	f.feedback.attached["rev-2"] = []string{"fb-1"}
	f.feedback.items["fb-1"] = &models.Feedback{ID: "fb-1", SyllabusID: "syl-1", Status: models.FeedbackResolved}

	resp, err := f.svc.CompletedSession(context.Background(), "syl-1", claims("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, "rev-2", resp.ID)
	require.Equal(t, 1, resp.FeedbackCount)

	_, err = f.svc.CompletedSession(context.Background(), "syl-9", claims("adm-1", models.RoleAdmin))
	requireAppErrCode(t, err, appErrors.ErrNotFound.Code)
}

func TestRevisionServicePendingReviewFiltersForAdmin(t *testing.T) {
	f := newRevisionFixture()
	approved := models.RevisionDecisionApproved
	f.sessions.sessions["rev-1"] = &models.RevisionSession{ID: "rev-1", SyllabusID: "syl-1", Status: models.RevisionPendingHOD}
	f.sessions.sessions["rev-2"] = &models.RevisionSession{ID: "rev-2", SyllabusID: "syl-2", Status: models.RevisionPendingHOD, HODDecision: &approved}

	hodView, err := f.svc.PendingReview(context.Background(), claims("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Len(t, hodView, 2)

	adminView, err := f.svc.PendingReview(context.Background(), claims("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Len(t, adminView, 1)
	require.Equal(t, "rev-2", adminView[0].ID)
}
