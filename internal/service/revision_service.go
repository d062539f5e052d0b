package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smd-edu/syllabus-api/internal/dto"
	"github.com/smd-edu/syllabus-api/internal/models"
	"github.com/smd-edu/syllabus-api/internal/workflow"
	appErrors "github.com/smd-edu/syllabus-api/pkg/errors"
)

type revisionStore interface {
	CreateWithSyllabus(ctx context.Context, session *models.RevisionSession, syllabus *models.Syllabus, expectedVersion int) error
	GetByID(ctx context.Context, id string) (*models.RevisionSession, error)
	ActiveBySyllabus(ctx context.Context, syllabusID string) (*models.RevisionSession, error)
	LatestCompletedBySyllabus(ctx context.Context, syllabusID string) (*models.RevisionSession, error)
	ListByStatus(ctx context.Context, status models.RevisionStatus) ([]models.RevisionSession, error)
	UpdateStateWithSyllabus(ctx context.Context, session *models.RevisionSession, expected models.RevisionStatus, syllabus *models.Syllabus, expectedVersion int) error
}

type revisionSyllabusStore interface {
	GetByID(ctx context.Context, id string) (*models.Syllabus, error)
}

type feedbackStore interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Feedback, error)
	FindBySession(ctx context.Context, sessionID string) ([]models.Feedback, error)
	AttachToSession(ctx context.Context, sessionID string, ids []string) error
	UpdateStatusBySession(ctx context.Context, sessionID string, status models.FeedbackStatus) error
	ResolveBySession(ctx context.Context, sessionID, resolverID, versionNo string, resolvedAt time.Time) error
}

// RevisionService drives post-publication correction cycles. Every syllabus
// status change goes through the workflow callbacks so the session machine
// and the syllabus machine cannot drift apart.
type RevisionService struct {
	sessions revisionStore
	syllabi  revisionSyllabusStore
	feedback feedbackStore
	audit    auditLogger
	emitter  EventEmitter
	logger   *zap.Logger
	now      func() time.Time
}

// RevisionServiceOption configures the service.
type RevisionServiceOption func(*RevisionService)

// WithRevisionEmitter attaches the post-commit event emitter.
func WithRevisionEmitter(emitter EventEmitter) RevisionServiceOption {
	return func(s *RevisionService) {
		if emitter != nil {
			s.emitter = emitter
		}
	}
}

// WithRevisionClock overrides the time source, used in tests.
func WithRevisionClock(now func() time.Time) RevisionServiceOption {
	return func(s *RevisionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRevisionService constructs the service with defaults.
func NewRevisionService(sessions revisionStore, syllabi revisionSyllabusStore, feedback feedbackStore, audit auditLogger, logger *zap.Logger, opts ...RevisionServiceOption) *RevisionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RevisionService{
		sessions: sessions,
		syllabi:  syllabi,
		feedback: feedback,
		audit:    audit,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Start opens a revision session for a published syllabus and moves the
// syllabus into REVISION_IN_PROGRESS. At most one non-terminal session per
// syllabus is allowed.
func (s *RevisionService) Start(ctx context.Context, req dto.StartRevisionRequest, actor *models.JWTClaims) (*models.RevisionSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	syllabus, err := s.loadSyllabus(ctx, req.SyllabusID)
	if err != nil {
		return nil, err
	}

	if active, err := s.sessions.ActiveBySyllabus(ctx, req.SyllabusID); err == nil && active != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("revision session %s is still active", active.ID))
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active session")
	}

	if len(req.FeedbackIDs) > 0 {
		items, err := s.feedback.FindByIDs(ctx, req.FeedbackIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
		}
		if len(items) != len(req.FeedbackIDs) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "one or more feedback ids do not exist")
		}
		for _, item := range items {
			if item.SyllabusID != req.SyllabusID {
				return nil, appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("feedback %s belongs to another syllabus", item.ID))
			}
			if item.Status != models.FeedbackAccepted {
				return nil, appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("feedback %s is not accepted", item.ID))
			}
		}
	}

	now := s.now()
	next, ev, err := workflow.BeginRevision(*syllabus, actor.UserID, now)
	if err != nil {
		return nil, err
	}

	session := &models.RevisionSession{
		SyllabusID:       req.SyllabusID,
		Status:           models.RevisionOpen,
		Description:      optionalString(req.Description),
		InitiatedBy:      actor.UserID,
		AssignedLecturer: syllabus.OwnerID,
		InitiatedAt:      now,
	}
	if err := s.sessions.CreateWithSyllabus(ctx, session, &next, syllabus.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStale
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create revision session")
	}
	if len(req.FeedbackIDs) > 0 {
		if err := s.feedback.AttachToSession(ctx, session.ID, req.FeedbackIDs); err != nil {
			s.logger.Warn("failed to attach feedback to session",
				zap.String("session_id", session.ID), zap.Error(err))
		} else {
			session.FeedbackCount = len(req.FeedbackIDs)
		}
	}
	s.afterTransition(ctx, ev, session.ID)
	return session, nil
}

// Submit hands the corrected syllabus to the HOD. An OPEN session advances
// through IN_PROGRESS implicitly; the first touch is the start stamp.
func (s *RevisionService) Submit(ctx context.Context, sessionID string, req dto.SubmitRevisionRequest, actor *models.JWTClaims) (*models.RevisionSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.AssignedLecturer != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	if session.Status != models.RevisionOpen && session.Status != models.RevisionInProgress {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot submit revision in session status %s", session.Status))
	}
	syllabus, err := s.loadSyllabus(ctx, session.SyllabusID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, ev, err := workflow.SubmitRevision(*syllabus, actor.UserID, now)
	if err != nil {
		return nil, err
	}

	expected := session.Status
	if session.StartedAt == nil {
		session.StartedAt = &now
	}
	session.Status = models.RevisionPendingHOD
	session.SubmitSummary = optionalString(req.Summary)
	session.SubmittedAt = &now
	// Clear any earlier verdict so a resubmission reads as freshly pending.
	session.HODReviewedBy, session.HODReviewedAt = nil, nil
	session.HODDecision, session.HODComment = nil, nil

	if err := s.persistPair(ctx, session, expected, &next, syllabus.Version); err != nil {
		return nil, err
	}
	if err := s.feedback.UpdateStatusBySession(ctx, session.ID, models.FeedbackInRevision); err != nil {
		s.logger.Warn("failed to mark feedback in revision",
			zap.String("session_id", session.ID), zap.Error(err))
	}
	s.afterTransition(ctx, ev, session.ID)
	return session, nil
}

// Review records the HOD verdict. Approval parks the syllabus in
// PENDING_ADMIN_REPUBLISH while the session stays open until republish;
// rejection sends both back into revision.
func (s *RevisionService) Review(ctx context.Context, sessionID string, req dto.ReviewRevisionRequest, actor *models.JWTClaims) (*models.RevisionSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleHOD {
		return nil, appErrors.ErrForbidden
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.RevisionPendingHOD {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot review in session status %s", session.Status))
	}
	syllabus, err := s.loadSyllabus(ctx, session.SyllabusID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, ev, err := workflow.ReviewRevision(*syllabus, req.Decision, actor.UserID, now)
	if err != nil {
		return nil, err
	}

	decision := req.Decision
	session.HODReviewedBy = &actor.UserID
	session.HODReviewedAt = &now
	session.HODDecision = &decision
	session.HODComment = optionalString(req.Comment)
	if decision == models.RevisionDecisionRejected {
		session.Status = models.RevisionInProgress
	}
	// An approved session keeps status PENDING_HOD; republish closes it.

	if err := s.persistPair(ctx, session, models.RevisionPendingHOD, &next, syllabus.Version); err != nil {
		return nil, err
	}
	s.afterTransition(ctx, ev, session.ID)
	return session, nil
}

// Republish restores the syllabus to PUBLISHED, closes the session, and
// resolves the linked feedback. This is the only path to COMPLETED.
func (s *RevisionService) Republish(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.RevisionSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.RevisionPendingHOD ||
		session.HODDecision == nil || *session.HODDecision != models.RevisionDecisionApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "session has no approved revision to republish")
	}
	syllabus, err := s.loadSyllabus(ctx, session.SyllabusID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, ev, err := workflow.Republish(*syllabus, actor.UserID, now)
	if err != nil {
		return nil, err
	}

	session.Status = models.RevisionCompleted
	session.RepublishedBy = &actor.UserID
	session.RepublishedAt = &now
	session.CompletedAt = &now

	if err := s.persistPair(ctx, session, models.RevisionPendingHOD, &next, syllabus.Version); err != nil {
		return nil, err
	}
	if err := s.feedback.ResolveBySession(ctx, session.ID, actor.UserID, next.VersionNo, now); err != nil {
		s.logger.Warn("failed to resolve session feedback",
			zap.String("session_id", session.ID), zap.Error(err))
	}
	s.afterTransition(ctx, ev, session.ID)
	return session, nil
}

// Cancel abandons a session before HOD review and restores PUBLISHED.
// Attached feedback returns to the triage pool.
func (s *RevisionService) Cancel(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.RevisionSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.RevisionOpen && session.Status != models.RevisionInProgress {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot cancel in session status %s", session.Status))
	}
	syllabus, err := s.loadSyllabus(ctx, session.SyllabusID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, ev, err := workflow.CancelRevision(*syllabus, actor.UserID, now)
	if err != nil {
		return nil, err
	}

	expected := session.Status
	session.Status = models.RevisionCancelled
	session.CancelledAt = &now

	if err := s.persistPair(ctx, session, expected, &next, syllabus.Version); err != nil {
		return nil, err
	}
	if err := s.feedback.UpdateStatusBySession(ctx, session.ID, models.FeedbackAccepted); err != nil {
		s.logger.Warn("failed to release session feedback",
			zap.String("session_id", session.ID), zap.Error(err))
	}
	s.afterTransition(ctx, ev, session.ID)
	return session, nil
}

// Get returns a session with its feedback linkage.
func (s *RevisionService) Get(ctx context.Context, sessionID string, actor *models.JWTClaims) (*dto.RevisionSessionResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, session)
}

// ActiveSession returns the non-terminal session of a syllabus, or NotFound.
func (s *RevisionService) ActiveSession(ctx context.Context, syllabusID string, actor *models.JWTClaims) (*dto.RevisionSessionResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	session, err := s.sessions.ActiveBySyllabus(ctx, syllabusID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active session")
	}
	return s.decorate(ctx, session)
}

// CompletedSession returns the latest COMPLETED session of a syllabus, or
// NotFound. It backs the post-republish view of what changed and who signed
// it off.
func (s *RevisionService) CompletedSession(ctx context.Context, syllabusID string, actor *models.JWTClaims) (*dto.RevisionSessionResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	session, err := s.sessions.LatestCompletedBySyllabus(ctx, syllabusID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed session")
	}
	return s.decorate(ctx, session)
}

// PendingReview lists sessions awaiting the HOD verdict, oldest first.
func (s *RevisionService) PendingReview(ctx context.Context, actor *models.JWTClaims) ([]models.RevisionSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleHOD && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	sessions, err := s.sessions.ListByStatus(ctx, models.RevisionPendingHOD)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending sessions")
	}
	if actor.Role == models.RoleHOD {
		return sessions, nil
	}
	// Admins only care about approved sessions waiting on republish.
	out := sessions[:0]
	for _, session := range sessions {
		if session.HODDecision != nil && *session.HODDecision == models.RevisionDecisionApproved {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *RevisionService) decorate(ctx context.Context, session *models.RevisionSession) (*dto.RevisionSessionResponse, error) {
	items, err := s.feedback.FindBySession(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session feedback")
	}
	resp := &dto.RevisionSessionResponse{RevisionSession: *session}
	resp.FeedbackCount = len(items)
	for _, item := range items {
		resp.FeedbackIDs = append(resp.FeedbackIDs, item.ID)
	}
	return resp, nil
}

func (s *RevisionService) loadSession(ctx context.Context, id string) (*models.RevisionSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revision session")
	}
	return session, nil
}

func (s *RevisionService) loadSyllabus(ctx context.Context, id string) (*models.Syllabus, error) {
	syllabus, err := s.syllabi.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus")
	}
	return syllabus, nil
}

// persistPair commits the session and syllabus writes atomically. Either CAS
// losing rolls back the whole pair, so the two state machines never split.
func (s *RevisionService) persistPair(ctx context.Context, session *models.RevisionSession, expected models.RevisionStatus, next *models.Syllabus, expectedVersion int) error {
	if err := s.sessions.UpdateStateWithSyllabus(ctx, session, expected, next, expectedVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrStale
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist transition")
	}
	return nil
}

func (s *RevisionService) afterTransition(ctx context.Context, ev workflow.Event, sessionID string) {
	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     &ev.ActorID,
			Action:     models.AuditActionRevisionTransition,
			Resource:   "revision_session",
			ResourceID: &sessionID,
			NewValues:  []byte(fmt.Sprintf(`{"from":%q,"to":%q}`, ev.From, ev.To)),
			IPAddress:  "system",
			UserAgent:  "revision-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	if s.emitter != nil {
		s.emitter.Emit(ctx, ev)
	}
}
