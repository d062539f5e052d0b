package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smd-edu/syllabus-api/internal/dto"
	"github.com/smd-edu/syllabus-api/internal/models"
	"github.com/smd-edu/syllabus-api/internal/workflow"
	appErrors "github.com/smd-edu/syllabus-api/pkg/errors"
)

type syllabusStore interface {
	Create(ctx context.Context, s *models.Syllabus) error
	GetByID(ctx context.Context, id string) (*models.Syllabus, error)
	List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error)
	UpdateWorkflowState(ctx context.Context, s *models.Syllabus, expectedVersion int) error
	CreateApprovalHistory(ctx context.Context, h *models.ApprovalHistory) error
	ListApprovalHistory(ctx context.Context, syllabusID string) ([]models.ApprovalHistory, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EventEmitter receives workflow events after the transition has committed.
// Implementations must be best-effort: a failed emit never affects the
// transition.
type EventEmitter interface {
	Emit(ctx context.Context, ev workflow.Event)
}

// EmitterFunc adapts a plain function to EventEmitter.
type EmitterFunc func(ctx context.Context, ev workflow.Event)

// Emit implements EventEmitter.
func (f EmitterFunc) Emit(ctx context.Context, ev workflow.Event) {
	f(ctx, ev)
}

// MultiEmitter fans each event out to every emitter in order.
func MultiEmitter(emitters ...EventEmitter) EventEmitter {
	return EmitterFunc(func(ctx context.Context, ev workflow.Event) {
		for _, emitter := range emitters {
			if emitter != nil {
				emitter.Emit(ctx, ev)
			}
		}
	})
}

// stageAuthority maps each pending status to the single role allowed to
// decide it. Publication from APPROVED is an admin action.
var stageAuthority = map[models.SyllabusStatus]models.UserRole{
	models.StatusPendingHOD:       models.RoleHOD,
	models.StatusPendingAA:        models.RoleAA,
	models.StatusPendingPrincipal: models.RolePrincipal,
	models.StatusApproved:         models.RoleAdmin,
}

// SyllabusService orchestrates the primary approval cycle.
type SyllabusService struct {
	repo    syllabusStore
	audit   auditLogger
	emitter EventEmitter
	logger  *zap.Logger
	now     func() time.Time
}

// SyllabusServiceOption configures the service.
type SyllabusServiceOption func(*SyllabusService)

// WithSyllabusEmitter attaches the post-commit event emitter.
func WithSyllabusEmitter(emitter EventEmitter) SyllabusServiceOption {
	return func(s *SyllabusService) {
		if emitter != nil {
			s.emitter = emitter
		}
	}
}

// WithSyllabusClock overrides the time source, used in tests.
func WithSyllabusClock(now func() time.Time) SyllabusServiceOption {
	return func(s *SyllabusService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSyllabusService constructs the service with defaults.
func NewSyllabusService(repo syllabusStore, audit auditLogger, logger *zap.Logger, opts ...SyllabusServiceOption) *SyllabusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SyllabusService{
		repo:   repo,
		audit:  audit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create drafts a new syllabus version owned by the acting lecturer.
func (s *SyllabusService) Create(ctx context.Context, req dto.CreateSyllabusRequest, actor *models.JWTClaims) (*models.Syllabus, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleLecturer && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if strings.TrimSpace(req.SubjectID) == "" || strings.TrimSpace(req.VersionNo) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subjectId and versionNo are required")
	}
	if strings.TrimSpace(req.SubjectCode) == "" || strings.TrimSpace(req.SubjectNameVI) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subjectCode and subjectNameVi are required")
	}
	if len(req.Content) > 0 && !json.Valid(req.Content) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content must be valid JSON")
	}

	syllabus := &models.Syllabus{
		SubjectID:     req.SubjectID,
		TermID:        req.TermID,
		VersionNo:     strings.TrimSpace(req.VersionNo),
		SubjectCode:   strings.TrimSpace(req.SubjectCode),
		SubjectNameVI: strings.TrimSpace(req.SubjectNameVI),
		SubjectNameEN: strings.TrimSpace(req.SubjectNameEN),
		CreditCount:   req.CreditCount,
		Content:       append([]byte(nil), req.Content...),
		Description:   optionalString(req.Description),
		Keywords:      optionalString(req.Keywords),
		OwnerID:       actor.UserID,
		OwnerName:     actor.FullName,
	}
	if err := s.repo.Create(ctx, syllabus); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create syllabus")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSyllabusCreate,
		Resource:   "syllabus",
		ResourceID: &syllabus.ID,
	})
	return syllabus, nil
}

// Get loads a syllabus enforcing role visibility. Owners always see their
// own versions regardless of status.
func (s *SyllabusService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Syllabus, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	syllabus, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if syllabus.OwnerID == actor.UserID {
		return syllabus, nil
	}
	if !workflow.CanView(string(actor.Role), syllabus.Status) {
		return nil, appErrors.ErrForbidden
	}
	return syllabus, nil
}

// List returns syllabi visible to the actor. Requested statuses outside the
// actor's visibility set are silently dropped; lecturers only ever see their
// own versions.
func (s *SyllabusService) List(ctx context.Context, query dto.SyllabusQuery, actor *models.JWTClaims) ([]models.Syllabus, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	visible := workflow.VisibleStatuses(string(actor.Role))
	if len(visible) == 0 {
		return nil, appErrors.ErrForbidden
	}

	statuses := visible
	if len(query.Status) > 0 {
		statuses = intersectStatuses(query.Status, visible)
		if len(statuses) == 0 {
			return []models.Syllabus{}, nil
		}
	}

	filter := models.SyllabusFilter{
		Status: statuses,
		Search: strings.TrimSpace(query.Search),
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if actor.Role == models.RoleLecturer {
		filter.OwnerID = actor.UserID
	}

	syllabi, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list syllabi")
	}
	return syllabi, nil
}

// Submit moves a draft into the approval pipeline. Only the owner may
// submit.
func (s *SyllabusService) Submit(ctx context.Context, id string, actor *models.JWTClaims) (*models.Syllabus, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	syllabus, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if syllabus.OwnerID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}

	next, ev, err := workflow.Submit(*syllabus, actor.UserID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, &next, syllabus.Version); err != nil {
		return nil, err
	}
	s.afterTransition(ctx, ev, nil)
	return &next, nil
}

// Decide applies an approve or reject decision on a pending syllabus. The
// acting role must own the current stage.
func (s *SyllabusService) Decide(ctx context.Context, id string, req dto.ApprovalRequest, actor *models.JWTClaims) (*models.Syllabus, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	syllabus, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	required, ok := stageAuthority[syllabus.Status]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot %s in status %s", req.Action, syllabus.Status))
	}
	if actor.Role != required {
		return nil, appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("status %s requires role %s", syllabus.Status, required))
	}

	next, ev, err := workflow.ApplyApproval(*syllabus, workflow.ApprovalInput{
		Action:        req.Action,
		ActorID:       actor.UserID,
		ActorRole:     actor.Role,
		Reason:        strings.TrimSpace(req.Reason),
		EffectiveDate: req.EffectiveDate,
	}, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, &next, syllabus.Version); err != nil {
		return nil, err
	}
	s.afterTransition(ctx, ev, &models.ApprovalHistory{
		SyllabusID: next.ID,
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Action:     req.Action,
		FromStatus: ev.From,
		ToStatus:   ev.To,
		Comment:    optionalString(firstNonEmpty(req.Comment, req.Reason)),
	})
	return &next, nil
}

// Archive retires a published syllabus. Admin only; the reason is kept on
// the record.
func (s *SyllabusService) Archive(ctx context.Context, id string, req dto.ArchiveSyllabusRequest, actor *models.JWTClaims) (*models.Syllabus, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	syllabus, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, ev, err := workflow.Archive(*syllabus, actor.UserID, actor.Role, strings.TrimSpace(req.Reason), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, &next, syllabus.Version); err != nil {
		return nil, err
	}
	s.afterTransition(ctx, ev, nil)
	return &next, nil
}

// History returns the decision trail of a syllabus, newest first.
func (s *SyllabusService) History(ctx context.Context, id string, actor *models.JWTClaims) ([]models.ApprovalHistory, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	history, err := s.repo.ListApprovalHistory(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approval history")
	}
	return history, nil
}

// StatusTabs returns the tab bar entries for the actor's role, in the
// registry's fixed order with localized labels.
func (s *SyllabusService) StatusTabs(actor *models.JWTClaims) ([]dto.StatusTab, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	visible := workflow.VisibleStatuses(string(actor.Role))
	if len(visible) == 0 {
		return nil, appErrors.ErrForbidden
	}
	tabs := make([]dto.StatusTab, 0, len(visible))
	for _, status := range visible {
		tabs = append(tabs, dto.StatusTab{Key: status, Label: workflow.DisplayName(status)})
	}
	return tabs, nil
}

func (s *SyllabusService) load(ctx context.Context, id string) (*models.Syllabus, error) {
	syllabus, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus")
	}
	return syllabus, nil
}

func (s *SyllabusService) persist(ctx context.Context, next *models.Syllabus, expectedVersion int) error {
	if err := s.repo.UpdateWorkflowState(ctx, next, expectedVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrStale
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist transition")
	}
	return nil
}

// afterTransition records history and fans the event out. Both are
// best-effort: the transition is already committed.
func (s *SyllabusService) afterTransition(ctx context.Context, ev workflow.Event, history *models.ApprovalHistory) {
	if history != nil {
		if err := s.repo.CreateApprovalHistory(ctx, history); err != nil {
			s.logger.Warn("failed to record approval history",
				zap.String("syllabus_id", ev.SyllabusID), zap.Error(err))
		}
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &ev.ActorID,
		Action:     models.AuditActionSyllabusTransition,
		Resource:   "syllabus",
		ResourceID: &ev.SyllabusID,
		NewValues:  []byte(fmt.Sprintf(`{"from":%q,"to":%q}`, ev.From, ev.To)),
	})
	if s.emitter != nil {
		s.emitter.Emit(ctx, ev)
	}
}

func (s *SyllabusService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "syllabus-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func intersectStatuses(requested, visible []models.SyllabusStatus) []models.SyllabusStatus {
	allowed := make(map[models.SyllabusStatus]struct{}, len(visible))
	for _, status := range visible {
		allowed[status] = struct{}{}
	}
	out := make([]models.SyllabusStatus, 0, len(requested))
	for _, status := range requested {
		if _, ok := allowed[status]; ok {
			out = append(out, status)
		}
	}
	return out
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
