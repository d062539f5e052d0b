package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smd-edu/syllabus-api/internal/models"
	"github.com/smd-edu/syllabus-api/internal/workflow"
	"github.com/smd-edu/syllabus-api/pkg/dispatch"
	appErrors "github.com/smd-edu/syllabus-api/pkg/errors"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	FindHODByDepartment(ctx context.Context, departmentID string) (*models.User, error)
}

type syllabusReader interface {
	GetByID(ctx context.Context, id string) (*models.Syllabus, error)
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NotificationService turns workflow events into persisted in-app
// notifications and pushes them onto the Redis fan-out channel through the
// dispatch queue. Everything here is best-effort: the workflow transition
// has already committed by the time Emit runs.
type NotificationService struct {
	repo    notificationStore
	users   userDirectory
	syllabi syllabusReader
	queue   *dispatch.Queue
	redis   redisPublisher
	channel string
	logger  *zap.Logger
}

// NewNotificationService wires the service and its delivery queue. Start
// the returned queue before serving traffic.
func NewNotificationService(repo notificationStore, users userDirectory, syllabi syllabusReader, rdb redisPublisher, channel string, queueCfg dispatch.Config, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{
		repo:    repo,
		users:   users,
		syllabi: syllabi,
		redis:   rdb,
		channel: channel,
		logger:  logger,
	}
	queueCfg.Logger = logger
	svc.queue = dispatch.New("notifications", svc.deliver, queueCfg)
	return svc
}

// Queue exposes the delivery queue for lifecycle management.
func (s *NotificationService) Queue() *dispatch.Queue {
	return s.queue
}

// Emit implements EventEmitter.
func (s *NotificationService) Emit(ctx context.Context, ev workflow.Event) {
	kind, ok := notificationKind(ev)
	if !ok {
		return
	}
	syllabus, err := s.syllabi.GetByID(ctx, ev.SyllabusID)
	if err != nil {
		s.logger.Warn("failed to load syllabus for notification",
			zap.String("syllabus_id", ev.SyllabusID), zap.Error(err))
		return
	}
	recipients := s.recipients(ctx, ev, syllabus)
	if len(recipients) == 0 {
		return
	}

	title := fmt.Sprintf("%s %s", syllabus.SubjectCode, workflow.DisplayName(ev.To))
	message := fmt.Sprintf("%s (%s) chuyển từ %s sang %s",
		syllabus.SubjectNameVI, syllabus.VersionNo,
		workflow.DisplayName(ev.From), workflow.DisplayName(ev.To))

	for _, recipientID := range recipients {
		notification := &models.Notification{
			RecipientID: recipientID,
			Type:        kind,
			Title:       title,
			Message:     message,
			SyllabusID:  &ev.SyllabusID,
		}
		if err := s.repo.Create(ctx, notification); err != nil {
			s.logger.Warn("failed to persist notification",
				zap.String("recipient_id", recipientID), zap.Error(err))
			continue
		}
		payload, err := json.Marshal(struct {
			Notification *models.Notification `json:"notification"`
			Event        workflow.Event       `json:"event"`
		}{notification, ev})
		if err != nil {
			s.logger.Warn("failed to encode notification payload", zap.Error(err))
			continue
		}
		if err := s.queue.Enqueue(dispatch.Delivery{
			ID:      notification.ID,
			Kind:    string(kind),
			Payload: payload,
		}); err != nil {
			s.logger.Warn("failed to enqueue notification",
				zap.String("notification_id", notification.ID), zap.Error(err))
		}
	}
}

// List returns the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor *models.JWTClaims, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	notifications, err := s.repo.List(ctx, models.NotificationFilter{
		RecipientID: actor.UserID,
		UnreadOnly:  unreadOnly,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flags one of the actor's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.MarkRead(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// CountUnread returns the actor's unread badge count.
func (s *NotificationService) CountUnread(ctx context.Context, actor *models.JWTClaims) (int, error) {
	if actor == nil {
		return 0, appErrors.ErrUnauthorized
	}
	count, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

func (s *NotificationService) deliver(ctx context.Context, d dispatch.Delivery) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Publish(ctx, s.channel, d.Payload).Err()
}

// recipients resolves who should hear about the transition. The department
// HOD is preferred for review requests, falling back to every HOD when the
// owner has no department on file.
func (s *NotificationService) recipients(ctx context.Context, ev workflow.Event, syllabus *models.Syllabus) []string {
	switch ev.To {
	case models.StatusPendingHOD, models.StatusPendingHODRevision:
		return s.departmentHOD(ctx, syllabus.OwnerID)
	case models.StatusPendingAA:
		return s.roleIDs(ctx, models.RoleAA)
	case models.StatusPendingPrincipal:
		return s.roleIDs(ctx, models.RolePrincipal)
	case models.StatusApproved, models.StatusPendingAdminRepublish:
		return append(s.roleIDs(ctx, models.RoleAdmin), syllabus.OwnerID)
	case models.StatusPublished, models.StatusDraft, models.StatusArchived, models.StatusRevisionInProgress:
		return []string{syllabus.OwnerID}
	}
	return nil
}

func (s *NotificationService) departmentHOD(ctx context.Context, ownerID string) []string {
	owner, err := s.users.FindByID(ctx, ownerID)
	if err == nil && owner.DepartmentID != nil {
		if hod, err := s.users.FindHODByDepartment(ctx, *owner.DepartmentID); err == nil {
			return []string{hod.ID}
		}
	}
	return s.roleIDs(ctx, models.RoleHOD)
}

func (s *NotificationService) roleIDs(ctx context.Context, role models.UserRole) []string {
	users, err := s.users.FindByRole(ctx, role)
	if err != nil {
		s.logger.Warn("failed to resolve notification recipients",
			zap.String("role", string(role)), zap.Error(err))
		return nil
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func notificationKind(ev workflow.Event) (models.NotificationType, bool) {
	switch ev.To {
	case models.StatusPendingHOD:
		return models.NotificationSubmitted, true
	case models.StatusPendingAA, models.StatusPendingPrincipal, models.StatusApproved:
		return models.NotificationApproved, true
	case models.StatusDraft:
		return models.NotificationRejected, true
	case models.StatusPublished:
		if ev.From == models.StatusPendingAdminRepublish {
			return models.NotificationRepublished, true
		}
		if ev.From == models.StatusRevisionInProgress {
			// Cancelled revision restores PUBLISHED silently.
			return "", false
		}
		return models.NotificationPublished, true
	case models.StatusArchived:
		return models.NotificationArchived, true
	case models.StatusRevisionInProgress:
		if ev.From == models.StatusPendingHODRevision {
			return models.NotificationRevisionReviewed, true
		}
		return models.NotificationRevisionStarted, true
	case models.StatusPendingHODRevision:
		return models.NotificationRevisionPending, true
	case models.StatusPendingAdminRepublish:
		return models.NotificationRevisionReviewed, true
	}
	return "", false
}
