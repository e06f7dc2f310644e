package service

import (
	"context"
	"time"

	coreEntity "meetsync/core/entity"
	"meetsync/core/params"
	"meetsync/modules/notification/dto"
	"meetsync/modules/notification/entity"
	"meetsync/modules/notification/repository"

	"github.com/google/uuid"
)

type NotificationService struct {
	repo *repository.NotificationRepository
}

func NewNotificationService(repo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) Create(ctx context.Context, req *dto.CreateNotificationRequest) error {
	return s.repo.Create(ctx, newNotification(req.UserID, req.Title, req.Message, req.Type, req.Data))
}

// Notify writes a notification for one user. Used by the proposal flow for
// confirmation and cancellation fanout.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, title, message, notifType string, data map[string]any) error {
	return s.repo.Create(ctx, newNotification(userID, title, message, notifType, data))
}

// NotifyDeduped writes a notification guarded by dedupeKey. It reports
// whether a row was actually written; a repeat key writes nothing.
func (s *NotificationService) NotifyDeduped(ctx context.Context, userID uuid.UUID, title, message, notifType string, data map[string]any, dedupeKey string) (bool, error) {
	notif := newNotification(userID, title, message, notifType, data)
	notif.DedupeKey = &dedupeKey
	return s.repo.CreateDeduped(ctx, notif)
}

func (s *NotificationService) GetMyNotifications(ctx context.Context, userID uuid.UUID, queryParams params.QueryParams) (*entity.PaginatedNotificationEntity, error) {
	return s.repo.GetByUserID(ctx, userID, queryParams)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID uuid.UUID, ids []string) error {
	return s.repo.MarkAsRead(ctx, userID, ids)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func newNotification(userID uuid.UUID, title, message, notifType string, data map[string]any) *entity.Notification {
	return &entity.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notifType,
		Data:    entity.JSONB(data),
		IsRead:  false,
		BaseEntity: coreEntity.BaseEntity{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
}
