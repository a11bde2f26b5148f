package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/triptab/triptab/internal/models"
	"github.com/triptab/triptab/internal/notify"
	"github.com/triptab/triptab/internal/storage"
)

// SocialService manages friend requests, friendships and the notification
// feed.
type SocialService struct {
	store    storage.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewSocialService(store storage.Store, notifier notify.Notifier, logger *slog.Logger) *SocialService {
	return &SocialService{store: store, notifier: notifier, logger: logger}
}

// SendFriendRequest creates a pending request addressed by email.
func (s *SocialService) SendFriendRequest(ctx context.Context, fromUserID, toEmail string) (*models.FriendRequest, error) {
	to, err := s.store.GetUserByEmail(ctx, toEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if to == nil {
		return nil, storage.ErrNotFound
	}
	if to.ID == fromUserID {
		return nil, fmt.Errorf("%w: cannot befriend yourself", ErrInvalidInput)
	}

	req := &models.FriendRequest{
		ID:         uuid.New().String(),
		FromUserID: fromUserID,
		ToUserID:   to.ID,
		Status:     models.FriendRequestPending,
		CreatedAt:  time.Now().Unix(),
	}
	if err := s.store.CreateFriendRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}

	from, err := s.store.GetUserByID(ctx, fromUserID)
	name := fromUserID
	if err == nil && from != nil {
		name = from.Name
	}
	s.notifier.Notify(ctx, notify.New(to.ID, models.NotifyFriendRequest,
		fmt.Sprintf("%s sent you a friend request", name), req.ID))

	return req, nil
}

// RespondFriendRequest accepts or declines a request. Only the recipient may
// respond; accepting creates the friendship.
func (s *SocialService) RespondFriendRequest(ctx context.Context, userID, requestID string, accept bool) error {
	req, err := s.store.GetFriendRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to load friend request: %w", err)
	}
	if req.ToUserID != userID {
		return ErrPermissionDenied
	}

	status := models.FriendRequestDeclined
	if accept {
		status = models.FriendRequestAccepted
	}
	if err := s.store.UpdateFriendRequest(ctx, requestID, status); err != nil {
		return fmt.Errorf("failed to update friend request: %w", err)
	}

	if accept {
		if err := s.store.CreateFriendship(ctx, req.FromUserID, req.ToUserID); err != nil {
			return fmt.Errorf("failed to create friendship: %w", err)
		}
		s.logger.Info("friendship created", "user", req.FromUserID, "friend", req.ToUserID)
	}
	return nil
}

// ListFriends returns the user ids the user is friends with.
func (s *SocialService) ListFriends(ctx context.Context, userID string) ([]string, error) {
	friends, err := s.store.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return friends, nil
}

// Notifications returns the user's notification feed, newest first.
func (s *SocialService) Notifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	ns, err := s.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return ns, nil
}

// MarkRead marks one notification as seen.
func (s *SocialService) MarkRead(ctx context.Context, notificationID string) error {
	if err := s.store.MarkNotificationRead(ctx, notificationID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
