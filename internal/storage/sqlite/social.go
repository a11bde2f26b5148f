package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/triptab/triptab/internal/models"
	"github.com/triptab/triptab/internal/storage"
)

// CreateFriendRequest persists a new friend request.
func (s *SQLiteStore) CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt == 0 {
		req.CreatedAt = time.Now().Unix()
	}
	if req.Status == "" {
		req.Status = models.FriendRequestPending
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO friend_requests (id, from_user_id, to_user_id, status, created_at) VALUES (?, ?, ?, ?, ?)",
		req.ID, req.FromUserID, req.ToUserID, req.Status, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert friend request: %w", err)
	}
	return nil
}

// GetFriendRequest retrieves a friend request by ID.
func (s *SQLiteStore) GetFriendRequest(ctx context.Context, requestID string) (*models.FriendRequest, error) {
	req := &models.FriendRequest{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, from_user_id, to_user_id, status, created_at FROM friend_requests WHERE id = ?",
		requestID,
	).Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Status, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("friend request %s: %w", requestID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friend request: %w", err)
	}
	return req, nil
}

// UpdateFriendRequest moves a request to accepted or declined.
func (s *SQLiteStore) UpdateFriendRequest(ctx context.Context, requestID string, status models.FriendRequestStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE friend_requests SET status = ? WHERE id = ?",
		status, requestID,
	)
	if err != nil {
		return fmt.Errorf("failed to update friend request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("friend request %s: %w", requestID, storage.ErrNotFound)
	}
	return nil
}

// CreateFriendship links two users. Stored once with the lower id first so a
// pair can never appear twice.
func (s *SQLiteStore) CreateFriendship(ctx context.Context, a, b string) error {
	if b < a {
		a, b = b, a
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO friendships (user_id, friend_id, created_at) VALUES (?, ?, ?)",
		a, b, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert friendship: %w", err)
	}
	return nil
}

// ListFriends returns the ids of the user's friends.
func (s *SQLiteStore) ListFriends(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT CASE WHEN user_id = ? THEN friend_id ELSE user_id END
		 FROM friendships WHERE user_id = ? OR friend_id = ?`,
		userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friends: %w", err)
	}
	return friends, nil
}

// CreateNotification persists a notification row.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notifications (id, user_id, kind, message, ref_id, read, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		n.ID, n.UserID, n.Kind, n.Message, n.RefID, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns the user's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, kind, message, ref_id, read, created_at
		 FROM notifications WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.RefID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead flags a notification as seen.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, notificationID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ?",
		notificationID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("notification %s: %w", notificationID, storage.ErrNotFound)
	}
	return nil
}
