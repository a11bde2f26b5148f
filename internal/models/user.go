package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Name is the display name of the user.
	Name string

	// Email is the user's email address (unique). Used for login.
	Email string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// PromptPayID is the phone number or national id the user receives
	// PromptPay transfers on. Optional.
	PromptPayID string

	// AvatarURL is the stored profile image location. Optional.
	AvatarURL string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// NewUser creates a user with a fresh ID and creation timestamp.
func NewUser(email, name, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
}

// FriendRequestStatus tracks the lifecycle of a friend request.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

// FriendRequest is a pending invitation from one user to another.
type FriendRequest struct {
	ID         string
	FromUserID string
	ToUserID   string
	Status     FriendRequestStatus
	CreatedAt  int64
}

// Friendship links two users after a request is accepted. Stored once with
// UserID < FriendID to avoid duplicate pairs.
type Friendship struct {
	UserID    string
	FriendID  string
	CreatedAt int64
}
