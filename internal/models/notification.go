package models

// NotificationKind identifies what event a notification describes.
type NotificationKind string

const (
	NotifyFriendRequest   NotificationKind = "friend_request"
	NotifyPaymentSubmit   NotificationKind = "payment_submitted"
	NotifyPaymentApproved NotificationKind = "payment_approved"
	NotifyPaymentRejected NotificationKind = "payment_rejected"
)

// Notification is a user-facing record of an event. Delivery is best-effort;
// failure to record or push a notification never fails the primary operation.
type Notification struct {
	// ID is the unique identifier for the notification (UUID format).
	ID string

	// UserID is the recipient.
	UserID string

	// Kind identifies the triggering event.
	Kind NotificationKind

	// Message is the rendered user-facing text.
	Message string

	// RefID points at the related record (payment, friend request, ...).
	RefID string

	// Read is set once the user has seen the notification.
	Read bool

	// CreatedAt is the Unix timestamp when the notification was created.
	CreatedAt int64
}
