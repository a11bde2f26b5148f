package models

// Trip groups the people splitting expenses on one outing.
type Trip struct {
	// ID is the unique identifier for the trip (UUID format).
	ID string

	// Name is the display name of the trip (e.g. "Chiang Mai 2025").
	Name string

	// OwnerID is the user who created the trip.
	OwnerID string

	// CreatedAt is the Unix timestamp when the trip was created.
	CreatedAt int64
}

// TripMember links a user to a trip.
type TripMember struct {
	TripID string
	UserID string

	// JoinedAt is the Unix timestamp when the user joined.
	JoinedAt int64
}
