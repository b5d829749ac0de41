// Package queue defines the events exchanged over the message broker and the
// worker that consumes them.
package queue

// Queue names.  Events are published on the default exchange with the queue
// name as routing key.
const (
	BookingCreatedQueue = "booking.created"
	MessageSentQueue    = "message.sent"
)

// BookingCreatedEvent is published after a booking is stored.  It carries
// enough detail to log or notify without querying the database.
type BookingCreatedEvent struct {
	BookingID   uint64  `json:"booking_id"`
	ListingID   uint64  `json:"listing_id"`
	ListingName string  `json:"listing_name"`
	GuestID     uint64  `json:"guest_id"`
	HostID      uint64  `json:"host_id"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Nights      int     `json:"nights"`
	Guests      int     `json:"guests"`
	TotalPrice  float64 `json:"total_price"`
	CreatedAt   string  `json:"created_at"`
}

// MessageSentEvent is published after a message is appended to a
// conversation.  SentAt is RFC 3339 with nanoseconds.
type MessageSentEvent struct {
	MessageID      uint64  `json:"message_id"`
	ConversationID uint64  `json:"conversation_id"`
	ListingID      *uint64 `json:"listing_id,omitempty"`
	SenderID       uint64  `json:"sender_id"`
	RecipientID    uint64  `json:"recipient_id"`
	GuestID        uint64  `json:"guest_id"`
	HostID         uint64  `json:"host_id"`
	SentAt         string  `json:"sent_at"`
}
