package model

import "time"

// Conversation is a thread between a guest and a host.  ListingID is set
// for threads started from a listing page and nil for direct messages.
type Conversation struct {
	ID        uint64    `json:"id"`
	ListingID *uint64   `json:"listing,omitempty"`
	GuestID   uint64    `json:"guest"`
	HostID    uint64    `json:"host"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasParticipant reports whether userID is the guest or host of c.
func (c Conversation) HasParticipant(userID uint64) bool {
	return c.GuestID == userID || c.HostID == userID
}

// Other returns the participant that is not userID.
func (c Conversation) Other(userID uint64) uint64 {
	if c.GuestID == userID {
		return c.HostID
	}
	return c.GuestID
}

// Message is a single entry of a conversation.  ReadAt is nil until the
// recipient has opened the thread.
type Message struct {
	ID             uint64     `json:"id"`
	ConversationID uint64     `json:"conversation"`
	SenderID       uint64     `json:"sender"`
	Content        string     `json:"content"`
	Automated      bool       `json:"automated"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// ConversationSummary is a row of the inbox view.
type ConversationSummary struct {
	Conversation
	With        UserSummary     `json:"with"`
	Listing     *ListingSummary `json:"listingInfo,omitempty"`
	LastMessage *Message        `json:"lastMessage,omitempty"`
	Unread      int             `json:"unread"`
}
