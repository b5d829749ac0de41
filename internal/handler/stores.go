package handler

import (
	"context"
	"time"

	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/repository"
)

// The interfaces below list exactly what handlers use from the repository
// package so that tests can substitute in-memory fakes.

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	GetByProvider(ctx context.Context, provider, subject string) (*model.User, error)
	LinkProvider(ctx context.Context, userID uint64, provider, subject string) error
	Summaries(ctx context.Context, ids []uint64) (map[uint64]model.UserSummary, error)
}

type ListingStore interface {
	Create(ctx context.Context, l *model.Listing) error
	GetByID(ctx context.Context, id uint64) (*model.Listing, error)
	List(ctx context.Context, q repository.ListingQuery) ([]model.ListingCard, int64, error)
	SuggestLocations(ctx context.Context, term string, limit int) ([]string, error)
}

type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListByGuest(ctx context.Context, guestID uint64) ([]model.Booking, error)
	Cancel(ctx context.Context, id uint64) error
	BookedRanges(ctx context.Context, listingID uint64, from time.Time) ([]model.DateRange, error)
}

type ReviewStore interface {
	Create(ctx context.Context, rv *model.Review) error
	ListByListing(ctx context.Context, listingID uint64) ([]model.Review, error)
	ListByHost(ctx context.Context, hostID uint64) ([]model.Review, error)
}

type ConversationStore interface {
	FindOrCreate(ctx context.Context, listingID *uint64, guestID, hostID uint64) (*model.Conversation, error)
	Find(ctx context.Context, listingID *uint64, guestID, hostID uint64) (*model.Conversation, error)
	GetByID(ctx context.Context, id uint64) (*model.Conversation, error)
	AddMessage(ctx context.Context, m *model.Message) error
	ListMessages(ctx context.Context, conversationID uint64) ([]model.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID uint64) (int64, error)
	UnreadCount(ctx context.Context, userID uint64) (int, error)
	ListForUser(ctx context.Context, userID uint64) ([]model.ConversationSummary, error)
}

type OTPStore interface {
	TTL() time.Duration
	Save(ctx context.Context, phone, code string) error
	Verify(ctx context.Context, phone, code string) error
}

// EventPublisher fires broker events without blocking the request.
type EventPublisher interface {
	PublishAsync(queue string, event interface{})
}
