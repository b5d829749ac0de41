package handler_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/oauth"
	"github.com/staybook/staybook/internal/repository"
)

// In-memory stand-ins for the repositories.  They keep just enough state to
// observe what handlers wrote.

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[uint64]*model.User
	next  uint64
	links int
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[uint64]*model.User{}} }

func (f *fakeUsers) add(u model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	if u.ID == 0 {
		u.ID = f.next
	} else if u.ID > f.next {
		f.next = u.ID
	}
	if u.Role == "" {
		u.Role = model.RoleGuest
	}
	cp := u
	f.byID[u.ID] = &cp
	return &cp
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	f.mu.Lock()
	for _, x := range f.byID {
		if u.Email != "" && x.Email == u.Email {
			f.mu.Unlock()
			return repository.ErrEmailExists
		}
	}
	f.mu.Unlock()
	*u = *f.add(*u)
	return nil
}

func (f *fakeUsers) find(match func(*model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id })
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return f.find(func(u *model.User) bool { return email != "" && u.Email == email })
}

func (f *fakeUsers) GetByPhone(_ context.Context, phone string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Phone == phone })
}

func (f *fakeUsers) GetByProvider(_ context.Context, provider, subject string) (*model.User, error) {
	return f.find(func(u *model.User) bool {
		switch provider {
		case oauth.ProviderGoogle:
			return u.GoogleID == subject
		case oauth.ProviderFacebook:
			return u.FacebookID == subject
		case oauth.ProviderApple:
			return u.AppleID == subject
		}
		return false
	})
}

func (f *fakeUsers) LinkProvider(_ context.Context, userID uint64, provider, subject string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	switch provider {
	case oauth.ProviderGoogle:
		u.GoogleID = subject
	case oauth.ProviderFacebook:
		u.FacebookID = subject
	case oauth.ProviderApple:
		u.AppleID = subject
	}
	f.links++
	return nil
}

func (f *fakeUsers) Summaries(_ context.Context, ids []uint64) (map[uint64]model.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uint64]model.UserSummary{}
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out[id] = model.UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
		}
	}
	return out, nil
}

type fakeListings struct {
	byID      map[uint64]*model.Listing
	lastQuery repository.ListingQuery
	cards     []model.ListingCard
	total     int64
}

func newFakeListings() *fakeListings { return &fakeListings{byID: map[uint64]*model.Listing{}} }

func (f *fakeListings) Create(_ context.Context, l *model.Listing) error {
	l.ID = uint64(len(f.byID) + 1)
	l.CreatedAt = time.Now().UTC()
	cp := *l
	f.byID[l.ID] = &cp
	return nil
}

func (f *fakeListings) GetByID(_ context.Context, id uint64) (*model.Listing, error) {
	l, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeListings) List(_ context.Context, q repository.ListingQuery) ([]model.ListingCard, int64, error) {
	f.lastQuery = q
	return f.cards, f.total, nil
}

func (f *fakeListings) SuggestLocations(_ context.Context, term string, limit int) ([]string, error) {
	out := []string{}
	seen := map[string]bool{}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return out, nil
	}
	for _, l := range f.byID {
		if strings.Contains(strings.ToLower(l.Location), term) && !seen[l.Location] {
			seen[l.Location] = true
			out = append(out, l.Location)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeBookings struct {
	mu   sync.Mutex
	rows []*model.Booking
}

func (f *fakeBookings) Create(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.rows {
		if x.ListingID == b.ListingID && x.Status == model.BookingConfirmed &&
			x.StartDate.Before(b.EndDate) && x.EndDate.After(b.StartDate) {
			return repository.ErrBookingOverlap
		}
	}
	b.ID = uint64(len(f.rows) + 1)
	b.CreatedAt = time.Now().UTC()
	cp := *b
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.rows {
		if b.ID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (f *fakeBookings) ListByGuest(_ context.Context, guestID uint64) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Booking{}
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].GuestID == guestID {
			out = append(out, *f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeBookings) Cancel(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.rows {
		if b.ID == id {
			b.Status = model.BookingCancelled
		}
	}
	return nil
}

func (f *fakeBookings) BookedRanges(_ context.Context, listingID uint64, from time.Time) ([]model.DateRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.DateRange{}
	for _, b := range f.rows {
		if b.ListingID == listingID && b.Status == model.BookingConfirmed && !b.EndDate.Before(from) {
			out = append(out, model.DateRange{
				StartDate: b.StartDate.Format(model.DateLayout),
				EndDate:   b.EndDate.Format(model.DateLayout),
			})
		}
	}
	return out, nil
}

func (f *fakeBookings) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeReviews struct {
	rows  []model.Review
	users *fakeUsers
}

func (f *fakeReviews) Create(_ context.Context, rv *model.Review) error {
	rv.ID = uint64(len(f.rows) + 1)
	rv.CreatedAt = time.Now().UTC()
	f.rows = append(f.rows, *rv)
	return nil
}

func (f *fakeReviews) list(match func(model.Review) bool) []model.Review {
	out := []model.Review{}
	for i := len(f.rows) - 1; i >= 0; i-- {
		rv := f.rows[i]
		if match(rv) {
			if u, err := f.users.GetByID(context.Background(), rv.UserID); err == nil {
				rv.Author = &model.UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
			}
			out = append(out, rv)
		}
	}
	return out
}

func (f *fakeReviews) ListByListing(_ context.Context, listingID uint64) ([]model.Review, error) {
	return f.list(func(rv model.Review) bool { return rv.ListingID != nil && *rv.ListingID == listingID }), nil
}

func (f *fakeReviews) ListByHost(_ context.Context, hostID uint64) ([]model.Review, error) {
	return f.list(func(rv model.Review) bool { return rv.HostID != nil && *rv.HostID == hostID }), nil
}

type fakeConversations struct {
	mu       sync.Mutex
	convs    []*model.Conversation
	messages []model.Message
}

func sameListing(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *fakeConversations) Find(_ context.Context, listingID *uint64, guestID, hostID uint64) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.convs {
		if sameListing(c.ListingID, listingID) && c.GuestID == guestID && c.HostID == hostID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrConversationNotFound
}

func (f *fakeConversations) FindOrCreate(ctx context.Context, listingID *uint64, guestID, hostID uint64) (*model.Conversation, error) {
	if c, err := f.Find(ctx, listingID, guestID, hostID); err == nil {
		return c, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &model.Conversation{ID: uint64(len(f.convs) + 1), GuestID: guestID, HostID: hostID, CreatedAt: time.Now().UTC()}
	if listingID != nil {
		id := *listingID
		c.ListingID = &id
	}
	f.convs = append(f.convs, c)
	cp := *c
	return &cp, nil
}

func (f *fakeConversations) GetByID(_ context.Context, id uint64) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.convs {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrConversationNotFound
}

func (f *fakeConversations) AddMessage(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = uint64(len(f.messages) + 1)
	m.CreatedAt = time.Now().UTC()
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeConversations) ListMessages(_ context.Context, conversationID uint64) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Message{}
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeConversations) MarkRead(_ context.Context, conversationID, readerID uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for i := range f.messages {
		m := &f.messages[i]
		if m.ConversationID == conversationID && m.SenderID != readerID && m.ReadAt == nil {
			m.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (f *fakeConversations) participant(convID, userID uint64) bool {
	for _, c := range f.convs {
		if c.ID == convID {
			return c.HasParticipant(userID)
		}
	}
	return false
}

func (f *fakeConversations) UnreadCount(_ context.Context, userID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if m.SenderID != userID && m.ReadAt == nil && f.participant(m.ConversationID, userID) {
			n++
		}
	}
	return n, nil
}

func (f *fakeConversations) ListForUser(_ context.Context, userID uint64) ([]model.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ConversationSummary{}
	for _, c := range f.convs {
		if c.HasParticipant(userID) {
			out = append(out, model.ConversationSummary{Conversation: *c, With: model.UserSummary{ID: c.Other(userID)}})
		}
	}
	return out, nil
}

func (f *fakeConversations) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type published struct {
	queue string
	event interface{}
}

type fakeEvents struct {
	mu   sync.Mutex
	sent []published
}

func (f *fakeEvents) PublishAsync(queue string, event interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{queue: queue, event: event})
}

func (f *fakeEvents) queues() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, p := range f.sent {
		out[i] = p.queue
	}
	return out
}

type fakeSMS struct {
	mu   sync.Mutex
	last map[string]string
	err  error
}

func (f *fakeSMS) Send(_ context.Context, phone, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.last == nil {
		f.last = map[string]string{}
	}
	f.last[phone] = text
	return nil
}

// code extracts the six digits from the last text sent to phone.
func (f *fakeSMS) code(phone string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	text := f.last[phone]
	if len(text) < 6 {
		return ""
	}
	return text[len(text)-6:]
}

type fakeVerifier struct {
	tokens map[string]oauth.Identity
}

func (f fakeVerifier) Verify(_ context.Context, token string) (oauth.Identity, error) {
	id, ok := f.tokens[token]
	if !ok {
		return oauth.Identity{}, oauth.ErrInvalidToken
	}
	return id, nil
}
