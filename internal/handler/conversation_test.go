package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/queue"
)

func TestListingMessageRequiresCredential(t *testing.T) {
	a := newTestAPI(t)
	a.seed()
	rec := a.do(t, http.MethodPost, "/api/conversations/listing/1", map[string]string{"content": "hi"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, a.convs.messageCount())
}

func TestHostCannotMessageOwnListing(t *testing.T) {
	a := newTestAPI(t)
	host, _, _ := a.seed()
	rec := a.do(t, http.MethodPost, "/api/conversations/listing/1", map[string]string{"content": "hi"}, a.token(t, host))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, a.convs.messageCount())
}

func TestListingThread(t *testing.T) {
	a := newTestAPI(t, withAutoReply())
	host, guest, _ := a.seed()
	stranger := a.users.add(model.User{Name: "Stan"})

	rec := a.do(t, http.MethodGet, "/api/conversations/listing/1", nil, a.token(t, guest))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, text := range []string{"Is parking available?", "Also, pets?"} {
		rec = a.do(t, http.MethodPost, "/api/conversations/listing/1", map[string]string{"content": text}, a.token(t, guest))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	assert.Equal(t, 1, len(a.convs.convs))
	assert.Equal(t, []string{queue.MessageSentQueue, queue.MessageSentQueue}, a.events.queues())

	rec = a.do(t, http.MethodGet, "/api/conversations/unread", nil, a.token(t, host))
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())
	rec = a.do(t, http.MethodGet, "/api/conversations/unread", nil, a.token(t, guest))
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/conversations", nil, a.token(t, host))
	require.Equal(t, http.StatusOK, rec.Code)
	var inbox []model.ConversationSummary
	decode(t, rec, &inbox)
	require.Len(t, inbox, 1)
	assert.Equal(t, guest.ID, inbox[0].With.ID)

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/api/conversations/1", nil, a.token(t, stranger)).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/conversations/8", nil, a.token(t, host)).Code)

	rec = a.do(t, http.MethodGet, "/api/conversations/1", nil, a.token(t, host))
	require.Equal(t, http.StatusOK, rec.Code)
	var th struct {
		Conversation model.Conversation `json:"conversation"`
		Messages     []model.Message    `json:"messages"`
	}
	decode(t, rec, &th)
	require.Len(t, th.Messages, 2)
	assert.Equal(t, "Is parking available?", th.Messages[0].Content)
	assert.NotNil(t, th.Messages[0].ReadAt)

	rec = a.do(t, http.MethodGet, "/api/conversations/unread", nil, a.token(t, host))
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/conversations/1/messages", map[string]string{"content": "Yes, one spot."}, a.token(t, host))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, "/api/conversations/1/messages", map[string]string{"content": "x"}, a.token(t, stranger)).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/conversations/1/messages", map[string]string{"content": ""}, a.token(t, host)).Code)

	rec = a.do(t, http.MethodGet, "/api/conversations/listing/1", nil, a.token(t, guest))
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []model.Message
	decode(t, rec, &msgs)
	assert.Len(t, msgs, 3)
	assert.Equal(t, host.ID, msgs[2].SenderID)
}

func TestStartConversation(t *testing.T) {
	a := newTestAPI(t)
	host, guest, listing := a.seed()
	stranger := a.users.add(model.User{Name: "Stan"})

	rec := a.do(t, http.MethodPost, "/api/conversations", map[string]interface{}{
		"receiver": host.ID, "listing": listing.ID, "content": "Hello",
	}, a.token(t, guest))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The host writing back about the same listing lands in the same thread.
	rec = a.do(t, http.MethodPost, "/api/conversations", map[string]interface{}{
		"receiver": guest.ID, "listing": listing.ID, "content": "Welcome",
	}, a.token(t, host))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, a.convs.convs, 1)

	rec = a.do(t, http.MethodPost, "/api/conversations", map[string]interface{}{
		"receiver": stranger.ID, "listing": listing.ID, "content": "Hm",
	}, a.token(t, guest))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/conversations", map[string]interface{}{
		"receiver": guest.ID, "content": "me",
	}, a.token(t, guest))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/conversations", map[string]interface{}{
		"receiver": 404, "content": "anyone?",
	}, a.token(t, guest))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDirectMessages(t *testing.T) {
	a := newTestAPI(t)
	_, guest, _ := a.seed()
	other := a.users.add(model.User{Name: "Ola", Role: model.RoleGuest})

	rec := a.do(t, http.MethodGet, "/api/messages?with=3", nil, a.token(t, guest))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/messages", map[string]interface{}{"receiver": other.ID, "content": "hey"}, a.token(t, guest))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = a.do(t, http.MethodPost, "/api/messages", map[string]interface{}{"receiver": guest.ID, "content": "hi back"}, a.token(t, other))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, a.convs.convs, 1)
	assert.Nil(t, a.convs.convs[0].ListingID)

	rec = a.do(t, http.MethodGet, "/api/messages?with=2", nil, a.token(t, other))
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []model.Message
	decode(t, rec, &msgs)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hey", msgs[0].Content)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/messages", nil, a.token(t, other)).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/messages?with=77", nil, a.token(t, other)).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/api/messages?with=2", nil, "").Code)
}

func TestBlankMessagesRejected(t *testing.T) {
	a := newTestAPI(t, withAutoReply())
	host, guest, listing := a.seed()
	tok := a.token(t, guest)
	blank := "   \n\t "

	rec := a.do(t, http.MethodPost, "/api/conversations/listing/1", map[string]string{"content": blank}, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "content is required", errorOf(t, rec))

	rec = a.do(t, http.MethodPost, "/api/conversations", map[string]interface{}{
		"receiver": host.ID, "listing": listing.ID, "content": blank,
	}, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/messages", map[string]interface{}{"receiver": host.ID, "content": blank}, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/conversations/listing/1", map[string]string{"content": "real question"}, tok)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = a.do(t, http.MethodPost, "/api/conversations/1/messages", map[string]string{"content": blank}, a.token(t, host))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 1, a.convs.messageCount())
	assert.Equal(t, []string{queue.MessageSentQueue}, a.events.queues())
}

func TestMessageEventNamesRecipient(t *testing.T) {
	a := newTestAPI(t, withAutoReply())
	host, guest, _ := a.seed()

	rec := a.do(t, http.MethodPost, "/api/conversations/listing/1", map[string]string{"content": "Check-in time?"}, a.token(t, guest))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = a.do(t, http.MethodPost, "/api/conversations/1/messages", map[string]string{"content": "From 3pm."}, a.token(t, host))
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, a.events.sent, 2)
	first := a.events.sent[0].event.(queue.MessageSentEvent)
	assert.Equal(t, guest.ID, first.SenderID)
	assert.Equal(t, host.ID, first.RecipientID)
	second := a.events.sent[1].event.(queue.MessageSentEvent)
	assert.Equal(t, host.ID, second.SenderID)
	assert.Equal(t, guest.ID, second.RecipientID)
}
