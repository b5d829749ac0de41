package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/staybook/staybook/internal/middleware"
	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/repository"
)

// ConversationHandler serves the inbox, listing threads and direct
// messages.  Every thread has exactly two participants, a guest and a host.
type ConversationHandler struct {
	Conversations ConversationStore
	Listings      ListingStore
	Users         UserStore
	Messenger     *Messenger
}

func NewConversationHandler(convs ConversationStore, listings ListingStore, users UserStore, messenger *Messenger) *ConversationHandler {
	return &ConversationHandler{Conversations: convs, Listings: listings, Users: users, Messenger: messenger}
}

type startConversationReq struct {
	Receiver uint64  `json:"receiver" validate:"required"`
	Listing  *uint64 `json:"listing" validate:"omitempty,gt=0"`
	Content  string  `json:"content" validate:"required,notblank,max=5000"`
}

type sendReq struct {
	Content string `json:"content" validate:"required,notblank,max=5000"`
}

type directReq struct {
	Receiver uint64 `json:"receiver" validate:"required"`
	Content  string `json:"content" validate:"required,notblank,max=5000"`
}

type thread struct {
	Conversation *model.Conversation `json:"conversation"`
	Messages     []model.Message     `json:"messages"`
}

// List handles GET /api/conversations.
func (h *ConversationHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	list, err := h.Conversations.ListForUser(ctx, uid)
	if err != nil {
		return serverError(c, "list conversations failed", err)
	}
	return c.JSON(http.StatusOK, list)
}

// Unread handles GET /api/conversations/unread.
func (h *ConversationHandler) Unread(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	n, err := h.Conversations.UnreadCount(ctx, uid)
	if err != nil {
		return serverError(c, "count unread failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

// Start handles POST /api/conversations.  With a listing, one side must be
// the listing's host; without one the thread is a direct conversation.
func (h *ConversationHandler) Start(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req startConversationReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if req.Receiver == uid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot message yourself"})
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	var guest, host uint64
	if req.Listing != nil {
		l, err := h.Listings.GetByID(ctx, *req.Listing)
		if err != nil {
			return storeError(c, "load listing failed", err)
		}
		switch l.HostID {
		case req.Receiver:
			guest, host = uid, req.Receiver
		case uid:
			guest, host = req.Receiver, uid
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "receiver does not host this listing"})
		}
		if _, err := h.Users.GetByID(ctx, guest); err != nil {
			return storeError(c, "load user failed", err)
		}
	} else {
		receiver, err := h.Users.GetByID(ctx, req.Receiver)
		if err != nil {
			return storeError(c, "load user failed", err)
		}
		guest, host = directPair(uid, middleware.Role(c), receiver.ID, receiver.Role)
	}

	conv, err := h.Conversations.FindOrCreate(ctx, req.Listing, guest, host)
	if err != nil {
		return serverError(c, "open conversation failed", err)
	}
	msg, err := h.Messenger.Send(ctx, conv, uid, req.Content)
	if err != nil {
		return serverError(c, "send message failed", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"conversation": conv, "message": msg})
}

// participantConversation loads :id and checks the caller takes part.  On
// failure the response has already been written.
func (h *ConversationHandler) participantConversation(c echo.Context, uid uint64) (*model.Conversation, bool, error) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conversation id"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	conv, err := h.Conversations.GetByID(ctx, id)
	if err == nil && !conv.HasParticipant(uid) {
		err = repository.ErrForbidden
	}
	if err != nil {
		return nil, false, storeError(c, "load conversation failed", err)
	}
	return conv, true, nil
}

// Show handles GET /api/conversations/:id and marks the other party's
// messages read.
func (h *ConversationHandler) Show(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	conv, ok, err := h.participantConversation(c, uid)
	if !ok {
		return err
	}
	msgs, err := h.readThread(c, conv.ID, uid)
	if err != nil {
		return serverError(c, "load messages failed", err)
	}
	return c.JSON(http.StatusOK, thread{Conversation: conv, Messages: msgs})
}

// Send handles POST /api/conversations/:id/messages.
func (h *ConversationHandler) Send(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req sendReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	conv, ok, err := h.participantConversation(c, uid)
	if !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	msg, err := h.Messenger.Send(ctx, conv, uid, req.Content)
	if err != nil {
		return serverError(c, "send message failed", err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// ForListing handles GET /api/conversations/listing/:id: the caller's
// thread with the host of the listing, or an empty list.
func (h *ConversationHandler) ForListing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	l, ok, err := h.listing(c)
	if !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	conv, err := h.Conversations.Find(ctx, &l.ID, uid, l.HostID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return c.JSON(http.StatusOK, []model.Message{})
		}
		return serverError(c, "load conversation failed", err)
	}
	msgs, err := h.readThread(c, conv.ID, uid)
	if err != nil {
		return serverError(c, "load messages failed", err)
	}
	return c.JSON(http.StatusOK, msgs)
}

// SendToListing handles POST /api/conversations/listing/:id.  Hosts cannot
// open a thread about their own listing.
func (h *ConversationHandler) SendToListing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req sendReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	l, ok, err := h.listing(c)
	if !ok {
		return err
	}
	if l.HostID == uid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot message your own listing"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	conv, err := h.Conversations.FindOrCreate(ctx, &l.ID, uid, l.HostID)
	if err != nil {
		return serverError(c, "open conversation failed", err)
	}
	msg, err := h.Messenger.Send(ctx, conv, uid, req.Content)
	if err != nil {
		return serverError(c, "send message failed", err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// Direct handles GET /api/messages?with=<userId>.
func (h *ConversationHandler) Direct(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	other, err := strconv.ParseUint(c.QueryParam("with"), 10, 64)
	if err != nil || other == 0 || other == uid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid with parameter"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, other)
	if err != nil {
		return storeError(c, "load user failed", err)
	}
	guest, host := directPair(uid, middleware.Role(c), u.ID, u.Role)
	conv, err := h.Conversations.Find(ctx, nil, guest, host)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return c.JSON(http.StatusOK, []model.Message{})
		}
		return serverError(c, "load conversation failed", err)
	}
	msgs, err := h.readThread(c, conv.ID, uid)
	if err != nil {
		return serverError(c, "load messages failed", err)
	}
	return c.JSON(http.StatusOK, msgs)
}

// SendDirect handles POST /api/messages.
func (h *ConversationHandler) SendDirect(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req directReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if req.Receiver == uid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot message yourself"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, req.Receiver)
	if err != nil {
		return storeError(c, "load user failed", err)
	}
	guest, host := directPair(uid, middleware.Role(c), u.ID, u.Role)
	conv, err := h.Conversations.FindOrCreate(ctx, nil, guest, host)
	if err != nil {
		return serverError(c, "open conversation failed", err)
	}
	msg, err := h.Messenger.Send(ctx, conv, uid, req.Content)
	if err != nil {
		return serverError(c, "send message failed", err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *ConversationHandler) readThread(c echo.Context, convID, reader uint64) ([]model.Message, error) {
	ctx, cancel := dbContext(c)
	defer cancel()
	if _, err := h.Conversations.MarkRead(ctx, convID, reader); err != nil {
		return nil, err
	}
	return h.Conversations.ListMessages(ctx, convID)
}

func (h *ConversationHandler) listing(c echo.Context) (*model.Listing, bool, error) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	l, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		return nil, false, storeError(c, "load listing failed", err)
	}
	return l, true, nil
}

// directPair decides who is guest and who is host in a listing-less
// thread.  When exactly one side has the host role it is the host;
// otherwise the higher id is, so both directions resolve to one thread.
func directPair(a uint64, aRole string, b uint64, bRole string) (guest, host uint64) {
	aHost, bHost := aRole == model.RoleHost, bRole == model.RoleHost
	switch {
	case aHost && !bHost:
		return b, a
	case bHost && !aHost:
		return a, b
	case a < b:
		return a, b
	default:
		return b, a
	}
}
