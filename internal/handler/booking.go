package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/queue"
	"github.com/staybook/staybook/internal/repository"
)

// BookingHandler creates and lists stays.
type BookingHandler struct {
	Listings      ListingStore
	Bookings      BookingStore
	Conversations ConversationStore
	Messenger     *Messenger
	Events        EventPublisher
}

func NewBookingHandler(listings ListingStore, bookings BookingStore, convs ConversationStore, messenger *Messenger, events EventPublisher) *BookingHandler {
	return &BookingHandler{Listings: listings, Bookings: bookings, Conversations: convs, Messenger: messenger, Events: events}
}

type createBookingReq struct {
	Listing   uint64 `json:"listing" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Guests    int    `json:"guests" validate:"gte=0"`
	Message   string `json:"message" validate:"max=5000"`
}

// Create handles POST /api/bookings.  The host and the total price come
// from the listing, never from the client.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	start, err := time.Parse(model.DateLayout, req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "startDate must be YYYY-MM-DD"})
	}
	end, err := time.Parse(model.DateLayout, req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "endDate must be YYYY-MM-DD"})
	}
	if !end.After(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "endDate must be after startDate"})
	}
	if start.Before(time.Now().UTC().Truncate(24 * time.Hour)) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "startDate is in the past"})
	}
	guests := req.Guests
	if guests == 0 {
		guests = 1
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	l, err := h.Listings.GetByID(ctx, req.Listing)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return serverError(c, "load listing failed", err)
	}
	if l.HostID == uid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot book your own listing"})
	}
	if l.MaxGuests > 0 && guests > l.MaxGuests {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "too many guests for this listing"})
	}

	nights := model.Nights(start, end)
	b := &model.Booking{
		ListingID:  l.ID,
		GuestID:    uid,
		HostID:     l.HostID,
		StartDate:  start,
		EndDate:    end,
		Guests:     guests,
		TotalPrice: float64(nights) * l.Price,
		Status:     model.BookingConfirmed,
	}
	if err := h.Bookings.Create(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "listing is not available for these dates"})
		case errors.Is(err, repository.ErrListingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return serverError(c, "create booking failed", err)
	}
	summary := l.Summary()
	b.Listing = &summary

	if text := strings.TrimSpace(req.Message); text != "" {
		// The booking is already committed; a failed note is logged only.
		conv, err := h.Conversations.FindOrCreate(ctx, &l.ID, uid, l.HostID)
		if err == nil {
			_, err = h.Messenger.Send(ctx, conv, uid, text)
		}
		if err != nil {
			c.Logger().Errorf("booking %d: store guest message: %v", b.ID, err)
		}
	}

	if h.Events != nil {
		h.Events.PublishAsync(queue.BookingCreatedQueue, queue.BookingCreatedEvent{
			BookingID:   b.ID,
			ListingID:   l.ID,
			ListingName: l.Name,
			GuestID:     uid,
			HostID:      l.HostID,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Nights:      nights,
			Guests:      guests,
			TotalPrice:  b.TotalPrice,
			CreatedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusCreated, b)
}

// List handles GET /api/bookings: the caller's trips as a guest.
func (h *BookingHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	bookings, err := h.Bookings.ListByGuest(ctx, uid)
	if err != nil {
		return serverError(c, "list bookings failed", err)
	}
	return c.JSON(http.StatusOK, bookings)
}

// load fetches the booking named by :id and checks the caller takes part
// in it.  On failure the response has already been written.
func (h *BookingHandler) load(c echo.Context) (*model.Booking, bool, error) {
	uid, err := getUserID(c)
	if err != nil {
		return nil, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	b, err := h.Bookings.GetByID(ctx, id)
	if err == nil && b.GuestID != uid && b.HostID != uid {
		err = repository.ErrForbidden
	}
	if err != nil {
		return nil, false, storeError(c, "load booking failed", err)
	}
	return b, true, nil
}

// Show handles GET /api/bookings/:id for the guest or the host.
func (h *BookingHandler) Show(c echo.Context) error {
	b, ok, err := h.load(c)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles POST /api/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	b, ok, err := h.load(c)
	if !ok {
		return err
	}
	if b.Status != model.BookingCancelled {
		ctx, cancel := dbContext(c)
		defer cancel()
		if err := h.Bookings.Cancel(ctx, b.ID); err != nil {
			return serverError(c, "cancel booking failed", err)
		}
		b.Status = model.BookingCancelled
	}
	return c.JSON(http.StatusOK, b)
}
