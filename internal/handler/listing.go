package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/repository"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
	suggestLimit    = 10
)

// ListingHandler serves browsing, search suggestions, the detail page and
// host listing creation.
type ListingHandler struct {
	Listings ListingStore
	Reviews  ReviewStore
	Users    UserStore
	Bookings BookingStore
}

func NewListingHandler(listings ListingStore, reviews ReviewStore, users UserStore, bookings BookingStore) *ListingHandler {
	return &ListingHandler{Listings: listings, Reviews: reviews, Users: users, Bookings: bookings}
}

type listingPage struct {
	Data       []model.ListingCard `json:"data"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"totalPages"`
}

// parseListingQuery reads the browse filters.  An empty value means the
// filter is not applied.
func parseListingQuery(c echo.Context) (repository.ListingQuery, string) {
	q := repository.ListingQuery{
		Location: strings.TrimSpace(c.QueryParam("location")),
		SortBy:   c.QueryParam("sortBy"),
		Page:     1,
		Limit:    defaultPageSize,
	}
	switch q.SortBy {
	case "", repository.SortNewest, repository.SortPriceAsc, repository.SortPriceDesc, repository.SortRating:
	default:
		return q, "invalid sortBy"
	}
	var err error
	if v := c.QueryParam("minPrice"); v != "" {
		if q.MinPrice, err = strconv.ParseFloat(v, 64); err != nil || q.MinPrice < 0 {
			return q, "invalid minPrice"
		}
	}
	if v := c.QueryParam("maxPrice"); v != "" {
		if q.MaxPrice, err = strconv.ParseFloat(v, 64); err != nil || q.MaxPrice < 0 {
			return q, "invalid maxPrice"
		}
	}
	if q.MinPrice > 0 && q.MaxPrice > 0 && q.MinPrice > q.MaxPrice {
		return q, "minPrice cannot exceed maxPrice"
	}
	if v := c.QueryParam("page"); v != "" {
		if q.Page, err = strconv.Atoi(v); err != nil || q.Page < 1 {
			return q, "invalid page"
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil || q.Limit < 1 {
			return q, "invalid limit"
		}
		if q.Limit > maxPageSize {
			q.Limit = maxPageSize
		}
	}
	return q, ""
}

// List handles GET /api/listings.
func (h *ListingHandler) List(c echo.Context) error {
	q, msg := parseListingQuery(c)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	cards, total, err := h.Listings.List(ctx, q)
	if err != nil {
		return serverError(c, "list listings failed", err)
	}
	return c.JSON(http.StatusOK, listingPage{
		Data:       cards,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(q.Limit))),
	})
}

// Search handles GET /api/listings/search and returns location
// suggestions for the search box.
func (h *ListingHandler) Search(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	locs, err := h.Listings.SuggestLocations(ctx, c.QueryParam("q"), suggestLimit)
	if err != nil {
		return serverError(c, "search failed", err)
	}
	return c.JSON(http.StatusOK, locs)
}

type listingDetail struct {
	Listing     *model.Listing    `json:"listing"`
	Host        model.UserSummary `json:"host"`
	Reviews     []model.Review    `json:"reviews"`
	Rating      float64           `json:"rating"`
	ReviewCount int               `json:"reviewCount"`
}

// Show handles GET /api/listings/:id.
func (h *ListingHandler) Show(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	l, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return serverError(c, "load listing failed", err)
	}
	hosts, err := h.Users.Summaries(ctx, []uint64{l.HostID})
	if err != nil {
		return serverError(c, "load host failed", err)
	}
	reviews, err := h.Reviews.ListByListing(ctx, id)
	if err != nil {
		return serverError(c, "load reviews failed", err)
	}
	stats := repository.Stats(reviews)
	return c.JSON(http.StatusOK, listingDetail{
		Listing:     l,
		Host:        hosts[l.HostID],
		Reviews:     reviews,
		Rating:      stats.Rating,
		ReviewCount: stats.ReviewCount,
	})
}

// BookedDates handles GET /api/listings/:id/booked-dates.  Past stays are
// left out since the calendar cannot select them anyway.
func (h *ListingHandler) BookedDates(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	if _, err := h.Listings.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return serverError(c, "load listing failed", err)
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	ranges, err := h.Bookings.BookedRanges(ctx, id, today)
	if err != nil {
		return serverError(c, "load booked dates failed", err)
	}
	return c.JSON(http.StatusOK, ranges)
}

type createListingReq struct {
	Name        string   `json:"name" validate:"required,notblank,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Location    string   `json:"location" validate:"required,max=200"`
	Price       float64  `json:"price" validate:"gt=0"`
	Images      []string `json:"images" validate:"dive,url"`
	Amenities   []string `json:"amenities" validate:"dive,required,max=100"`
	Bedrooms    int      `json:"bedrooms" validate:"gte=0"`
	Bathrooms   int      `json:"bathrooms" validate:"gte=0"`
	MaxGuests   int      `json:"maxGuests" validate:"gte=1"`
	Latitude    float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64  `json:"longitude" validate:"gte=-180,lte=180"`
}

// Create handles POST /api/listings for hosts.
func (h *ListingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createListingReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	l := &model.Listing{
		HostID:      uid,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Location:    strings.TrimSpace(req.Location),
		Price:       req.Price,
		Images:      req.Images,
		Amenities:   req.Amenities,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		MaxGuests:   req.MaxGuests,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if l.Images == nil {
		l.Images = []string{}
	}
	if l.Amenities == nil {
		l.Amenities = []string{}
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Listings.Create(ctx, l); err != nil {
		return serverError(c, "create listing failed", err)
	}
	return c.JSON(http.StatusCreated, l)
}
