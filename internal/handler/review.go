package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/repository"
)

// ReviewHandler writes and reads reviews of listings and hosts.
type ReviewHandler struct {
	Reviews  ReviewStore
	Listings ListingStore
	Users    UserStore
}

func NewReviewHandler(reviews ReviewStore, listings ListingStore, users UserStore) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews, Listings: listings, Users: users}
}

// A review targets either a listing or a host, never both.
type createReviewReq struct {
	Listing *uint64 `json:"listing" validate:"omitempty,gt=0"`
	Host    *uint64 `json:"host" validate:"omitempty,gt=0"`
	Rating  int     `json:"rating" validate:"min=1,max=5"`
	Text    string  `json:"text" validate:"max=5000"`
}

// Create handles POST /api/reviews.
func (h *ReviewHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReviewReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if (req.Listing == nil) == (req.Host == nil) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "exactly one of listing or host is required"})
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if req.Listing != nil {
		if _, err := h.Listings.GetByID(ctx, *req.Listing); err != nil {
			if errors.Is(err, repository.ErrListingNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
			}
			return serverError(c, "load listing failed", err)
		}
	} else {
		if *req.Host == uid {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot review yourself"})
		}
		if _, err := h.Users.GetByID(ctx, *req.Host); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "host not found"})
			}
			return serverError(c, "load host failed", err)
		}
	}

	rv := &model.Review{
		ListingID: req.Listing,
		HostID:    req.Host,
		UserID:    uid,
		Rating:    req.Rating,
		Text:      strings.TrimSpace(req.Text),
	}
	if err := h.Reviews.Create(ctx, rv); err != nil {
		return serverError(c, "create review failed", err)
	}
	return c.JSON(http.StatusCreated, rv)
}

type reviewList struct {
	Reviews     []model.Review `json:"reviews"`
	Rating      float64        `json:"rating"`
	ReviewCount int            `json:"reviewCount"`
}

// List handles GET /api/reviews?listing= or ?host=.
func (h *ReviewHandler) List(c echo.Context) error {
	listingParam, hostParam := c.QueryParam("listing"), c.QueryParam("host")
	if (listingParam == "") == (hostParam == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "exactly one of listing or host is required"})
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	var (
		reviews []model.Review
		err     error
	)
	if listingParam != "" {
		id, perr := strconv.ParseUint(listingParam, 10, 64)
		if perr != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
		}
		reviews, err = h.Reviews.ListByListing(ctx, id)
	} else {
		id, perr := strconv.ParseUint(hostParam, 10, 64)
		if perr != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid host id"})
		}
		reviews, err = h.Reviews.ListByHost(ctx, id)
	}
	if err != nil {
		return serverError(c, "list reviews failed", err)
	}
	stats := repository.Stats(reviews)
	return c.JSON(http.StatusOK, reviewList{Reviews: reviews, Rating: stats.Rating, ReviewCount: stats.ReviewCount})
}
