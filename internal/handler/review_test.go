package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staybook/staybook/internal/model"
)

func TestCreateReviewTargets(t *testing.T) {
	a := newTestAPI(t)
	host, guest, listing := a.seed()
	tok := a.token(t, guest)

	for name, body := range map[string]map[string]interface{}{
		"neither":     {"rating": 4, "text": "ok"},
		"both":        {"listing": listing.ID, "host": host.ID, "rating": 4},
		"rating low":  {"listing": listing.ID, "rating": 0},
		"rating high": {"listing": listing.ID, "rating": 6},
		"self":        {"host": guest.ID, "rating": 5},
	} {
		t.Run(name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/api/reviews", body, tok)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
	assert.Empty(t, a.reviews.rows)

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, "/api/reviews", map[string]interface{}{"listing": 99, "rating": 3}, tok).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, "/api/reviews", map[string]interface{}{"host": 99, "rating": 3}, tok).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodPost, "/api/reviews", map[string]interface{}{"listing": listing.ID, "rating": 3}, "").Code)

	rec := a.do(t, http.MethodPost, "/api/reviews", map[string]interface{}{"listing": listing.ID, "rating": 5, "text": " Lovely "}, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rv model.Review
	decode(t, rec, &rv)
	assert.Equal(t, guest.ID, rv.UserID)
	assert.Equal(t, "Lovely", rv.Text)
	assert.Nil(t, rv.HostID)

	rec = a.do(t, http.MethodPost, "/api/reviews", map[string]interface{}{"host": host.ID, "rating": 2}, tok)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestListReviews(t *testing.T) {
	a := newTestAPI(t)
	host, guest, listing := a.seed()
	tok := a.token(t, guest)
	for _, r := range []int{5, 4, 4} {
		rec := a.do(t, http.MethodPost, "/api/reviews", map[string]interface{}{"listing": listing.ID, "rating": r}, tok)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := a.do(t, http.MethodPost, "/api/reviews", map[string]interface{}{"host": host.ID, "rating": 3}, tok)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Reviews     []model.Review `json:"reviews"`
		Rating      float64        `json:"rating"`
		ReviewCount int            `json:"reviewCount"`
	}
	rec = a.do(t, http.MethodGet, "/api/reviews?listing=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, 3, body.ReviewCount)
	assert.Equal(t, 4.33, body.Rating)

	rec = a.do(t, http.MethodGet, "/api/reviews?host=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, 1, body.ReviewCount)
	assert.Equal(t, 3.0, body.Rating)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/reviews", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/reviews?listing=1&host=1", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/reviews?listing=abc", nil, "").Code)
}
