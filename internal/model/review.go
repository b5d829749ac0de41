package model

import "time"

// Review rates either a listing or a host, never both.  Exactly one of
// ListingID and HostID is non-nil.
type Review struct {
	ID        uint64       `json:"id"`
	ListingID *uint64      `json:"listing,omitempty"`
	HostID    *uint64      `json:"host,omitempty"`
	UserID    uint64       `json:"user"`
	Rating    int          `json:"rating"`
	Text      string       `json:"text"`
	CreatedAt time.Time    `json:"createdAt"`
	Author    *UserSummary `json:"author,omitempty"`
}

// RatingStats is an aggregate computed on read from review rows.
type RatingStats struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}
