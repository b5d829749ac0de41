package model

import "time"

// Listing is a bookable property owned by a host.  Images and Amenities
// are persisted as JSON arrays.
type Listing struct {
	ID          uint64    `json:"id"`
	HostID      uint64    `json:"hostId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Price       float64   `json:"price"`
	Images      []string  `json:"images"`
	Amenities   []string  `json:"amenities"`
	Bedrooms    int       `json:"bedrooms"`
	Bathrooms   int       `json:"bathrooms"`
	MaxGuests   int       `json:"maxGuests"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListingCard is a listing row as returned by the browse endpoint: the
// listing itself, its host summary and the rating aggregate.
type ListingCard struct {
	Listing
	Host        UserSummary `json:"host"`
	Rating      float64     `json:"rating"`
	ReviewCount int         `json:"reviewCount"`
}

// ListingSummary is the small listing view embedded in bookings and
// conversations.
type ListingSummary struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Price    float64 `json:"price"`
	Image    string  `json:"image,omitempty"`
}

// Summary returns the embedded view of l, using the first image as cover.
func (l Listing) Summary() ListingSummary {
	s := ListingSummary{ID: l.ID, Name: l.Name, Location: l.Location, Price: l.Price}
	if len(l.Images) > 0 {
		s.Image = l.Images[0]
	}
	return s
}
