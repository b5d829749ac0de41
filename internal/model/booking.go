package model

import "time"

// Booking statuses.  A booking is confirmed on creation and may only move
// to cancelled.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// DateLayout is the wire and storage format of booking dates.
const DateLayout = "2006-01-02"

// Booking reserves a listing for the half-open night range
// [StartDate, EndDate).  TotalPrice is nights × listing price at the
// time of booking.
type Booking struct {
	ID         uint64          `json:"id"`
	ListingID  uint64          `json:"listing"`
	GuestID    uint64          `json:"guest"`
	HostID     uint64          `json:"host"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    time.Time       `json:"endDate"`
	Guests     int             `json:"guests"`
	TotalPrice float64         `json:"totalPrice"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	Listing    *ListingSummary `json:"listingInfo,omitempty"`
}

// Nights returns the number of nights between start and end.
func Nights(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

// DateRange is a booked span of a listing, used to disable calendar days.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}
