package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/staybook/staybook/internal/model"
)

// ErrBookingOverlap is returned when the requested nights intersect an
// existing confirmed booking of the same listing.
var ErrBookingOverlap = fmt.Errorf("dates unavailable: %w", ErrConflict)

// BookingRepo provides persistence for bookings.  Dates are stored as DATE
// columns and the night range is half-open: a stay ending on a day does not
// block a stay starting that day.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = "b.id, b.listing_id, b.guest_id, b.host_id, b.start_date, b.end_date, b.guests, b.total_price, b.status, b.created_at"

// Create inserts b after verifying, inside one transaction, that no
// confirmed booking of the listing overlaps [StartDate, EndDate).  The
// listing row is locked so concurrent requests for the same listing
// serialize on the check.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM listings WHERE id = ? FOR UPDATE", b.ListingID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrListingNotFound
		}
		return err
	}

	var overlapping int
	const overlapSQL = `SELECT COUNT(*) FROM bookings
		WHERE listing_id = ? AND status = ? AND start_date < ? AND end_date > ?`
	if err := tx.QueryRowContext(ctx, overlapSQL, b.ListingID, model.BookingConfirmed,
		b.EndDate.Format(model.DateLayout), b.StartDate.Format(model.DateLayout)).Scan(&overlapping); err != nil {
		return err
	}
	if overlapping > 0 {
		return ErrBookingOverlap
	}

	if b.Status == "" {
		b.Status = model.BookingConfirmed
	}
	const ins = `INSERT INTO bookings (listing_id, guest_id, host_id, start_date, end_date, guests, total_price, status)
		VALUES (?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, ins, b.ListingID, b.GuestID, b.HostID,
		b.StartDate.Format(model.DateLayout), b.EndDate.Format(model.DateLayout), b.Guests, b.TotalPrice, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.QueryRowContext(ctx, "SELECT created_at FROM bookings WHERE id = ?", id).Scan(&b.CreatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	b.ID = uint64(id)
	return nil
}

// GetByID fetches a booking with its listing summary.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	q := "SELECT " + bookingColumns + ", l.name, l.location, l.price, l.images FROM bookings b JOIN listings l ON l.id = b.listing_id WHERE b.id = ?"
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// ListByGuest returns the bookings made by guestID, newest first.
func (r *BookingRepo) ListByGuest(ctx context.Context, guestID uint64) ([]model.Booking, error) {
	q := "SELECT " + bookingColumns + ", l.name, l.location, l.price, l.images FROM bookings b JOIN listings l ON l.id = b.listing_id WHERE b.guest_id = ? ORDER BY b.created_at DESC, b.id DESC"
	rows, err := r.db.QueryContext(ctx, q, guestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Cancel moves a booking to cancelled.  Cancelling twice is a no-op.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE bookings SET status = ? WHERE id = ?", model.BookingCancelled, id)
	return err
}

// BookedRanges lists confirmed stays of a listing that end on or after
// from, ordered by start date.
func (r *BookingRepo) BookedRanges(ctx context.Context, listingID uint64, from time.Time) ([]model.DateRange, error) {
	const q = `SELECT start_date, end_date FROM bookings
		WHERE listing_id = ? AND status = ? AND end_date >= ?
		ORDER BY start_date ASC`
	rows, err := r.db.QueryContext(ctx, q, listingID, model.BookingConfirmed, from.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.DateRange{}
	for rows.Next() {
		var start, end time.Time
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		out = append(out, model.DateRange{StartDate: start.Format(model.DateLayout), EndDate: end.Format(model.DateLayout)})
	}
	return out, rows.Err()
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b      model.Booking
		s      model.ListingSummary
		images []byte
	)
	if err := row.Scan(&b.ID, &b.ListingID, &b.GuestID, &b.HostID, &b.StartDate, &b.EndDate, &b.Guests,
		&b.TotalPrice, &b.Status, &b.CreatedAt, &s.Name, &s.Location, &s.Price, &images); err != nil {
		return nil, err
	}
	s.ID = b.ListingID
	if imgs := jsonStrings(images); len(imgs) > 0 {
		s.Image = imgs[0]
	}
	b.Listing = &s
	return &b, nil
}
