package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/staybook/staybook/internal/model"
)

const listingColumns = `l.id, l.host_id, l.name, l.description, l.location, l.price, l.images, l.amenities,
	l.bedrooms, l.bathrooms, l.max_guests, l.latitude, l.longitude, l.created_at, l.updated_at`

// ListingRepo encapsulates queries on the listings table.  Browse and
// suggestion queries live in listing_search.go.
type ListingRepo struct {
	db *sql.DB
}

func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// Create inserts a listing owned by l.HostID and populates ID and
// timestamps.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	images, err := encodeStrings(l.Images)
	if err != nil {
		return err
	}
	amenities, err := encodeStrings(l.Amenities)
	if err != nil {
		return err
	}
	const q = `INSERT INTO listings (host_id, name, description, location, price, images, amenities,
		bedrooms, bathrooms, max_guests, latitude, longitude) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, l.HostID, l.Name, l.Description, l.Location, l.Price, images, amenities,
		l.Bedrooms, l.Bathrooms, l.MaxGuests, l.Latitude, l.Longitude)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*l = *created
	return nil
}

// GetByID fetches one listing.  It returns ErrListingNotFound when no row
// matches.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (*model.Listing, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+listingColumns+" FROM listings l WHERE l.id = ?", id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	return l, err
}

func scanListing(row rowScanner, extra ...interface{}) (*model.Listing, error) {
	var (
		l                 model.Listing
		images, amenities []byte
	)
	dest := []interface{}{&l.ID, &l.HostID, &l.Name, &l.Description, &l.Location, &l.Price, &images, &amenities,
		&l.Bedrooms, &l.Bathrooms, &l.MaxGuests, &l.Latitude, &l.Longitude, &l.CreatedAt, &l.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	l.Images = jsonStrings(images)
	l.Amenities = jsonStrings(amenities)
	return &l, nil
}
