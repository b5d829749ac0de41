package repository

import (
	"context"
	"database/sql"

	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/utils"
)

// ReviewRepo persists reviews.  Rating aggregates are never stored; Stats
// derives them from the rows on every read.
type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Create inserts rv.  The caller guarantees that exactly one of ListingID
// and HostID is set; the schema's CHECK constraint rejects anything else.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reviews (listing_id, host_id, user_id, rating, text) VALUES (?,?,?,?,?)",
		nullUint(rv.ListingID), nullUint(rv.HostID), rv.UserID, rv.Rating, rv.Text)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return r.db.QueryRowContext(ctx, "SELECT created_at FROM reviews WHERE id = ?", rv.ID).Scan(&rv.CreatedAt)
}

// ListByListing returns the reviews of a listing with author summaries,
// newest first.
func (r *ReviewRepo) ListByListing(ctx context.Context, listingID uint64) ([]model.Review, error) {
	return r.list(ctx, "rv.listing_id = ?", listingID)
}

// ListByHost returns the reviews left about a host.
func (r *ReviewRepo) ListByHost(ctx context.Context, hostID uint64) ([]model.Review, error) {
	return r.list(ctx, "rv.host_id = ?", hostID)
}

func (r *ReviewRepo) list(ctx context.Context, where string, arg interface{}) ([]model.Review, error) {
	q := `SELECT rv.id, rv.listing_id, rv.host_id, rv.user_id, rv.rating, rv.text, rv.created_at,
			u.id, u.name, u.avatar
		FROM reviews rv
		JOIN users u ON u.id = rv.user_id
		WHERE ` + where + `
		ORDER BY rv.created_at DESC, rv.id DESC`
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		var (
			rv            model.Review
			author        model.UserSummary
			listing, host sql.NullInt64
		)
		if err := rows.Scan(&rv.ID, &listing, &host, &rv.UserID, &rv.Rating, &rv.Text, &rv.CreatedAt,
			&author.ID, &author.Name, &author.Avatar); err != nil {
			return nil, err
		}
		rv.ListingID, rv.HostID = uintPtr(listing), uintPtr(host)
		rv.Author = &author
		out = append(out, rv)
	}
	return out, rows.Err()
}

// Stats computes the review count and mean rating (two decimals, 0 when
// empty) of reviews.
func Stats(reviews []model.Review) model.RatingStats {
	sum := 0.0
	for _, rv := range reviews {
		sum += float64(rv.Rating)
	}
	return model.RatingStats{Rating: utils.AverageRating(sum, len(reviews)), ReviewCount: len(reviews)}
}
