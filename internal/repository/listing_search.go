package repository

import (
	"context"
	"strings"

	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/utils"
)

// Sort keys accepted by ListingQuery.SortBy.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
)

// ListingQuery defines filters and pagination for browsing listings.  Zero
// MinPrice/MaxPrice mean unbounded.
type ListingQuery struct {
	Location string
	MinPrice float64
	MaxPrice float64
	SortBy   string
	Page     int
	Limit    int
}

// reviewAggregate is joined onto listings so that each card carries the
// live review count and rating sum of its listing.
const reviewAggregate = `LEFT JOIN (
		SELECT listing_id, COUNT(*) AS cnt, SUM(rating) AS total
		FROM reviews WHERE listing_id IS NOT NULL GROUP BY listing_id
	) ra ON ra.listing_id = l.id`

// List returns one page of listing cards matching q together with the total
// number of matching listings.
func (r *ListingRepo) List(ctx context.Context, q ListingQuery) ([]model.ListingCard, int64, error) {
	where := []string{}
	args := []interface{}{}

	if q.Location != "" {
		where = append(where, `LOWER(l.location) LIKE ?`)
		args = append(args, "%"+escapeLike(strings.ToLower(q.Location))+"%")
	}
	if q.MinPrice > 0 {
		where = append(where, "l.price >= ?")
		args = append(args, q.MinPrice)
	}
	if q.MaxPrice > 0 {
		where = append(where, "l.price <= ?")
		args = append(args, q.MaxPrice)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings l WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	var order string
	switch q.SortBy {
	case SortPriceAsc:
		order = "l.price ASC, l.id DESC"
	case SortPriceDesc:
		order = "l.price DESC, l.id DESC"
	case SortRating:
		order = "COALESCE(ra.total / ra.cnt, 0) DESC, l.id DESC"
	default:
		order = "l.created_at DESC, l.id DESC"
	}

	dataSQL := `SELECT ` + listingColumns + `,
			u.id, u.name, u.avatar, COALESCE(ra.cnt, 0), COALESCE(ra.total, 0)
		FROM listings l
		JOIN users u ON u.id = l.host_id
		` + reviewAggregate + `
		WHERE ` + cond + `
		ORDER BY ` + order + `
		LIMIT ? OFFSET ?`
	dataArgs := append(append([]interface{}{}, args...), q.Limit, (q.Page-1)*q.Limit)

	rows, err := r.db.QueryContext(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.ListingCard, 0, q.Limit)
	for rows.Next() {
		var (
			card      model.ListingCard
			ratingSum float64
		)
		l, err := scanListing(rows, &card.Host.ID, &card.Host.Name, &card.Host.Avatar, &card.ReviewCount, &ratingSum)
		if err != nil {
			return nil, 0, err
		}
		card.Listing = *l
		card.Rating = utils.AverageRating(ratingSum, card.ReviewCount)
		out = append(out, card)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SuggestLocations returns up to limit distinct locations containing term,
// matched case-insensitively.
func (r *ListingRepo) SuggestLocations(ctx context.Context, term string, limit int) ([]string, error) {
	out := []string{}
	term = strings.TrimSpace(term)
	if term == "" {
		return out, nil
	}
	const q = `SELECT DISTINCT location FROM listings
		WHERE LOWER(location) LIKE ?
		ORDER BY location ASC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, "%"+escapeLike(strings.ToLower(term))+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE wildcards in user input.
func escapeLike(s string) string { return likeEscaper.Replace(s) }
