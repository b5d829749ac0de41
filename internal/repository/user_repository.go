package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/staybook/staybook/internal/model"
)

// ErrEmailExists is returned by Create when the email or phone is already
// registered.
var ErrEmailExists = errors.New("email already exists")

// ErrUnknownProvider is returned for OAuth provider names without a column.
var ErrUnknownProvider = errors.New("unknown identity provider")

// providerColumns maps an OAuth provider to its unique id column.
var providerColumns = map[string]string{
	"google":   "google_id",
	"facebook": "facebook_id",
	"apple":    "apple_id",
}

const userColumns = "id, name, email, phone, password_hash, role, google_id, facebook_id, apple_id, avatar, created_at, updated_at"

// UserRepo persists users.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u and populates its ID and timestamps.  Email is stored
// lower-cased.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = model.RoleGuest
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, phone, password_hash, role, google_id, facebook_id, apple_id, avatar)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		u.Name, nullString(u.Email), nullString(u.Phone), nullString(u.PasswordHash), u.Role,
		nullString(u.GoogleID), nullString(u.FacebookID), nullString(u.AppleID), u.Avatar)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
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
	*u = *created
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByPhone fetches a user by E.164 phone number.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.getOne(ctx, "phone = ?", phone)
}

// GetByProvider fetches the user linked to an OAuth subject.
func (r *UserRepo) GetByProvider(ctx context.Context, provider, subject string) (*model.User, error) {
	col, ok := providerColumns[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return r.getOne(ctx, col+" = ?", subject)
}

// LinkProvider attaches an OAuth subject to an existing user.
func (r *UserRepo) LinkProvider(ctx context.Context, userID uint64, provider, subject string) error {
	col, ok := providerColumns[provider]
	if !ok {
		return ErrUnknownProvider
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET "+col+" = ? WHERE id = ?", subject, userID)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%s already linked: %w", provider, ErrConflict)
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 when the value is unchanged; confirm the row exists.
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// Summaries loads public summaries for the given ids, keyed by id.
func (r *UserRepo) Summaries(ctx context.Context, ids []uint64) (map[uint64]model.UserSummary, error) {
	out := make(map[uint64]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name, avatar FROM users WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s model.UserSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Avatar); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg interface{}) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                                     model.User
		email, phone, hash, google, fb, apple sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &email, &phone, &hash, &u.Role, &google, &fb, &apple,
		&u.Avatar, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Email, u.Phone, u.PasswordHash = email.String, phone.String, hash.String
	u.GoogleID, u.FacebookID, u.AppleID = google.String, fb.String, apple.String
	return &u, nil
}
