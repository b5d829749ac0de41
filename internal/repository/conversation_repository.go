package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/staybook/staybook/internal/model"
)

// ConversationRepo stores guest/host threads and their messages.  One
// thread exists per (listing, guest, host); direct messages use a NULL
// listing.
type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo { return &ConversationRepo{db: db} }

const conversationColumns = "c.id, c.listing_id, c.guest_id, c.host_id, c.created_at, c.updated_at"

// FindOrCreate returns the thread for the triple, creating it when absent.
// The upsert relies on the unique key so concurrent first messages converge
// on one row.
func (r *ConversationRepo) FindOrCreate(ctx context.Context, listingID *uint64, guestID, hostID uint64) (*model.Conversation, error) {
	const q = `INSERT INTO conversations (listing_id, guest_id, host_id) VALUES (?,?,?)
		ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`
	res, err := r.db.ExecContext(ctx, q, nullUint(listingID), guestID, hostID)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Find returns the existing thread for the triple or
// ErrConversationNotFound.
func (r *ConversationRepo) Find(ctx context.Context, listingID *uint64, guestID, hostID uint64) (*model.Conversation, error) {
	q := "SELECT " + conversationColumns + " FROM conversations c WHERE c.listing_key = ? AND c.guest_id = ? AND c.host_id = ?"
	var key uint64
	if listingID != nil {
		key = *listingID
	}
	c, err := scanConversation(r.db.QueryRowContext(ctx, q, key, guestID, hostID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	return c, err
}

// GetByID fetches a thread by id.
func (r *ConversationRepo) GetByID(ctx context.Context, id uint64) (*model.Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx, "SELECT "+conversationColumns+" FROM conversations c WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	return c, err
}

// AddMessage appends m to its conversation and bumps the thread's
// updated_at so inbox ordering follows activity.
func (r *ConversationRepo) AddMessage(ctx context.Context, m *model.Message) error {
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
	res, err := tx.ExecContext(ctx,
		"INSERT INTO messages (conversation_id, sender_id, content, automated) VALUES (?,?,?,?)",
		m.ConversationID, m.SenderID, m.Content, m.Automated)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE conversations SET updated_at = UTC_TIMESTAMP() WHERE id = ?", m.ConversationID); err != nil {
		return err
	}
	if err := tx.QueryRowContext(ctx, "SELECT created_at FROM messages WHERE id = ?", id).Scan(&m.CreatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	m.ID = uint64(id)
	return nil
}

// ListMessages returns the messages of a thread in send order.
func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID uint64) ([]model.Message, error) {
	const q = `SELECT id, conversation_id, sender_id, content, automated, read_at, created_at
		FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Message{}
	for rows.Next() {
		var (
			m      model.Message
			readAt sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Automated, &readAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			t := readAt.Time
			m.ReadAt = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead flags every unread message in the thread that readerID did not
// send, returning how many were updated.
func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID, readerID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE messages SET read_at = UTC_TIMESTAMP() WHERE conversation_id = ? AND sender_id <> ? AND read_at IS NULL",
		conversationID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UnreadCount counts unread messages addressed to userID across all of
// their threads.
func (r *ConversationRepo) UnreadCount(ctx context.Context, userID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.guest_id = ? OR c.host_id = ?) AND m.sender_id <> ? AND m.read_at IS NULL`
	var n int
	err := r.db.QueryRowContext(ctx, q, userID, userID, userID).Scan(&n)
	return n, err
}

// HasMessageSince reports whether senderID wrote in the thread after since.
// The auto-reply job uses it to stay quiet once the host has answered.
func (r *ConversationRepo) HasMessageSince(ctx context.Context, conversationID, senderID uint64, since time.Time) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM messages WHERE conversation_id = ? AND sender_id = ? AND created_at > ?)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, conversationID, senderID, since.UTC()).Scan(&ok)
	return ok, err
}

// ListForUser builds the inbox of userID: every thread with the other
// participant, the listing (if any), the latest message and the unread
// count, most recently active first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID uint64) ([]model.ConversationSummary, error) {
	const q = `SELECT ` + conversationColumns + `,
			u.id, u.name, u.avatar,
			l.name, l.location, l.price, l.images,
			m.id, m.sender_id, m.content, m.automated, m.read_at, m.created_at,
			(SELECT COUNT(*) FROM messages um
				WHERE um.conversation_id = c.id AND um.sender_id <> ? AND um.read_at IS NULL) AS unread
		FROM conversations c
		JOIN users u ON u.id = IF(c.guest_id = ?, c.host_id, c.guest_id)
		LEFT JOIN listings l ON l.id = c.listing_id
		LEFT JOIN messages m ON m.id = (
			SELECT mm.id FROM messages mm WHERE mm.conversation_id = c.id
			ORDER BY mm.created_at DESC, mm.id DESC LIMIT 1)
		WHERE c.guest_id = ? OR c.host_id = ?
		ORDER BY c.updated_at DESC, c.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ConversationSummary{}
	for rows.Next() {
		var (
			s                   model.ConversationSummary
			listingID           sql.NullInt64
			lName, lLocation    sql.NullString
			lPrice              sql.NullFloat64
			lImages             []byte
			mID, mSender        sql.NullInt64
			mContent            sql.NullString
			mAutomated          sql.NullBool
			mReadAt, mCreatedAt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &listingID, &s.GuestID, &s.HostID, &s.CreatedAt, &s.UpdatedAt,
			&s.With.ID, &s.With.Name, &s.With.Avatar,
			&lName, &lLocation, &lPrice, &lImages,
			&mID, &mSender, &mContent, &mAutomated, &mReadAt, &mCreatedAt,
			&s.Unread); err != nil {
			return nil, err
		}
		s.ListingID = uintPtr(listingID)
		if s.ListingID != nil && lName.Valid {
			ls := model.ListingSummary{ID: *s.ListingID, Name: lName.String, Location: lLocation.String, Price: lPrice.Float64}
			if imgs := jsonStrings(lImages); len(imgs) > 0 {
				ls.Image = imgs[0]
			}
			s.Listing = &ls
		}
		if mID.Valid {
			m := model.Message{
				ID:             uint64(mID.Int64),
				ConversationID: s.ID,
				SenderID:       uint64(mSender.Int64),
				Content:        mContent.String,
				Automated:      mAutomated.Bool,
				CreatedAt:      mCreatedAt.Time,
			}
			if mReadAt.Valid {
				t := mReadAt.Time
				m.ReadAt = &t
			}
			s.LastMessage = &m
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanConversation(row rowScanner) (*model.Conversation, error) {
	var (
		c         model.Conversation
		listingID sql.NullInt64
	)
	if err := row.Scan(&c.ID, &listingID, &c.GuestID, &c.HostID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ListingID = uintPtr(listingID)
	return &c, nil
}
