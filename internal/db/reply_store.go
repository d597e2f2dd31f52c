package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// SentReply is one journal row
type SentReply struct {
	ID        int64  `db:"id"`
	MessageID string `db:"message_id"`
	SentID    string `db:"sent_id"`
	Recipient string `db:"recipient"`
	Subject   string `db:"subject"`
	SentAt    int64  `db:"sent_at"`
}

// Time returns SentAt as a time.Time
func (r SentReply) Time() time.Time {
	return time.Unix(r.SentAt, 0)
}

// ReplyStore records replies that were sent. It is append-only and is
// never read back to decide whether a message needs a reply.
type ReplyStore struct {
	db *sqlx.DB
}

// NewReplyStore creates a reply journal from a base store
func NewReplyStore(store *Store) *ReplyStore {
	if store == nil {
		return nil
	}
	return &ReplyStore{db: store.DB()}
}

// Record appends a sent reply
func (rs *ReplyStore) Record(ctx context.Context, r SentReply) error {
	if rs == nil || rs.db == nil {
		return fmt.Errorf("reply store not initialized")
	}
	if strings.TrimSpace(r.MessageID) == "" || strings.TrimSpace(r.SentID) == "" {
		return fmt.Errorf("invalid reply inputs")
	}
	if r.SentAt == 0 {
		r.SentAt = time.Now().Unix()
	}
	_, err := rs.db.NamedExecContext(ctx, `INSERT INTO sent_replies(message_id, sent_id, recipient, subject, sent_at)
VALUES(:message_id, :sent_id, :recipient, :subject, :sent_at)`, r)
	if err != nil {
		return fmt.Errorf("record reply: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first
func (rs *ReplyStore) Recent(ctx context.Context, limit int) ([]SentReply, error) {
	if rs == nil || rs.db == nil {
		return nil, fmt.Errorf("reply store not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	var out []SentReply
	err := rs.db.SelectContext(ctx, &out, `SELECT id, message_id, sent_id, recipient, subject, sent_at
FROM sent_replies ORDER BY sent_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return out, nil
}
