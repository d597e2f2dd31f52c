package services

import (
	"context"

	"github.com/ajramos/gmail-autoreply/internal/db"
	"github.com/ajramos/gmail-autoreply/internal/llm"
	"github.com/ajramos/gmail-autoreply/internal/message"
)

// MailboxClient is the slice of the Gmail API a reply run needs
type MailboxClient interface {
	ListUnread(ctx context.Context, maxResults int) ([]string, error)
	FetchFull(ctx context.Context, id string) (*message.Message, error)
	Send(ctx context.Context, reply *message.OutgoingReply) (string, error)
	MarkRead(ctx context.Context, id string) error
}

// CompletionProvider turns a prompt into reply text
type CompletionProvider interface {
	Name() string
	Complete(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// ReplyJournal records sent replies
type ReplyJournal interface {
	Record(ctx context.Context, r db.SentReply) error
}

var (
	_ CompletionProvider = llm.Provider(nil)
	_ ReplyJournal       = (*db.ReplyStore)(nil)
)
