package gmail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/ajramos/gmail-autoreply/internal/message"
	"github.com/ajramos/gmail-autoreply/internal/rate"
)

const (
	labelInbox  = "INBOX"
	labelUnread = "UNREAD"

	defaultUser            = "me"
	defaultBreakerFailures = 5
)

// MailboxError reports a failed mailbox call. Reason is a short,
// log-friendly description (HTTP status, breaker state, ...).
type MailboxError struct {
	Op        string
	MessageID string
	Reason    string
	Err       error
}

func (e *MailboxError) Error() string {
	if e.MessageID != "" {
		return fmt.Sprintf("gmail %s %s: %s", e.Op, e.MessageID, e.Reason)
	}
	return fmt.Sprintf("gmail %s: %s", e.Op, e.Reason)
}

func (e *MailboxError) Unwrap() error { return e.Err }

// Options tunes the client's outbound behavior
type Options struct {
	// User is the Gmail user id, "me" when empty
	User string
	// Limiter gates every API call; nil means unlimited
	Limiter rate.Limiter
	// BreakerFailures is the number of consecutive server-side failures that opens the breaker
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open before probing again
	BreakerTimeout time.Duration
	Logger         zerolog.Logger
}

// Client wraps the gmail.Service and exposes the mailbox operations used by the reply run
type Client struct {
	Service *gmail.Service

	user    string
	limiter rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewClient creates a new Gmail client
func NewClient(service *gmail.Service, opts Options) *Client {
	user := opts.User
	if user == "" {
		user = defaultUser
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.Unlimited{}
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	timeout := opts.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		Service: service,
		user:    user,
		limiter: limiter,
		logger:  opts.Logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "gmail-api",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return c
}

// ListUnread returns up to maxResults ids of unread inbox messages, in provider order
func (c *Client) ListUnread(ctx context.Context, maxResults int) ([]string, error) {
	var res *gmail.ListMessagesResponse
	err := c.execute(ctx, func() error {
		call := c.Service.Users.Messages.List(c.user).LabelIds(labelInbox, labelUnread)
		if maxResults > 0 {
			call = call.MaxResults(int64(maxResults))
		}
		var apiErr error
		res, apiErr = call.Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, newMailboxError("list", "", err)
	}

	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		if m == nil || m.Id == "" {
			continue
		}
		ids = append(ids, m.Id)
		if maxResults > 0 && len(ids) == maxResults {
			break
		}
	}
	return ids, nil
}

// FetchFull retrieves a message with its complete payload tree
func (c *Client) FetchFull(ctx context.Context, id string) (*message.Message, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &MailboxError{Op: "get", Reason: "empty message id", Err: errors.New("empty message id")}
	}
	var msg *gmail.Message
	err := c.execute(ctx, func() error {
		var apiErr error
		msg, apiErr = c.Service.Users.Messages.Get(c.user, id).Format("full").Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, newMailboxError("get", id, err)
	}
	return toMessage(msg), nil
}

// Send transmits an encoded reply and returns the id Gmail assigned to it
func (c *Client) Send(ctx context.Context, reply *message.OutgoingReply) (string, error) {
	if reply == nil || reply.Raw == "" {
		return "", &MailboxError{Op: "send", Reason: "empty reply payload", Err: errors.New("empty reply payload")}
	}
	var sent *gmail.Message
	err := c.execute(ctx, func() error {
		var apiErr error
		sent, apiErr = c.Service.Users.Messages.Send(c.user, &gmail.Message{Raw: reply.Raw}).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return "", newMailboxError("send", "", err)
	}
	return sent.Id, nil
}

// MarkRead removes the UNREAD label from a message
func (c *Client) MarkRead(ctx context.Context, id string) error {
	req := &gmail.ModifyMessageRequest{RemoveLabelIds: []string{labelUnread}}
	err := c.execute(ctx, func() error {
		_, apiErr := c.Service.Users.Messages.Modify(c.user, id, req).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return newMailboxError("modify", id, err)
	}
	return nil
}

// BreakerState exposes the circuit breaker state for logging
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// execute runs fn behind the rate limiter and the circuit breaker.
func (c *Client) execute(ctx context.Context, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// isClientError reports 4xx responses other than 429. The breaker treats them as successes.
func isClientError(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != 429
}

func newMailboxError(op, id string, err error) *MailboxError {
	return &MailboxError{Op: op, MessageID: id, Reason: reason(err), Err: err}
}

func reason(err error) string {
	var apiErr *googleapi.Error
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return fmt.Sprintf("%d %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Sprintf("status %d", apiErr.Code)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit open: " + err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled: " + err.Error()
	default:
		return err.Error()
	}
}

func toMessage(m *gmail.Message) *message.Message {
	if m == nil {
		return &message.Message{}
	}
	return &message.Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		LabelIDs: append([]string(nil), m.LabelIds...),
		Snippet:  m.Snippet,
		Payload:  toPart(m.Payload),
	}
}

func toPart(p *gmail.MessagePart) *message.Part {
	if p == nil {
		return nil
	}
	part := &message.Part{
		MimeType: p.MimeType,
		Filename: p.Filename,
	}
	for _, h := range p.Headers {
		if h == nil {
			continue
		}
		part.Headers = append(part.Headers, message.Header{Name: h.Name, Value: h.Value})
	}
	if p.Body != nil {
		part.Data = p.Body.Data
	}
	for _, sub := range p.Parts {
		if child := toPart(sub); child != nil {
			part.Parts = append(part.Parts, child)
		}
	}
	return part
}
