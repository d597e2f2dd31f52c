package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ajramos/gmail-autoreply/internal/db"
	"github.com/ajramos/gmail-autoreply/internal/llm"
	"github.com/ajramos/gmail-autoreply/internal/message"
)

// ReplyOptions tunes a reply run
type ReplyOptions struct {
	MaxResults int
	// DryRun builds every reply but neither sends it nor marks the message read
	DryRun     bool
	Completion llm.Options
}

// RunReport summarizes one pass over the inbox
type RunReport struct {
	RunID    string
	Listed   int
	Replied  int
	Skipped  int
	Failed   int
	DryRun   int
	Duration time.Duration
	// Interrupted is set when the context was canceled before every listed message was handled
	Interrupted bool
}

// ReplyService answers unread inbox messages with generated replies
type ReplyService struct {
	mailbox  MailboxClient
	provider CompletionProvider
	journal  ReplyJournal
	logger   zerolog.Logger
	opts     ReplyOptions
}

// NewReplyService creates a new reply service
func NewReplyService(mailbox MailboxClient, provider CompletionProvider, logger zerolog.Logger, opts ReplyOptions) *ReplyService {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	if opts.Completion.MaxTokens <= 0 {
		opts.Completion = llm.DefaultOptions()
	}
	return &ReplyService{
		mailbox:  mailbox,
		provider: provider,
		logger:   logger,
		opts:     opts,
	}
}

// WithJournal records every sent reply in j
func (s *ReplyService) WithJournal(j ReplyJournal) *ReplyService {
	s.journal = j
	return s
}

// Run performs one pass: list unread messages, then handle each in order.
// Per-message problems are logged and never abort the run.
func (s *ReplyService) Run(ctx context.Context) RunReport {
	start := time.Now()
	report := RunReport{RunID: uuid.NewString()}
	logger := s.logger.With().Str("run_id", report.RunID).Logger()

	logger.Info().
		Int("max_results", s.opts.MaxResults).
		Bool("dry_run", s.opts.DryRun).
		Str("provider", s.provider.Name()).
		Msg("auto-reply run started")

	ids, err := s.mailbox.ListUnread(ctx, s.opts.MaxResults)
	if err != nil {
		logger.Error().Err(err).Msg("listing unread messages failed")
		ids = nil
	}
	report.Listed = len(ids)

	if len(ids) == 0 {
		logger.Info().Msg("no unread messages")
	}

	for i, id := range ids {
		if ctx.Err() != nil {
			report.Interrupted = true
			logger.Warn().Int("remaining", len(ids)-i).Msg("run interrupted, remaining messages left unread")
			break
		}

		mlog := logger.With().Str("message_id", id).Logger()
		_, err := s.processMessage(ctx, mlog, id)
		switch {
		case err == nil && s.opts.DryRun:
			report.DryRun++
		case err == nil:
			report.Replied++
		case IsFailure(err):
			report.Failed++
			mlog.Error().Err(err).Str("reason", SkipReason(err)).Msg("message skipped")
		default:
			report.Skipped++
			mlog.Info().Err(err).Str("reason", SkipReason(err)).Msg("message skipped")
		}
	}

	report.Duration = time.Since(start)
	logger.Info().
		Int("listed", report.Listed).
		Int("replied", report.Replied).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("dry_run", report.DryRun).
		Bool("interrupted", report.Interrupted).
		Dur("duration", report.Duration).
		Msg("auto-reply run finished")
	return report
}

// processMessage handles one message end to end. It returns the id of the
// sent reply, or "" in dry-run mode.
func (s *ReplyService) processMessage(ctx context.Context, logger zerolog.Logger, id string) (string, error) {
	msg, err := s.mailbox.FetchFull(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	body, err := message.ExtractBody(msg)
	if err != nil {
		// undecodable payloads count as empty
		logger.Warn().Err(err).Msg("message body could not be decoded")
		body = ""
	}
	if strings.TrimSpace(body) == "" {
		return "", ErrNoContent
	}

	completion, err := s.provider.Complete(ctx, BuildPrompt(body), s.opts.Completion)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
	if strings.TrimSpace(completion) == "" {
		return "", fmt.Errorf("%w: %w", ErrCompletionFailed, llm.ErrEmptyCompletion)
	}

	from, ok := message.FirstHeader(msg, "From")
	if !ok {
		return "", ErrNoSender
	}
	to, err := message.SenderAddress(from)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoSender, err)
	}

	subject, _ := message.FirstHeader(msg, "Subject")
	reply, err := message.BuildReply(to, message.ReplySubject(subject), completion)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	if s.opts.DryRun {
		logger.Info().
			Str("to", reply.To).
			Str("subject", reply.Subject).
			Str("body", reply.Body).
			Msg("dry run: reply not sent")
		return "", nil
	}

	sentID, err := s.mailbox.Send(ctx, reply)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	logger.Info().Str("sent_id", sentID).Str("to", reply.To).Msg("reply sent")

	// the reply is out; a mark-read failure is only logged
	if err := s.mailbox.MarkRead(ctx, id); err != nil {
		logger.Error().Err(err).Msg("mark as read failed")
	}

	if s.journal != nil {
		rec := db.SentReply{
			MessageID: id,
			SentID:    sentID,
			Recipient: reply.To,
			Subject:   reply.Subject,
			SentAt:    time.Now().Unix(),
		}
		if err := s.journal.Record(ctx, rec); err != nil {
			logger.Warn().Err(err).Msg("reply journal write failed")
		}
	}
	return sentID, nil
}
