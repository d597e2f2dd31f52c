package services

import "errors"

// Reasons a message is left without a reply
var (
	// Content errors: the message cannot be answered
	ErrNoContent = errors.New("no content")
	ErrNoSender  = errors.New("no sender")

	// Collaborator errors: the message could have been answered
	ErrFetchFailed      = errors.New("fetch failed")
	ErrCompletionFailed = errors.New("completion failed")
	ErrBuildFailed      = errors.New("build reply failed")
	ErrSendFailed       = errors.New("send failed")

	ErrInterrupted = errors.New("run interrupted")
)

// SkipReason maps a per-message error to the short reason written to the log
func SkipReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoContent):
		return "no_content"
	case errors.Is(err, ErrNoSender):
		return "no_sender"
	case errors.Is(err, ErrFetchFailed):
		return "fetch_failed"
	case errors.Is(err, ErrCompletionFailed):
		return "completion_failed"
	case errors.Is(err, ErrBuildFailed):
		return "build_failed"
	case errors.Is(err, ErrSendFailed):
		return "send_failed"
	case errors.Is(err, ErrInterrupted):
		return "interrupted"
	default:
		return "unknown"
	}
}

// IsFailure reports whether err came from a collaborator rather than from the message itself
func IsFailure(err error) bool {
	return errors.Is(err, ErrFetchFailed) ||
		errors.Is(err, ErrCompletionFailed) ||
		errors.Is(err, ErrBuildFailed) ||
		errors.Is(err, ErrSendFailed)
}
