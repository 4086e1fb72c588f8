package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicateEntry indicates a unique constraint violation.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// ThrottledError is returned by the messaging platform when it rejects a send
// for rate limiting and suggests how long to wait before retrying. Throttled
// sends are rescheduled without consuming a retry attempt.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled by messaging platform, retry after %s", e.RetryAfter)
}

// RecipientBlockedError is returned when the recipient can never be reached
// (the user blocked the bot or deactivated their account). Such sends are
// dropped silently: no retry, no error surfaced beyond a log line.
type RecipientBlockedError struct {
	ChatID string
}

func (e *RecipientBlockedError) Error() string {
	return fmt.Sprintf("recipient %s is unreachable", e.ChatID)
}

// IsThrottled reports whether err carries a throttling signal, and the
// suggested wait if so.
func IsThrottled(err error) (time.Duration, bool) {
	var te *ThrottledError
	if errors.As(err, &te) {
		return te.RetryAfter, true
	}
	return 0, false
}

// IsRecipientBlocked reports whether err is a permanent recipient failure.
func IsRecipientBlocked(err error) bool {
	var be *RecipientBlockedError
	return errors.As(err, &be)
}
