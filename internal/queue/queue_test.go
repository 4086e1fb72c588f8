package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/platform/logger"
	"github.com/bobintern/bountybot/internal/telegram"
)

// fakeSender records every attempt and delegates the outcome to fail, keyed by
// chat id and 1-based attempt number.
type fakeSender struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	fail     func(chatID string, attempt int) error
}

func newFakeSender(fail func(chatID string, attempt int) error) *fakeSender {
	if fail == nil {
		fail = func(string, int) error { return nil }
	}
	return &fakeSender{attempts: make(map[string][]time.Time), fail: fail}
}

func (f *fakeSender) record(chatID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[chatID] = append(f.attempts[chatID], time.Now())
	return len(f.attempts[chatID])
}

func (f *fakeSender) attemptCount(chatID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts[chatID])
}

func (f *fakeSender) attemptTimes(chatID string) []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.attempts[chatID]...)
}

func (f *fakeSender) SendText(_ context.Context, chatID, _ string, _ *telegram.SendOptions) error {
	return f.fail(chatID, f.record(chatID))
}

func (f *fakeSender) SendPhoto(_ context.Context, chatID, _ string, _ *telegram.SendOptions) error {
	return f.fail(chatID, f.record(chatID))
}

func (f *fakeSender) SendDocument(_ context.Context, chatID, _ string, _ *telegram.SendOptions) error {
	return f.fail(chatID, f.record(chatID))
}

type fakeEvents struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeEvents) Publish(_ context.Context, subject string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeEvents) bySubject(subject string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

func textPayload(content string) Payload {
	return Payload{Kind: PayloadText, Content: content}
}

func drained(q *Queue) func() bool {
	return func() bool {
		st := q.Status()
		return st.Length == 0 && !st.Draining
	}
}

func TestQueue_DeliversAllEnqueuedMessages(t *testing.T) {
	sender := newFakeSender(nil)
	events := &fakeEvents{}
	q := New(logger.New("error"), sender, events, Options{
		BatchSize:            5,
		RetryDelay:           10 * time.Millisecond,
		MaxRetries:           3,
		BatchProcessingDelay: 5 * time.Millisecond,
	})

	q.EnqueueBulk(context.Background(), []EnqueueRequest{
		{UserID: 1, ChatID: "c1", Payload: textPayload("a")},
		{UserID: 2, ChatID: "c2", Payload: textPayload("b")},
		{UserID: 3, ChatID: "c3", Payload: textPayload("c")},
	})

	require.Eventually(t, drained(q), 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, sender.attemptCount("c1"))
	assert.Equal(t, 1, sender.attemptCount("c2"))
	assert.Equal(t, 1, sender.attemptCount("c3"))
	assert.Equal(t, 3, events.bySubject("notifications.sent"))
}

func TestQueue_BatchingSpreadsAcrossIterations(t *testing.T) {
	delay := 60 * time.Millisecond
	sender := newFakeSender(nil)
	q := New(logger.New("error"), sender, nil, Options{
		BatchSize:            2,
		RetryDelay:           10 * time.Millisecond,
		MaxRetries:           0,
		BatchProcessingDelay: delay,
	})

	q.EnqueueBulk(context.Background(), []EnqueueRequest{
		{UserID: 1, ChatID: "c1", Payload: textPayload("a")},
		{UserID: 2, ChatID: "c2", Payload: textPayload("b")},
		{UserID: 3, ChatID: "c3", Payload: textPayload("c")},
	})

	require.Eventually(t, drained(q), 2*time.Second, 5*time.Millisecond)

	// The third message waits out the inter-batch delay.
	first := sender.attemptTimes("c1")[0]
	third := sender.attemptTimes("c3")[0]
	assert.GreaterOrEqual(t, third.Sub(first), delay)
}

func TestQueue_RetriesWithBackoffThenDrops(t *testing.T) {
	transient := errors.New("connection reset")
	sender := newFakeSender(func(string, int) error { return transient })
	events := &fakeEvents{}
	q := New(logger.New("error"), sender, events, Options{
		BatchSize:            5,
		RetryDelay:           10 * time.Millisecond,
		MaxRetries:           2,
		BatchProcessingDelay: 5 * time.Millisecond,
	})

	q.Enqueue(context.Background(), 1, "c1", textPayload("a"))

	require.Eventually(t, drained(q), 2*time.Second, 5*time.Millisecond)

	// Initial attempt plus MaxRetries retries, then gone for good.
	assert.Equal(t, 3, sender.attemptCount("c1"))
	assert.Equal(t, 1, events.bySubject("notifications.failed"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 3, sender.attemptCount("c1"))

	// Backoff doubles between consecutive attempts.
	times := sender.attemptTimes("c1")
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), 10*time.Millisecond)
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), 20*time.Millisecond)
}

func TestQueue_ThrottleReschedulesWithoutConsumingRetry(t *testing.T) {
	wait := 50 * time.Millisecond
	sender := newFakeSender(func(_ string, attempt int) error {
		if attempt == 1 {
			return &domain.ThrottledError{RetryAfter: wait}
		}
		return nil
	})
	q := New(logger.New("error"), sender, nil, Options{
		BatchSize:            5,
		RetryDelay:           time.Second, // would show up in timings if a retry were consumed
		MaxRetries:           0,
		BatchProcessingDelay: 5 * time.Millisecond,
	})

	q.Enqueue(context.Background(), 1, "c1", textPayload("a"))

	require.Eventually(t, drained(q), 2*time.Second, 5*time.Millisecond)

	times := sender.attemptTimes("c1")
	require.Len(t, times, 2)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), wait)
}

func TestQueue_BlockedRecipientDroppedOthersDelivered(t *testing.T) {
	sender := newFakeSender(func(chatID string, _ int) error {
		if chatID == "blocked" {
			return &domain.RecipientBlockedError{ChatID: chatID}
		}
		return nil
	})
	events := &fakeEvents{}
	q := New(logger.New("error"), sender, events, Options{
		BatchSize:            5,
		RetryDelay:           10 * time.Millisecond,
		MaxRetries:           3,
		BatchProcessingDelay: 5 * time.Millisecond,
	})

	q.EnqueueBulk(context.Background(), []EnqueueRequest{
		{UserID: 1, ChatID: "c1", Payload: textPayload("a")},
		{UserID: 2, ChatID: "blocked", Payload: textPayload("b")},
		{UserID: 3, ChatID: "c3", Payload: textPayload("c")},
	})

	require.Eventually(t, drained(q), 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, sender.attemptCount("c1"))
	assert.Equal(t, 1, sender.attemptCount("c3"))
	// Blocked recipient gets exactly one attempt, no retries.
	assert.Equal(t, 1, sender.attemptCount("blocked"))
	assert.Equal(t, 2, events.bySubject("notifications.sent"))
	assert.Equal(t, 1, events.bySubject("notifications.failed"))
}

func TestQueue_StatusReportsPendingAndNextSchedule(t *testing.T) {
	sender := newFakeSender(func(string, int) error {
		return &domain.ThrottledError{RetryAfter: time.Minute}
	})
	q := New(logger.New("error"), sender, nil, Options{
		BatchSize:            5,
		RetryDelay:           10 * time.Millisecond,
		MaxRetries:           3,
		BatchProcessingDelay: 10 * time.Millisecond,
	})

	q.Enqueue(context.Background(), 1, "c1", textPayload("a"))

	// After the first throttled attempt the message sits far in the future.
	require.Eventually(t, func() bool {
		st := q.Status()
		return st.Length == 1 && st.NextScheduledAt != nil
	}, 2*time.Second, 5*time.Millisecond)

	st := q.Status()
	assert.True(t, st.Draining)
	assert.True(t, st.NextScheduledAt.After(time.Now().Add(30*time.Second)))

	assert.Equal(t, 1, q.Clear())
	require.Eventually(t, drained(q), 2*time.Second, 5*time.Millisecond)
}

func TestQueue_EnqueueAfterDrainRestartsLoop(t *testing.T) {
	sender := newFakeSender(nil)
	q := New(logger.New("error"), sender, nil, Options{
		BatchSize:            5,
		RetryDelay:           10 * time.Millisecond,
		MaxRetries:           0,
		BatchProcessingDelay: 5 * time.Millisecond,
	})

	q.Enqueue(context.Background(), 1, "c1", textPayload("a"))
	require.Eventually(t, drained(q), 2*time.Second, 5*time.Millisecond)

	q.Enqueue(context.Background(), 1, "c1", textPayload("b"))
	require.Eventually(t, drained(q), 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, sender.attemptCount("c1"))
}
