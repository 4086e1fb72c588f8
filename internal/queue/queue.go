// Package queue implements the rate-limited outbound delivery queue. Messages
// are drained in batches by a single background loop; failed sends are retried
// with exponential backoff, throttled sends are rescheduled without consuming
// a retry, and blocked recipients are dropped.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/telegram"
)

// Sender delivers a single message payload. *telegram.Client satisfies it.
type Sender interface {
	SendText(ctx context.Context, chatID string, text string, opts *telegram.SendOptions) error
	SendPhoto(ctx context.Context, chatID string, photo string, opts *telegram.SendOptions) error
	SendDocument(ctx context.Context, chatID string, document string, opts *telegram.SendOptions) error
}

// EventPublisher receives terminal delivery outcomes. Optional; nil disables
// event publishing. *messagebroker.NATSClient satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

const (
	subjectSent   = "notifications.sent"
	subjectFailed = "notifications.failed"
)

// Options tunes drain behavior. BatchSize messages are dispatched per
// iteration with BatchProcessingDelay between iterations, which bounds
// throughput below the platform rate limit.
type Options struct {
	BatchSize            int
	RetryDelay           time.Duration
	MaxRetries           int
	BatchProcessingDelay time.Duration
}

// Status is a point-in-time observability snapshot.
type Status struct {
	Length          int        `json:"length"`
	Draining        bool       `json:"draining"`
	NextScheduledAt *time.Time `json:"next_scheduled_at,omitempty"`
}

// Queue is an in-process FIFO-with-delay delivery queue. All methods are safe
// for concurrent use. Pending messages are not persisted; a restart loses them.
type Queue struct {
	logger *slog.Logger
	sender Sender
	events EventPublisher
	opts   Options

	mu         sync.Mutex
	messages   []*QueuedMessage
	processing bool
}

func New(logger *slog.Logger, sender Sender, events EventPublisher, opts Options) *Queue {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Queue{
		logger: logger.With("component", "delivery_queue"),
		sender: sender,
		events: events,
		opts:   opts,
	}
}

// Enqueue appends one message and starts the drain loop if it is not running.
// Non-blocking; delivery happens asynchronously.
func (q *Queue) Enqueue(ctx context.Context, userID int64, chatID string, payload Payload) string {
	return q.EnqueueBulk(ctx, []EnqueueRequest{{UserID: userID, ChatID: chatID, Payload: payload}})[0]
}

// EnqueueRequest is one message to be appended by EnqueueBulk.
type EnqueueRequest struct {
	UserID  int64
	ChatID  string
	Payload Payload
}

// EnqueueBulk appends several messages in order and returns their ids.
func (q *Queue) EnqueueBulk(ctx context.Context, reqs []EnqueueRequest) []string {
	now := time.Now()
	ids := make([]string, 0, len(reqs))

	q.mu.Lock()
	for _, req := range reqs {
		m := newQueuedMessage(req.UserID, req.ChatID, req.Payload, q.opts.MaxRetries, now)
		q.messages = append(q.messages, m)
		ids = append(ids, m.ID)
		messagesEnqueuedCounter.WithLabelValues(string(req.Payload.Kind)).Inc()
	}
	queueDepthGauge.Set(float64(len(q.messages)))
	start := !q.processing && len(q.messages) > 0
	if start {
		q.processing = true
	}
	q.mu.Unlock()

	if start {
		go q.drain(context.WithoutCancel(ctx))
	}
	return ids
}

// Status reports queue length, whether a drain loop is active, and the
// earliest not-yet-due schedule time.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := Status{Length: len(q.messages), Draining: q.processing}
	now := time.Now()
	for _, m := range q.messages {
		if m.ScheduledAt.After(now) {
			if st.NextScheduledAt == nil || m.ScheduledAt.Before(*st.NextScheduledAt) {
				t := m.ScheduledAt
				st.NextScheduledAt = &t
			}
		}
	}
	return st
}

// Clear discards all pending messages. Operator/test escape hatch.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.messages)
	q.messages = nil
	queueDepthGauge.Set(0)
	return n
}

// drain runs until the queue empties. Exactly one drain goroutine is active
// at a time, guarded by the processing flag.
func (q *Queue) drain(ctx context.Context) {
	for {
		batch, empty := q.takeBatch()
		if empty {
			return
		}

		if len(batch) > 0 {
			q.dispatchBatch(ctx, batch)
		}

		if q.opts.BatchProcessingDelay > 0 {
			time.Sleep(q.opts.BatchProcessingDelay)
		}
	}
}

// takeBatch removes up to BatchSize messages from the head and partitions out
// the not-yet-due ones, which go back to the front so they keep their place
// once due. Returns empty=true after clearing the processing flag when the
// queue has fully drained.
func (q *Queue) takeBatch() (ready []*QueuedMessage, empty bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) == 0 {
		q.processing = false
		return nil, true
	}

	n := q.opts.BatchSize
	if n > len(q.messages) {
		n = len(q.messages)
	}
	batch := q.messages[:n]
	rest := q.messages[n:]

	now := time.Now()
	var delayed []*QueuedMessage
	for _, m := range batch {
		if m.ScheduledAt.After(now) {
			delayed = append(delayed, m)
		} else {
			ready = append(ready, m)
		}
	}

	q.messages = append(delayed, rest...)
	queueDepthGauge.Set(float64(len(q.messages)))
	return ready, false
}

// dispatchBatch fires all ready sends concurrently and waits for them all.
// No ordering guarantee within the batch.
func (q *Queue) dispatchBatch(ctx context.Context, batch []*QueuedMessage) {
	var wg sync.WaitGroup
	for _, m := range batch {
		wg.Add(1)
		go func(m *QueuedMessage) {
			defer wg.Done()
			q.attempt(ctx, m)
		}(m)
	}
	wg.Wait()
}

func (q *Queue) attempt(ctx context.Context, m *QueuedMessage) {
	start := time.Now()
	err := q.send(ctx, m)
	sendDurationHist.WithLabelValues(string(m.Payload.Kind)).Observe(time.Since(start).Seconds())

	if err == nil {
		messagesSentCounter.WithLabelValues(string(m.Payload.Kind)).Inc()
		q.publishOutcome(ctx, subjectSent, m, "")
		return
	}

	if wait, ok := domain.IsThrottled(err); ok {
		// Server-directed delay does not consume a retry attempt.
		messagesThrottledCounter.Inc()
		q.logger.WarnContext(ctx, "send throttled, rescheduling", "message_id", m.ID, "chat_id", m.ChatID, "retry_after", wait)
		m.ScheduledAt = time.Now().Add(wait)
		q.requeue(m)
		return
	}

	if domain.IsRecipientBlocked(err) {
		messagesDroppedCounter.WithLabelValues("recipient_blocked").Inc()
		q.logger.InfoContext(ctx, "recipient unreachable, dropping message", "message_id", m.ID, "chat_id", m.ChatID)
		q.publishOutcome(ctx, subjectFailed, m, "recipient_blocked")
		return
	}

	m.RetryCount++
	if m.RetryCount > m.MaxRetries {
		messagesDroppedCounter.WithLabelValues("retries_exhausted").Inc()
		q.logger.ErrorContext(ctx, "retries exhausted, dropping message", "message_id", m.ID, "chat_id", m.ChatID, "retries", m.RetryCount-1, "error", err)
		q.publishOutcome(ctx, subjectFailed, m, "retries_exhausted")
		return
	}

	backoff := time.Duration(float64(q.opts.RetryDelay) * math.Pow(2, float64(m.RetryCount-1)))
	messagesRetriedCounter.Inc()
	q.logger.WarnContext(ctx, "send failed, retrying with backoff", "message_id", m.ID, "chat_id", m.ChatID, "retry", m.RetryCount, "backoff", backoff, "error", err)
	m.ScheduledAt = time.Now().Add(backoff)
	q.requeue(m)
}

func (q *Queue) send(ctx context.Context, m *QueuedMessage) error {
	switch m.Payload.Kind {
	case PayloadPhoto:
		return q.sender.SendPhoto(ctx, m.ChatID, m.Payload.Content, m.Payload.Options)
	case PayloadDocument:
		return q.sender.SendDocument(ctx, m.ChatID, m.Payload.Content, m.Payload.Options)
	default:
		return q.sender.SendText(ctx, m.ChatID, m.Payload.Content, m.Payload.Options)
	}
}

func (q *Queue) requeue(m *QueuedMessage) {
	q.mu.Lock()
	q.messages = append(q.messages, m)
	queueDepthGauge.Set(float64(len(q.messages)))
	q.mu.Unlock()
}

type deliveryEvent struct {
	MessageID string `json:"message_id"`
	UserID    int64  `json:"user_id"`
	ChatID    string `json:"chat_id"`
	Kind      string `json:"kind"`
	Reason    string `json:"reason,omitempty"`
	At        string `json:"at"`
}

func (q *Queue) publishOutcome(ctx context.Context, subject string, m *QueuedMessage, reason string) {
	if q.events == nil {
		return
	}
	data, err := json.Marshal(deliveryEvent{
		MessageID: m.ID,
		UserID:    m.UserID,
		ChatID:    m.ChatID,
		Kind:      string(m.Payload.Kind),
		Reason:    reason,
		At:        time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := q.events.Publish(ctx, subject, data); err != nil {
		q.logger.WarnContext(ctx, "failed to publish delivery event", "subject", subject, "message_id", m.ID, "error", err)
	}
}
