package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/bobintern/bountybot/internal/telegram"
)

// PayloadKind selects which send method delivers the message.
type PayloadKind string

const (
	PayloadPhoto    PayloadKind = "photo"
	PayloadText     PayloadKind = "text"
	PayloadDocument PayloadKind = "document"
)

// Payload is the content of an outbound message.
type Payload struct {
	Kind    PayloadKind
	Content string
	Options *telegram.SendOptions
}

// QueuedMessage is one unit of delivery work. It lives only in the queue's
// working memory; a process restart loses pending messages.
type QueuedMessage struct {
	ID          string
	UserID      int64
	ChatID      string
	Payload     Payload
	RetryCount  int
	MaxRetries  int
	ScheduledAt time.Time
	CreatedAt   time.Time
}

func newQueuedMessage(userID int64, chatID string, payload Payload, maxRetries int, now time.Time) *QueuedMessage {
	return &QueuedMessage{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChatID:      chatID,
		Payload:     payload,
		RetryCount:  0,
		MaxRetries:  maxRetries,
		ScheduledAt: now,
		CreatedAt:   now,
	}
}
