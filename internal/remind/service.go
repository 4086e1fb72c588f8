// Package remind dispatches recurring listing reminders, one per scheduler
// tick, and sweeps out reminders whose listing expired or went inactive.
package remind

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/queue"
	"github.com/bobintern/bountybot/internal/repository"
	"github.com/bobintern/bountybot/internal/telegram"
)

var (
	remindersDispatchedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "remind",
			Name:      "reminders_dispatched_total",
			Help:      "Total reminders handed to the delivery queue.",
		},
	)

	remindersDeactivatedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "remind",
			Name:      "reminders_deactivated_total",
			Help:      "Total reminders deactivated by the expiry sweep.",
		},
	)
)

// Enqueuer is the slice of the delivery queue the scheduler needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, userID int64, chatID string, payload queue.Payload) string
}

// Service runs the reminder pipeline: sweep, then dispatch one due reminder.
type Service struct {
	logger      *slog.Logger
	reminders   repository.ReminderRepository
	enqueuer    Enqueuer
	listingsURL string
}

func NewService(logger *slog.Logger, reminders repository.ReminderRepository, enqueuer Enqueuer, listingsURL string) *Service {
	return &Service{
		logger:      logger.With("component", "remind"),
		reminders:   reminders,
		enqueuer:    enqueuer,
		listingsURL: strings.TrimRight(listingsURL, "/"),
	}
}

// SweepExpired deactivates active reminders whose listing is inactive or past
// its deadline. Returns the number deactivated.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) int {
	active, err := s.reminders.GetActiveWithListings(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load active reminders", "error", err)
		return 0
	}

	swept := 0
	for _, rem := range active {
		if rem.Listing == nil {
			continue
		}
		if rem.Listing.IsActive && !rem.Listing.Expired(now) {
			continue
		}
		if err := s.reminders.Deactivate(ctx, rem.UserID, rem.ListingID); err != nil {
			s.logger.WarnContext(ctx, "failed to deactivate reminder", "user_id", rem.UserID, "listing_id", rem.ListingID, "error", err)
			continue
		}
		swept++
		remindersDeactivatedCounter.Inc()
		s.logger.InfoContext(ctx, "reminder deactivated, listing no longer available", "user_id", rem.UserID, "listing_id", rem.ListingID)
	}
	return swept
}

// DispatchNext sends the oldest-created due reminder and advances its
// last-sent timestamp. One reminder per tick; a backlog drains across
// subsequent ticks. Returns true if a reminder was dispatched.
func (s *Service) DispatchNext(ctx context.Context, now time.Time) bool {
	due, err := s.reminders.GetDue(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load due reminders", "error", err)
		return false
	}
	if len(due) == 0 {
		return false
	}

	rem := due[0]
	if rem.User == nil || rem.Listing == nil {
		s.logger.WarnContext(ctx, "reminder missing joined user or listing", "user_id", rem.UserID, "listing_id", rem.ListingID)
		return false
	}

	s.enqueuer.Enqueue(ctx, rem.UserID, rem.User.TelegramID, queue.Payload{
		Kind:    queue.PayloadText,
		Content: s.message(rem.Listing),
		Options: &telegram.SendOptions{
			ParseMode: "HTML",
			ReplyMarkup: &telegram.InlineKeyboardMarkup{
				InlineKeyboard: [][]telegram.InlineKeyboardButton{{
					{Text: "View Listing", URL: fmt.Sprintf("%s/listing/%s", s.listingsURL, rem.Listing.Slug)},
				}},
			},
		},
	})

	if err := s.reminders.UpdateLastSent(ctx, rem.UserID, rem.ListingID, now); err != nil {
		s.logger.ErrorContext(ctx, "failed to advance reminder last-sent time", "user_id", rem.UserID, "listing_id", rem.ListingID, "error", err)
	}

	remindersDispatchedCounter.Inc()
	s.logger.InfoContext(ctx, "reminder dispatched", "user_id", rem.UserID, "listing_id", rem.ListingID)
	return true
}

func (s *Service) message(l *domain.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ Reminder: <b>%s</b> is still open!\n", l.Title)
	if l.USDValue > 0 {
		fmt.Fprintf(&b, "💰 $%.0f\n", l.USDValue)
	}
	if !l.Deadline.IsZero() {
		fmt.Fprintf(&b, "Deadline: %s", l.Deadline.Format("Jan 2, 2006"))
	}
	return b.String()
}
