// Package notify selects the next unnotified skill match and dispatches one
// notification per scheduler tick through the delivery queue.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/queue"
	"github.com/bobintern/bountybot/internal/repository"
	"github.com/bobintern/bountybot/internal/telegram"
)

var notificationsDispatchedCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "notify",
		Name:      "notifications_dispatched_total",
		Help:      "Total skill-match notifications handed to the delivery queue.",
	},
)

// Renderer produces the thumbnail image for a listing notification. Returns a
// reference usable as a photo payload (URL or file id).
type Renderer interface {
	RenderListingThumbnail(ctx context.Context, listing *domain.Listing) (string, error)
}

// Enqueuer is the slice of the delivery queue the scheduler needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, userID int64, chatID string, payload queue.Payload) string
}

// Guard decides whether a user may receive a notification right now.
type Guard interface {
	Allow(ctx context.Context, userID int64) bool
}

// Service dispatches at most one skill-match notification per invocation. The
// one-per-tick contract spreads volume across ticks instead of bursting.
type Service struct {
	logger        *slog.Logger
	matches       repository.MatchRepository
	notifications repository.NotificationRepository
	renderer      Renderer
	enqueuer      Enqueuer
	guard         Guard
	listingsURL   string
}

func NewService(logger *slog.Logger, matches repository.MatchRepository, notifications repository.NotificationRepository, renderer Renderer, enqueuer Enqueuer, guard Guard, listingsURL string) *Service {
	return &Service{
		logger:        logger.With("component", "notify"),
		matches:       matches,
		notifications: notifications,
		renderer:      renderer,
		enqueuer:      enqueuer,
		guard:         guard,
		listingsURL:   strings.TrimRight(listingsURL, "/"),
	}
}

// DispatchNext finds the first active match without an existing notification
// and dispatches it: render, record the notification, enqueue. The record is
// written before enqueueing, so a crash after the write can lose one message
// but never double-notifies. The tick ends after the first dispatch attempt:
// a failed render sends nothing now and retries the same candidate wholesale
// next tick. Returns true if a notification was dispatched.
func (s *Service) DispatchNext(ctx context.Context) bool {
	active, err := s.matches.GetActive(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load active matches", "error", err)
		return false
	}

	for _, match := range active {
		exists, err := s.notifications.Exists(ctx, match.UserID, match.ListingID)
		if err != nil {
			s.logger.WarnContext(ctx, "notification existence check failed", "user_id", match.UserID, "listing_id", match.ListingID, "error", err)
			continue
		}
		if exists {
			continue
		}
		if !s.guard.Allow(ctx, match.UserID) {
			s.logger.DebugContext(ctx, "user inside cutoff window, skipping", "user_id", match.UserID)
			continue
		}
		return s.dispatch(ctx, match)
	}
	return false
}

func (s *Service) dispatch(ctx context.Context, match *domain.Match) bool {
	if match.User == nil || match.Listing == nil {
		s.logger.WarnContext(ctx, "match missing joined user or listing", "user_id", match.UserID, "listing_id", match.ListingID)
		return false
	}

	// A render failure aborts before anything is recorded, so the match is
	// retried wholesale on the next tick.
	thumb, err := s.renderer.RenderListingThumbnail(ctx, match.Listing)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to render listing thumbnail", "listing_id", match.ListingID, "error", err)
		return false
	}

	if _, err := s.notifications.Create(ctx, match.UserID, match.ListingID, domain.NotificationKindSkillMatch); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			s.logger.DebugContext(ctx, "notification already recorded, skipping", "user_id", match.UserID, "listing_id", match.ListingID)
		} else {
			s.logger.ErrorContext(ctx, "failed to record notification", "user_id", match.UserID, "listing_id", match.ListingID, "error", err)
		}
		return false
	}

	s.enqueuer.Enqueue(ctx, match.UserID, match.User.TelegramID, queue.Payload{
		Kind:    queue.PayloadPhoto,
		Content: thumb,
		Options: &telegram.SendOptions{
			Caption:   s.caption(match.Listing),
			ParseMode: "HTML",
			ReplyMarkup: &telegram.InlineKeyboardMarkup{
				InlineKeyboard: [][]telegram.InlineKeyboardButton{{
					{Text: "View Listing", URL: s.listingURL(match.Listing)},
				}},
			},
		},
	})

	notificationsDispatchedCounter.Inc()
	s.logger.InfoContext(ctx, "notification dispatched", "user_id", match.UserID, "listing_id", match.ListingID, "score", match.Score)
	return true
}

func (s *Service) caption(l *domain.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", l.Title)
	if l.SponsorName != "" {
		fmt.Fprintf(&b, "by %s\n", l.SponsorName)
	}
	if l.USDValue > 0 {
		fmt.Fprintf(&b, "💰 $%.0f", l.USDValue)
		if l.Token != "" && l.Token != "USDC" {
			fmt.Fprintf(&b, " in %s", l.Token)
		}
		b.WriteString("\n")
	}
	if !l.Deadline.IsZero() {
		fmt.Fprintf(&b, "⏰ Deadline: %s\n", l.Deadline.Format("Jan 2, 2006"))
	}
	fmt.Fprintf(&b, "\nThis %s matches your skills!", l.Type)
	return b.String()
}

func (s *Service) listingURL(l *domain.Listing) string {
	return fmt.Sprintf("%s/listing/%s", s.listingsURL, l.Slug)
}
