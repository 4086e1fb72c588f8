package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/repository"
)

const (
	upsertBatchSize  = 10
	upsertBatchPause = time.Second
)

var (
	listingsUpsertedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "listings_upserted_total",
			Help:      "Total listings written during scan ticks.",
		},
	)

	listingsExpiredCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "listings_expired_total",
			Help:      "Total listings deactivated after their deadline passed.",
		},
	)
)

// Service runs one scan: fetch upstream listings, upsert them, and deactivate
// the ones past their deadline.
type Service struct {
	logger   *slog.Logger
	fetcher  *Fetcher
	listings repository.ListingRepository
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewService wires the scan pipeline. cache may be nil, which disables the
// recently-seen skip and writes every fetched listing each tick.
func NewService(logger *slog.Logger, fetcher *Fetcher, listings repository.ListingRepository, cache *redis.Client, cacheTTL time.Duration) *Service {
	return &Service{
		logger:   logger.With("component", "ingest"),
		fetcher:  fetcher,
		listings: listings,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Sync fetches all open listings and upserts them in small paced batches, so
// a large catalog does not hammer the database in one burst. Returns the
// number of listings written.
func (s *Service) Sync(ctx context.Context) int {
	fetched := s.fetcher.FetchAll(ctx)
	if len(fetched) == 0 {
		s.logger.InfoContext(ctx, "scan finished, nothing fetched")
		return 0
	}

	written := 0
	for start := 0; start < len(fetched); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(fetched) {
			end = len(fetched)
		}
		for _, listing := range fetched[start:end] {
			if s.seenRecently(ctx, listing) {
				continue
			}
			if err := s.listings.Upsert(ctx, listing); err != nil {
				s.logger.WarnContext(ctx, "failed to upsert listing", "listing_id", listing.ID, "error", err)
				continue
			}
			written++
			listingsUpsertedCounter.Inc()
		}
		if end < len(fetched) {
			time.Sleep(upsertBatchPause)
		}
	}

	expired, err := s.listings.DeactivateExpired(ctx, time.Now())
	if err != nil {
		s.logger.WarnContext(ctx, "failed to deactivate expired listings", "error", err)
	} else if expired > 0 {
		listingsExpiredCounter.Add(float64(expired))
		s.logger.InfoContext(ctx, "deactivated expired listings", "count", expired)
	}

	s.logger.InfoContext(ctx, "scan finished", "fetched", len(fetched), "written", written)
	return written
}

// seenRecently skips rewriting a listing that was upserted within the cache
// TTL. Fails open: a redis error never blocks the write path.
func (s *Service) seenRecently(ctx context.Context, listing *domain.Listing) bool {
	if s.cache == nil || s.cacheTTL <= 0 {
		return false
	}
	key := "ingest:seen:" + listing.ID + ":" + listing.Deadline.UTC().Format(time.RFC3339)
	ok, err := s.cache.SetNX(ctx, key, listing.Slug, s.cacheTTL).Result()
	if err != nil {
		return false
	}
	return !ok
}
