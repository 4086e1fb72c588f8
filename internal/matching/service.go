// Package matching computes skill matches between users and active listings.
package matching

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/repository"
)

var matchesCreatedCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "matching",
		Name:      "matches_created_total",
		Help:      "Total new user/listing matches recorded.",
	},
)

// Service runs the match computation over all users and active listings.
type Service struct {
	logger   *slog.Logger
	users    repository.UserRepository
	listings repository.ListingRepository
	matches  repository.MatchRepository
}

func NewService(logger *slog.Logger, users repository.UserRepository, listings repository.ListingRepository, matches repository.MatchRepository) *Service {
	return &Service{
		logger:   logger.With("component", "matching"),
		users:    users,
		listings: listings,
		matches:  matches,
	}
}

// ComputeMatches records a match for every (user, listing) pair whose skill
// sets overlap. Existing pairs are skipped, so the recorded score reflects the
// overlap at first-match time. Returns the number of new matches. Persistence
// failures are logged and degrade to a partial result, never an abort.
func (s *Service) ComputeMatches(ctx context.Context) int {
	users, err := s.users.GetUsersWithExpertise(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load users with expertise", "error", err)
		return 0
	}
	listings, err := s.listings.GetActiveWithMappedSkills(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load active listings", "error", err)
		return 0
	}

	created := 0
	for _, user := range users {
		for _, listing := range listings {
			overlap := domain.Intersect(user.Expertise, listing.MappedSkills)
			if len(overlap) == 0 {
				continue
			}
			inserted, err := s.matches.CreateIfAbsent(ctx, user.ID, listing.ID, len(overlap))
			if err != nil {
				s.logger.WarnContext(ctx, "failed to record match", "user_id", user.ID, "listing_id", listing.ID, "error", err)
				continue
			}
			if inserted {
				created++
				matchesCreatedCounter.Inc()
				s.logger.InfoContext(ctx, "new match recorded", "user_id", user.ID, "listing_id", listing.ID, "score", len(overlap))
			}
		}
	}

	s.logger.InfoContext(ctx, "match computation finished", "users", len(users), "listings", len(listings), "new_matches", created)
	return created
}
