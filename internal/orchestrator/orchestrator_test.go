package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/platform/logger"
)

type callRecorder struct {
	calls *[]string
	panic map[string]bool
}

func (c *callRecorder) record(name string) {
	if c.panic[name] {
		*c.calls = append(*c.calls, name+"!")
		panic(name + " exploded")
	}
	*c.calls = append(*c.calls, name)
}

type fakeScanner struct{ rec *callRecorder }

func (f *fakeScanner) Sync(context.Context) int { f.rec.record("scan"); return 0 }

type fakeMatcher struct{ rec *callRecorder }

func (f *fakeMatcher) ComputeMatches(context.Context) int { f.rec.record("match"); return 0 }

type fakeNotifier struct{ rec *callRecorder }

func (f *fakeNotifier) DispatchNext(context.Context) bool { f.rec.record("notify"); return true }

type fakeReminders struct{ rec *callRecorder }

func (f *fakeReminders) SweepExpired(context.Context, time.Time) int {
	f.rec.record("cleanup")
	return 0
}

func (f *fakeReminders) DispatchNext(context.Context, time.Time) bool {
	f.rec.record("remind")
	return true
}

// stub repositories only serve the stats step.
type stubListingRepo struct{}

func (stubListingRepo) Upsert(context.Context, *domain.Listing) error       { return nil }
func (stubListingRepo) GetByID(context.Context, string) (*domain.Listing, error) {
	return nil, domain.ErrNotFound
}
func (stubListingRepo) GetActiveWithMappedSkills(context.Context) ([]*domain.Listing, error) {
	return nil, nil
}
func (stubListingRepo) MarkInactive(context.Context, string) error { return nil }
func (stubListingRepo) DeactivateExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
func (stubListingRepo) GetStats(context.Context) (*domain.ListingStats, error) {
	return &domain.ListingStats{}, nil
}

type stubMatchRepo struct{}

func (stubMatchRepo) CreateIfAbsent(context.Context, int64, string, int) (bool, error) {
	return false, nil
}
func (stubMatchRepo) Exists(context.Context, int64, string) (bool, error) { return false, nil }
func (stubMatchRepo) GetActive(context.Context) ([]*domain.Match, error)  { return nil, nil }
func (stubMatchRepo) Deactivate(context.Context, int64, string) error     { return nil }
func (stubMatchRepo) GetStats(context.Context) (*domain.MatchingStats, error) {
	return &domain.MatchingStats{}, nil
}

type stubReminderRepo struct{}

func (stubReminderRepo) Create(context.Context, int64, string, int) (*domain.Reminder, error) {
	return nil, nil
}
func (stubReminderRepo) Exists(context.Context, int64, string) (bool, error) { return false, nil }
func (stubReminderRepo) GetDue(context.Context, time.Time) ([]*domain.Reminder, error) {
	return nil, nil
}
func (stubReminderRepo) GetActiveWithListings(context.Context) ([]*domain.Reminder, error) {
	return nil, nil
}
func (stubReminderRepo) UpdateLastSent(context.Context, int64, string, time.Time) error { return nil }
func (stubReminderRepo) Deactivate(context.Context, int64, string) error                { return nil }
func (stubReminderRepo) GetStats(context.Context, time.Time) (*domain.ReminderStats, error) {
	return &domain.ReminderStats{}, nil
}

func newTestOrchestrator(rec *callRecorder) *Orchestrator {
	return New(
		logger.New("error"),
		&fakeScanner{rec: rec},
		&fakeMatcher{rec: rec},
		&fakeNotifier{rec: rec},
		&fakeReminders{rec: rec},
		stubListingRepo{},
		stubMatchRepo{},
		stubReminderRepo{},
		time.Minute,
		time.Minute,
	)
}

func TestRunMatchingTick_FixedStepOrder(t *testing.T) {
	var calls []string
	rec := &callRecorder{calls: &calls}
	o := newTestOrchestrator(rec)

	o.RunMatchingTick(context.Background())

	assert.Equal(t, []string{"cleanup", "match", "notify", "remind"}, calls)
}

func TestRunMatchingTick_PanickingStepDoesNotAbortTheRest(t *testing.T) {
	var calls []string
	rec := &callRecorder{calls: &calls, panic: map[string]bool{"match": true}}
	o := newTestOrchestrator(rec)

	o.RunMatchingTick(context.Background())

	assert.Equal(t, []string{"cleanup", "match!", "notify", "remind"}, calls)
}

func TestRunScanTick(t *testing.T) {
	var calls []string
	rec := &callRecorder{calls: &calls}
	o := newTestOrchestrator(rec)

	o.RunScanTick(context.Background())

	assert.Equal(t, []string{"scan"}, calls)
}
