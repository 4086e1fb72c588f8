// Package orchestrator drives the periodic pipeline on two independent
// schedules: a frequent listings scan and a slower matching/notification/
// reminder pass.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobintern/bountybot/internal/repository"
)

// Scanner refreshes the listings table from upstream.
type Scanner interface {
	Sync(ctx context.Context) int
}

// Matcher records new user/listing matches.
type Matcher interface {
	ComputeMatches(ctx context.Context) int
}

// Notifier dispatches at most one skill-match notification.
type Notifier interface {
	DispatchNext(ctx context.Context) bool
}

// Reminders sweeps dead reminders and dispatches at most one due reminder.
type Reminders interface {
	SweepExpired(ctx context.Context, now time.Time) int
	DispatchNext(ctx context.Context, now time.Time) bool
}

// Orchestrator owns the cron runner and the fixed per-tick step sequence.
// Each step is best-effort: a failure or panic in one step is logged and the
// remaining steps still run.
type Orchestrator struct {
	logger    *slog.Logger
	cron      *cron.Cron
	scanner   Scanner
	matcher   Matcher
	notifier  Notifier
	reminders Reminders

	listingStats repository.ListingRepository
	matchStats   repository.MatchRepository
	remindStats  repository.ReminderRepository

	scanEvery  time.Duration
	matchEvery time.Duration
}

func New(
	logger *slog.Logger,
	scanner Scanner,
	matcher Matcher,
	notifier Notifier,
	reminders Reminders,
	listingStats repository.ListingRepository,
	matchStats repository.MatchRepository,
	remindStats repository.ReminderRepository,
	scanEvery, matchEvery time.Duration,
) *Orchestrator {
	return &Orchestrator{
		logger:       logger.With("component", "orchestrator"),
		cron:         cron.New(),
		scanner:      scanner,
		matcher:      matcher,
		notifier:     notifier,
		reminders:    reminders,
		listingStats: listingStats,
		matchStats:   matchStats,
		remindStats:  remindStats,
		scanEvery:    scanEvery,
		matchEvery:   matchEvery,
	}
}

// Start registers both schedules and launches the cron runner.
func (o *Orchestrator) Start(ctx context.Context) error {
	if _, err := o.cron.AddFunc(fmt.Sprintf("@every %s", o.scanEvery), func() {
		o.RunScanTick(ctx)
	}); err != nil {
		return fmt.Errorf("register scan schedule: %w", err)
	}
	if _, err := o.cron.AddFunc(fmt.Sprintf("@every %s", o.matchEvery), func() {
		o.RunMatchingTick(ctx)
	}); err != nil {
		return fmt.Errorf("register matching schedule: %w", err)
	}

	o.cron.Start()
	o.logger.InfoContext(ctx, "orchestrator started", "scan_every", o.scanEvery, "match_every", o.matchEvery)
	return nil
}

// Stop halts the cron runner and waits for in-flight ticks to finish.
func (o *Orchestrator) Stop() {
	stopCtx := o.cron.Stop()
	<-stopCtx.Done()
	o.logger.Info("orchestrator stopped")
}

// RunScanTick refreshes listings from upstream.
func (o *Orchestrator) RunScanTick(ctx context.Context) {
	o.step(ctx, "scan", func() {
		o.scanner.Sync(ctx)
	})
}

// RunMatchingTick runs the fixed sequence: cleanup, match, notify one, remind
// one, stats.
func (o *Orchestrator) RunMatchingTick(ctx context.Context) {
	now := time.Now()

	o.step(ctx, "cleanup", func() {
		o.reminders.SweepExpired(ctx, now)
	})
	o.step(ctx, "match", func() {
		o.matcher.ComputeMatches(ctx)
	})
	o.step(ctx, "notify", func() {
		o.notifier.DispatchNext(ctx)
	})
	o.step(ctx, "remind", func() {
		o.reminders.DispatchNext(ctx, now)
	})
	o.step(ctx, "stats", func() {
		o.logStats(ctx, now)
	})
}

func (o *Orchestrator) step(ctx context.Context, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.ErrorContext(ctx, "tick step panicked", "step", name, "panic", r)
		}
	}()
	fn()
}

func (o *Orchestrator) logStats(ctx context.Context, now time.Time) {
	if listing, err := o.listingStats.GetStats(ctx); err == nil {
		o.logger.InfoContext(ctx, "listing stats",
			"total", listing.TotalListings, "active", listing.ActiveListings,
			"bounties", listing.Bounties, "projects", listing.Projects,
			"avg_usd", listing.AverageUSDValue)
	} else {
		o.logger.WarnContext(ctx, "failed to load listing stats", "error", err)
	}

	if match, err := o.matchStats.GetStats(ctx); err == nil {
		o.logger.InfoContext(ctx, "matching stats",
			"total", match.TotalMatches, "active", match.ActiveMatches,
			"sent_today", match.NotificationsSentToday, "users", match.UsersWithMatches)
	} else {
		o.logger.WarnContext(ctx, "failed to load matching stats", "error", err)
	}

	if remind, err := o.remindStats.GetStats(ctx, now); err == nil {
		o.logger.InfoContext(ctx, "reminder stats",
			"total", remind.TotalReminders, "active", remind.ActiveReminders,
			"ready", remind.RemindersReadyToSend, "users", remind.UsersWithReminders)
	} else {
		o.logger.WarnContext(ctx, "failed to load reminder stats", "error", err)
	}
}
