package service

import (
	"context"
	"time"

	"parkingledger/backend/services/parking-service/internal/clock"
)

type dayPurger interface {
	DeleteSessionsEnteredBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// DayClosePolicy decides what closing the operating day does to the ledger.
type DayClosePolicy interface {
	Name() string
	Close(ctx context.Context, store dayPurger, now time.Time, loc *time.Location) (DayCloseResult, error)
}

// DayCloseResult reports the outcome of one day-close run.
type DayCloseResult struct {
	Policy  string
	From    time.Time
	To      time.Time
	Removed int64
}

// PurgeToday deletes every session, in any state, that entered during the
// current local calendar day.
type PurgeToday struct{}

// Name implements DayClosePolicy.
func (PurgeToday) Name() string { return "purge_today" }

// Close implements DayClosePolicy.
func (p PurgeToday) Close(ctx context.Context, store dayPurger, now time.Time, loc *time.Location) (DayCloseResult, error) {
	from, to := clock.DayBounds(now, loc)
	removed, err := store.DeleteSessionsEnteredBetween(ctx, from, to)
	if err != nil {
		return DayCloseResult{}, storageError("day close", err)
	}
	return DayCloseResult{Policy: p.Name(), From: from, To: to, Removed: removed}, nil
}

// DayCloser runs the configured policy against the facility's local day.
type DayCloser struct {
	store  dayPurger
	clock  clock.Clock
	loc    *time.Location
	policy DayClosePolicy
}

// NewDayCloser builds a closer. A nil policy means PurgeToday.
func NewDayCloser(store dayPurger, clk clock.Clock, loc *time.Location, policy DayClosePolicy) *DayCloser {
	if clk == nil {
		clk = clock.Real{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if policy == nil {
		policy = PurgeToday{}
	}
	return &DayCloser{store: store, clock: clk, loc: loc, policy: policy}
}

// CloseDay applies the policy once.
func (d *DayCloser) CloseDay(ctx context.Context) (DayCloseResult, error) {
	return d.policy.Close(ctx, d.store, d.clock.Now(), d.loc)
}
