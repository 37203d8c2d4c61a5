// Package session binds one calendar identity to one resolved Zulip
// account and runs the classify → derive → merge → publish pipeline for
// it, once per tick.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"statuswatch/internal/classify"
	"statuswatch/internal/log"
	"statuswatch/internal/model"
	"statuswatch/internal/status"
)

// CalendarSource returns today's events for an identity: sorted ascending
// by start time, limited to events starting today (UTC), with whole-day
// events carrying date-only boundaries.
type CalendarSource interface {
	TodaysEvents(ctx context.Context, identity string) ([]model.Event, error)
}

// StatusSink reads and writes one account's status. GetStatus returns
// ok=false when the account has no status set.
type StatusSink interface {
	GetStatus(ctx context.Context) (model.UserStatus, bool, error)
	SetStatus(ctx context.Context, st model.UserStatus) error
}

// Outcome is a snapshot of the last tick, kept for the observability
// endpoint.
type Outcome struct {
	Time      time.Time `json:"time"`
	OK        bool      `json:"ok"`
	Published string    `json:"published,omitempty"`
	Cleared   bool      `json:"cleared,omitempty"`
	JoinURL   string    `json:"join_url,omitempty"`
}

// Session runs the status pipeline for exactly one identity.
type Session struct {
	Identity string // calendar identity (email)
	Account  string // resolved Zulip account email

	cal  CalendarSource
	sink StatusSink
	sep  string

	mu   sync.Mutex
	last Outcome
}

func New(identity, account string, cal CalendarSource, sink StatusSink, sep string) *Session {
	if sep == "" {
		sep = "|"
	}
	return &Session{
		Identity: identity,
		Account:  account,
		cal:      cal,
		sink:     sink,
		sep:      sep,
	}
}

// LastOutcome returns a copy of the last tick's outcome.
func (s *Session) LastOutcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) record(o Outcome) {
	s.mu.Lock()
	s.last = o
	s.mu.Unlock()
}

// RunTick performs one full pipeline pass. It never panics outward; all
// internal failures are logged and reported through the return value so
// the scheduler can continue with other sessions.
func (s *Session) RunTick(ctx context.Context, now time.Time) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("tick panicked", fmt.Errorf("%v", r), "identity", s.Identity)
			s.record(Outcome{Time: now, OK: false})
			ok = false
		}
	}()

	events, err := s.cal.TodaysEvents(ctx, s.Identity)
	if err != nil {
		// Calendar unavailable: proceed with absent signals rather than
		// aborting. An empty event list derives no opinion, and the merge
		// only clears the auto segment, never the user prefix.
		log.Warn("calendar fetch failed, treating signals as absent", "identity", s.Identity, "err", err)
		events = nil
	}

	sig := classify.Collect(events, now)
	log.Debug("signals collected",
		"identity", s.Identity,
		"meeting", sig.HasMeeting,
		"location", sig.HasLocation,
		"leave", sig.HasLeave,
	)

	derived, derivedOK := status.Derive(sig)

	remote, _, err := s.sink.GetStatus(ctx)
	if err != nil {
		// Without the remote status the idempotence check and prefix
		// split cannot run safely; skip the write until the next tick.
		log.Warn("status read failed, skipping publish", "identity", s.Identity, "err", err)
		s.record(Outcome{Time: now, OK: false})
		return false
	}

	merged, write := status.Merge(remote, derived, derivedOK, s.sep)
	if !write {
		log.Debug("status already up to date", "identity", s.Identity)
		s.record(Outcome{Time: now, OK: true, Published: remote.Text, JoinURL: joinURL(sig)})
		return true
	}

	if err := s.sink.SetStatus(ctx, merged); err != nil {
		log.Error("status write failed", err, "identity", s.Identity, "account", s.Account)
		s.record(Outcome{Time: now, OK: false})
		return false
	}

	log.Info("status updated", "identity", s.Identity, "account", s.Account, "text", merged.Text)
	s.record(Outcome{
		Time:      now,
		OK:        true,
		Published: merged.Text,
		Cleared:   !derivedOK,
		JoinURL:   joinURL(sig),
	})
	return true
}

func joinURL(sig classify.Signals) string {
	if sig.HasMeeting {
		return sig.Meeting.JoinURL
	}
	return ""
}

// MultiSource combines several calendar sources into one, concatenating
// their events and re-sorting by start time. A failing source is skipped
// with a warning; the remaining sources still contribute.
type MultiSource struct {
	Sources []CalendarSource
}

func (m *MultiSource) TodaysEvents(ctx context.Context, identity string) ([]model.Event, error) {
	var all []model.Event
	var firstErr error

	for _, src := range m.Sources {
		events, err := src.TodaysEvents(ctx, identity)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.Warn("calendar source failed", "identity", identity, "err", err)
			continue
		}
		all = append(all, events...)
	}

	if all == nil && firstErr != nil {
		return nil, firstErr
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start.Before(all[j].Start)
	})
	return all, nil
}
