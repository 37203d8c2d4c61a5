package directory_test

import (
	"context"
	"errors"
	"testing"

	"statuswatch/internal/directory"
	"statuswatch/internal/model"
	"statuswatch/internal/session"
)

type fakeDir struct {
	members []string
	err     error
	calls   int
}

func (f *fakeDir) GroupMembers(_ context.Context, _ string) ([]string, error) {
	f.calls++
	return f.members, f.err
}

type nopSink struct{}

func (nopSink) GetStatus(_ context.Context) (model.UserStatus, bool, error) {
	return model.UserStatus{}, false, nil
}
func (nopSink) SetStatus(_ context.Context, _ model.UserStatus) error { return nil }

// fakeSinks maps candidate emails to probe results and records probe order.
type fakeSinks struct {
	results map[string]directory.ProbeResult
	probed  []string
}

func (f *fakeSinks) SinkFor(_ context.Context, email string) (session.StatusSink, directory.ProbeResult) {
	f.probed = append(f.probed, email)
	res, ok := f.results[email]
	if !ok {
		res = directory.ProbeUnreachable
	}
	if res == directory.ProbeLive {
		return nopSink{}, res
	}
	return nil, res
}

type nopCalendar struct{}

func (nopCalendar) TodaysEvents(_ context.Context, _ string) ([]model.Event, error) {
	return nil, nil
}

func newResolver(cfg directory.Config, dir directory.Source, sinks directory.SinkFactory) *directory.Resolver {
	return directory.NewResolver(cfg, dir, sinks, nopCalendar{})
}

func TestResolveVerbatimFirst(t *testing.T) {
	sinks := &fakeSinks{results: map[string]directory.ProbeResult{
		"jane@corp.example": directory.ProbeLive,
	}}
	r := newResolver(directory.Config{AliasDomains: []string{"a.com", "b.com"}}, nil, sinks)

	s, ok := r.Resolve(context.Background(), "jane@corp.example")
	if !ok {
		t.Fatal("expected resolution")
	}
	if s.Account != "jane@corp.example" {
		t.Errorf("Account = %q, want verbatim email", s.Account)
	}
	if len(sinks.probed) != 1 {
		t.Errorf("probed %v, want only the verbatim candidate", sinks.probed)
	}
}

func TestResolveAliasOrder(t *testing.T) {
	sinks := &fakeSinks{results: map[string]directory.ProbeResult{
		"jane@corp.example": directory.ProbeUnreachable,
		"jane@a.com":        directory.ProbeUnreachable,
		"jane@b.com":        directory.ProbeLive,
	}}
	r := newResolver(directory.Config{AliasDomains: []string{"a.com", "b.com"}}, nil, sinks)

	s, ok := r.Resolve(context.Background(), "jane@corp.example")
	if !ok {
		t.Fatal("expected resolution")
	}
	if s.Account != "jane@b.com" {
		t.Errorf("Account = %q, want %q", s.Account, "jane@b.com")
	}

	want := []string{"jane@corp.example", "jane@a.com", "jane@b.com"}
	if len(sinks.probed) != len(want) {
		t.Fatalf("probed %v, want %v", sinks.probed, want)
	}
	for i := range want {
		if sinks.probed[i] != want[i] {
			t.Errorf("probe[%d] = %q, want %q", i, sinks.probed[i], want[i])
		}
	}
}

func TestResolveUnknownProbeMovesOn(t *testing.T) {
	sinks := &fakeSinks{results: map[string]directory.ProbeResult{
		"jane@corp.example": directory.ProbeUnknown,
		"jane@a.com":        directory.ProbeLive,
	}}
	r := newResolver(directory.Config{AliasDomains: []string{"a.com"}}, nil, sinks)

	s, ok := r.Resolve(context.Background(), "jane@corp.example")
	if !ok {
		t.Fatal("expected resolution")
	}
	if s.Account != "jane@a.com" {
		t.Errorf("Account = %q, want alias after inconclusive probe", s.Account)
	}
}

func TestResolveFailureNotCached(t *testing.T) {
	sinks := &fakeSinks{results: map[string]directory.ProbeResult{}}
	r := newResolver(directory.Config{}, nil, sinks)

	if _, ok := r.Resolve(context.Background(), "ghost@corp.example"); ok {
		t.Fatal("resolution should fail")
	}

	// Account appears later; next scan must re-probe and succeed.
	sinks.results["ghost@corp.example"] = directory.ProbeLive
	if _, ok := r.Resolve(context.Background(), "ghost@corp.example"); !ok {
		t.Error("failed resolution must be retried, not cached")
	}
}

func TestResolveSuccessCached(t *testing.T) {
	sinks := &fakeSinks{results: map[string]directory.ProbeResult{
		"jane@corp.example": directory.ProbeLive,
	}}
	r := newResolver(directory.Config{}, nil, sinks)

	first, _ := r.Resolve(context.Background(), "jane@corp.example")
	second, _ := r.Resolve(context.Background(), "jane@corp.example")
	if first != second {
		t.Error("expected the cached session on the second resolve")
	}
	if len(sinks.probed) != 1 {
		t.Errorf("probes = %d, want 1 (no re-probe after success)", len(sinks.probed))
	}
}

func TestSessionsAppliesAllowListBeforeProbe(t *testing.T) {
	dir := &fakeDir{members: []string{"jane@corp.example", "intruder@corp.example"}}
	sinks := &fakeSinks{results: map[string]directory.ProbeResult{
		"jane@corp.example":     directory.ProbeLive,
		"intruder@corp.example": directory.ProbeLive,
	}}
	r := newResolver(directory.Config{Group: "beta@corp.example", AllowList: []string{"jane"}}, dir, sinks)

	sessions := r.Sessions(context.Background())
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	for _, probed := range sinks.probed {
		if probed == "intruder@corp.example" {
			t.Error("filtered identity must never be probed")
		}
	}
}

func TestSessionsDirectoryFallback(t *testing.T) {
	dir := &fakeDir{err: errors.New("directory down")}
	sinks := &fakeSinks{results: map[string]directory.ProbeResult{
		"bot@corp.example": directory.ProbeLive,
	}}
	r := newResolver(directory.Config{Group: "beta@corp.example", Static: []string{"bot@corp.example"}}, dir, sinks)

	sessions := r.Sessions(context.Background())
	if len(sessions) != 1 || sessions[0].Identity != "bot@corp.example" {
		t.Errorf("sessions = %v, want static fallback identity", sessions)
	}
}

func TestSessionsStaticMode(t *testing.T) {
	sinks := &fakeSinks{results: map[string]directory.ProbeResult{
		"alice@corp.example": directory.ProbeLive,
	}}
	r := newResolver(directory.Config{Static: []string{"alice@corp.example"}}, nil, sinks)

	sessions := r.Sessions(context.Background())
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
}
