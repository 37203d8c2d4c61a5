package sched_test

import (
	"context"
	"testing"
	"time"

	"statuswatch/internal/sched"
)

func TestNewRejectsBadExpression(t *testing.T) {
	if _, err := sched.New("not a schedule", func() {}); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestNewAcceptsDescriptors(t *testing.T) {
	for _, expr := range []string{"@every 20s", "*/1 * * * *"} {
		if _, err := sched.New(expr, func() {}); err != nil {
			t.Errorf("New(%q): %v", expr, err)
		}
	}
}

func TestRunFiresImmediately(t *testing.T) {
	fired := make(chan struct{}, 1)
	s, err := sched.New("@every 1h", func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Error("job did not fire immediately")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Run did not return after cancel")
	}
}
