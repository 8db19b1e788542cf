package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type scriptedChecker struct {
	calls   int
	results []checkResult
}

type checkResult struct {
	done       bool
	artifactID string
	err        error
}

func (c *scriptedChecker) CheckComplete(_ context.Context, _ string) (bool, string, error) {
	var r checkResult
	if c.calls < len(c.results) {
		r = c.results[c.calls]
	}
	c.calls++
	return r.done, r.artifactID, r.err
}

func TestPoller_TimesOutAfterBudget(t *testing.T) {
	interval := 10 * time.Millisecond
	timeout := 55 * time.Millisecond
	poller := NewPoller(interval, timeout, zerolog.Nop())

	checker := &scriptedChecker{} // never completes

	start := time.Now()
	_, err := poller.Wait(context.Background(), checker, "REQ-1")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("err = %v, want ErrPollTimeout", err)
	}
	if elapsed < timeout {
		t.Fatalf("returned after %v, before the %v budget elapsed", elapsed, timeout)
	}
	if want := int(timeout / interval); checker.calls < want {
		t.Fatalf("made %d attempts, want at least %d", checker.calls, want)
	}
}

func TestPoller_RecoversFromTransientErrors(t *testing.T) {
	poller := NewPoller(time.Millisecond, time.Second, zerolog.Nop())

	checker := &scriptedChecker{results: []checkResult{
		{err: errors.New("connection refused")},
		{err: errors.New("connection refused")},
		{done: true, artifactID: "SCAN-7"},
	}}

	artifactID, err := poller.Wait(context.Background(), checker, "REQ-1")
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if artifactID != "SCAN-7" {
		t.Fatalf("artifactID = %q, want SCAN-7", artifactID)
	}
	if checker.calls != 3 {
		t.Fatalf("made %d calls, want 3", checker.calls)
	}
}

func TestPoller_CompletesImmediately(t *testing.T) {
	poller := NewPoller(time.Second, time.Minute, zerolog.Nop())
	checker := &scriptedChecker{results: []checkResult{{done: true, artifactID: "SCAN-1"}}}

	start := time.Now()
	artifactID, err := poller.Wait(context.Background(), checker, "REQ-1")
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if artifactID != "SCAN-1" {
		t.Fatalf("artifactID = %q", artifactID)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("first-attempt completion should not sleep")
	}
}

func TestPoller_HonorsContextCancellation(t *testing.T) {
	poller := NewPoller(50*time.Millisecond, time.Minute, zerolog.Nop())
	checker := &scriptedChecker{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := poller.Wait(ctx, checker, "REQ-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
