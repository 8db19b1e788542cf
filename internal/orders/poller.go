package orders

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StatusChecker asks a remote service whether a tracked request has reached a
// terminal completed state. The returned artifact id identifies what to
// download once done is true.
type StatusChecker interface {
	CheckComplete(ctx context.Context, trackingID string) (done bool, artifactID string, err error)
}

// Poller waits for an asynchronous remote completion signal with a bounded
// total budget and a fixed check cadence. Transport errors during a check are
// treated as a no-op iteration: transient network blips must not abort a
// multi-minute lab workflow. Only the overall timeout ends the wait
// unsuccessfully.
type Poller struct {
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewPoller(interval, timeout time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{interval: interval, timeout: timeout, logger: logger}
}

// Wait polls until the checker reports completion, the timeout budget
// elapses, or ctx is cancelled. On completion it returns the artifact id; on
// timeout it returns ErrPollTimeout.
func (p *Poller) Wait(ctx context.Context, check StatusChecker, trackingID string) (string, error) {
	deadline := time.Now().Add(p.timeout)

	for attempt := 1; time.Now().Before(deadline); attempt++ {
		done, artifactID, err := check.CheckComplete(ctx, trackingID)
		if err != nil {
			p.logger.Debug().Err(err).
				Str("tracking_id", trackingID).
				Int("attempt", attempt).
				Msg("status check failed, retrying on next tick")
		} else if done {
			return artifactID, nil
		}

		wait := p.interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if wait <= 0 {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}

	return "", ErrPollTimeout
}
