package usecase

import (
	"context"
	"time"

	"github.com/phuslu/log"

	"github.com/productsheet/backend/internal/domain"
)

// AvailabilityProber checks that the model service answers before any real
// work is sent to it.
type AvailabilityProber struct {
	client  domain.ModelClient
	timeout time.Duration
}

// NewAvailabilityProber creates a prober. Each probe is bounded by timeout
// (5 seconds when zero).
func NewAvailabilityProber(client domain.ModelClient, timeout time.Duration) *AvailabilityProber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AvailabilityProber{client: client, timeout: timeout}
}

// Probe reports whether the service answered its status endpoint. Any error
// counts as not ready.
func (p *AvailabilityProber) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Ping(ctx); err != nil {
		log.Debug().Err(err).Msg("[PROBE] Model service not ready")
		return false
	}
	return true
}

// WaitUntilReady probes up to maxAttempts times, sleeping delay between
// failures. It stops early when ctx is done.
func (p *AvailabilityProber) WaitUntilReady(ctx context.Context, maxAttempts int, delay time.Duration) bool {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if p.Probe(ctx) {
			if attempt > 1 {
				log.Info().Int("attempt", attempt).Msg("[PROBE] Model service ready")
			}
			return true
		}
		if attempt == maxAttempts {
			break
		}
		log.Warn().Int("attempt", attempt).Int("max_attempts", maxAttempts).Dur("delay", delay).Msg("[PROBE] Model service unreachable, retrying")
		if err := sleepContext(ctx, delay); err != nil {
			return false
		}
	}

	log.Error().Int("attempts", maxAttempts).Msg("[PROBE] Model service unavailable")
	return false
}
