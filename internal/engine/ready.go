package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WaitReady polls the engine topology with exponential backoff until it answers
// or maxWait elapses. It returns the first topology seen.
func WaitReady(ctx context.Context, prober Prober, maxWait time.Duration, logger *slog.Logger) (*Topology, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxWait

	var topology *Topology
	attempt := 0
	op := func() error {
		attempt++
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		t, err := prober.Topology(probeCtx)
		if err != nil {
			logger.Warn("engine not ready",
				"attempt", attempt,
				"code", CodeOf(err).String(),
				"error", err)
			if IsCode(err, CodeInvalidArgument) || IsCode(err, CodePermissionDenied) {
				return backoff.Permanent(err)
			}
			return err
		}
		topology = t
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("engine did not become ready within %s: %w", maxWait, err)
	}

	logger.Info("engine ready",
		"attempts", attempt,
		"gateway_version", topology.GatewayVersion,
		"cluster_size", topology.ClusterSize)
	return topology, nil
}
