package engine_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haninge-digit/digit-camunda-wrapper/internal/engine"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/mocks"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReady(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		log, buf := logger.GetTestLogger(t)
		var attempts atomic.Int32
		prober := &mocks.MockEngineClient{
			TopologyFn: func(ctx context.Context) (*engine.Topology, error) {
				if attempts.Add(1) < 3 {
					return nil, engine.NewError(engine.OpTopology, engine.CodeUnavailable, errors.New("connection refused"))
				}
				return &engine.Topology{GatewayVersion: "8.5.0", ClusterSize: 3}, nil
			},
		}

		topology, err := engine.WaitReady(context.Background(), prober, 10*time.Second, log)

		require.NoError(t, err)
		assert.Equal(t, "8.5.0", topology.GatewayVersion)
		assert.Equal(t, int32(3), attempts.Load())
		logger.AssertLogContains(t, buf, "engine ready")
		logger.AssertLogContains(t, buf, "engine not ready")
	})

	t.Run("permanent error stops retrying", func(t *testing.T) {
		log, _ := logger.GetTestLogger(t)
		var attempts atomic.Int32
		prober := &mocks.MockEngineClient{
			TopologyFn: func(ctx context.Context) (*engine.Topology, error) {
				attempts.Add(1)
				return nil, engine.NewError(engine.OpTopology, engine.CodePermissionDenied, errors.New("denied"))
			},
		}

		_, err := engine.WaitReady(context.Background(), prober, 10*time.Second, log)

		require.Error(t, err)
		assert.True(t, engine.IsCode(err, engine.CodePermissionDenied))
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("gives up when the context ends", func(t *testing.T) {
		log, _ := logger.GetTestLogger(t)
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()
		prober := &mocks.MockEngineClient{
			Err: engine.NewError(engine.OpTopology, engine.CodeUnavailable, errors.New("connection refused")),
		}

		_, err := engine.WaitReady(ctx, prober, time.Minute, log)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "did not become ready")
	})
}
