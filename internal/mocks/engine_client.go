package mocks

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/haninge-digit/digit-camunda-wrapper/internal/engine"
)

// CompleteJobCall records one CompleteJob invocation.
type CompleteJobCall struct {
	JobKey    int64
	Variables map[string]any
}

// MockEngineClient implements engine.Client and engine.Prober for testing.
// Unset functions fall back to the default values.
type MockEngineClient struct {
	CreateInstanceFn           func(ctx context.Context, processID string, vars map[string]any) (*engine.Instance, error)
	CreateInstanceWithResultFn func(ctx context.Context, processID string, vars map[string]any, timeout time.Duration) (*engine.InstanceResult, error)
	LeaseJobsFn                func(ctx context.Context, req engine.LeaseRequest) (engine.JobStream, error)
	CompleteJobFn              func(ctx context.Context, jobKey int64, vars map[string]any) error
	TopologyFn                 func(ctx context.Context) (*engine.Topology, error)

	// Default values used when functions aren't explicitly defined
	Instance *engine.Instance
	Result   *engine.InstanceResult
	Topo     *engine.Topology
	Err      error

	mu            sync.Mutex
	completeCalls []CompleteJobCall
	leaseCalls    []engine.LeaseRequest
	createCalls   int
}

var (
	_ engine.Client = (*MockEngineClient)(nil)
	_ engine.Prober = (*MockEngineClient)(nil)
)

// CreateInstance implements engine.Client
func (m *MockEngineClient) CreateInstance(
	ctx context.Context,
	processID string,
	vars map[string]any,
) (*engine.Instance, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()

	if m.CreateInstanceFn != nil {
		return m.CreateInstanceFn(ctx, processID, vars)
	}
	return m.Instance, m.Err
}

// CreateInstanceWithResult implements engine.Client
func (m *MockEngineClient) CreateInstanceWithResult(
	ctx context.Context,
	processID string,
	vars map[string]any,
	timeout time.Duration,
) (*engine.InstanceResult, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()

	if m.CreateInstanceWithResultFn != nil {
		return m.CreateInstanceWithResultFn(ctx, processID, vars, timeout)
	}
	return m.Result, m.Err
}

// LeaseJobs implements engine.Client
func (m *MockEngineClient) LeaseJobs(ctx context.Context, req engine.LeaseRequest) (engine.JobStream, error) {
	m.mu.Lock()
	m.leaseCalls = append(m.leaseCalls, req)
	m.mu.Unlock()

	if m.LeaseJobsFn != nil {
		return m.LeaseJobsFn(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return NewJobStream(), nil
}

// CompleteJob implements engine.Client
func (m *MockEngineClient) CompleteJob(ctx context.Context, jobKey int64, vars map[string]any) error {
	m.mu.Lock()
	m.completeCalls = append(m.completeCalls, CompleteJobCall{JobKey: jobKey, Variables: vars})
	m.mu.Unlock()

	if m.CompleteJobFn != nil {
		return m.CompleteJobFn(ctx, jobKey, vars)
	}
	return m.Err
}

// Topology implements engine.Prober
func (m *MockEngineClient) Topology(ctx context.Context) (*engine.Topology, error) {
	if m.TopologyFn != nil {
		return m.TopologyFn(ctx)
	}
	return m.Topo, m.Err
}

// CompleteCalls returns a copy of the recorded CompleteJob calls.
func (m *MockEngineClient) CompleteCalls() []CompleteJobCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompleteJobCall(nil), m.completeCalls...)
}

// LeaseCalls returns a copy of the recorded LeaseJobs requests.
func (m *MockEngineClient) LeaseCalls() []engine.LeaseRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]engine.LeaseRequest(nil), m.leaseCalls...)
}

// CreateCalls returns how many instance creations were requested.
func (m *MockEngineClient) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

// JobStream is an in-memory engine.JobStream. It yields its batches in order,
// then Err if set, then io.EOF.
type JobStream struct {
	mu      sync.Mutex
	batches [][]engine.Job
	Err     error
}

// NewJobStream returns a stream over batches.
func NewJobStream(batches ...[]engine.Job) *JobStream {
	return &JobStream{batches: batches}
}

// Recv implements engine.JobStream
func (s *JobStream) Recv() ([]engine.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.batches) > 0 {
		batch := s.batches[0]
		s.batches = s.batches[1:]
		return batch, nil
	}
	if s.Err != nil {
		err := s.Err
		s.Err = nil
		return nil, err
	}
	return nil, io.EOF
}
