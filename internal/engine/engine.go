package engine

import (
	"context"
	"time"
)

// Client is the set of engine operations used by the gateway.
type Client interface {
	// CreateInstance starts the latest version of processID and returns
	// without waiting for it to progress.
	CreateInstance(ctx context.Context, processID string, vars map[string]any) (*Instance, error)

	// CreateInstanceWithResult starts processID and blocks until the instance
	// completes or timeout elapses on the engine side.
	CreateInstanceWithResult(
		ctx context.Context,
		processID string,
		vars map[string]any,
		timeout time.Duration,
	) (*InstanceResult, error)

	// LeaseJobs issues one long-poll activation call. The returned stream yields
	// batches until the call completes, then io.EOF.
	LeaseJobs(ctx context.Context, req LeaseRequest) (JobStream, error)

	// CompleteJob acknowledges a leased job, releasing the lease and advancing
	// the owning process.
	CompleteJob(ctx context.Context, jobKey int64, vars map[string]any) error
}

// Prober reports the engine cluster topology. It backs liveness checks.
type Prober interface {
	Topology(ctx context.Context) (*Topology, error)
}

// JobStream is a finite sequence of leased job batches. Recv returns io.EOF
// once the underlying call has completed. A batch may be empty.
type JobStream interface {
	Recv() ([]Job, error)
}

// Instance identifies a started process instance.
type Instance struct {
	InstanceKey   int64
	ProcessID     string
	Version       int32
	DefinitionKey int64
}

// InstanceResult is the outcome of a completed process instance.
type InstanceResult struct {
	Instance
	Variables map[string]any
}

// LeaseRequest describes one activation call.
type LeaseRequest struct {
	// Topic is the job type to lease.
	Topic string
	// Worker identifies the lessee to the engine.
	Worker string
	// LockDuration is how long leased jobs stay invisible to other lessees.
	LockDuration time.Duration
	// MaxJobs caps the number of jobs leased by this call.
	MaxJobs int32
	// PollTimeout is how long the engine may hold the call open waiting for
	// jobs. Zero means the engine default.
	PollTimeout time.Duration
}

// Job is one leased unit of work.
type Job struct {
	Key                int64
	Type               string
	ProcessID          string
	ElementID          string
	ProcessInstanceKey int64
	CustomHeaders      map[string]string
	Variables          map[string]any
	Deadline           time.Time
	Retries            int32
}

// Topology summarizes the engine cluster.
type Topology struct {
	GatewayVersion    string
	ClusterSize       int32
	PartitionsCount   int32
	ReplicationFactor int32
	Brokers           []Broker
}

// Broker is one member of the engine cluster.
type Broker struct {
	NodeID  int32
	Host    string
	Port    int32
	Version string
}
