package engine

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// Operation names used in errors, logs and spans.
const (
	OpCreateInstance           = "CreateProcessInstance"
	OpCreateInstanceWithResult = "CreateProcessInstanceWithResult"
	OpActivateJobs             = "ActivateJobs"
	OpCompleteJob              = "CompleteJob"
	OpTopology                 = "Topology"
)

// latestVersion asks the engine for the newest deployed process version.
const latestVersion = -1

// resultGrace is added to the engine-side request timeout of awaited calls so
// the engine reports the timeout before our own deadline fires.
const resultGrace = 2 * time.Second

// ZeebeClient implements Client and Prober over the Zeebe gateway gRPC API.
type ZeebeClient struct {
	gateway pb.GatewayClient
	conn    *grpc.ClientConn
	logger  *slog.Logger
}

var (
	_ Client = (*ZeebeClient)(nil)
	_ Prober = (*ZeebeClient)(nil)
)

// Dial creates a client for the gateway at cfg.Address. The connection is
// established lazily on the first call.
func Dial(cfg config.EngineConfig, logger *slog.Logger) (*ZeebeClient, error) {
	creds := insecure.NewCredentials()
	if !cfg.Plaintext {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	conn, err := grpc.NewClient(cfg.Address, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway connection to %s: %w", cfg.Address, err)
	}

	c := NewZeebeClient(conn, logger)
	c.conn = conn
	return c, nil
}

// NewZeebeClient wraps an existing connection. Close is a no-op for clients
// built this way; the caller owns cc.
func NewZeebeClient(cc grpc.ClientConnInterface, logger *slog.Logger) *ZeebeClient {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ZeebeClient")
	}
	return &ZeebeClient{
		gateway: pb.NewGatewayClient(cc),
		logger:  logger.With(slog.String("component", "zeebe_client")),
	}
}

// Close releases the gateway connection opened by Dial.
func (c *ZeebeClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// CreateInstance implements Client.
func (c *ZeebeClient) CreateInstance(
	ctx context.Context,
	processID string,
	vars map[string]any,
) (*Instance, error) {
	payload, err := encodeVariables(vars)
	if err != nil {
		return nil, NewError(OpCreateInstance, CodeInvalidArgument, err)
	}

	resp, err := c.gateway.CreateProcessInstance(ctx, &pb.CreateProcessInstanceRequest{
		BpmnProcessId: processID,
		Version:       latestVersion,
		Variables:     payload,
	})
	if err != nil {
		return nil, fromGRPC(OpCreateInstance, err)
	}

	return &Instance{
		InstanceKey:   resp.GetProcessInstanceKey(),
		ProcessID:     resp.GetBpmnProcessId(),
		Version:       resp.GetVersion(),
		DefinitionKey: resp.GetProcessDefinitionKey(),
	}, nil
}

// CreateInstanceWithResult implements Client.
func (c *ZeebeClient) CreateInstanceWithResult(
	ctx context.Context,
	processID string,
	vars map[string]any,
	timeout time.Duration,
) (*InstanceResult, error) {
	payload, err := encodeVariables(vars)
	if err != nil {
		return nil, NewError(OpCreateInstanceWithResult, CodeInvalidArgument, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout+resultGrace)
	defer cancel()

	resp, err := c.gateway.CreateProcessInstanceWithResult(ctx, &pb.CreateProcessInstanceWithResultRequest{
		Request: &pb.CreateProcessInstanceRequest{
			BpmnProcessId: processID,
			Version:       latestVersion,
			Variables:     payload,
		},
		RequestTimeout: timeout.Milliseconds(),
	})
	if err != nil {
		return nil, fromGRPC(OpCreateInstanceWithResult, err)
	}

	result, err := decodeVariables(resp.GetVariables())
	if err != nil {
		return nil, NewError(OpCreateInstanceWithResult, CodeInternal,
			fmt.Errorf("failed to decode result variables: %w", err))
	}

	return &InstanceResult{
		Instance: Instance{
			InstanceKey:   resp.GetProcessInstanceKey(),
			ProcessID:     resp.GetBpmnProcessId(),
			Version:       resp.GetVersion(),
			DefinitionKey: resp.GetProcessDefinitionKey(),
		},
		Variables: result,
	}, nil
}

// LeaseJobs implements Client.
func (c *ZeebeClient) LeaseJobs(ctx context.Context, req LeaseRequest) (JobStream, error) {
	stream, err := c.gateway.ActivateJobs(ctx, &pb.ActivateJobsRequest{
		Type:              req.Topic,
		Worker:            req.Worker,
		Timeout:           req.LockDuration.Milliseconds(),
		MaxJobsToActivate: req.MaxJobs,
		RequestTimeout:    req.PollTimeout.Milliseconds(),
	})
	if err != nil {
		return nil, fromGRPC(OpActivateJobs, err)
	}
	return &zeebeJobStream{stream: stream, logger: c.logger}, nil
}

// CompleteJob implements Client.
func (c *ZeebeClient) CompleteJob(ctx context.Context, jobKey int64, vars map[string]any) error {
	payload, err := encodeVariables(vars)
	if err != nil {
		return NewError(OpCompleteJob, CodeInvalidArgument, err)
	}

	_, err = c.gateway.CompleteJob(ctx, &pb.CompleteJobRequest{
		JobKey:    jobKey,
		Variables: payload,
	})
	return fromGRPC(OpCompleteJob, err)
}

// Topology implements Prober.
func (c *ZeebeClient) Topology(ctx context.Context) (*Topology, error) {
	resp, err := c.gateway.Topology(ctx, &pb.TopologyRequest{})
	if err != nil {
		return nil, fromGRPC(OpTopology, err)
	}

	topology := &Topology{
		GatewayVersion:    resp.GetGatewayVersion(),
		ClusterSize:       resp.GetClusterSize(),
		PartitionsCount:   resp.GetPartitionsCount(),
		ReplicationFactor: resp.GetReplicationFactor(),
	}
	for _, b := range resp.GetBrokers() {
		topology.Brokers = append(topology.Brokers, Broker{
			NodeID:  b.GetNodeId(),
			Host:    b.GetHost(),
			Port:    b.GetPort(),
			Version: b.GetVersion(),
		})
	}
	return topology, nil
}

type zeebeJobStream struct {
	stream pb.Gateway_ActivateJobsClient
	logger *slog.Logger
}

func (s *zeebeJobStream) Recv() ([]Job, error) {
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fromGRPC(OpActivateJobs, err)
	}

	jobs := make([]Job, 0, len(resp.GetJobs()))
	for _, j := range resp.GetJobs() {
		jobs = append(jobs, s.jobFromProto(j))
	}
	return jobs, nil
}

// jobFromProto never drops a job: undecodable headers or variables are logged
// and left empty.
func (s *zeebeJobStream) jobFromProto(j *pb.ActivatedJob) Job {
	job := Job{
		Key:                j.GetKey(),
		Type:               j.GetType(),
		ProcessID:          j.GetBpmnProcessId(),
		ElementID:          j.GetElementId(),
		ProcessInstanceKey: j.GetProcessInstanceKey(),
		Retries:            j.GetRetries(),
		Deadline:           time.UnixMilli(j.GetDeadline()),
		CustomHeaders:      map[string]string{},
	}

	if raw := j.GetCustomHeaders(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &job.CustomHeaders); err != nil {
			s.logger.Warn("failed to decode job custom headers",
				"job_key", job.Key,
				"error", err)
			job.CustomHeaders = map[string]string{}
		}
	}

	vars, err := decodeVariables(j.GetVariables())
	if err != nil {
		s.logger.Warn("failed to decode job variables",
			"job_key", job.Key,
			"error", err)
		vars = map[string]any{}
	}
	job.Variables = vars

	return job
}

func encodeVariables(vars map[string]any) (string, error) {
	if len(vars) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("failed to encode variables: %w", err)
	}
	return string(b), nil
}

// decodeVariables keeps numbers as json.Number so int64 keys survive.
func decodeVariables(raw string) (map[string]any, error) {
	vars := map[string]any{}
	if raw == "" {
		return vars, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&vars); err != nil {
		return nil, err
	}
	return vars, nil
}
