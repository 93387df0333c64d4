package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// fakeGateway is an in-process Zeebe gateway serving canned responses.
type fakeGateway struct {
	pb.UnimplementedGatewayServer

	mu               sync.Mutex
	createRequests   []*pb.CreateProcessInstanceRequest
	resultRequests   []*pb.CreateProcessInstanceWithResultRequest
	activateRequests []*pb.ActivateJobsRequest
	completeRequests []*pb.CompleteJobRequest

	resultVariables string
	batches         [][]*pb.ActivatedJob
	completeErr     error
	createErr       error
}

func (g *fakeGateway) CreateProcessInstance(
	_ context.Context,
	req *pb.CreateProcessInstanceRequest,
) (*pb.CreateProcessInstanceResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createRequests = append(g.createRequests, req)
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &pb.CreateProcessInstanceResponse{
		ProcessDefinitionKey: 11,
		BpmnProcessId:        req.GetBpmnProcessId(),
		Version:              3,
		ProcessInstanceKey:   2251799813685249,
	}, nil
}

func (g *fakeGateway) CreateProcessInstanceWithResult(
	_ context.Context,
	req *pb.CreateProcessInstanceWithResultRequest,
) (*pb.CreateProcessInstanceWithResultResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resultRequests = append(g.resultRequests, req)
	return &pb.CreateProcessInstanceWithResultResponse{
		BpmnProcessId:      req.GetRequest().GetBpmnProcessId(),
		ProcessInstanceKey: 42,
		Version:            1,
		Variables:          g.resultVariables,
	}, nil
}

func (g *fakeGateway) ActivateJobs(req *pb.ActivateJobsRequest, stream pb.Gateway_ActivateJobsServer) error {
	g.mu.Lock()
	g.activateRequests = append(g.activateRequests, req)
	batches := g.batches
	g.mu.Unlock()

	for _, batch := range batches {
		if err := stream.Send(&pb.ActivateJobsResponse{Jobs: batch}); err != nil {
			return err
		}
	}
	return nil
}

func (g *fakeGateway) CompleteJob(_ context.Context, req *pb.CompleteJobRequest) (*pb.CompleteJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completeRequests = append(g.completeRequests, req)
	if g.completeErr != nil {
		return nil, g.completeErr
	}
	return &pb.CompleteJobResponse{}, nil
}

func (g *fakeGateway) Topology(context.Context, *pb.TopologyRequest) (*pb.TopologyResponse, error) {
	return &pb.TopologyResponse{
		Brokers: []*pb.BrokerInfo{
			{NodeId: 0, Host: "zeebe-0", Port: 26501, Version: "8.5.0"},
		},
		ClusterSize:       1,
		PartitionsCount:   2,
		ReplicationFactor: 1,
		GatewayVersion:    "8.5.0",
	}, nil
}

func startGateway(t *testing.T, gw *fakeGateway) *engine.ZeebeClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	pb.RegisterGatewayServer(srv, gw)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return engine.NewZeebeClient(conn, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestZeebeClient_CreateInstance(t *testing.T) {
	gw := &fakeGateway{}
	client := startGateway(t, gw)

	instance, err := client.CreateInstance(context.Background(), "order", map[string]any{"userid": "42"})

	require.NoError(t, err)
	assert.Equal(t, int64(2251799813685249), instance.InstanceKey)
	assert.Equal(t, int32(3), instance.Version)
	assert.Equal(t, "order", instance.ProcessID)

	require.Len(t, gw.createRequests, 1)
	assert.Equal(t, "order", gw.createRequests[0].GetBpmnProcessId())
	assert.Equal(t, int32(-1), gw.createRequests[0].GetVersion(), "latest version should be requested")
	assert.JSONEq(t, `{"userid":"42"}`, gw.createRequests[0].GetVariables())
}

func TestZeebeClient_CreateInstanceNotFound(t *testing.T) {
	gw := &fakeGateway{createErr: status.Error(codes.NotFound, "process 'nope' not deployed")}
	client := startGateway(t, gw)

	_, err := client.CreateInstance(context.Background(), "nope", nil)

	require.Error(t, err)
	assert.Equal(t, engine.CodeNotFound, engine.CodeOf(err))
	assert.Equal(t, "{}", gw.createRequests[0].GetVariables(), "nil variables should be sent as an empty document")
}

func TestZeebeClient_CreateInstanceWithResult(t *testing.T) {
	gw := &fakeGateway{resultVariables: `{"userid":"42","amount":"10","total":10}`}
	client := startGateway(t, gw)

	result, err := client.CreateInstanceWithResult(
		context.Background(), "pricing", map[string]any{"userid": "42", "amount": "10"}, 60*time.Second)

	require.NoError(t, err)
	assert.Equal(t, int64(42), result.InstanceKey)
	assert.Equal(t, map[string]any{"userid": "42", "amount": "10", "total": json.Number("10")}, result.Variables)

	require.Len(t, gw.resultRequests, 1)
	assert.Equal(t, int64(60000), gw.resultRequests[0].GetRequestTimeout())
	assert.Equal(t, "pricing", gw.resultRequests[0].GetRequest().GetBpmnProcessId())
}

func TestZeebeClient_CreateInstanceWithResultKeepsLargeIntegers(t *testing.T) {
	gw := &fakeGateway{resultVariables: `{"orderKey":9007199254740993,"ratio":0.5}`}
	client := startGateway(t, gw)

	result, err := client.CreateInstanceWithResult(context.Background(), "orders", nil, time.Second)

	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), result.Variables["orderKey"])
	assert.Equal(t, json.Number("0.5"), result.Variables["ratio"])

	encoded, err := json.Marshal(result.Variables)
	require.NoError(t, err)
	assert.JSONEq(t, `{"orderKey":9007199254740993,"ratio":0.5}`, string(encoded))
}

func TestZeebeClient_LeaseJobs(t *testing.T) {
	headers, err := json.Marshal(map[string]string{"io.camunda.zeebe:assignee": "alice"})
	require.NoError(t, err)

	gw := &fakeGateway{
		batches: [][]*pb.ActivatedJob{
			{
				{Key: 1, Type: "io.camunda.zeebe:userTask", BpmnProcessId: "leave", ElementId: "approve",
					CustomHeaders: string(headers), Variables: `{"days":3}`, Deadline: 1700000000000},
			},
			{
				{Key: 2, BpmnProcessId: "leave", ElementId: "review", CustomHeaders: "not json", Variables: "{broken"},
			},
		},
	}
	client := startGateway(t, gw)

	stream, err := client.LeaseJobs(context.Background(), engine.LeaseRequest{
		Topic:        "io.camunda.zeebe:userTask",
		Worker:       "wrapper-test",
		LockDuration: time.Second,
		MaxJobs:      100,
		PollTimeout:  5 * time.Second,
	})
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(1), first[0].Key)
	assert.Equal(t, "leave", first[0].ProcessID)
	assert.Equal(t, "approve", first[0].ElementID)
	assert.Equal(t, "alice", first[0].CustomHeaders["io.camunda.zeebe:assignee"])
	assert.Equal(t, map[string]any{"days": json.Number("3")}, first[0].Variables)
	assert.Equal(t, time.UnixMilli(1700000000000), first[0].Deadline)

	second, err := stream.Recv()
	require.NoError(t, err)
	require.Len(t, second, 1, "a job with malformed metadata is still delivered")
	assert.Empty(t, second[0].CustomHeaders)
	assert.Empty(t, second[0].Variables)

	_, err = stream.Recv()
	assert.True(t, errors.Is(err, io.EOF))

	require.Len(t, gw.activateRequests, 1)
	req := gw.activateRequests[0]
	assert.Equal(t, "io.camunda.zeebe:userTask", req.GetType())
	assert.Equal(t, "wrapper-test", req.GetWorker())
	assert.Equal(t, int64(1000), req.GetTimeout())
	assert.Equal(t, int32(100), req.GetMaxJobsToActivate())
	assert.Equal(t, int64(5000), req.GetRequestTimeout())
}

func TestZeebeClient_CompleteJob(t *testing.T) {
	gw := &fakeGateway{}
	client := startGateway(t, gw)

	err := client.CompleteJob(context.Background(), 7, map[string]any{"approved": true})
	require.NoError(t, err)
	require.Len(t, gw.completeRequests, 1)
	assert.Equal(t, int64(7), gw.completeRequests[0].GetJobKey())
	assert.JSONEq(t, `{"approved":true}`, gw.completeRequests[0].GetVariables())

	gw.completeErr = status.Error(codes.NotFound, "job 8 not found")
	err = client.CompleteJob(context.Background(), 8, nil)
	assert.Equal(t, engine.CodeNotFound, engine.CodeOf(err))
}

func TestZeebeClient_Topology(t *testing.T) {
	client := startGateway(t, &fakeGateway{})

	topology, err := client.Topology(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "8.5.0", topology.GatewayVersion)
	assert.Equal(t, int32(1), topology.ClusterSize)
	assert.Equal(t, int32(2), topology.PartitionsCount)
	require.Len(t, topology.Brokers, 1)
	assert.Equal(t, "zeebe-0", topology.Brokers[0].Host)
}

func TestNewZeebeClientNilLoggerPanics(t *testing.T) {
	assert.Panics(t, func() {
		engine.NewZeebeClient(nil, nil)
	})
}
