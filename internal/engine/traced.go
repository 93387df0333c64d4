package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrProcessID = "engine.process_id"
	AttrJobKey    = "engine.job_key"
	AttrTopic     = "engine.topic"
	AttrCode      = "engine.code"
)

// TracedClient records a span around every call of the wrapped Client.
type TracedClient struct {
	next   Client
	tracer trace.Tracer
}

var _ Client = (*TracedClient)(nil)

// WithTracing wraps next so every call is traced by tracer.
func WithTracing(next Client, tracer trace.Tracer) *TracedClient {
	return &TracedClient{next: next, tracer: tracer}
}

func (c *TracedClient) CreateInstance(
	ctx context.Context,
	processID string,
	vars map[string]any,
) (*Instance, error) {
	ctx, span := c.tracer.Start(ctx, OpCreateInstance, trace.WithAttributes(
		attribute.String(AttrProcessID, processID),
	))
	defer span.End()

	instance, err := c.next.CreateInstance(ctx, processID, vars)
	recordError(span, err)
	return instance, err
}

func (c *TracedClient) CreateInstanceWithResult(
	ctx context.Context,
	processID string,
	vars map[string]any,
	timeout time.Duration,
) (*InstanceResult, error) {
	ctx, span := c.tracer.Start(ctx, OpCreateInstanceWithResult, trace.WithAttributes(
		attribute.String(AttrProcessID, processID),
		attribute.Int64("engine.timeout_ms", timeout.Milliseconds()),
	))
	defer span.End()

	result, err := c.next.CreateInstanceWithResult(ctx, processID, vars, timeout)
	recordError(span, err)
	return result, err
}

// LeaseJobs traces the call that opens the stream; batches received later
// are not part of the span.
func (c *TracedClient) LeaseJobs(ctx context.Context, req LeaseRequest) (JobStream, error) {
	ctx, span := c.tracer.Start(ctx, OpActivateJobs, trace.WithAttributes(
		attribute.String(AttrTopic, req.Topic),
		attribute.Int("engine.max_jobs", int(req.MaxJobs)),
	))
	defer span.End()

	stream, err := c.next.LeaseJobs(ctx, req)
	recordError(span, err)
	return stream, err
}

func (c *TracedClient) CompleteJob(ctx context.Context, jobKey int64, vars map[string]any) error {
	ctx, span := c.tracer.Start(ctx, OpCompleteJob, trace.WithAttributes(
		attribute.Int64(AttrJobKey, jobKey),
	))
	defer span.End()

	err := c.next.CompleteJob(ctx, jobKey, vars)
	recordError(span, err)
	return err
}

func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(AttrCode, CodeOf(err).String()))
}
