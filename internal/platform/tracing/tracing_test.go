package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/haninge-digit/digit-camunda-wrapper/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDisabled(t *testing.T) {
	tp, shutdown, err := Setup(config.TracingConfig{}, nil)
	require.NoError(t, err)

	_, span := Tracer(tp).Start(context.Background(), "CreateProcessInstance")
	assert.False(t, span.IsRecording())
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupEnabledExportsSpans(t *testing.T) {
	var out bytes.Buffer
	tp, shutdown, err := Setup(config.TracingConfig{Enabled: true, ServiceName: "camunda-wrapper"}, &out)
	require.NoError(t, err)

	_, span := Tracer(tp).Start(context.Background(), "CreateProcessInstance")
	assert.True(t, span.IsRecording())
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, out.String(), `"Name":"CreateProcessInstance"`)
	assert.Contains(t, out.String(), "camunda-wrapper")
}
