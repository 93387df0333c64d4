package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/bridge"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/config"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/engine"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/mocks"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcessRouter(t *testing.T, client *mocks.MockEngineClient) chi.Router {
	t.Helper()
	log, _ := logger.GetTestLogger(t)
	b := bridge.New(client, config.EngineConfig{WorkerTimeout: time.Minute, RequestTimeout: 10 * time.Second}, log)
	h := NewProcessHandler(b, log)

	r := chi.NewRouter()
	r.HandleFunc("/worker/{name}", h.CallWorker)
	r.Post("/workflow/{name}", h.StartWorkflow)
	r.Post("/form/{name}", h.SubmitForm)
	r.HandleFunc("/process/{name}", h.Process)
	return r
}

// echoResult returns the variables it was given merged with extra.
func echoResult(extra map[string]any) func(context.Context, string, map[string]any, time.Duration) (*engine.InstanceResult, error) {
	return func(_ context.Context, _ string, vars map[string]any, _ time.Duration) (*engine.InstanceResult, error) {
		out := make(map[string]any, len(vars)+len(extra))
		for k, v := range vars {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return &engine.InstanceResult{Instance: engine.Instance{InstanceKey: 1}, Variables: out}, nil
	}
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestCallWorker_ReturnsOnlyWorkerOutput(t *testing.T) {
	client := &mocks.MockEngineClient{
		CreateInstanceWithResultFn: echoResult(map[string]any{"total": float64(10)}),
	}
	router := newProcessRouter(t, client)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/worker/pricing?userid=42&amount=10", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"total": float64(10)}, decodeMap(t, rr))
}

func TestCallWorker_PassesMethodAndBody(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodPost, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			var got map[string]any
			client := &mocks.MockEngineClient{
				CreateInstanceWithResultFn: func(ctx context.Context, processID string, vars map[string]any, timeout time.Duration) (*engine.InstanceResult, error) {
					got = vars
					return echoResult(nil)(ctx, processID, vars, timeout)
				},
			}
			router := newProcessRouter(t, client)

			req := httptest.NewRequest(method, "/worker/pricing", strings.NewReader(`{ "a": 1 }`))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, method, got[bridge.MethodKey])
			assert.Equal(t, `{"a":1}`, got[bridge.BodyKey])
			assert.Empty(t, decodeMap(t, rr))
		})
	}
}

func TestCallWorker_Failures(t *testing.T) {
	tests := []struct {
		name            string
		target          string
		body            string
		engineErr       error
		result          map[string]any
		expectedStatus  int
		expectedMessage string
		expectEngine    bool
	}{
		{
			name:            "reserved query key",
			target:          "/worker/pricing?_WRAPPER_ERROR=x",
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Parameter names starting with _WRAPPER_ are reserved",
		},
		{
			name:            "malformed body",
			target:          "/worker/pricing",
			body:            `{"a":`,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid request body",
		},
		{
			name:            "unknown process",
			target:          "/worker/pricing",
			engineErr:       engine.NewError(engine.OpCreateInstanceWithResult, engine.CodeNotFound, errors.New("no process")),
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "Camunda process pricing not found",
			expectEngine:    true,
		},
		{
			name:            "timeout",
			target:          "/worker/pricing",
			engineErr:       engine.NewError(engine.OpCreateInstanceWithResult, engine.CodeDeadlineExceeded, nil),
			expectedStatus:  http.StatusRequestTimeout,
			expectedMessage: "Camunda process pricing timeout",
			expectEngine:    true,
		},
		{
			name:            "engine down",
			target:          "/worker/pricing",
			engineErr:       engine.NewError(engine.OpCreateInstanceWithResult, engine.CodeUnavailable, nil),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedMessage: "Camunda/Zeebe engine not responding",
			expectEngine:    true,
		},
		{
			name:            "business error",
			target:          "/worker/pricing",
			result:          map[string]any{bridge.ErrorKey: "amount too large", bridge.ErrorCodeKey: float64(422)},
			expectedStatus:  http.StatusUnprocessableEntity,
			expectedMessage: "amount too large",
			expectEngine:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mocks.MockEngineClient{Err: tt.engineErr}
			if tt.engineErr == nil {
				client.Result = &engine.InstanceResult{Variables: tt.result}
			}
			router := newProcessRouter(t, client)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedMessage, decodeMap(t, rr)["error"])
			if tt.expectEngine {
				assert.Equal(t, 1, client.CreateCalls())
			} else {
				assert.Zero(t, client.CreateCalls(), "validation failures must not reach the engine")
			}
		})
	}
}

func TestStartWorkflow(t *testing.T) {
	var gotProcess string
	client := &mocks.MockEngineClient{
		CreateInstanceFn: func(_ context.Context, processID string, _ map[string]any) (*engine.Instance, error) {
			gotProcess = processID
			return &engine.Instance{InstanceKey: 2251799813685249, ProcessID: processID}, nil
		},
	}
	router := newProcessRouter(t, client)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/workflow/onboarding?userid=7", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "onboarding", gotProcess)
	assert.JSONEq(t, `{"processID":2251799813685249}`, rr.Body.String())
}

func TestStartWorkflow_TimeoutIsGatewayTimeout(t *testing.T) {
	client := &mocks.MockEngineClient{
		Err: engine.NewError(engine.OpCreateInstance, engine.CodeDeadlineExceeded, nil),
	}
	router := newProcessRouter(t, client)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/workflow/onboarding", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
}

func TestSubmitForm(t *testing.T) {
	tests := []struct {
		name           string
		contentType    string
		body           string
		expectedStatus int
		expectedVars   map[string]any
	}{
		{
			name:           "json body",
			contentType:    "application/json",
			body:           `{"first":"Ada","age":36}`,
			expectedStatus: http.StatusOK,
			expectedVars: map[string]any{
				"first": map[string]any{"value": "Ada"},
				"age":   map[string]any{"value": float64(36)},
			},
		},
		{
			name:           "url-encoded body",
			contentType:    "application/x-www-form-urlencoded; charset=utf-8",
			body:           "first=Ada&first=ignored",
			expectedStatus: http.StatusOK,
			expectedVars: map[string]any{
				"first": map[string]any{"value": "Ada"},
			},
		},
		{
			name:           "unsupported content type",
			contentType:    "text/plain",
			body:           "first=Ada",
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "json array",
			contentType:    "application/json",
			body:           `["Ada"]`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotVars map[string]any
			client := &mocks.MockEngineClient{
				CreateInstanceFn: func(_ context.Context, _ string, vars map[string]any) (*engine.Instance, error) {
					gotVars = vars
					return &engine.Instance{InstanceKey: 3}, nil
				},
			}
			router := newProcessRouter(t, client)

			req := httptest.NewRequest(http.MethodPost, "/form/application", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "POSTED", rr.Body.String())
				assert.Equal(t, tt.expectedVars, gotVars)
			} else {
				assert.Zero(t, client.CreateCalls())
			}
		})
	}
}

func TestProcessAlias(t *testing.T) {
	client := &mocks.MockEngineClient{
		CreateInstanceWithResultFn: echoResult(map[string]any{"answer": "yes"}),
		Instance:                   &engine.Instance{InstanceKey: 9},
	}
	router := newProcessRouter(t, client)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/process/ask", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"answer": "yes"}, decodeMap(t, rr))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/process/ask", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"processID":9}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/process/ask", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))
}

func TestNewProcessHandlerPanics(t *testing.T) {
	log, _ := logger.GetTestLogger(t)
	assert.Panics(t, func() { NewProcessHandler(nil, log) })
	assert.Panics(t, func() {
		NewProcessHandler(bridge.New(&mocks.MockEngineClient{}, config.EngineConfig{}, log), nil)
	})
}
