package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/api/shared"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/engine"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/platform/logger"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/redact"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/service/auth"
)

// NoKeyMessage is served by /token when no signing secret is configured.
const NoKeyMessage = "NO KEY AVAILABLE TO GENERATE TOKEN!"

// TopologyResponse is the JSON form of the engine topology.
type TopologyResponse struct {
	GatewayVersion    string `json:"gatewayVersion"`
	ClusterSize       int32  `json:"clusterSize"`
	PartitionsCount   int32  `json:"partitionsCount"`
	ReplicationFactor int32  `json:"replicationFactor"`
}

// SystemHandler serves the unauthenticated engine, environment and token routes.
type SystemHandler struct {
	prober     engine.Prober
	jwtService auth.JWTService
	routes     chi.Routes
	environ    func() []string
	logger     *slog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(prober engine.Prober, jwtService auth.JWTService, logger *slog.Logger) *SystemHandler {
	if prober == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("prober cannot be nil for SystemHandler")
	}
	if jwtService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("jwtService cannot be nil for SystemHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for SystemHandler")
	}

	return &SystemHandler{
		prober:     prober,
		jwtService: jwtService,
		environ:    os.Environ,
		logger:     logger.With(slog.String("component", "system_handler")),
	}
}

// SetRoutes gives the handler the router whose routes /environment lists.
func (h *SystemHandler) SetRoutes(routes chi.Routes) {
	h.routes = routes
}

// EngineStatus handles GET /zeebe-engine and GET /lifecheck. It reports the
// engine topology as text lines, or as JSON when the caller accepts it.
func (h *SystemHandler) EngineStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	topology, err := h.prober.Topology(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable,
			"Camunda/Zeebe engine not responding", err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		shared.RespondWithJSON(w, r, http.StatusOK, TopologyResponse{
			GatewayVersion:    topology.GatewayVersion,
			ClusterSize:       topology.ClusterSize,
			PartitionsCount:   topology.PartitionsCount,
			ReplicationFactor: topology.ReplicationFactor,
		})
		return
	}

	log.Debug("engine topology",
		slog.String("gateway_version", topology.GatewayVersion),
		slog.Int("brokers", len(topology.Brokers)))

	var b strings.Builder
	fmt.Fprintf(&b, "Gateway version = %s\n", topology.GatewayVersion)
	fmt.Fprintf(&b, "Cluster size = %d\n", topology.ClusterSize)
	fmt.Fprintf(&b, "Partitions count = %d\n", topology.PartitionsCount)
	fmt.Fprintf(&b, "Replication factor = %d\n", topology.ReplicationFactor)
	shared.RespondWithText(w, r, http.StatusOK, b.String())
}

// Environment handles GET /environment. It lists the process environment
// with secret values redacted, the CPU count and the served routes.
func (h *SystemHandler) Environment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	env := h.environ()
	lines := make([]string, 0, len(env)+2)
	for _, kv := range env {
		name, value, _ := strings.Cut(kv, "=")
		lines = append(lines, name+"="+redact.EnvValue(name, value))
	}
	sort.Strings(lines)

	lines = append(lines, fmt.Sprintf("CPU_CORES=%d", runtime.NumCPU()))
	lines = append(lines, "ROUTES="+strings.Join(h.routeList(log), ", "))

	shared.RespondWithText(w, r, http.StatusOK, strings.Join(lines, "\n")+"\n")
}

// Token handles GET /token. It issues a signed token, or a fixed notice when
// there is no key to sign with.
func (h *SystemHandler) Token(w http.ResponseWriter, r *http.Request) {
	token, err := h.jwtService.GenerateToken(r.Context())
	if errors.Is(err, auth.ErrNoSigningKey) {
		shared.RespondWithText(w, r, http.StatusOK, NoKeyMessage)
		return
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate token", err)
		return
	}

	shared.RespondWithText(w, r, http.StatusOK, token)
}

func (h *SystemHandler) routeList(log *slog.Logger) []string {
	if h.routes == nil {
		return nil
	}

	var routes []string
	err := chi.Walk(h.routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	if err != nil {
		log.Warn("failed to walk routes", "error", err)
	}
	sort.Strings(routes)
	return routes
}
