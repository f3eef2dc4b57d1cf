package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/service"
	"github.com/courseloop/runtimegw/internal/runtime/store"
	"github.com/courseloop/runtimegw/pkg/httpx"
	"github.com/courseloop/runtimegw/pkg/jwtx"
	"github.com/courseloop/runtimegw/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys           *jwtx.KeySet
	allowedOrigins []string
	featureEnabled bool
	buildVersion   string
	startTime      time.Time
	logger         *slog.Logger

	store store.Store

	// Shared write-policy stores so every capability endpoint counts
	// against the same windows.
	counters httpx.CounterStore
	idem     httpx.IdempotencyStore

	Guard           *service.Guard
	SessionVerifier *jwtx.Verifier
	LaunchService   *service.LaunchService
	ExchangeService *service.ExchangeService
	Telemetry       *service.TelemetryService
	Checkpoints     *service.CheckpointService
	Assets          *service.AssetService
}

func NewRouter(
	keys *jwtx.KeySet,
	allowedOrigins []string,
	featureEnabled bool,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		keys:           keys,
		allowedOrigins: allowedOrigins,
		featureEnabled: featureEnabled,
		buildVersion:   buildVersion,
		startTime:      time.Now(),
		store:          st,
		logger:         logger,
		counters:       httpx.NewMemoryCounterStore(),
		idem:           httpx.NewMemoryIdempotencyStore(),
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) ApplyRoutes() {
	r.registerLaunch()
	r.registerRuntime()
	r.registerSystem()
}

// registerLaunch wires the two public token endpoints. Both are gated on the
// feature flag and IP rate limited against brute force.
func (r *Router) registerLaunch() {
	launchHandler := &LaunchTokenHandler{
		LaunchService:   r.LaunchService,
		SessionVerifier: r.SessionVerifier,
	}
	r.handleRuntime("POST /v1/runtime/launch-token",
		httpx.Chain(launchHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	exchangeHandler := &ExchangeHandler{ExchangeService: r.ExchangeService}
	r.handleRuntime("POST /v1/runtime/exchange",
		httpx.Chain(exchangeHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

// registerRuntime wires the capability endpoints an external runtime calls
// with a bearer runtime token.
func (r *Router) registerRuntime() {
	r.handleRuntime("GET /v1/runtime/context", &ContextHandler{
		Guard: r.Guard,
		Store: r.store,
	})

	r.handleRuntime("POST /v1/runtime/progress", &ProgressHandler{
		Guard:     r.Guard,
		Telemetry: r.Telemetry,
		policy:    r.writePolicy("progress", httpx.RuntimeWriteLimit),
	})

	r.handleRuntime("POST /v1/runtime/grade", &GradeHandler{
		Guard:     r.Guard,
		Telemetry: r.Telemetry,
		policy:    r.writePolicy("grade", httpx.RuntimeWriteLimit),
	})

	r.handleRuntime("POST /v1/runtime/events", &EventsHandler{
		Guard:     r.Guard,
		Telemetry: r.Telemetry,
		policy:    r.writePolicy("events", httpx.RuntimeWriteLimit),
	})

	checkpointHandler := &CheckpointHandler{
		Guard:       r.Guard,
		Checkpoints: r.Checkpoints,
		policy:      r.writePolicy("checkpoint", httpx.RuntimeWriteLimit),
	}
	r.handleRuntime("POST /v1/runtime/checkpoint", http.HandlerFunc(checkpointHandler.HandleSave))
	r.handleRuntime("GET /v1/runtime/checkpoint", http.HandlerFunc(checkpointHandler.HandleLoad))

	// Sign-url responses are descriptors, not {ok}, so replay suppression
	// does not apply; only the rate limit does.
	r.handleRuntime("POST /v1/runtime/assets/sign-url", &AssetSignHandler{
		Guard:  r.Guard,
		Assets: r.Assets,
		policy: writePolicy{op: "asset-sign", limit: httpx.AssetSignLimit, counters: r.counters},
	})

	// One preflight handler covers every runtime route.
	r.Mux.Handle("OPTIONS /v1/runtime/", httpx.PreflightHandler(r.allowedOrigins))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

// handleRuntime registers a runtime-facing route behind the feature gate and
// the CORS middleware.
func (r *Router) handleRuntime(pattern string, h http.Handler) {
	r.Mux.Handle(pattern, httpx.Chain(h,
		featureGate(r.featureEnabled),
		httpx.CORSMiddleware(r.allowedOrigins),
	))
}

func (r *Router) writePolicy(op string, limit httpx.WindowLimit) writePolicy {
	return writePolicy{
		op:       op,
		limit:    limit,
		counters: r.counters,
		idem:     r.idem,
	}
}

// featureGate hides every runtime route when the feature flag is off.
func featureGate(enabled bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !enabled {
				httpx.Error(w, req, http.StatusNotFound, httpx.CodeNotFound, "Not found")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
