package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"guardianchain.app/internal/audit"
	"guardianchain.app/internal/auth"
	"guardianchain.app/internal/obs"
)

const defaultRequestTimeout = 15 * time.Second

// ReadyProbe checks readiness, for example by pinging the account database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options configures the HTTP layer. Codec is required; everything else has a default.
type Options struct {
	Codec          *auth.Codec
	Directory      auth.Directory
	Ready          ReadyProbe
	Logger         *slog.Logger
	Metrics        *obs.Metrics
	Gatherer       prometheus.Gatherer
	Audit          *audit.Recorder
	Version        string
	RequestTimeout time.Duration
	Production     bool
}

// API is the HTTP layer hosting the authorization engine.
type API struct {
	router    chi.Router
	codec     *auth.Codec
	directory auth.Directory
	ready     ReadyProbe
	authz     *Authorizer
	logger    *slog.Logger
	metrics   *obs.Metrics
	audit     *audit.Recorder
	validate  *validator.Validate
	version   string
	started   time.Time
}

func New(opts Options) (*API, error) {
	if opts.Codec == nil {
		return nil, errors.New("httpapi: codec is required")
	}
	if opts.Logger == nil {
		opts.Logger = obs.Discard()
	}
	if opts.Directory == nil {
		opts.Directory = auth.NewStaticDirectory()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.NewRegistry()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	a := &API{
		codec:     opts.Codec,
		directory: opts.Directory,
		ready:     opts.Ready,
		authz:     NewAuthorizer(opts.Codec, opts.Logger, opts.Metrics, opts.Audit),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		audit:     opts.Audit,
		validate:  newValidator(),
		version:   opts.Version,
		started:   time.Now().UTC(),
	}

	r := chi.NewRouter()
	r.Use(
		RequestID,
		middleware.RealIP,
		LoggingJSON(opts.Logger),
		middleware.Recoverer,
		opts.Metrics.Instrument(routePattern),
		SecurityHeaders(opts.Production, opts.Logger),
		middleware.Timeout(opts.RequestTimeout),
		a.authz.Authenticate,
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Method(http.MethodGet, "/metrics", obs.Handler(opts.Gatherer))

	r.Get("/v1/tiers", a.listTiers)
	r.Get("/v1/tiers/{tier}", a.getTier)

	r.Group(func(r chi.Router) {
		r.Use(a.authz.RequireAuth)
		r.Get("/v1/me", a.me)
		r.Post("/v1/access/check", a.checkAccess)
	})
	r.Group(func(r chi.Router) {
		r.Use(a.authz.RequireRole(auth.RoleAdmin))
		r.Get("/v1/permissions", a.listPermissions)
		r.Get("/v1/roles", a.listRoles)
	})
	r.With(a.authz.RequirePermission(auth.PermTokensIssue)).Post("/v1/tokens", a.issueToken)
	r.With(a.authz.RequireMasterAdmin).Get("/v1/admin/engine", a.engine)

	a.router = r
	return a, nil
}

// Handler returns the root handler for the server.
func (a *API) Handler() http.Handler {
	return a.router
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "guardianchain-authz",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		a.logger.WarnContext(r.Context(), "readiness check failed", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":       "guardianchain-authz",
		"time":       time.Now().UTC().Format(time.RFC3339),
		"started_at": a.started.Format(time.RFC3339),
		"version":    a.version,
	})
}
