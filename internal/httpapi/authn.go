package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"guardianchain.app/internal/audit"
	"guardianchain.app/internal/auth"
	"guardianchain.app/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// Verifier turns a bearer token into an AuthContext without ever failing.
type Verifier interface {
	Verify(token string) auth.AuthContext
}

// Authorizer hosts the Authenticate middleware and the gate middlewares.
type Authorizer struct {
	verifier Verifier
	logger   *slog.Logger
	metrics  *obs.Metrics
	audit    *audit.Recorder
}

// NewAuthorizer wires an Authorizer. logger, metrics and recorder may be nil.
func NewAuthorizer(v Verifier, logger *slog.Logger, metrics *obs.Metrics, recorder *audit.Recorder) *Authorizer {
	if logger == nil {
		logger = obs.Discard()
	}
	return &Authorizer{verifier: v, logger: logger, metrics: metrics, audit: recorder}
}

// Authenticate resolves the bearer token into an AuthContext and attaches it
// to the request. It never rejects: a missing or bad token yields PUBLIC.
func (a *Authorizer) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac := auth.Public()
		token, ok := extractBearerToken(r.Header.Get(authHeader))
		if ok && a.verifier != nil {
			ac = a.verifier.Verify(token)
		}
		a.metrics.ObserveVerification(strings.ToLower(ac.Level.String()))

		ctx := auth.WithAuthContext(r.Context(), ac)
		if ac.IsAuthenticated() {
			ctx = auth.ContextWithToken(ctx, token)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
