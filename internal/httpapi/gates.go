package httpapi

import (
	"log/slog"
	"net/http"

	"guardianchain.app/internal/auth"
	"guardianchain.app/internal/obs"
)

const realm = `Bearer realm="guardianchain"`

// Rejection is a gate's refusal. Details are merged into the JSON body next
// to success, message and request_id.
type Rejection struct {
	Status  int
	Message string
	Details map[string]any
}

// Gate is a named predicate over an AuthContext. Check returns nil to let the
// request through. Gates never modify the context they inspect.
type Gate struct {
	Name  string
	Check func(auth.AuthContext) *Rejection
}

func unauthenticated() *Rejection {
	return &Rejection{
		Status:  http.StatusUnauthorized,
		Message: "Authentication required",
		Details: map[string]any{"requiresAuth": true},
	}
}

// AuthGate admits any authenticated context.
func AuthGate() Gate {
	return Gate{Name: "require_auth", Check: func(ac auth.AuthContext) *Rejection {
		if ac.Level != auth.LevelAuthenticated || !ac.IsAuthenticated() {
			return unauthenticated()
		}
		return nil
	}}
}

// RoleGate admits principals whose role ranks at least required.
func RoleGate(required auth.Role) Gate {
	return Gate{Name: "require_role", Check: func(ac auth.AuthContext) *Rejection {
		p, ok := ac.Principal()
		if !ok {
			return unauthenticated()
		}
		if auth.HasRole(p.Role, required) {
			return nil
		}
		return &Rejection{
			Status:  http.StatusForbidden,
			Message: "Insufficient role: " + required.String() + " or higher required",
			Details: map[string]any{
				"currentRole":      p.Role.String(),
				"requiredRole":     required.String(),
				"currentRoleRank":  p.Role.Rank(),
				"requiredRoleRank": required.Rank(),
			},
		}
	}}
}

// TierGate admits principals whose tier ranks at least required.
func TierGate(required auth.Tier) Gate {
	return Gate{Name: "require_tier", Check: func(ac auth.AuthContext) *Rejection {
		p, ok := ac.Principal()
		if !ok {
			return unauthenticated()
		}
		if auth.HasTier(p.Tier, required) {
			return nil
		}
		return &Rejection{
			Status:  http.StatusForbidden,
			Message: "Upgrade to " + required.String() + " tier required",
			Details: map[string]any{
				"upgradeRequired": true,
				"currentTier":     p.Tier.String(),
				"requiredTier":    required.String(),
			},
		}
	}}
}

// PermissionGate admits principals holding required or the wildcard.
func PermissionGate(required auth.Permission) Gate {
	return Gate{Name: "require_permission", Check: func(ac auth.AuthContext) *Rejection {
		p, ok := ac.Principal()
		if !ok {
			return unauthenticated()
		}
		if auth.HasPermission(p.Permissions, required) {
			return nil
		}
		return &Rejection{
			Status:  http.StatusForbidden,
			Message: "Missing permission " + string(required),
			Details: map[string]any{
				"currentPermissions": p.Permissions.Strings(),
				"requiredPermission": string(required),
			},
		}
	}}
}

// MasterAdminGate admits only MASTER_ADMIN. It answers 403 even without a principal.
func MasterAdminGate() Gate {
	return Gate{Name: "require_master_admin", Check: func(ac auth.AuthContext) *Rejection {
		p, ok := ac.Principal()
		if ok && p.IsMasterAdmin() {
			return nil
		}
		return &Rejection{
			Status:  http.StatusForbidden,
			Message: "Master admin access required",
			Details: map[string]any{"requiresMasterAdmin": true},
		}
	}}
}

// Evaluate runs gates in order against ac and returns the first rejection
// together with the rejecting gate's name.
func Evaluate(ac auth.AuthContext, gates ...Gate) (string, *Rejection) {
	for _, g := range gates {
		if rj := g.Check(ac); rj != nil {
			return g.Name, rj
		}
	}
	return "", nil
}

// Require applies gates in order; the first failing gate short-circuits the chain.
func (a *Authorizer) Require(gates ...Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := auth.FromContext(r.Context())
			for _, g := range gates {
				rj := g.Check(ac)
				if rj == nil {
					a.metrics.ObserveGate(g.Name, obs.OutcomeAllow)
					continue
				}
				a.reject(w, r, g.Name, ac, rj)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authorizer) RequireAuth(next http.Handler) http.Handler {
	return a.Require(AuthGate())(next)
}

func (a *Authorizer) RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return a.Require(RoleGate(role))
}

func (a *Authorizer) RequireTier(tier auth.Tier) func(http.Handler) http.Handler {
	return a.Require(TierGate(tier))
}

func (a *Authorizer) RequirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return a.Require(PermissionGate(perm))
}

func (a *Authorizer) RequireMasterAdmin(next http.Handler) http.Handler {
	return a.Require(MasterAdminGate())(next)
}

func (a *Authorizer) reject(w http.ResponseWriter, r *http.Request, gate string, ac auth.AuthContext, rj *Rejection) {
	p, authenticated := ac.Principal()
	outcome := obs.OutcomeForbidden
	if rj.Status == http.StatusUnauthorized {
		outcome = obs.OutcomeUnauthenticated
	}
	// insufficient_scope only applies to a caller that presented a valid token.
	if authenticated && rj.Status == http.StatusForbidden {
		w.Header().Set("WWW-Authenticate", realm+`, error="insufficient_scope"`)
	} else {
		w.Header().Set("WWW-Authenticate", realm)
	}
	a.metrics.ObserveGate(gate, outcome)

	a.logger.InfoContext(r.Context(), "gate denied",
		slog.String("gate", gate),
		slog.Int("status", rj.Status),
		slog.String("principal_id", p.ID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	_ = a.audit.Record(r.Context(), "authz.denied", map[string]any{
		"gate":   gate,
		"status": rj.Status,
		"path":   r.URL.Path,
	})
	writeErrorFields(w, r, rj.Status, rj.Message, rj.Details)
}
