package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"guardianchain.app/internal/auth"
)

func (a *API) listTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tiers":   auth.Plans(),
	})
}

func (a *API) getTier(w http.ResponseWriter, r *http.Request) {
	tier, ok := auth.ParseTier(chi.URLParam(r, "tier"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown tier")
		return
	}
	plan, _ := auth.PlanOf(tier)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"plan":    plan,
	})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	body := map[string]any{
		"success":   true,
		"principal": p,
		"features":  auth.FeaturesOf(p.Tier),
	}
	if plan, ok := auth.PlanOf(p.Tier); ok {
		body["plan"] = plan
	}
	writeJSON(w, http.StatusOK, body)
}

type accessCheckRequest struct {
	Role       string `json:"role" validate:"required_without_all=Tier Permission,max=32"`
	Tier       string `json:"tier" validate:"max=32"`
	Permission string `json:"permission" validate:"max=128"`
}

type accessCheckResponse struct {
	Success       bool  `json:"success"`
	HasRole       *bool `json:"hasRole,omitempty"`
	HasTier       *bool `json:"hasTier,omitempty"`
	HasPermission *bool `json:"hasPermission,omitempty"`
}

// checkAccess answers role, tier and permission questions about the caller
// with the same predicates the gates use.
func (a *API) checkAccess(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req accessCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Role = strings.TrimSpace(req.Role)
	req.Tier = strings.TrimSpace(req.Tier)
	req.Permission = strings.TrimSpace(req.Permission)
	if err := a.validate.StructCtx(r.Context(), req); err != nil {
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	resp := accessCheckResponse{Success: true}
	if req.Role != "" {
		role, ok := auth.ParseRole(req.Role)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "unknown role "+req.Role)
			return
		}
		resp.HasRole = boolPtr(p.HasRole(role))
	}
	if req.Tier != "" {
		tier, ok := auth.ParseTier(req.Tier)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "unknown tier "+req.Tier)
			return
		}
		resp.HasTier = boolPtr(p.HasTier(tier))
	}
	if req.Permission != "" {
		resp.HasPermission = boolPtr(p.HasPermission(auth.Permission(req.Permission)))
	}
	writeJSON(w, http.StatusOK, resp)
}

func boolPtr(b bool) *bool { return &b }

func (a *API) listPermissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"permissions": auth.Registry(),
	})
}

type roleView struct {
	Role        auth.Role          `json:"role"`
	Rank        int                `json:"rank"`
	Permissions auth.PermissionSet `json:"permissions"`
}

func (a *API) listRoles(w http.ResponseWriter, r *http.Request) {
	roles := auth.Roles()
	out := make([]roleView, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleView{Role: role, Rank: role.Rank(), Permissions: auth.DefaultGrants(role)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"roles":   out,
	})
}

type rankView struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// engine exposes the effective configuration of the authorization engine.
func (a *API) engine(w http.ResponseWriter, r *http.Request) {
	roles := make([]rankView, 0, len(auth.Roles()))
	for _, role := range auth.Roles() {
		roles = append(roles, rankView{Name: role.String(), Rank: role.Rank()})
	}
	tiers := make([]rankView, 0, len(auth.Tiers()))
	for _, tier := range auth.Tiers() {
		tiers = append(tiers, rankView{Name: tier.String(), Rank: tier.Rank()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"version":           a.version,
		"token_ttl":         a.codec.TTL().String(),
		"token_ttl_seconds": int64(a.codec.TTL().Seconds()),
		"registry_size":     len(auth.Registry()),
		"roles":             roles,
		"tiers":             tiers,
	})
}
