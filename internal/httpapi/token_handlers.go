package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"guardianchain.app/internal/auth"
)

type issueTokenRequest struct {
	AccountID   string   `json:"account_id" validate:"required,max=128"`
	Permissions []string `json:"permissions" validate:"max=64,dive,required,max=128"`
}

type issueTokenResponse struct {
	Success   bool           `json:"success"`
	Token     string         `json:"token"`
	IssuedAt  time.Time      `json:"issued_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	Principal auth.Principal `json:"principal"`
}

// issueToken mints a token for a directory account. The caller must hold
// every right the minted token would carry.
func (a *API) issueToken(w http.ResponseWriter, r *http.Request) {
	issuer, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req issueTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.AccountID = strings.TrimSpace(req.AccountID)
	if err := a.validate.StructCtx(r.Context(), req); err != nil {
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	custom := make([]auth.Permission, 0, len(req.Permissions))
	for _, raw := range req.Permissions {
		if p := auth.Permission(strings.TrimSpace(raw)); p != "" {
			custom = append(custom, p)
		}
	}

	basis, err := a.directory.LookupAccount(r.Context(), req.AccountID)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "account not found")
		return
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	default:
		a.logger.ErrorContext(r.Context(), "account lookup failed",
			slog.String("account_id", req.AccountID), slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "account lookup failed")
		return
	}

	if p, denied := undelegable(issuer, basis.Role, custom); denied {
		writeErrorFields(w, r, http.StatusForbidden, "Cannot delegate permission "+string(p), map[string]any{
			"requiredPermission": string(p),
		})
		return
	}

	token, err := a.codec.Issue(basis, custom...)
	if err != nil {
		if errors.Is(err, auth.ErrUnknownPermission) || errors.Is(err, auth.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.ErrorContext(r.Context(), "token issuance failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}
	subject, err := a.codec.Parse(token.Value)
	if err != nil {
		a.logger.ErrorContext(r.Context(), "issued token failed verification", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	a.metrics.ObserveIssued(subject.Role.String(), subject.Tier.String())
	_ = a.audit.Record(r.Context(), "auth.token.issued", map[string]any{
		"issuer":     issuer.ID,
		"subject":    subject.ID,
		"role":       subject.Role.String(),
		"tier":       subject.Tier.String(),
		"custom":     len(custom),
		"expires_at": token.ExpiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, issueTokenResponse{
		Success:   true,
		Token:     token.Value,
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
		Principal: subject,
	})
}

// undelegable returns the first right of a token for role plus custom that
// issuer cannot hand out. A MASTER_ADMIN subject or a wildcard right needs a
// MASTER_ADMIN issuer.
func undelegable(issuer auth.Principal, role auth.Role, custom []auth.Permission) (auth.Permission, bool) {
	if !role.Valid() {
		role = auth.RoleUser
	}
	effective := auth.DefaultGrants(role).Union(auth.NewPermissionSet(custom...))
	if (role == auth.RoleMasterAdmin || effective.Contains(auth.Wildcard)) && !issuer.IsMasterAdmin() {
		return auth.Wildcard, true
	}
	for _, p := range effective.Sorted() {
		if !issuer.HasPermission(p) {
			return p, true
		}
	}
	return "", false
}
