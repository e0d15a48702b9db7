package auth

import (
	"fmt"
	"strings"
)

// Basis is the identity an issuer starts from. Zero Role and Tier mean
// "omitted" and resolve to RoleUser and TierExplorer.
type Basis struct {
	ID    string
	Email string
	Role  Role
	Tier  Tier
}

func (b Basis) normalize() (Basis, error) {
	b.ID = strings.TrimSpace(b.ID)
	b.Email = strings.TrimSpace(b.Email)
	if b.ID == "" {
		return Basis{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if b.Email == "" {
		return Basis{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if !b.Role.Valid() {
		b.Role = RoleUser
	}
	if !b.Tier.Valid() {
		b.Tier = TierExplorer
	}
	return b, nil
}

// Principal is the resolved identity and rights of a caller. Permissions are
// exactly what was embedded at issuance.
type Principal struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	Role        Role          `json:"role"`
	Tier        Tier          `json:"tier"`
	Permissions PermissionSet `json:"permissions"`
}

func (p Principal) HasRole(required Role) bool {
	return HasRole(p.Role, required)
}

func (p Principal) HasTier(required Tier) bool {
	return HasTier(p.Tier, required)
}

func (p Principal) HasPermission(required Permission) bool {
	return HasPermission(p.Permissions, required)
}

// IsMasterAdmin is an exact role match, not a rank comparison.
func (p Principal) IsMasterAdmin() bool {
	return p.Role == RoleMasterAdmin
}

// Equal compares principals with set semantics for permissions.
func (p Principal) Equal(other Principal) bool {
	return p.ID == other.ID &&
		p.Email == other.Email &&
		p.Role == other.Role &&
		p.Tier == other.Tier &&
		p.Permissions.Equal(other.Permissions)
}
