package auth

import (
	"encoding/json"
	"slices"
	"strings"
)

// Permission is an opaque capability identifier. Only set membership matters.
type Permission string

// Wildcard grants every permission, registered or not.
const Wildcard Permission = "*"

const (
	PermCapsuleCreate      Permission = "capsule.create"
	PermCapsuleRead        Permission = "capsule.read"
	PermCapsuleUpdate      Permission = "capsule.update"
	PermCapsuleDelete      Permission = "capsule.delete"
	PermCapsuleModerate    Permission = "capsule.moderate"
	PermVaultAccess        Permission = "vault.access"
	PermVerificationVote   Permission = "verification.vote"
	PermVerificationManage Permission = "verification.manage"
	PermProfileManage      Permission = "profile.manage"
	PermUsersRead          Permission = "users.read"
	PermUsersManage        Permission = "users.manage"
	PermAnalyticsView      Permission = "analytics.view"
	PermAnalyticsExport    Permission = "analytics.export"
	PermDAOPropose         Permission = "dao.propose"
	PermDAOManage          Permission = "dao.manage"
	PermTreasuryView       Permission = "treasury.view"
	PermTreasuryManage     Permission = "treasury.manage"
	PermComplianceReview   Permission = "compliance.review"
	PermBillingManage      Permission = "billing.manage"
	PermSystemMonitor      Permission = "system.monitor"
	PermSystemConfigure    Permission = "system.configure"
	PermTokensIssue        Permission = "tokens.issue"
)

var registry = map[Permission]string{
	Wildcard:               "All permissions",
	PermCapsuleCreate:      "Create capsules",
	PermCapsuleRead:        "Read capsules",
	PermCapsuleUpdate:      "Update own capsules",
	PermCapsuleDelete:      "Delete any capsule",
	PermCapsuleModerate:    "Moderate capsule content",
	PermVaultAccess:        "Access the truth vault",
	PermVerificationVote:   "Vote on capsule verification",
	PermVerificationManage: "Manage verification queues",
	PermProfileManage:      "Manage own profile",
	PermUsersRead:          "View user accounts",
	PermUsersManage:        "Manage user accounts",
	PermAnalyticsView:      "View platform analytics",
	PermAnalyticsExport:    "Export platform analytics",
	PermDAOPropose:         "Submit DAO proposals",
	PermDAOManage:          "Manage DAO governance",
	PermTreasuryView:       "View treasury balances",
	PermTreasuryManage:     "Move treasury funds",
	PermComplianceReview:   "Review compliance reports",
	PermBillingManage:      "Manage billing and subscriptions",
	PermSystemMonitor:      "Monitor system health",
	PermSystemConfigure:    "Change system configuration",
	PermTokensIssue:        "Issue access tokens",
}

// RegistryEntry pairs a permission with its description.
type RegistryEntry struct {
	Permission  Permission `json:"permission"`
	Description string     `json:"description"`
}

// Registry returns every registered permission, sorted by identifier.
func Registry() []RegistryEntry {
	out := make([]RegistryEntry, 0, len(registry))
	for p, desc := range registry {
		out = append(out, RegistryEntry{Permission: p, Description: desc})
	}
	slices.SortFunc(out, func(a, b RegistryEntry) int {
		return strings.Compare(string(a.Permission), string(b.Permission))
	})
	return out
}

// IsRegistered reports whether p is part of the closed registry (wildcard included).
func IsRegistered(p Permission) bool {
	_, ok := registry[p]
	return ok
}

// Describe returns the human-readable description of p.
func Describe(p Permission) (string, bool) {
	desc, ok := registry[p]
	return desc, ok
}

// PermissionSet is an unordered set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from perms, dropping blanks and duplicates.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		p = Permission(strings.TrimSpace(string(p)))
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return set
}

// Contains reports exact membership, without wildcard expansion.
func (s PermissionSet) Contains(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Union returns a new set holding every member of s and other.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	out := make(PermissionSet, len(s)+len(other))
	for p := range s {
		out[p] = struct{}{}
	}
	for p := range other {
		out[p] = struct{}{}
	}
	return out
}

// Clone returns a copy of s.
func (s PermissionSet) Clone() PermissionSet {
	return s.Union(nil)
}

// Equal reports whether s and other hold the same members.
func (s PermissionSet) Equal(other PermissionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if _, ok := other[p]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the members in lexical order, for stable serialization.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Strings is Sorted as plain strings.
func (s PermissionSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, p := range sorted {
		out[i] = string(p)
	}
	return out
}

func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var raw []Permission
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewPermissionSet(raw...)
	return nil
}
