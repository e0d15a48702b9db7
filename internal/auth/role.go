package auth

import (
	"encoding/json"
	"strings"
)

// Role is an administrative privilege level. The zero value is RoleUnknown,
// which ranks below every real role.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleUser
	RoleAdmin
	RoleCommander
	RoleFounder
	RoleMasterAdmin
)

var roleNames = [...]string{
	RoleUnknown:     "UNKNOWN",
	RoleUser:        "USER",
	RoleAdmin:       "ADMIN",
	RoleCommander:   "COMMANDER",
	RoleFounder:     "FOUNDER",
	RoleMasterAdmin: "MASTER_ADMIN",
}

// roleRanks must stay strictly increasing; MASTER_ADMIN is maximal.
var roleRanks = [...]int{
	RoleUnknown:     0,
	RoleUser:        1,
	RoleAdmin:       2,
	RoleCommander:   3,
	RoleFounder:     4,
	RoleMasterAdmin: 5,
}

// Roles lists every real role in ascending rank order.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleCommander, RoleFounder, RoleMasterAdmin}
}

// ParseRole resolves a role name. Unrecognized input yields RoleUnknown and false.
func ParseRole(s string) (Role, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, r := range Roles() {
		if roleNames[r] == s {
			return r, true
		}
	}
	return RoleUnknown, false
}

// Rank returns the hierarchy rank of r. Out-of-range values rank 0.
func (r Role) Rank() int {
	if int(r) >= len(roleRanks) {
		return 0
	}
	return roleRanks[r]
}

// Valid reports whether r is one of the five real roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

func (r Role) String() string {
	if int(r) >= len(roleNames) {
		return roleNames[RoleUnknown]
	}
	return roleNames[r]
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON never fails on an unrecognized name; it falls to RoleUnknown.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r, _ = ParseRole(s)
	return nil
}
