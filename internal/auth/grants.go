package auth

import "slices"

var userGrants = []Permission{
	PermCapsuleCreate,
	PermCapsuleRead,
	PermCapsuleUpdate,
	PermVaultAccess,
	PermVerificationVote,
	PermProfileManage,
}

var adminGrants = append(slices.Clone(userGrants),
	PermCapsuleModerate,
	PermCapsuleDelete,
	PermUsersRead,
	PermAnalyticsView,
	PermVerificationManage,
)

var commanderGrants = append(slices.Clone(adminGrants),
	PermUsersManage,
	PermDAOPropose,
	PermDAOManage,
	PermTreasuryView,
	PermComplianceReview,
	PermSystemMonitor,
)

var founderGrants = append(slices.Clone(commanderGrants),
	PermAnalyticsExport,
	PermTreasuryManage,
	PermBillingManage,
	PermSystemConfigure,
	PermTokensIssue,
)

var defaultGrants = map[Role][]Permission{
	RoleUser:        userGrants,
	RoleAdmin:       adminGrants,
	RoleCommander:   commanderGrants,
	RoleFounder:     founderGrants,
	RoleMasterAdmin: {Wildcard},
}

// DefaultGrants returns a fresh copy of the baseline permission set for role.
// RoleUnknown has no grants.
func DefaultGrants(role Role) PermissionSet {
	return NewPermissionSet(defaultGrants[role]...)
}
