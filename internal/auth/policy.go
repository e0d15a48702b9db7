package auth

// HasRole reports whether actual ranks at least as high as required.
func HasRole(actual, required Role) bool {
	return actual.Rank() >= required.Rank()
}

// HasTier reports whether actual ranks at least as high as required.
func HasTier(actual, required Tier) bool {
	return actual.Rank() >= required.Rank()
}

// HasPermission reports whether granted holds the wildcard or required itself.
func HasPermission(granted PermissionSet, required Permission) bool {
	return granted.Contains(Wildcard) || granted.Contains(required)
}
