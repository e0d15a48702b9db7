package auth

// PlanLimits are the quantitative entitlements attached to a tier. They are
// facts for downstream business rules; nothing in this package enforces them.
type PlanLimits struct {
	CapsulesPerMonth  int     `json:"capsules_per_month"`
	StorageGB         int     `json:"storage_gb"`
	VerificationVotes int     `json:"verification_votes"`
	RewardMultiplier  float64 `json:"reward_multiplier"`
}

// Plan is the presentation view of a tier.
type Plan struct {
	Tier     Tier       `json:"tier"`
	Name     string     `json:"name"`
	Features []string   `json:"features"`
	Limits   PlanLimits `json:"limits"`
}

var plans = map[Tier]Plan{
	TierExplorer: {
		Tier: TierExplorer,
		Name: "Explorer",
		Features: []string{
			"5 capsule mints per month",
			"Basic verification access",
			"Community support",
			"Standard yield rate",
		},
		Limits: PlanLimits{CapsulesPerMonth: 5, StorageGB: 1, VerificationVotes: 5, RewardMultiplier: 1.00},
	},
	TierSeeker: {
		Tier: TierSeeker,
		Name: "Seeker",
		Features: []string{
			"25 capsule mints per month",
			"5% yield bonus",
			"Priority verification queue",
			"Basic analytics dashboard",
			"Email support",
		},
		Limits: PlanLimits{CapsulesPerMonth: 25, StorageGB: 5, VerificationVotes: 25, RewardMultiplier: 1.05},
	},
	TierCreator: {
		Tier: TierCreator,
		Name: "Creator",
		Features: []string{
			"100 capsule mints per month",
			"10% yield bonus",
			"Advanced analytics",
			"Custom verification seals",
			"Priority support",
			"Creator marketplace access",
		},
		Limits: PlanLimits{CapsulesPerMonth: 100, StorageGB: 25, VerificationVotes: 100, RewardMultiplier: 1.10},
	},
	TierSovereign: {
		Tier: TierSovereign,
		Name: "Sovereign",
		Features: []string{
			"500 capsule mints per month",
			"25% yield bonus",
			"Full analytics suite",
			"Custom branding options",
			"Dedicated support",
			"Early feature access",
			"API access",
			"Bulk operations",
		},
		Limits: PlanLimits{CapsulesPerMonth: 500, StorageGB: 100, VerificationVotes: 500, RewardMultiplier: 1.25},
	},
}

// FeaturesOf returns the ordered feature descriptions for tier. Unknown tiers
// have no features. The result is a copy.
func FeaturesOf(tier Tier) []string {
	p, ok := plans[tier]
	if !ok {
		return nil
	}
	out := make([]string, len(p.Features))
	copy(out, p.Features)
	return out
}

// PlanOf returns the plan for tier.
func PlanOf(tier Tier) (Plan, bool) {
	p, ok := plans[tier]
	if !ok {
		return Plan{}, false
	}
	p.Features = FeaturesOf(tier)
	return p, true
}

// Plans returns every plan in ascending tier order.
func Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, t := range Tiers() {
		p, _ := PlanOf(t)
		out = append(out, p)
	}
	return out
}
