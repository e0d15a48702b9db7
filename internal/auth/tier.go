package auth

import (
	"encoding/json"
	"strings"
)

// Tier is a subscription entitlement level, orthogonal to Role. The zero value
// is TierUnknown, which ranks below every real tier.
type Tier uint8

const (
	TierUnknown Tier = iota
	TierExplorer
	TierSeeker
	TierCreator
	TierSovereign
)

var tierNames = [...]string{
	TierUnknown:   "UNKNOWN",
	TierExplorer:  "EXPLORER",
	TierSeeker:    "SEEKER",
	TierCreator:   "CREATOR",
	TierSovereign: "SOVEREIGN",
}

var tierRanks = [...]int{
	TierUnknown:   0,
	TierExplorer:  1,
	TierSeeker:    2,
	TierCreator:   3,
	TierSovereign: 4,
}

// Tiers lists every real tier in ascending rank order.
func Tiers() []Tier {
	return []Tier{TierExplorer, TierSeeker, TierCreator, TierSovereign}
}

// ParseTier resolves a tier name. Unrecognized input yields TierUnknown and false.
func ParseTier(s string) (Tier, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, t := range Tiers() {
		if tierNames[t] == s {
			return t, true
		}
	}
	return TierUnknown, false
}

// Rank returns the hierarchy rank of t. Out-of-range values rank 0.
func (t Tier) Rank() int {
	if int(t) >= len(tierRanks) {
		return 0
	}
	return tierRanks[t]
}

func (t Tier) Valid() bool {
	return t.Rank() > 0
}

func (t Tier) String() string {
	if int(t) >= len(tierNames) {
		return tierNames[TierUnknown]
	}
	return tierNames[t]
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t, _ = ParseTier(s)
	return nil
}
