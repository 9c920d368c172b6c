package reward

import "strings"

// DefaultTierCode names the fallback tier used for unknown or missing
// server codes.
const DefaultTierCode = "default"

// Tier is the reward class of a game server.
type Tier struct {
	Code       string
	MaxRarity  int
	Multiplier float64
	// ServerID is the wallet server dimension rewards for this tier land
	// in. Nil means the game-wide wallet.
	ServerID *int64
}

// TierTable is an immutable snapshot of the configured server tiers.
type TierTable struct {
	byCode   map[string]Tier
	fallback Tier
}

func NewTierTable(fallback Tier, tiers []Tier) *TierTable {
	if fallback.Code == "" {
		fallback.Code = DefaultTierCode
	}
	byCode := make(map[string]Tier, len(tiers))
	for _, t := range tiers {
		byCode[normalizeCode(t.Code)] = t
	}
	return &TierTable{byCode: byCode, fallback: fallback}
}

// DefaultTierTable returns the S/A/B/C tiers game servers ship with.
func DefaultTierTable() *TierTable {
	return NewTierTable(
		Tier{Code: DefaultTierCode, MaxRarity: 4, Multiplier: 1.0},
		[]Tier{
			{Code: "S", MaxRarity: 21, Multiplier: 0.8},
			{Code: "A", MaxRarity: 17, Multiplier: 0.7},
			{Code: "B", MaxRarity: 14, Multiplier: 0.5},
			{Code: "C", MaxRarity: 10, Multiplier: 0.4},
		},
	)
}

// Lookup returns the tier for code, or the fallback tier and false.
func (t *TierTable) Lookup(code string) (Tier, bool) {
	if tier, ok := t.byCode[normalizeCode(code)]; ok {
		return tier, true
	}
	return t.fallback, false
}

func (t *TierTable) Fallback() Tier { return t.fallback }

func (t *TierTable) Len() int { return len(t.byCode) }

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
