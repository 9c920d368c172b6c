package reward

import (
	"math"
	"sync"

	"github.com/shopspring/decimal"
)

// Reward is the outcome of one damage event.
type Reward struct {
	Tier           Tier
	KnownTier      bool
	CurrencyAmount decimal.Decimal
	DroppedItem    string
	Dropped        bool
}

// DropChance gates the drop roll on damage: a linear ramp from MinChance
// at MinDamage to MaxChance at MaxDamage, clamped on both ends.
type DropChance struct {
	MinChance float64
	MaxChance float64
	MinDamage float64
	MaxDamage float64
}

func DefaultDropChance() DropChance {
	return DropChance{MinChance: 0.001, MaxChance: 0.7, MinDamage: 1, MaxDamage: 50}
}

func (c DropChance) Chance(damage float64) float64 {
	if c.MaxDamage <= c.MinDamage {
		return c.MaxChance
	}
	p := (damage-c.MinDamage)/(c.MaxDamage-c.MinDamage)*(c.MaxChance-c.MinChance) + c.MinChance
	return math.Min(c.MaxChance, math.Max(c.MinChance, p))
}

type Option func(*Resolver)

func WithDropChance(c DropChance) Option {
	return func(r *Resolver) { r.chance = &c }
}

// Resolver turns damage into a reward against fixed tier and drop
// snapshots. The random source is shared and guarded by a mutex, so a
// resolver built from a fixed seed replays the same sequence.
type Resolver struct {
	drops    *DropTable
	tiers    *TierTable
	decimals int32
	chance   *DropChance

	mu  sync.Mutex
	rng Rand
}

func NewResolver(drops *DropTable, tiers *TierTable, decimals int32, rng Rand, opts ...Option) *Resolver {
	if tiers == nil {
		tiers = DefaultTierTable()
	}
	r := &Resolver{drops: drops, tiers: tiers, decimals: decimals, rng: rng}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Resolve(damage float64, tierCode string) Reward {
	if math.IsNaN(damage) || damage < 0 {
		damage = 0
	}
	tier, known := r.tiers.Lookup(tierCode)

	out := Reward{
		Tier:      tier,
		KnownTier: known,
		CurrencyAmount: decimal.NewFromFloat(damage).
			Mul(decimal.NewFromFloat(tier.Multiplier)).
			RoundBank(r.decimals),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chance != nil && r.rng.Float64() > r.chance.Chance(damage) {
		return out
	}
	out.DroppedItem, out.Dropped = r.drops.SelectDrop(r.rng, tier.MaxRarity, tier.Multiplier, tier.Code)
	return out
}

func (r *Resolver) Tiers() *TierTable { return r.tiers }

func (r *Resolver) Drops() *DropTable { return r.drops }
