package reward

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, seed uint64, opts ...Option) *Resolver {
	t.Helper()
	table, err := NewDropTable(DefaultEntries())
	require.NoError(t, err)
	return NewResolver(table, DefaultTierTable(), 2, rand.New(rand.NewPCG(seed, seed)), opts...)
}

func TestResolveTierS(t *testing.T) {
	r := newTestResolver(t, 1)

	got := r.Resolve(100, "S")
	assert.True(t, got.KnownTier)
	assert.Equal(t, 21, got.Tier.MaxRarity)
	assert.True(t, got.CurrencyAmount.Equal(decimal.RequireFromString("80.00")), got.CurrencyAmount.String())
	assert.Equal(t, "80", got.CurrencyAmount.String())
	require.True(t, got.Dropped, "the S pool is never empty")
	assert.NotEmpty(t, got.DroppedItem)
}

func TestResolveUnknownTierFallsBack(t *testing.T) {
	r := newTestResolver(t, 1)

	got := r.Resolve(50, "unknown-code")
	assert.False(t, got.KnownTier)
	assert.Equal(t, DefaultTierCode, got.Tier.Code)
	assert.Equal(t, 4, got.Tier.MaxRarity)
	assert.True(t, got.CurrencyAmount.Equal(decimal.NewFromInt(50)))

	entries := map[string]int{}
	for _, e := range DefaultEntries() {
		entries[e.ItemID] = e.Rarity
	}
	for i := 0; i < 200; i++ {
		got := r.Resolve(50, "")
		require.True(t, got.Dropped)
		require.LessOrEqual(t, entries[got.DroppedItem], 4)
	}
}

func TestResolveBankersRounding(t *testing.T) {
	table, err := NewDropTable(nil)
	require.NoError(t, err)
	tiers := NewTierTable(Tier{MaxRarity: 4, Multiplier: 1}, []Tier{{Code: "H", MaxRarity: 4, Multiplier: 0.5}})
	r := NewResolver(table, tiers, 2, rand.New(rand.NewPCG(1, 1)))

	// 0.125 and 0.135 sit exactly between two cents
	assert.Equal(t, "0.12", r.Resolve(0.25, "H").CurrencyAmount.StringFixed(2))
	assert.Equal(t, "0.14", r.Resolve(0.27, "H").CurrencyAmount.StringFixed(2))
}

func TestResolveDeterministicWithSeed(t *testing.T) {
	a := newTestResolver(t, 42)
	b := newTestResolver(t, 42)

	for i := 0; i < 100; i++ {
		code := []string{"S", "A", "B", "C", "x"}[i%5]
		ra := a.Resolve(float64(i), code)
		rb := b.Resolve(float64(i), code)
		require.Equal(t, ra.DroppedItem, rb.DroppedItem)
		require.True(t, ra.CurrencyAmount.Equal(rb.CurrencyAmount))
	}
}

func TestResolveNegativeDamageIsZero(t *testing.T) {
	r := newTestResolver(t, 5)
	got := r.Resolve(-3, "A")
	assert.True(t, got.CurrencyAmount.IsZero())
}

func TestDropChanceCurve(t *testing.T) {
	c := DefaultDropChance()
	assert.InDelta(t, 0.001, c.Chance(0), 1e-12)
	assert.InDelta(t, 0.001, c.Chance(1), 1e-12)
	assert.InDelta(t, 0.7, c.Chance(50), 1e-12)
	assert.InDelta(t, 0.7, c.Chance(5000), 1e-12)
	assert.InDelta(t, 0.3505, c.Chance(25.5), 1e-9)
}

func TestResolveWithDropChanceGate(t *testing.T) {
	r := newTestResolver(t, 9, WithDropChance(DropChance{MinChance: 0, MaxChance: 0, MinDamage: 1, MaxDamage: 50}))
	for i := 0; i < 50; i++ {
		got := r.Resolve(100, "S")
		assert.False(t, got.Dropped)
		assert.Equal(t, "80", got.CurrencyAmount.String())
	}
}
