package reward

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRand struct{ v float64 }

func (f fixedRand) Float64() float64 { return f.v }

type countingRand struct {
	calls int
	r     *rand.Rand
}

func (c *countingRand) Float64() float64 {
	c.calls++
	return c.r.Float64()
}

func TestNewDropTableRejectsActiveZeroWeight(t *testing.T) {
	_, err := NewDropTable([]Entry{{ItemID: "a", Rarity: 1, Weight: 0, Active: true}})
	require.ErrorIs(t, err, ErrInvalidEntry)

	_, err = NewDropTable([]Entry{{ItemID: "a", Rarity: 0, Weight: 1, Active: true}})
	require.ErrorIs(t, err, ErrInvalidEntry)

	_, err = NewDropTable([]Entry{
		{ItemID: "a", Rarity: 1, Weight: 1, Active: true},
		{ItemID: "a", Rarity: 2, Weight: 1, Active: true},
	})
	require.ErrorIs(t, err, ErrInvalidEntry)
}

func TestSelectDropNoEligibleEntriesIsDeterministic(t *testing.T) {
	table, err := NewDropTable([]Entry{
		{ItemID: "off", Rarity: 1, Weight: 5, Active: false},
		{ItemID: "rare", Rarity: 9, Weight: 5, Active: true},
	})
	require.NoError(t, err)

	rng := &countingRand{r: rand.New(rand.NewPCG(1, 2))}
	for i := 0; i < 100; i++ {
		item, ok := table.SelectDrop(rng, 4, 1.0, "")
		assert.False(t, ok)
		assert.Empty(t, item)
	}
	assert.Zero(t, rng.calls, "no draw when the pool is empty")
}

func TestSelectDropRespectsMaxRarity(t *testing.T) {
	table, err := NewDropTable([]Entry{
		{ItemID: "common", Rarity: 2, Weight: 1, Active: true},
		{ItemID: "legendary", Rarity: 20, Weight: 1000, Active: true},
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 500; i++ {
		item, ok := table.SelectDrop(rng, 4, 0.8, "")
		require.True(t, ok)
		require.Equal(t, "common", item)
	}
}

func TestSelectDropCumulativeBoundaries(t *testing.T) {
	table, err := NewDropTable([]Entry{
		{ItemID: "b", Rarity: 2, Weight: 3, Active: true},
		{ItemID: "a", Rarity: 1, Weight: 1, Active: true},
	})
	require.NoError(t, err)

	// order is rarity asc: a [0,1), b [1,4) out of 4
	cases := []struct {
		draw float64
		want string
	}{
		{0.0, "a"},
		{0.2499, "a"},
		{0.25, "b"},
		{0.9999, "b"},
	}
	for _, tc := range cases {
		item, ok := table.SelectDrop(fixedRand{tc.draw}, 10, 2.0, "")
		require.True(t, ok)
		assert.Equal(t, tc.want, item, "draw %v", tc.draw)
	}
}

func TestSelectDropZeroMultiplierNeverDrops(t *testing.T) {
	table, err := NewDropTable([]Entry{{ItemID: "a", Rarity: 1, Weight: 1, Active: true}})
	require.NoError(t, err)

	_, ok := table.SelectDrop(fixedRand{0.1}, 10, 0, "")
	assert.False(t, ok)
}

func TestSelectDropServerScope(t *testing.T) {
	table, err := NewDropTable([]Entry{
		{ItemID: "global", Rarity: 1, Weight: 1, Active: true},
		{ItemID: "s-only", Rarity: 1, Weight: 1, Active: true, ServerScope: "s"},
		{ItemID: "b-off", Rarity: 1, Weight: 1, Active: false, ServerScope: "B"},
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 200; i++ {
		item, ok := table.SelectDrop(rng, 5, 1, "S")
		require.True(t, ok)
		require.Equal(t, "s-only", item)

		// B only has inactive scoped rows, so it draws from the unscoped pool
		item, ok = table.SelectDrop(rng, 5, 1, "B")
		require.True(t, ok)
		require.Equal(t, "global", item)
	}
}

func TestSelectDropDistributionFollowsWeights(t *testing.T) {
	table, err := NewDropTable([]Entry{
		{ItemID: "light", Rarity: 1, Weight: 1, Active: true},
		{ItemID: "heavy", Rarity: 1, Weight: 3, Active: true},
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(11, 13))
	counts := map[string]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		item, _ := table.SelectDrop(rng, 1, 0.5, "")
		counts[item]++
	}
	assert.InDelta(t, 0.75, float64(counts["heavy"])/n, 0.02)
}

func TestStats(t *testing.T) {
	table, err := NewDropTable([]Entry{
		{ItemID: "a", Rarity: 1, Weight: 2, Active: true},
		{ItemID: "b", Rarity: 1, Weight: 4, Active: true},
		{ItemID: "c", Rarity: 3, Weight: 0, Active: false},
	})
	require.NoError(t, err)

	s := table.Stats()
	assert.Equal(t, 3, s.TotalItems)
	assert.Equal(t, 2, s.ActiveItems)
	assert.Equal(t, 1, s.InactiveItems)
	assert.Equal(t, []RarityCount{{Rarity: 1, Count: 2}, {Rarity: 3, Count: 1}}, s.RarityDistribution)
	assert.InDelta(t, 3.0, s.AverageWeight, 1e-9)
}

func TestDefaultEntriesBuildTable(t *testing.T) {
	table, err := NewDropTable(DefaultEntries())
	require.NoError(t, err)
	assert.Equal(t, 75, table.Stats().ActiveItems)
}
