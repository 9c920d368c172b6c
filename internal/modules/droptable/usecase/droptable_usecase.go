package usecase

import (
	"math/rand/v2"
	"sort"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/droptable/dto"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/reward"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/response"
)

type DropTableUsecase struct {
	drops    *reward.DropTable
	tiers    *reward.TierTable
	decimals int32
	opts     []reward.Option
}

// NewDropTableUsecase exposes the snapshot the live resolver draws from.
// opts are applied to every simulation resolver.
func NewDropTableUsecase(drops *reward.DropTable, tiers *reward.TierTable, decimals int32, opts ...reward.Option) *DropTableUsecase {
	if tiers == nil {
		tiers = reward.DefaultTierTable()
	}
	return &DropTableUsecase{drops: drops, tiers: tiers, decimals: decimals, opts: opts}
}

func (u *DropTableUsecase) List(q dto.ListQuery) ([]dto.DropEntryOutput, *response.Meta) {
	var filtered []reward.Entry
	for _, e := range u.drops.Entries() {
		if q.Rarity > 0 && e.Rarity != q.Rarity {
			continue
		}
		if q.Active != nil && e.Active != *q.Active {
			continue
		}
		filtered = append(filtered, e)
	}

	meta := response.NewMeta(q.Page, q.Limit, len(filtered))

	out := []dto.DropEntryOutput{}
	start := (q.Page - 1) * q.Limit
	if start >= len(filtered) {
		return out, meta
	}
	end := min(start+q.Limit, len(filtered))
	for _, e := range filtered[start:end] {
		out = append(out, dto.DropEntryOutput{
			ItemID:      e.ItemID,
			ItemName:    e.ItemName,
			Rarity:      e.Rarity,
			Weight:      e.Weight,
			ServerScope: e.ServerScope,
			Active:      e.Active,
			Description: e.Description,
		})
	}
	return out, meta
}

func (u *DropTableUsecase) Stats() reward.Stats {
	return u.drops.Stats()
}

// Simulate resolves the same event q.Rolls times on a private random
// source. Nothing is persisted and the live resolver's sequence is not
// advanced. A zero seed picks one from the clock.
func (u *DropTableUsecase) Simulate(q dto.SimulateQuery) dto.SimulateOutput {
	seed := q.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	resolver := reward.NewResolver(u.drops, u.tiers, u.decimals, rng, u.opts...)

	out := dto.SimulateOutput{
		Damage:   *q.Damage,
		ServerID: q.ServerID,
		Rolls:    q.Rolls,
		Seed:     seed,
	}
	counts := make(map[string]int)
	for i := 0; i < q.Rolls; i++ {
		r := resolver.Resolve(*q.Damage, q.ServerID)
		if i == 0 {
			out.TierCode = r.Tier.Code
			out.KnownTier = r.KnownTier
			out.MaxRarity = r.Tier.MaxRarity
			out.Multiplier = r.Tier.Multiplier
			out.CurrencyAmount = r.CurrencyAmount.StringFixed(u.decimals)
		}
		if !r.Dropped {
			out.NoDrop++
			continue
		}
		counts[r.DroppedItem]++
	}

	out.Drops = make([]dto.ItemCount, 0, len(counts))
	for id, n := range counts {
		out.Drops = append(out.Drops, dto.ItemCount{ItemID: id, Count: n})
	}
	sort.Slice(out.Drops, func(i, j int) bool {
		if out.Drops[i].Count != out.Drops[j].Count {
			return out.Drops[i].Count > out.Drops[j].Count
		}
		return out.Drops[i].ItemID < out.Drops[j].ItemID
	})
	return out
}
