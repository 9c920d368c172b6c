package factory

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/config"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/repository"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/reward"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"
)

// newRewardResolver loads the tier catalog, seeds drop_entries when the
// table is empty and snapshots it into the resolver used by ingest.
func newRewardResolver(ctx context.Context, cfg *config.RewardConfig, drops *repository.DropRepository) (*reward.Resolver, []reward.Option, error) {
	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	switch {
	case errors.Is(err, config.ErrCatalogNotFound):
		logger.Warnf("reward catalog %q not found, using built-in tiers and drops", cfg.CatalogFile)
		catalog = nil
	case err != nil:
		return nil, nil, err
	}

	tiers := tierTable(catalog)

	seed := seedRows(catalog)
	inserted, err := drops.SeedIfEmpty(ctx, seed)
	if err != nil {
		return nil, nil, fmt.Errorf("seed drop table: %w", err)
	}
	if inserted > 0 {
		logger.Infof("✅ Seeded %d drop table entries", inserted)
	}

	rows, err := drops.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load drop table: %w", err)
	}
	table, err := reward.NewDropTable(entriesFromRows(rows))
	if err != nil {
		return nil, nil, err
	}

	var opts []reward.Option
	if cfg.DropChanceEnabled {
		opts = append(opts, reward.WithDropChance(reward.DefaultDropChance()))
	}

	s := cfg.Seed
	if s == 0 {
		s = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(s, s>>1|1))

	logger.WithFields(map[string]any{
		"tiers":       tiers.Len(),
		"drops":       len(rows),
		"drop_chance": cfg.DropChanceEnabled,
	}).Info("reward resolver ready")
	return reward.NewResolver(table, tiers, cfg.CurrencyDecimals, rng, opts...), opts, nil
}

func tierTable(c *config.Catalog) *reward.TierTable {
	if c == nil || (c.Default == nil && len(c.Tiers) == 0) {
		return reward.DefaultTierTable()
	}
	fallback := reward.DefaultTierTable().Fallback()
	if c.Default != nil {
		fallback = tierFromSpec(*c.Default)
	}
	tiers := make([]reward.Tier, 0, len(c.Tiers))
	for _, t := range c.Tiers {
		tiers = append(tiers, tierFromSpec(t))
	}
	return reward.NewTierTable(fallback, tiers)
}

func tierFromSpec(t config.TierSpec) reward.Tier {
	return reward.Tier{
		Code:       strings.TrimSpace(t.Code),
		MaxRarity:  t.MaxRarity,
		Multiplier: t.Multiplier,
		ServerID:   t.ServerID,
	}
}

func seedRows(c *config.Catalog) []model.DropEntry {
	if c == nil || len(c.Drops) == 0 {
		entries := reward.DefaultEntries()
		rows := make([]model.DropEntry, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, model.DropEntry{
				ItemID:      e.ItemID,
				ItemName:    e.ItemName,
				Rarity:      e.Rarity,
				Weight:      e.Weight,
				ServerScope: strings.ToUpper(e.ServerScope),
				IsActive:    e.Active,
				Description: e.Description,
			})
		}
		return rows
	}

	rows := make([]model.DropEntry, 0, len(c.Drops))
	for _, d := range c.Drops {
		name := d.ItemName
		if name == "" {
			name = strings.ReplaceAll(d.ItemID, "_", " ")
		}
		rows = append(rows, model.DropEntry{
			ItemID:      strings.TrimSpace(d.ItemID),
			ItemName:    name,
			Rarity:      d.Rarity,
			Weight:      d.Weight,
			ServerScope: strings.ToUpper(strings.TrimSpace(d.ServerScope)),
			IsActive:    !d.Inactive,
			Description: d.Description,
		})
	}
	return rows
}

func entriesFromRows(rows []model.DropEntry) []reward.Entry {
	out := make([]reward.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, reward.Entry{
			ItemID:      r.ItemID,
			ItemName:    r.ItemName,
			Rarity:      r.Rarity,
			Weight:      r.Weight,
			ServerScope: r.ServerScope,
			Active:      r.IsActive,
			Description: r.Description,
		})
	}
	return out
}
