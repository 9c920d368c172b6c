package reward

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidEntry = errors.New("invalid drop entry")

// Rand is the slice of math/rand/v2 the drop table draws from.
type Rand interface {
	Float64() float64
}

// Entry is one droppable item.
type Entry struct {
	ItemID      string
	ItemName    string
	Rarity      int
	Weight      float64
	ServerScope string
	Active      bool
	Description string
}

// DropTable is a read-only weighted catalog. Build a new one to change
// its contents; concurrent SelectDrop calls are safe.
type DropTable struct {
	entries []Entry
	scoped  map[string]bool
}

func NewDropTable(entries []Entry) (*DropTable, error) {
	out := make([]Entry, 0, len(entries))
	scoped := make(map[string]bool)
	seen := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		e.ItemID = strings.TrimSpace(e.ItemID)
		e.ServerScope = normalizeCode(e.ServerScope)
		if e.ItemID == "" {
			return nil, fmt.Errorf("%w: empty item id", ErrInvalidEntry)
		}
		key := e.ServerScope + "/" + e.ItemID
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicated item %q", ErrInvalidEntry, e.ItemID)
		}
		seen[key] = struct{}{}
		if e.Rarity < 1 {
			return nil, fmt.Errorf("%w: item %q rarity %d", ErrInvalidEntry, e.ItemID, e.Rarity)
		}
		if e.Active && e.Weight <= 0 {
			return nil, fmt.Errorf("%w: active item %q needs weight > 0", ErrInvalidEntry, e.ItemID)
		}
		if e.Active && e.ServerScope != "" {
			scoped[e.ServerScope] = true
		}
		out = append(out, e)
	}

	// Lower rarity first so equal cumulative boundaries resolve to it.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rarity != out[j].Rarity {
			return out[i].Rarity < out[j].Rarity
		}
		return out[i].ItemID < out[j].ItemID
	})

	return &DropTable{entries: out, scoped: scoped}, nil
}

// SelectDrop draws at most one item among active entries with
// rarity <= maxRarity. Entries scoped to scope replace the unscoped pool
// when any exist. Each weight is scaled by multiplier; a zero total
// weight is a normal "no drop" and leaves rng untouched.
func (t *DropTable) SelectDrop(rng Rand, maxRarity int, multiplier float64, scope string) (string, bool) {
	if t == nil || multiplier <= 0 {
		return "", false
	}
	scope = normalizeCode(scope)
	if !t.scoped[scope] {
		scope = ""
	}

	var (
		pool  []Entry
		total float64
	)
	for _, e := range t.entries {
		if !e.Active || e.Rarity > maxRarity || e.ServerScope != scope {
			continue
		}
		w := e.Weight * multiplier
		if w <= 0 {
			continue
		}
		pool = append(pool, e)
		total += w
	}
	if total <= 0 {
		return "", false
	}

	target := rng.Float64() * total
	var cum float64
	for _, e := range pool {
		cum += e.Weight * multiplier
		if target < cum {
			return e.ItemID, true
		}
	}
	// float accumulation can leave target == total
	return pool[len(pool)-1].ItemID, true
}

// Entries returns a copy of the catalog in draw order.
func (t *DropTable) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

type RarityCount struct {
	Rarity int `json:"rarity"`
	Count  int `json:"count"`
}

type Stats struct {
	TotalItems         int           `json:"total_items"`
	ActiveItems        int           `json:"active_items"`
	InactiveItems      int           `json:"inactive_items"`
	RarityDistribution []RarityCount `json:"rarity_distribution"`
	AverageWeight      float64       `json:"average_weight"`
}

func (t *DropTable) Stats() Stats {
	s := Stats{TotalItems: len(t.entries)}
	var weightSum float64
	for _, e := range t.entries {
		if e.Active {
			s.ActiveItems++
			weightSum += e.Weight
		}
		n := len(s.RarityDistribution)
		if n > 0 && s.RarityDistribution[n-1].Rarity == e.Rarity {
			s.RarityDistribution[n-1].Count++
		} else {
			s.RarityDistribution = append(s.RarityDistribution, RarityCount{Rarity: e.Rarity, Count: 1})
		}
	}
	s.InactiveItems = s.TotalItems - s.ActiveItems
	if s.ActiveItems > 0 {
		s.AverageWeight = weightSum / float64(s.ActiveItems)
	}
	return s
}
