package reward

import (
	"fmt"
	"strings"
)

// DefaultEntries is the Space Engineers drop catalog used to seed an
// empty drop_entries table.
func DefaultEntries() []Entry {
	flat := map[string]int{
		"PrototechFrame": 11, "PrototechPanel": 4, "PrototechCapacitor": 4,
		"PrototechPropulsionUnit": 4, "PrototechMachinery": 4, "PrototechCircuitry": 4,
		"PrototechCoolingUnit": 8,
		"Prime_Matter": 3, "prototech_scrap": 3,
		"ingot_cerium": 4, "ingot_lanthanum": 4, "ingot_uranium": 3,
		"ingot_platinum": 3, "ingot_gold": 2, "ingot_silver": 2,
	}

	// upgrade modules step one rarity per level from their base
	leveled := []struct {
		prefix string
		base   int
	}{
		{"DefenseUpgradeModule", 5},
		{"AttackUpgradeModule", 5},
		{"PowerEfficiencyUpgradeModule", 5},
		{"BerserkerModule", 11},
		{"SpeedModule", 11},
		{"FortressModule", 11},
	}
	for _, l := range leveled {
		for lvl := 1; lvl <= 10; lvl++ {
			flat[fmt.Sprintf("%s_Level%d", l.prefix, lvl)] = l.base + lvl - 1
		}
	}

	out := make([]Entry, 0, len(flat))
	for id, rarity := range flat {
		out = append(out, Entry{
			ItemID:   id,
			ItemName: strings.ReplaceAll(id, "_", " "),
			Rarity:   rarity,
			Weight:   1,
			Active:   true,
		})
	}
	return out
}
