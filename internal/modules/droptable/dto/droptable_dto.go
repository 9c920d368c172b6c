package dto

type ListQuery struct {
	Page   int `validate:"gte=1"`
	Limit  int `validate:"gte=1,lte=500"`
	Rarity int `validate:"gte=0"`
	Active *bool
}

type DropEntryOutput struct {
	ItemID      string  `json:"item_id"`
	ItemName    string  `json:"item_name"`
	Rarity      int     `json:"rarity"`
	Weight      float64 `json:"weight"`
	ServerScope string  `json:"server_scope,omitempty"`
	Active      bool    `json:"is_active"`
	Description string  `json:"description,omitempty"`
}

type SimulateQuery struct {
	Damage   *float64 `validate:"required,gte=0"`
	ServerID string   `validate:"max=32"`
	Rolls    int      `validate:"gte=1,lte=10000"`
	Seed     uint64
}

type ItemCount struct {
	ItemID string `json:"item_id"`
	Count  int    `json:"count"`
}

// SimulateOutput summarises Rolls resolutions of the same damage event.
type SimulateOutput struct {
	Damage         float64     `json:"damage"`
	ServerID       string      `json:"server_id"`
	TierCode       string      `json:"tier_code"`
	KnownTier      bool        `json:"known_tier"`
	MaxRarity      int         `json:"max_rarity"`
	Multiplier     float64     `json:"multiplier"`
	CurrencyAmount string      `json:"currency_amount"`
	Rolls          int         `json:"rolls"`
	Seed           uint64      `json:"seed"`
	NoDrop         int         `json:"no_drop"`
	Drops          []ItemCount `json:"drops"`
}
