package dto

import "time"

// DamageEventInput is one element of the POST /api/damage_logs array.
// Damage is capped so rewards fit the numeric(20,8) currency columns.
type DamageEventInput struct {
	SteamID    string     `json:"steam_id"    validate:"required,max=32"`
	Damage     *float64   `json:"damage"      validate:"required,gte=0,lte=1000000000"`
	ServerID   string     `json:"server_id"   validate:"max=32"`
	EventID    string     `json:"event_id"    validate:"max=64"`
	ObservedAt *time.Time `json:"observed_at"`
}

type EventStatus string

const (
	StatusAccepted  EventStatus = "accepted"
	StatusDuplicate EventStatus = "duplicate"
	StatusInvalid   EventStatus = "invalid"
	StatusFailed    EventStatus = "failed"
	StatusSkipped   EventStatus = "skipped"
)

type EventResult struct {
	Index          int         `json:"index"`
	EventID        string      `json:"event_id,omitempty"`
	SteamID        string      `json:"steam_id,omitempty"`
	Status         EventStatus `json:"status"`
	TierCode       string      `json:"tier_code,omitempty"`
	CurrencyAmount string      `json:"currency_amount,omitempty"`
	DroppedItem    string      `json:"dropped_item,omitempty"`
	TransactionID  int64       `json:"transaction_id,omitempty"`
	Error          string      `json:"error,omitempty"`
}

type BatchResult struct {
	Total     int           `json:"total"`
	Accepted  int           `json:"accepted"`
	Duplicate int           `json:"duplicate"`
	Invalid   int           `json:"invalid"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Events    []EventResult `json:"events"`
}

// Tally fills the counters from Events.
func (b *BatchResult) Tally() {
	b.Total = len(b.Events)
	b.Accepted, b.Duplicate, b.Invalid, b.Failed, b.Skipped = 0, 0, 0, 0, 0
	for _, e := range b.Events {
		switch e.Status {
		case StatusAccepted:
			b.Accepted++
		case StatusDuplicate:
			b.Duplicate++
		case StatusInvalid:
			b.Invalid++
		case StatusFailed:
			b.Failed++
		case StatusSkipped:
			b.Skipped++
		}
	}
}
