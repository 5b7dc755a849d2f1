package domain

import (
	"fmt"
	"time"
)

// Trade is one normalized trade record for a watched address.
// Size and Price stay nil when no raw candidate field parsed.
type Trade struct {
	Address     string
	Timestamp   int64 // Unix seconds
	Title       string
	Side        string // "BUY", "SELL" or ""
	Size        *float64
	Price       *float64
	Outcome     string
	TxHash      string
	ID          string
	MarketSlug  string
	EventSlug   string
	ConditionID string
}

// DedupKey identifies a trade across addresses and endpoints within a run:
// transaction hash, else record id, else timestamp+title.
func (t Trade) DedupKey() string {
	if t.TxHash != "" {
		return t.TxHash
	}
	if t.ID != "" {
		return t.ID
	}
	return fmt.Sprintf("%d-%s", t.Timestamp, t.Title)
}

// Time returns the trade timestamp as a time.Time in UTC.
func (t Trade) Time() time.Time {
	return time.Unix(t.Timestamp, 0).UTC()
}

// AddressTrades groups the kept trades of one watched address, preserving
// the configured address order through the cycle.
type AddressTrades struct {
	Address string
	Trades  []Trade
}
