package pipeline

import (
	"strings"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// Filters holds the user-configured trade filters. A nil MinSize and an
// empty Sides list pass everything through.
type Filters struct {
	MinSize *float64
	Sides   []string
}

// Apply returns the trades passing the configured filters, in input order.
// Trades with no size are dropped whenever a minimum size is set. Side
// matching is case-insensitive. Applying the same filters twice yields the
// same result.
func (f Filters) Apply(trades []domain.Trade) []domain.Trade {
	allowed := make(map[string]struct{}, len(f.Sides))
	for _, s := range f.Sides {
		if s == "" {
			continue
		}
		allowed[strings.ToUpper(s)] = struct{}{}
	}

	kept := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if f.MinSize != nil && (t.Size == nil || *t.Size < *f.MinSize) {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[strings.ToUpper(t.Side)]; !ok {
				continue
			}
		}
		kept = append(kept, t)
	}
	return kept
}
