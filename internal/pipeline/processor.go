package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/platform/polymarket"
)

// Fetcher retrieves trades for one address newer than sinceEpoch.
type Fetcher interface {
	RecentTrades(ctx context.Context, address string, sinceEpoch int64) (polymarket.FetchResult, error)
}

// Processor runs one polling cycle: fetch per address, filter, dedup.
type Processor struct {
	fetcher Fetcher
	filters Filters
	deduper *Deduper
	logger  *slog.Logger
}

// NewProcessor assembles a Processor from its collaborators.
func NewProcessor(fetcher Fetcher, filters Filters, deduper *Deduper, logger *slog.Logger) *Processor {
	return &Processor{
		fetcher: fetcher,
		filters: filters,
		deduper: deduper,
		logger:  logger,
	}
}

// CycleResult is the outcome of one polling cycle.
type CycleResult struct {
	// Groups holds per-address trades, in configured address order, for
	// the addresses that produced at least one deliverable trade.
	Groups []domain.AddressTrades

	// Fetched counts trades returned by the API before filtering.
	Fetched int

	// Kept counts trades surviving filters and dedup.
	Kept int

	// APICalls counts completed HTTP requests across all addresses.
	APICalls int

	// Failed counts addresses whose fetch errored.
	Failed int
}

// AllTrades flattens the groups in order.
func (r *CycleResult) AllTrades() []domain.Trade {
	var out []domain.Trade
	for _, g := range r.Groups {
		out = append(out, g.Trades...)
	}
	return out
}

// Run sweeps the addresses in order. A failing address is logged and
// skipped so one bad fetch never starves the rest of the list; the
// joined error is returned for callers that need an exit status.
func (p *Processor) Run(ctx context.Context, addresses []string, sinceEpoch int64) (*CycleResult, error) {
	result := &CycleResult{}
	var errs []error

	for _, address := range addresses {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fetched, err := p.fetcher.RecentTrades(ctx, address, sinceEpoch)
		result.APICalls += fetched.APICalls
		if err != nil {
			result.Failed++
			errs = append(errs, fmt.Errorf("fetch %s: %w", address, err))
			p.logger.Warn("address fetch failed, skipping",
				slog.String("address", address),
				slog.Int("api_calls", fetched.APICalls),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.Fetched += len(fetched.Trades)

		trades := p.deduper.Dedupe(ctx, p.filters.Apply(fetched.Trades))
		if len(trades) == 0 {
			continue
		}
		result.Kept += len(trades)
		result.Groups = append(result.Groups, domain.AddressTrades{
			Address: address,
			Trades:  trades,
		})
	}

	return result, errors.Join(errs...)
}
