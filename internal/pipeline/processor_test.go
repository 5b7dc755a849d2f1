package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/platform/polymarket"
)

// fakeFetcher serves canned results per address.
type fakeFetcher struct {
	results map[string]polymarket.FetchResult
	errs    map[string]error
	since   []int64
}

func (f *fakeFetcher) RecentTrades(_ context.Context, address string, sinceEpoch int64) (polymarket.FetchResult, error) {
	f.since = append(f.since, sinceEpoch)
	if err := f.errs[address]; err != nil {
		return f.results[address], err
	}
	return f.results[address], nil
}

// TestProcessorRun tests the per-address sweep.
func TestProcessorRun(t *testing.T) {
	ctx := context.Background()

	t.Run("groups kept trades per address in order", func(t *testing.T) {
		fetcher := &fakeFetcher{results: map[string]polymarket.FetchResult{
			"0xaaa": {Trades: []domain.Trade{{TxHash: "0x1", Side: "BUY"}}, APICalls: 1},
			"0xbbb": {Trades: []domain.Trade{{TxHash: "0x2", Side: "SELL"}, {TxHash: "0x3", Side: "BUY"}}, APICalls: 1},
		}}
		p := NewProcessor(fetcher, Filters{}, NewDeduper(nil, testLogger()), testLogger())

		res, err := p.Run(ctx, []string{"0xaaa", "0xbbb"}, 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Fetched != 3 || res.Kept != 3 || res.APICalls != 2 || res.Failed != 0 {
			t.Errorf("result = %+v, want 3 fetched, 3 kept, 2 calls, 0 failed", res)
		}
		if len(res.Groups) != 2 {
			t.Fatalf("len(Groups) = %d, want 2", len(res.Groups))
		}
		if res.Groups[0].Address != "0xaaa" || res.Groups[1].Address != "0xbbb" {
			t.Errorf("group order = %q, %q; want configured order", res.Groups[0].Address, res.Groups[1].Address)
		}
		if len(fetcher.since) != 2 || fetcher.since[0] != 100 {
			t.Errorf("since = %v, want the cutoff passed through", fetcher.since)
		}
		if got := res.AllTrades(); len(got) != 3 {
			t.Errorf("AllTrades() = %d trades, want 3", len(got))
		}
	})

	t.Run("failing address is skipped, others continue", func(t *testing.T) {
		fetcher := &fakeFetcher{
			results: map[string]polymarket.FetchResult{
				"0xbad":  {APICalls: 2},
				"0xgood": {Trades: []domain.Trade{{TxHash: "0x1"}}, APICalls: 1},
			},
			errs: map[string]error{"0xbad": errors.New("boom")},
		}
		p := NewProcessor(fetcher, Filters{}, NewDeduper(nil, testLogger()), testLogger())

		res, err := p.Run(ctx, []string{"0xbad", "0xgood"}, 0)
		if err == nil {
			t.Fatal("expected joined error, got nil")
		}
		if res.Failed != 1 {
			t.Errorf("Failed = %d, want 1", res.Failed)
		}
		if res.Kept != 1 || len(res.Groups) != 1 || res.Groups[0].Address != "0xgood" {
			t.Errorf("result = %+v, want the good address delivered", res)
		}
		if res.APICalls != 3 {
			t.Errorf("APICalls = %d, want 3 (failed fetch calls counted)", res.APICalls)
		}
	})

	t.Run("filters and dedup apply before grouping", func(t *testing.T) {
		fetcher := &fakeFetcher{results: map[string]polymarket.FetchResult{
			"0xaaa": {Trades: []domain.Trade{
				{TxHash: "0x1", Side: "BUY", Size: fptr(500)},
				{TxHash: "0x1", Side: "BUY", Size: fptr(500)},
				{TxHash: "0x2", Side: "SELL", Size: fptr(500)},
				{TxHash: "0x3", Side: "BUY", Size: fptr(5)},
			}, APICalls: 1},
		}}
		p := NewProcessor(fetcher, Filters{MinSize: fptr(100), Sides: []string{"buy"}}, NewDeduper(nil, testLogger()), testLogger())

		res, err := p.Run(ctx, []string{"0xaaa"}, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Fetched != 4 {
			t.Errorf("Fetched = %d, want 4", res.Fetched)
		}
		if res.Kept != 1 || res.Groups[0].Trades[0].TxHash != "0x1" {
			t.Errorf("kept = %+v, want only the first 0x1", res.Groups)
		}
	})

	t.Run("address with nothing new produces no group", func(t *testing.T) {
		fetcher := &fakeFetcher{results: map[string]polymarket.FetchResult{
			"0xquiet": {APICalls: 1},
			"0xbusy":  {Trades: []domain.Trade{{TxHash: "0x1"}}, APICalls: 1},
		}}
		p := NewProcessor(fetcher, Filters{}, NewDeduper(nil, testLogger()), testLogger())

		res, err := p.Run(ctx, []string{"0xquiet", "0xbusy"}, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Groups) != 1 || res.Groups[0].Address != "0xbusy" {
			t.Errorf("Groups = %+v, want only 0xbusy", res.Groups)
		}
	})

	t.Run("cancelled context stops the sweep", func(t *testing.T) {
		fetcher := &fakeFetcher{}
		p := NewProcessor(fetcher, Filters{}, NewDeduper(nil, testLogger()), testLogger())

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := p.Run(cancelled, []string{"0xaaa"}, 0)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
		if len(fetcher.since) != 0 {
			t.Errorf("fetcher was called %d times, want 0", len(fetcher.since))
		}
	})

	t.Run("deduper spans addresses", func(t *testing.T) {
		shared := domain.Trade{TxHash: "0xshared"}
		fetcher := &fakeFetcher{results: map[string]polymarket.FetchResult{
			"0xaaa": {Trades: []domain.Trade{shared}, APICalls: 1},
			"0xbbb": {Trades: []domain.Trade{shared}, APICalls: 1},
		}}
		p := NewProcessor(fetcher, Filters{}, NewDeduper(nil, testLogger()), testLogger())

		res, err := p.Run(ctx, []string{"0xaaa", "0xbbb"}, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Kept != 1 || len(res.Groups) != 1 {
			t.Errorf("result = %+v, want the shared trade kept once", res)
		}
	})
}
