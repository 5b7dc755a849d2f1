package pipeline

import (
	"testing"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func tradeIDs(trades []domain.Trade) []string {
	ids := make([]string, len(trades))
	for i, t := range trades {
		ids[i] = t.ID
	}
	return ids
}

// TestFiltersApply tests size and side filtering.
func TestFiltersApply(t *testing.T) {
	trades := []domain.Trade{
		{ID: "small-buy", Side: "BUY", Size: fptr(10)},
		{ID: "big-buy", Side: "BUY", Size: fptr(500)},
		{ID: "big-sell", Side: "SELL", Size: fptr(500)},
		{ID: "no-size", Side: "BUY"},
		{ID: "lower-side", Side: "buy", Size: fptr(600)},
	}

	t.Run("empty filters pass everything", func(t *testing.T) {
		got := Filters{}.Apply(trades)
		if len(got) != len(trades) {
			t.Fatalf("kept %d trades, want %d", len(got), len(trades))
		}
	})

	t.Run("min size drops small and sizeless trades", func(t *testing.T) {
		got := Filters{MinSize: fptr(100)}.Apply(trades)
		want := []string{"big-buy", "big-sell", "lower-side"}
		if len(got) != len(want) {
			t.Fatalf("kept %v, want %v", tradeIDs(got), want)
		}
		for i, id := range want {
			if got[i].ID != id {
				t.Errorf("kept[%d] = %q, want %q", i, got[i].ID, id)
			}
		}
	})

	t.Run("boundary size is kept", func(t *testing.T) {
		got := Filters{MinSize: fptr(500)}.Apply(trades)
		if len(got) != 3 {
			t.Fatalf("kept %v, want the two 500s and the 600", tradeIDs(got))
		}
	})

	t.Run("sides match case-insensitively", func(t *testing.T) {
		got := Filters{Sides: []string{"buy"}}.Apply(trades)
		want := []string{"small-buy", "big-buy", "no-size", "lower-side"}
		if len(got) != len(want) {
			t.Fatalf("kept %v, want %v", tradeIDs(got), want)
		}
	})

	t.Run("combined filters", func(t *testing.T) {
		got := Filters{MinSize: fptr(100), Sides: []string{"SELL"}}.Apply(trades)
		if len(got) != 1 || got[0].ID != "big-sell" {
			t.Fatalf("kept %v, want [big-sell]", tradeIDs(got))
		}
	})

	t.Run("applying twice is idempotent", func(t *testing.T) {
		f := Filters{MinSize: fptr(100), Sides: []string{"buy"}}
		once := f.Apply(trades)
		twice := f.Apply(once)
		if len(once) != len(twice) {
			t.Fatalf("second pass kept %d, want %d", len(twice), len(once))
		}
		for i := range once {
			if once[i].ID != twice[i].ID {
				t.Errorf("twice[%d] = %q, want %q", i, twice[i].ID, once[i].ID)
			}
		}
	})

	t.Run("input order is preserved", func(t *testing.T) {
		got := Filters{Sides: []string{"BUY", "SELL"}}.Apply(trades)
		want := []string{"small-buy", "big-buy", "big-sell", "no-size", "lower-side"}
		for i, id := range want {
			if got[i].ID != id {
				t.Errorf("kept[%d] = %q, want %q", i, got[i].ID, id)
			}
		}
	})
}
