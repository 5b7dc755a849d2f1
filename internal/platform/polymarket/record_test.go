package polymarket

import (
	"encoding/json"
	"testing"
)

func decodePayload(t *testing.T, raw string) any {
	t.Helper()
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload
}

// TestExtractRecords tests locating the record list in the payload shapes
// the data API actually returns.
func TestExtractRecords(t *testing.T) {
	t.Run("bare list", func(t *testing.T) {
		payload := decodePayload(t, `[{"id": "a"}, {"id": "b"}]`)
		records := ExtractRecords(payload, tradeRecordKeys)
		if len(records) != 2 {
			t.Fatalf("len(records) = %d, want 2", len(records))
		}
		if records[0]["id"] != "a" {
			t.Errorf("records[0][id] = %v, want %q", records[0]["id"], "a")
		}
	})

	t.Run("wrapped under data", func(t *testing.T) {
		payload := decodePayload(t, `{"data": [{"id": "a"}]}`)
		records := ExtractRecords(payload, tradeRecordKeys)
		if len(records) != 1 {
			t.Fatalf("len(records) = %d, want 1", len(records))
		}
	})

	t.Run("wrapped under trades", func(t *testing.T) {
		payload := decodePayload(t, `{"trades": [{"id": "a"}]}`)
		records := ExtractRecords(payload, tradeRecordKeys)
		if len(records) != 1 {
			t.Fatalf("len(records) = %d, want 1", len(records))
		}
	})

	t.Run("candidate order prefers data", func(t *testing.T) {
		payload := decodePayload(t, `{"data": [{"id": "first"}], "trades": [{"id": "second"}]}`)
		records := ExtractRecords(payload, tradeRecordKeys)
		if len(records) != 1 || records[0]["id"] != "first" {
			t.Fatalf("records = %v, want the data list", records)
		}
	})

	t.Run("nested wrapper object", func(t *testing.T) {
		payload := decodePayload(t, `{"data": {"trades": [{"id": "a"}, {"id": "b"}]}}`)
		records := ExtractRecords(payload, tradeRecordKeys)
		if len(records) != 2 {
			t.Fatalf("len(records) = %d, want 2", len(records))
		}
	})

	t.Run("activity keys", func(t *testing.T) {
		payload := decodePayload(t, `{"activity": [{"id": "a"}]}`)
		records := ExtractRecords(payload, activityRecordKeys)
		if len(records) != 1 {
			t.Fatalf("len(records) = %d, want 1", len(records))
		}
	})

	t.Run("unrecognized shape yields empty", func(t *testing.T) {
		for _, raw := range []string{`{"other": [{"id": "a"}]}`, `"just a string"`, `42`, `{}`, `null`} {
			payload := decodePayload(t, raw)
			if records := ExtractRecords(payload, tradeRecordKeys); len(records) != 0 {
				t.Errorf("ExtractRecords(%s) = %v, want empty", raw, records)
			}
		}
	})

	t.Run("non-object list items are skipped", func(t *testing.T) {
		payload := decodePayload(t, `[{"id": "a"}, "junk", 7, {"id": "b"}]`)
		records := ExtractRecords(payload, tradeRecordKeys)
		if len(records) != 2 {
			t.Fatalf("len(records) = %d, want 2", len(records))
		}
	})
}

// TestCoerceTimestamp tests timestamp resolution across field names, value
// types and the millisecond heuristic.
func TestCoerceTimestamp(t *testing.T) {
	tests := []struct {
		name   string
		rec    Record
		want   int64
		wantOK bool
	}{
		{"unix seconds number", Record{"timestamp": float64(1700000000)}, 1700000000, true},
		{"milliseconds coerced to seconds", Record{"timestamp": float64(1700000000000)}, 1700000000, true},
		{"numeric string", Record{"timestamp": "1700000000"}, 1700000000, true},
		{"created_at fallback", Record{"created_at": float64(1700000001)}, 1700000001, true},
		{"createdAt fallback", Record{"createdAt": float64(1700000002)}, 1700000002, true},
		{"timestamp wins over created_at", Record{"timestamp": float64(1), "created_at": float64(2)}, 1, true},
		{"zero timestamp falls through", Record{"timestamp": float64(0), "created_at": float64(3)}, 3, true},
		{"missing", Record{"id": "x"}, 0, false},
		{"unparsable string", Record{"timestamp": "yesterday"}, 0, false},
		{"empty string falls through to nothing", Record{"timestamp": ""}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceTimestamp(tt.rec)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("timestamp = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestNormalizeTrade tests the field-picking tables against the record
// shapes of both endpoints.
func TestNormalizeTrade(t *testing.T) {
	t.Run("flat trades record", func(t *testing.T) {
		rec := Record{
			"title":           "Will it rain?",
			"side":            "buy",
			"size":            float64(120.5),
			"price":           float64(0.42),
			"outcome":         "Yes",
			"transactionHash": "0xabc",
			"id":              "trade-1",
			"slug":            "will-it-rain",
			"conditionId":     "0xcond",
		}
		tr := NormalizeTrade(rec, "0xwallet", 1700000000)

		if tr.Address != "0xwallet" {
			t.Errorf("Address = %q, want %q", tr.Address, "0xwallet")
		}
		if tr.Timestamp != 1700000000 {
			t.Errorf("Timestamp = %d, want 1700000000", tr.Timestamp)
		}
		if tr.Title != "Will it rain?" {
			t.Errorf("Title = %q, want %q", tr.Title, "Will it rain?")
		}
		if tr.Side != "BUY" {
			t.Errorf("Side = %q, want %q", tr.Side, "BUY")
		}
		if tr.Size == nil || *tr.Size != 120.5 {
			t.Errorf("Size = %v, want 120.5", tr.Size)
		}
		if tr.Price == nil || *tr.Price != 0.42 {
			t.Errorf("Price = %v, want 0.42", tr.Price)
		}
		if tr.TxHash != "0xabc" {
			t.Errorf("TxHash = %q, want %q", tr.TxHash, "0xabc")
		}
		if tr.ID != "trade-1" {
			t.Errorf("ID = %q, want %q", tr.ID, "trade-1")
		}
		if tr.MarketSlug != "will-it-rain" {
			t.Errorf("MarketSlug = %q, want %q", tr.MarketSlug, "will-it-rain")
		}
		if tr.ConditionID != "0xcond" {
			t.Errorf("ConditionID = %q, want %q", tr.ConditionID, "0xcond")
		}
	})

	t.Run("nested market and event shape", func(t *testing.T) {
		rec := Record{
			"side": "SELL",
			"market": map[string]any{
				"question":    "Nested question",
				"slug":        "nested-slug",
				"conditionId": "0xnested",
			},
			"event": map[string]any{
				"slug": "event-slug",
			},
		}
		tr := NormalizeTrade(rec, "0xwallet", 1)

		if tr.Title != "Nested question" {
			t.Errorf("Title = %q, want %q", tr.Title, "Nested question")
		}
		if tr.MarketSlug != "nested-slug" {
			t.Errorf("MarketSlug = %q, want %q", tr.MarketSlug, "nested-slug")
		}
		if tr.EventSlug != "event-slug" {
			t.Errorf("EventSlug = %q, want %q", tr.EventSlug, "event-slug")
		}
		if tr.ConditionID != "0xnested" {
			t.Errorf("ConditionID = %q, want %q", tr.ConditionID, "0xnested")
		}
	})

	t.Run("title candidate order", func(t *testing.T) {
		rec := Record{
			"question": "From question",
			"name":     "From name",
			"market":   map[string]any{"title": "From market"},
		}
		if tr := NormalizeTrade(rec, "a", 1); tr.Title != "From question" {
			t.Errorf("Title = %q, want %q", tr.Title, "From question")
		}
	})

	t.Run("size candidate order with numeric strings", func(t *testing.T) {
		rec := Record{"amount": "250.75"}
		tr := NormalizeTrade(rec, "a", 1)
		if tr.Size == nil || *tr.Size != 250.75 {
			t.Errorf("Size = %v, want 250.75", tr.Size)
		}
	})

	t.Run("unparsable size candidate falls to next", func(t *testing.T) {
		rec := Record{"size": "lots", "amount": float64(9)}
		tr := NormalizeTrade(rec, "a", 1)
		if tr.Size == nil || *tr.Size != 9 {
			t.Errorf("Size = %v, want 9", tr.Size)
		}
	})

	t.Run("no parseable size stays nil", func(t *testing.T) {
		rec := Record{"size": "lots"}
		if tr := NormalizeTrade(rec, "a", 1); tr.Size != nil {
			t.Errorf("Size = %v, want nil", tr.Size)
		}
	})

	t.Run("outcome defaults to side", func(t *testing.T) {
		rec := Record{"side": "buy"}
		if tr := NormalizeTrade(rec, "a", 1); tr.Outcome != "buy" {
			t.Errorf("Outcome = %q, want %q", tr.Outcome, "buy")
		}
	})

	t.Run("id doubles as tx hash when no hash present", func(t *testing.T) {
		rec := Record{"id": "only-id"}
		tr := NormalizeTrade(rec, "a", 1)
		if tr.TxHash != "only-id" {
			t.Errorf("TxHash = %q, want %q", tr.TxHash, "only-id")
		}
	})

	t.Run("numeric id renders as string", func(t *testing.T) {
		rec := Record{"id": float64(12345)}
		tr := NormalizeTrade(rec, "a", 1)
		if tr.ID != "12345" {
			t.Errorf("ID = %q, want %q", tr.ID, "12345")
		}
	})

	t.Run("empty record stays zero valued", func(t *testing.T) {
		tr := NormalizeTrade(Record{}, "a", 7)
		if tr.Title != "" || tr.Side != "" || tr.Size != nil || tr.Price != nil || tr.TxHash != "" {
			t.Errorf("unexpected non-zero fields: %+v", tr)
		}
		if tr.Timestamp != 7 {
			t.Errorf("Timestamp = %d, want 7", tr.Timestamp)
		}
	})
}
