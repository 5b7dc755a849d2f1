package polymarket

import (
	"strings"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// container identifies where a candidate field lives inside a raw record.
type container int

const (
	top container = iota
	market
	event
)

// candidate is one (container, key) source for a logical trade field.
type candidate struct {
	in  container
	key string
}

// Field resolution tables. Candidates are evaluated in order and the first
// non-empty (for strings) or first parseable (for numbers) value wins, so
// records from /trades, /activity and nested market/event shapes all land
// on the same canonical fields.
var (
	txHashCandidates      = []candidate{{top, "txHash"}, {top, "transactionHash"}, {top, "tx_hash"}, {top, "id"}}
	idCandidates          = []candidate{{top, "id"}}
	titleCandidates       = []candidate{{top, "title"}, {top, "question"}, {top, "name"}, {market, "title"}, {market, "question"}, {market, "name"}, {event, "title"}, {event, "name"}}
	marketSlugCandidates  = []candidate{{top, "marketSlug"}, {top, "slug"}, {market, "slug"}}
	eventSlugCandidates   = []candidate{{top, "eventSlug"}, {event, "slug"}}
	conditionIDCandidates = []candidate{{top, "conditionId"}, {market, "conditionId"}}
	outcomeCandidates     = []candidate{{top, "outcome"}, {top, "outcomeToken"}, {top, "token"}}
	sideCandidates        = []candidate{{top, "side"}}
	sizeCandidates        = []candidate{{top, "size"}, {top, "amount"}, {top, "quantity"}}
	priceCandidates       = []candidate{{top, "price"}}
	timestampCandidates   = []candidate{{top, "timestamp"}, {top, "created_at"}, {top, "createdAt"}}
)

func (r Record) lookup(c candidate) any {
	switch c.in {
	case market:
		if m := r.sub("market"); m != nil {
			return m[c.key]
		}
	case event:
		if e := r.sub("event"); e != nil {
			return e[c.key]
		}
	default:
		return r[c.key]
	}
	return nil
}

// pickString returns the first candidate whose value renders as a
// non-empty string.
func (r Record) pickString(cands []candidate) string {
	for _, c := range cands {
		if s, ok := asString(r.lookup(c)); ok {
			return s
		}
	}
	return ""
}

// pickFloat returns the first candidate that parses as a number.
func (r Record) pickFloat(cands []candidate) *float64 {
	for _, c := range cands {
		if f, ok := asFloat(r.lookup(c)); ok {
			return &f
		}
	}
	return nil
}

// CoerceTimestamp resolves a record's Unix-seconds timestamp. The first
// present candidate is parsed once; values above 1e12 are treated as
// milliseconds. ok is false when nothing is present or the value does not
// parse, in which case the record is dropped by the caller.
func CoerceTimestamp(rec Record) (int64, bool) {
	var raw any
	for _, c := range timestampCandidates {
		if v := rec.lookup(c); isTruthy(v) {
			raw = v
			break
		}
	}
	if raw == nil {
		return 0, false
	}
	f, ok := asFloat(raw)
	if !ok {
		return 0, false
	}
	if f > 1e12 { // milliseconds
		f /= 1000
	}
	return int64(f), true
}

// NormalizeTrade maps one raw record onto the canonical trade shape. Pure:
// unresolvable fields stay zero-valued and never abort the record.
func NormalizeTrade(rec Record, address string, timestamp int64) domain.Trade {
	t := domain.Trade{
		Address:     address,
		Timestamp:   timestamp,
		Title:       rec.pickString(titleCandidates),
		Side:        strings.ToUpper(rec.pickString(sideCandidates)),
		Size:        rec.pickFloat(sizeCandidates),
		Price:       rec.pickFloat(priceCandidates),
		Outcome:     rec.pickString(outcomeCandidates),
		TxHash:      rec.pickString(txHashCandidates),
		ID:          rec.pickString(idCandidates),
		MarketSlug:  rec.pickString(marketSlugCandidates),
		EventSlug:   rec.pickString(eventSlugCandidates),
		ConditionID: rec.pickString(conditionIDCandidates),
	}
	if t.Outcome == "" {
		t.Outcome = rec.pickString(sideCandidates)
	}
	return t
}
