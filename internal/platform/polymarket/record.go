package polymarket

import (
	"strconv"
	"strings"
)

// Record is one raw trade record as decoded from an API payload. Field
// names, nesting and value types vary by endpoint, so values stay untyped
// until normalization.
type Record map[string]any

// maxExtractDepth bounds how far ExtractRecords descends into nested
// wrapper objects ({"data":{"activity":{"activities":{"results":[…]}}}}).
const maxExtractDepth = 5

// ExtractRecords locates the list of trade records inside a decoded JSON
// payload. The payload may be a bare list, a mapping holding the list under
// one of the candidate keys, or the same wrapped in further candidate-keyed
// objects. Unrecognized shapes yield an empty slice, never an error.
func ExtractRecords(payload any, candidates []string) []Record {
	return extractRecords(payload, candidates, 0)
}

func extractRecords(payload any, candidates []string, depth int) []Record {
	if depth > maxExtractDepth {
		return nil
	}

	switch v := payload.(type) {
	case []any:
		return toRecords(v)
	case map[string]any:
		for _, key := range candidates {
			if list, ok := v[key].([]any); ok {
				return toRecords(list)
			}
		}
		for _, key := range candidates {
			inner, ok := v[key].(map[string]any)
			if !ok {
				continue
			}
			if records := extractRecords(inner, candidates, depth+1); len(records) > 0 {
				return records
			}
		}
	}
	return nil
}

func toRecords(list []any) []Record {
	out := make([]Record, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// sub returns a nested object field as a Record, or nil.
func (r Record) sub(key string) Record {
	if m, ok := r[key].(map[string]any); ok {
		return Record(m)
	}
	return nil
}

// asString renders a raw value as a string. Numbers are accepted because
// some endpoints send ids and hashes unquoted.
func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		if s == "" {
			return "", false
		}
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	}
	return "", false
}

// asFloat parses a raw value as a number, accepting both JSON numbers and
// numeric strings.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// isTruthy mirrors the presence test used when resolving timestamps: nil,
// empty strings and zero numbers do not count as present.
func isTruthy(v any) bool {
	switch n := v.(type) {
	case nil:
		return false
	case string:
		return n != ""
	case float64:
		return n != 0
	case bool:
		return n
	}
	return true
}
