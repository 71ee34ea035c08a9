package claims

import (
	"strconv"
	"strings"
)

// Evidence is the merged, structured output of however many documents were
// processed for a claim. It is untrusted input: fields may be missing, empty,
// or of the wrong type, so every accessor degrades to a zero value instead of
// panicking.
type Evidence map[string]any

// Str returns the string value under key, or "" when absent or not a string.
func (e Evidence) Str(key string) string {
	if e == nil {
		return ""
	}
	v, ok := e[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

// Amount returns the numeric value under key. OCR and LLM extraction produce
// numbers as float64, int or numeric strings depending on the source document.
func (e Evidence) Amount(key string) float64 {
	if e == nil {
		return 0
	}
	switch v := e[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// Nested returns the sub-mapping under key, or nil when absent. Both Evidence
// and plain map[string]any values are accepted since decoded JSON yields the
// latter.
func (e Evidence) Nested(key string) Evidence {
	if e == nil {
		return nil
	}
	switch v := e[key].(type) {
	case Evidence:
		return v
	case map[string]any:
		return Evidence(v)
	}
	return nil
}

// TotalAmount resolves the claimed amount, preferring the nested
// financials.total_amount_claimed over the flat total_amount field.
func (e Evidence) TotalAmount() float64 {
	if fin := e.Nested("financials"); fin != nil {
		if v := fin.Amount("total_amount_claimed"); v != 0 {
			return v
		}
	}
	return e.Amount("total_amount")
}

// BillDate resolves the treatment/bill date string, checking
// financials.bill_date, then date, then treatment_date, in that order.
func (e Evidence) BillDate() string {
	if fin := e.Nested("financials"); fin != nil {
		if s := fin.Str("bill_date"); s != "" {
			return s
		}
	}
	if s := e.Str("date"); s != "" {
		return s
	}
	return e.Str("treatment_date")
}
