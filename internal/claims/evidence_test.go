package claims

import "testing"

func TestEvidenceTolerantAccess(t *testing.T) {
	var nilEv Evidence
	if nilEv.Str("patient_name") != "" {
		t.Error("nil evidence should yield empty string")
	}
	if nilEv.Amount("total_amount") != 0 {
		t.Error("nil evidence should yield zero amount")
	}
	if nilEv.Nested("financials") != nil {
		t.Error("nil evidence should yield nil nested map")
	}

	ev := Evidence{
		"patient_name": "  Jane Roe ",
		"total_amount": "1500.50",
		"line_items":   42, // wrong type on purpose
	}

	if got := ev.Str("patient_name"); got != "Jane Roe" {
		t.Errorf("expected trimmed name, got %q", got)
	}
	if got := ev.Amount("total_amount"); got != 1500.50 {
		t.Errorf("expected 1500.50, got %v", got)
	}
	if got := ev.Str("line_items"); got != "" {
		t.Errorf("wrong-typed field should degrade to empty, got %q", got)
	}
}

func TestTotalAmountPrefersFinancials(t *testing.T) {
	ev := Evidence{
		"total_amount": 900.0,
		"financials": map[string]any{
			"total_amount_claimed": 1200.0,
		},
	}

	if got := ev.TotalAmount(); got != 1200.0 {
		t.Errorf("expected nested financials amount, got %v", got)
	}

	delete(ev, "financials")
	if got := ev.TotalAmount(); got != 900.0 {
		t.Errorf("expected flat amount fallback, got %v", got)
	}
}

func TestBillDatePriority(t *testing.T) {
	ev := Evidence{
		"financials":     map[string]any{"bill_date": "2023-12-22"},
		"date":           "2023-11-01",
		"treatment_date": "2023-10-01",
	}

	if got := ev.BillDate(); got != "2023-12-22" {
		t.Errorf("expected financials.bill_date first, got %q", got)
	}

	delete(ev, "financials")
	if got := ev.BillDate(); got != "2023-11-01" {
		t.Errorf("expected date second, got %q", got)
	}

	delete(ev, "date")
	if got := ev.BillDate(); got != "2023-10-01" {
		t.Errorf("expected treatment_date last, got %q", got)
	}
}
