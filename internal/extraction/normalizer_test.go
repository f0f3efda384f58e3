package extraction

import (
	"context"
	"testing"

	"github.com/Sweily-fr/newbi-api-sub001/internal/ocr"
)

func f64(v float64) *float64 { return &v }

func TestDeriveAmounts(t *testing.T) {
	tests := []struct {
		name    string
		in      InvoiceAmounts
		wantHT  *float64
		wantVAT *float64
		wantTTC *float64
	}{
		{"derive VAT", InvoiceAmounts{HT: f64(100), TTC: f64(120)}, f64(100), f64(20), f64(120)},
		{"derive TTC", InvoiceAmounts{HT: f64(41.66), VAT: f64(8.33)}, f64(41.66), f64(8.33), f64(49.99)},
		{"derive HT", InvoiceAmounts{VAT: f64(8.33), TTC: f64(49.99)}, f64(41.66), f64(8.33), f64(49.99)},
		{"one value cannot derive", InvoiceAmounts{TTC: f64(49.99)}, nil, nil, f64(49.99)},
		{"nothing to do", InvoiceAmounts{}, nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deriveAmounts(&tt.in)
			checkAmount(t, "HT", tt.in.HT, tt.wantHT)
			checkAmount(t, "VAT", tt.in.VAT, tt.wantVAT)
			checkAmount(t, "TTC", tt.in.TTC, tt.wantTTC)
		})
	}
}

func checkAmount(t *testing.T, name string, got, want *float64) {
	t.Helper()
	if (got == nil) != (want == nil) {
		t.Errorf("%s = %v, want %v", name, got, want)
		return
	}
	if got != nil && *got != *want {
		t.Errorf("%s = %v, want %v", name, *got, *want)
	}
}

func TestMergeAIWinsRegexFills(t *testing.T) {
	vendor := "Bouygues Telecom SA"
	ttc := 49.99
	ai := &aiInvoice{
		Vendor:   &vendor,
		TotalTTC: &ttc,
	}
	patterns := &PatternResult{
		DocumentNumber: "FAC-2024-0312",
		IssueDate:      "15/03/2024",
		TTC:            f64(42.00),
		Currency:       "EUR",
	}
	partial := ocr.PartialInvoice{Vendor: "BOUYGUES", IssueDate: "2024-03-14"}

	data := merge(ai, patterns, partial)

	if data.Vendor != "Bouygues Telecom SA" {
		t.Errorf("Vendor = %q, AI value must win over partial", data.Vendor)
	}
	if data.Amounts.TTC == nil || *data.Amounts.TTC != 49.99 {
		t.Errorf("TTC = %v, AI value must win over regex", data.Amounts.TTC)
	}
	if data.DocumentNumber != "FAC-2024-0312" {
		t.Errorf("DocumentNumber = %q, regex must fill AI null", data.DocumentNumber)
	}
	if data.Dates.Issue != "15/03/2024" {
		t.Errorf("IssueDate = %q, regex beats provider partial", data.Dates.Issue)
	}
}

func TestMergeWithoutAI(t *testing.T) {
	patterns := &PatternResult{TTC: f64(10)}
	partial := ocr.PartialInvoice{Vendor: "CARREFOUR", Currency: "EUR"}

	data := merge(nil, patterns, partial)
	if data.Vendor != "CARREFOUR" {
		t.Errorf("Vendor = %q, want provider partial", data.Vendor)
	}
	if data.Amounts.TTC == nil || *data.Amounts.TTC != 10 {
		t.Errorf("TTC = %v", data.Amounts.TTC)
	}
	if data.Currency != "EUR" {
		t.Errorf("Currency = %q", data.Currency)
	}
}

func TestConfidenceChecklist(t *testing.T) {
	empty := &InvoiceData{}
	if got := confidenceChecklist(empty); got != 0 {
		t.Errorf("empty checklist = %v, want 0", got)
	}

	half := &InvoiceData{
		Vendor:         "X",
		DocumentNumber: "Y",
		Currency:       "EUR",
	}
	half.Amounts.TTC = f64(1)
	half.Dates.Issue = "01/01/2024"
	if got := confidenceChecklist(half); got != 0.5 {
		t.Errorf("half checklist = %v, want 0.5", got)
	}

	if got := confidenceChecklist(&InvoiceData{Category: CategoryOther}); got != 0 {
		t.Errorf("OTHER category must not count, got %v", got)
	}
}

// Normalize with no AI model degrades to the regex pass and still
// derives, categorizes and scores the result.
func TestNormalizeRegexOnly(t *testing.T) {
	n := NewNormalizer(NewAIExtractor(nil))
	categorizer := NewCategorizer(nil)

	data := n.Normalize(context.Background(), sampleInvoiceText, ocr.PartialInvoice{}, categorizer)

	if data.DocumentNumber != "FAC-2024-0312" {
		t.Errorf("DocumentNumber = %q", data.DocumentNumber)
	}
	if data.Amounts.TTC == nil || *data.Amounts.TTC != 49.99 {
		t.Errorf("TTC = %v", data.Amounts.TTC)
	}
	if data.Category != "UTILITIES" {
		t.Errorf("Category = %q, want UTILITIES from the keyword table", data.Category)
	}
	if data.Confidence <= 0 || data.Confidence > 1 {
		t.Errorf("Confidence = %v, want in (0, 1]", data.Confidence)
	}
}

func TestParseAIInvoice(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr bool
	}{
		{"bare json", `{"vendor": "SNCF", "totalTTC": 20.0}`, false},
		{"fenced", "```json\n{\"vendor\": \"SNCF\"}\n```", false},
		{"prose around", "Voici le résultat : {\"vendor\": \"SNCF\"} merci.", false},
		{"no object", "désolé, je ne peux pas", true},
		{"broken json", `{"vendor": `, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoice, err := parseAIInvoice(tt.reply)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAIInvoice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && invoice.Vendor != nil && *invoice.Vendor != "SNCF" {
				t.Errorf("Vendor = %q", *invoice.Vendor)
			}
		})
	}
}
