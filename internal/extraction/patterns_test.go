package extraction

import "testing"

func TestParseFrenchAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"1 234,56", 1234.56, false},
		{"1 234,56 €", 1234.56, false},
		{"1.234,56", 1234.56, false},
		{"49,99", 49.99, false},
		{"49.99", 49.99, false},
		{"120", 120, false},
		{"120 EUR", 120, false},
		{"1 234 567,89", 1234567.89, false},
		{"", 0, true},
		{"abc", 0, true},
		{"€", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseFrenchAmount(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFrenchAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseFrenchAmount(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFormatAmountRoundTrip(t *testing.T) {
	if got := FormatAmount(1234.555); got != "1234.56" {
		t.Errorf("FormatAmount(1234.555) = %q, want 1234.56", got)
	}
	parsed, err := ParseFrenchAmount(FormatAmount(49.99))
	if err != nil || parsed != 49.99 {
		t.Errorf("round trip of 49.99 = %v, %v", parsed, err)
	}
}

func TestValidators(t *testing.T) {
	if !ValidateSIRET("73282932000074") {
		t.Error("valid SIRET rejected")
	}
	if ValidateSIRET("7328293200007") || ValidateSIRET("7328293200007A") {
		t.Error("invalid SIRET accepted")
	}

	if !ValidateSIREN("732829320") {
		t.Error("valid SIREN rejected")
	}
	if ValidateSIREN("73282932") || ValidateSIREN("73282932000074") {
		t.Error("invalid SIREN accepted")
	}

	if !ValidateVATNumber("FR32123456789") {
		t.Error("valid VAT number rejected")
	}
	if ValidateVATNumber("DE32123456789") || ValidateVATNumber("FR3212345678") || ValidateVATNumber("FR3212345678X") {
		t.Error("invalid VAT number accepted")
	}
}

const sampleInvoiceText = `BOUYGUES TELECOM
Facture N° FAC-2024-0312
Date : 15/03/2024
Échéance : 30/03/2024
SIRET : 397 480 930 00072
TVA Intracommunautaire : FR 74 397480930 09
Total HT : 41,66 €
TVA (20%) : 8,33 €
Total TTC : 49,99 €
Règlement par prélèvement automatique
IBAN FR76 3000 6000 0112 3456 7890 189
BIC : BOUSFRPPXXX`

func TestPatternExtract(t *testing.T) {
	result := PatternExtract(sampleInvoiceText)

	if result.DocumentNumber != "FAC-2024-0312" {
		t.Errorf("DocumentNumber = %q", result.DocumentNumber)
	}
	if result.IssueDate != "15/03/2024" {
		t.Errorf("IssueDate = %q", result.IssueDate)
	}
	if result.DueDate != "30/03/2024" {
		t.Errorf("DueDate = %q", result.DueDate)
	}
	if result.HT == nil || *result.HT != 41.66 {
		t.Errorf("HT = %v", result.HT)
	}
	if result.VAT == nil || *result.VAT != 8.33 {
		t.Errorf("VAT = %v", result.VAT)
	}
	if result.TTC == nil || *result.TTC != 49.99 {
		t.Errorf("TTC = %v", result.TTC)
	}
	if result.SIRET != "39748093000072" {
		t.Errorf("SIRET = %q", result.SIRET)
	}
	if result.VATNumber != "FR74397480930" {
		t.Errorf("VATNumber = %q", result.VATNumber)
	}
	if result.IBAN != "FR7630006000011234567890189" {
		t.Errorf("IBAN = %q", result.IBAN)
	}
	if result.BIC != "BOUSFRPPXXX" {
		t.Errorf("BIC = %q", result.BIC)
	}
	if result.PaymentMethod != "DIRECT_DEBIT" {
		t.Errorf("PaymentMethod = %q", result.PaymentMethod)
	}
	if result.Currency != "EUR" {
		t.Errorf("Currency = %q", result.Currency)
	}
}

func TestPatternExtractVATRateNotTakenAsAmount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"dot decimal rate", "TVA 20.00% : 8,33 €", 8.33},
		{"comma decimal rate", "TVA (20,00%) : 8,33 €", 8.33},
		{"one decimal rate", "TVA 5,5 % : 1,10 €", 1.10},
		{"integer rate", "TVA 20% : 8,33 €", 8.33},
		{"no rate", "TVA : 8,33 €", 8.33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PatternExtract(tt.text)
			if result.VAT == nil || *result.VAT != tt.want {
				t.Errorf("VAT = %v, want %v", result.VAT, tt.want)
			}
		})
	}
}

func TestPatternExtractEmptyText(t *testing.T) {
	result := PatternExtract("rien d'utile ici")
	if result.DocumentNumber != "" || result.TTC != nil || result.SIRET != "" {
		t.Errorf("expected empty result, got %+v", result)
	}
}
