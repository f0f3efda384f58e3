package extraction

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// PatternResult is the output of the locale-specific regex pass. It is
// merged under the AI pass: any field the AI leaves empty falls back to
// the value found here.
type PatternResult struct {
	DocumentNumber string
	IssueDate      string
	DueDate        string
	HT             *float64
	VAT            *float64
	TTC            *float64
	SIRET          string
	SIREN          string
	VATNumber      string
	IBAN           string
	BIC            string
	PaymentMethod  string
	Currency       string
}

var (
	reDocumentNumber = regexp.MustCompile(`(?i)(?:facture|invoice|devis)\s*(?:n°|no\.?|#|:)?\s*([A-Z0-9][A-Z0-9\-/]{2,})`)
	reDate           = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`)
	reDueDate        = regexp.MustCompile(`(?i)(?:échéance|date\s+limite|à\s+payer\s+avant\s+le)\s*:?\s*(\d{2}/\d{2}/\d{4})`)
	reTTC            = regexp.MustCompile(`(?i)(?:total\s+ttc|montant\s+ttc|net\s+à\s+payer)\s*:?\s*(\d[\d\s\x{00a0}.,]*)`)
	reHT             = regexp.MustCompile(`(?i)(?:total\s+ht|montant\s+ht)\s*:?\s*(\d[\d\s\x{00a0}.,]*)`)
	// The amount must start with a digit so a label with no figure after
	// it ("TVA Intracommunautaire : FR...") cannot swallow the match, and
	// the rate group takes up to two decimals so "TVA 20.00%" is consumed
	// as a rate, not captured as the amount.
	reVAT = regexp.MustCompile(`(?i)(?:total\s+)?(?:tva|t\.v\.a\.?)(?:\s*\(?\d{1,2}(?:[.,]\d{1,2})?\s*%\)?)?\s*:?\s*(\d[\d\s\x{00a0}.,]*)`)
	reSIRET          = regexp.MustCompile(`(?i)siret\s*:?\s*((?:\d[\s\x{00a0}]?){14})`)
	reSIREN          = regexp.MustCompile(`(?i)siren\s*:?\s*((?:\d[\s\x{00a0}]?){9})`)
	reVATNumber      = regexp.MustCompile(`(?i)(?:tva\s+intra(?:communautaire)?|n°\s*tva)\s*:?\s*(FR[\s\x{00a0}]?(?:[\dA-Z][\s\x{00a0}]?){11})`)
	reIBAN           = regexp.MustCompile(`\b([A-Z]{2}\d{2}(?:[\s\x{00a0}]?[A-Z0-9]{4}){3,7}(?:[\s\x{00a0}]?[A-Z0-9]{1,3})?)\b`)
	reBIC            = regexp.MustCompile(`(?i)(?:bic|swift)\s*:?\s*([A-Z]{6}[A-Z0-9]{2}(?:[A-Z0-9]{3})?)\b`)
	reDigitsOnly     = regexp.MustCompile(`^\d+$`)
)

// paymentMethodKeywords maps French payment vocabulary to the
// canonical method names.
var paymentMethodKeywords = []struct {
	keyword string
	method  string
}{
	{"prélèvement", "DIRECT_DEBIT"},
	{"prlv", "DIRECT_DEBIT"},
	{"virement", "TRANSFER"},
	{"carte bancaire", "CARD"},
	{"carte", "CARD"},
	{"cb", "CARD"},
	{"chèque", "CHECK"},
	{"espèces", "CASH"},
}

// ParseFrenchAmount converts "1 234,56" (comma decimal separator,
// optional thin/regular spaces as thousand separators) to a float.
func ParseFrenchAmount(s string) (float64, error) {
	cleaned := strings.NewReplacer(" ", "", " ", "", "€", "", "EUR", "").Replace(strings.TrimSpace(s))
	cleaned = strings.TrimSpace(cleaned)
	// "1.234,56" uses dots as thousand separators.
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	cleaned = strings.TrimRight(cleaned, ".")
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", s)
	}
	return Round2(value), nil
}

// FormatAmount renders an amount for display with 2 decimals.
func FormatAmount(value float64) string {
	return strconv.FormatFloat(Round2(value), 'f', 2, 64)
}

// Round2 rounds to 2 decimal places.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// ValidateSIRET accepts exactly 14 digits.
func ValidateSIRET(s string) bool {
	return len(s) == 14 && reDigitsOnly.MatchString(s)
}

// ValidateSIREN accepts exactly 9 digits.
func ValidateSIREN(s string) bool {
	return len(s) == 9 && reDigitsOnly.MatchString(s)
}

// ValidateVATNumber accepts the French form FR + 11 digits.
func ValidateVATNumber(s string) bool {
	if len(s) != 13 || !strings.HasPrefix(s, "FR") {
		return false
	}
	return reDigitsOnly.MatchString(s[2:])
}

func stripSpaces(s string) string {
	return strings.NewReplacer(" ", "", " ", "").Replace(s)
}

// PatternExtract runs the full regex battery over raw OCR text.
// Malformed identifiers are rejected rather than kept as garbage.
func PatternExtract(text string) *PatternResult {
	result := &PatternResult{}

	if m := reDocumentNumber.FindStringSubmatch(text); m != nil {
		result.DocumentNumber = strings.TrimSpace(m[1])
	}

	if m := reDueDate.FindStringSubmatch(text); m != nil {
		result.DueDate = m[1]
	}
	for _, m := range reDate.FindAllStringSubmatch(text, -1) {
		if m[1] == result.DueDate {
			continue
		}
		result.IssueDate = m[1]
		break
	}

	if m := reTTC.FindStringSubmatch(text); m != nil {
		if v, err := ParseFrenchAmount(m[1]); err == nil {
			result.TTC = &v
		}
	}
	if m := reHT.FindStringSubmatch(text); m != nil {
		if v, err := ParseFrenchAmount(m[1]); err == nil {
			result.HT = &v
		}
	}
	if m := reVAT.FindStringSubmatch(text); m != nil {
		if v, err := ParseFrenchAmount(m[1]); err == nil {
			result.VAT = &v
		}
	}

	if m := reSIRET.FindStringSubmatch(text); m != nil {
		if candidate := stripSpaces(m[1]); ValidateSIRET(candidate) {
			result.SIRET = candidate
		}
	}
	if m := reSIREN.FindStringSubmatch(text); m != nil {
		if candidate := stripSpaces(m[1]); ValidateSIREN(candidate) {
			result.SIREN = candidate
		}
	}
	if m := reVATNumber.FindStringSubmatch(text); m != nil {
		if candidate := stripSpaces(m[1]); ValidateVATNumber(candidate) {
			result.VATNumber = candidate
		}
	}
	if m := reIBAN.FindStringSubmatch(text); m != nil {
		result.IBAN = stripSpaces(m[1])
	}
	if m := reBIC.FindStringSubmatch(text); m != nil {
		result.BIC = strings.ToUpper(m[1])
	}

	lower := strings.ToLower(text)
	for _, pm := range paymentMethodKeywords {
		if strings.Contains(lower, pm.keyword) {
			result.PaymentMethod = pm.method
			break
		}
	}

	if strings.Contains(text, "€") || strings.Contains(text, "EUR") {
		result.Currency = "EUR"
	}

	return result
}
