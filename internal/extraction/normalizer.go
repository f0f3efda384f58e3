package extraction

import (
	"context"
	"log/slog"

	"github.com/Sweily-fr/newbi-api-sub001/internal/ocr"
)

// Normalizer turns raw OCR text (plus whatever partial fields the
// backend filled) into the canonical InvoiceData shape. Two independent
// passes run and get reconciled: the regex battery and the AI pass.
// AI values win; regex fills whatever the AI left null.
type Normalizer struct {
	ai *AIExtractor
}

func NewNormalizer(ai *AIExtractor) *Normalizer {
	return &Normalizer{ai: ai}
}

// confidenceChecklist counts the important fields that ended up
// non-null. The final confidence is this fraction, floored by the AI
// pass's self-reported confidence.
func confidenceChecklist(data *InvoiceData) float64 {
	checks := []bool{
		data.Vendor != "",
		data.DocumentNumber != "",
		data.Dates.Issue != "",
		data.Dates.Due != "",
		data.Amounts.HT != nil,
		data.Amounts.VAT != nil,
		data.Amounts.TTC != nil,
		data.Currency != "",
		data.PaymentMethod != "",
		data.Category != "" && data.Category != CategoryOther,
	}
	filled := 0
	for _, ok := range checks {
		if ok {
			filled++
		}
	}
	return float64(filled) / float64(len(checks))
}

// deriveAmounts fills any one of HT/VAT/TTC missing from the other two.
func deriveAmounts(amounts *InvoiceAmounts) {
	switch {
	case amounts.TTC == nil && amounts.HT != nil && amounts.VAT != nil:
		ttc := Round2(*amounts.HT + *amounts.VAT)
		amounts.TTC = &ttc
	case amounts.VAT == nil && amounts.TTC != nil && amounts.HT != nil:
		vat := Round2(*amounts.TTC - *amounts.HT)
		amounts.VAT = &vat
	case amounts.HT == nil && amounts.TTC != nil && amounts.VAT != nil:
		ht := Round2(*amounts.TTC - *amounts.VAT)
		amounts.HT = &ht
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// merge applies the priority policy: AI first, regex pass second,
// provider partial last.
func merge(ai *aiInvoice, patterns *PatternResult, partial ocr.PartialInvoice) *InvoiceData {
	data := &InvoiceData{}

	if ai != nil {
		if ai.Vendor != nil {
			data.Vendor = *ai.Vendor
		}
		if ai.Client != nil {
			data.Client = *ai.Client
		}
		if ai.DocumentNumber != nil {
			data.DocumentNumber = *ai.DocumentNumber
		}
		if ai.IssueDate != nil {
			data.Dates.Issue = *ai.IssueDate
		}
		if ai.DueDate != nil {
			data.Dates.Due = *ai.DueDate
		}
		data.Amounts.HT = ai.TotalHT
		data.Amounts.VAT = ai.TotalVAT
		data.Amounts.TTC = ai.TotalTTC
		if ai.Currency != nil {
			data.Currency = *ai.Currency
		}
		data.LineItems = ai.LineItems
		if ai.Category != nil {
			data.Category = *ai.Category
		}
		if ai.PaymentMethod != nil {
			data.PaymentMethod = *ai.PaymentMethod
		}
		if ai.Confidence != nil {
			data.Confidence = *ai.Confidence
		}
	}

	data.Vendor = firstNonEmpty(data.Vendor, partial.Vendor)
	data.DocumentNumber = firstNonEmpty(data.DocumentNumber, patterns.DocumentNumber, partial.DocumentNumber)
	data.Dates.Issue = firstNonEmpty(data.Dates.Issue, patterns.IssueDate, partial.IssueDate)
	data.Dates.Due = firstNonEmpty(data.Dates.Due, patterns.DueDate)
	data.Currency = firstNonEmpty(data.Currency, patterns.Currency, partial.Currency)
	data.PaymentMethod = firstNonEmpty(data.PaymentMethod, patterns.PaymentMethod)
	if data.Amounts.HT == nil {
		data.Amounts.HT = patterns.HT
	}
	if data.Amounts.VAT == nil {
		data.Amounts.VAT = patterns.VAT
	}
	if data.Amounts.TTC == nil {
		data.Amounts.TTC = patterns.TTC
		if data.Amounts.TTC == nil {
			data.Amounts.TTC = partial.TotalTTC
		}
	}

	data.SIRET = patterns.SIRET
	data.VATNumber = patterns.VATNumber
	data.IBAN = patterns.IBAN
	data.BIC = patterns.BIC

	return data
}

// Normalize reconciles the two extraction passes into the canonical
// shape. An AI pass failure degrades to regex-only output instead of
// failing the request.
func (n *Normalizer) Normalize(ctx context.Context, text string, partial ocr.PartialInvoice, categorizer *Categorizer) *InvoiceData {
	patterns := PatternExtract(text)

	var ai *aiInvoice
	if n.ai.Available() {
		extracted, err := n.ai.Extract(ctx, text, patterns)
		if err != nil {
			slog.Warn("AI extraction pass failed, using pattern pass only", "error", err)
		} else {
			ai = extracted
		}
	}

	data := merge(ai, patterns, partial)
	deriveAmounts(&data.Amounts)

	if data.Category == "" || data.Category == CategoryOther {
		amount := 0.0
		if data.Amounts.TTC != nil {
			amount = *data.Amounts.TTC
		}
		data.Category = categorizer.Categorize(data.Vendor, text, amount)
	}

	aiConfidence := data.Confidence
	data.Confidence = confidenceChecklist(data)
	if aiConfidence > data.Confidence {
		data.Confidence = aiConfidence
	}

	return data
}
