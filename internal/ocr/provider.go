package ocr

import "context"

// Document is the input handed to an OCR backend. Data carries the
// uploaded bytes; URL is set when the document already lives in object
// storage and is used as the cache key.
type Document struct {
	URL      string
	FileName string
	MimeType string
	Data     []byte
}

// RawResult is the provider-specific output before normalization.
type RawResult struct {
	Provider string            `json:"provider"`
	Text     string            `json:"text"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// PartialInvoice is the slice of the canonical invoice shape a backend
// can fill on its own. Structured providers (Mindee) populate several
// fields; text-only providers leave everything to the normalizer.
type PartialInvoice struct {
	Vendor         string   `json:"vendor,omitempty"`
	DocumentNumber string   `json:"documentNumber,omitempty"`
	IssueDate      string   `json:"issueDate,omitempty"`
	TotalTTC       *float64 `json:"totalTTC,omitempty"`
	Currency       string   `json:"currency,omitempty"`
}

// Provider is one OCR backend in the chain. Adding a backend means
// adding an implementation, not editing a dispatch switch.
type Provider interface {
	Name() string
	IsConfigured() bool
	Process(ctx context.Context, doc Document) (*RawResult, error)
	ToInvoiceFormat(raw *RawResult) PartialInvoice
}

// Provider names, also used as ledger keys.
const (
	ProviderMistral = "mistral"
	ProviderClaude  = "claude"
	ProviderMindee  = "mindee"
	ProviderGemini  = "gemini"
)
