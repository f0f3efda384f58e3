package extraction

// LineItem is one invoice line as extracted by the AI pass.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

// InvoiceDates groups the issue and due dates in DD/MM/YYYY form.
type InvoiceDates struct {
	Issue string `json:"issue,omitempty"`
	Due   string `json:"due,omitempty"`
}

// InvoiceAmounts holds the three French invoice totals. Pointers
// distinguish "absent" from zero so the normalizer can derive the
// missing one.
type InvoiceAmounts struct {
	HT  *float64 `json:"ht,omitempty"`
	VAT *float64 `json:"vat,omitempty"`
	TTC *float64 `json:"ttc,omitempty"`
}

// InvoiceData is the canonical shape every provider output and
// extraction pass converges to.
type InvoiceData struct {
	Vendor         string         `json:"vendor,omitempty"`
	Client         string         `json:"client,omitempty"`
	DocumentNumber string         `json:"documentNumber,omitempty"`
	Dates          InvoiceDates   `json:"dates"`
	Amounts        InvoiceAmounts `json:"amounts"`
	Currency       string         `json:"currency,omitempty"`
	LineItems      []LineItem     `json:"lineItems,omitempty"`
	Category       string         `json:"category,omitempty"`
	PaymentMethod  string         `json:"paymentMethod,omitempty"`
	SIRET          string         `json:"siret,omitempty"`
	VATNumber      string         `json:"vatNumber,omitempty"`
	IBAN           string         `json:"iban,omitempty"`
	BIC            string         `json:"bic,omitempty"`
	Confidence     float64        `json:"confidence"`
}
