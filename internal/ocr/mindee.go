package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const mindeeReceiptURL = "https://api.mindee.net/v1/products/mindee/expense_receipts/v5/predict"

// MindeeProvider calls the Mindee expense-receipt API. Free tier is
// capped at 250 calls per month, which the quota ledger enforces.
// Unlike the text-only backends it returns structured fields.
type MindeeProvider struct {
	apiKey string
	client *http.Client
}

func NewMindeeProvider() *MindeeProvider {
	return &MindeeProvider{
		apiKey: os.Getenv("MINDEE_API_KEY"),
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *MindeeProvider) Name() string { return ProviderMindee }

func (p *MindeeProvider) IsConfigured() bool { return p.apiKey != "" }

type mindeeResponse struct {
	Document struct {
		Inference struct {
			Prediction struct {
				SupplierName struct {
					Value string `json:"value"`
				} `json:"supplier_name"`
				TotalAmount struct {
					Value *float64 `json:"value"`
				} `json:"total_amount"`
				Date struct {
					Value string `json:"value"`
				} `json:"date"`
				Locale struct {
					Currency string `json:"currency"`
				} `json:"locale"`
			} `json:"prediction"`
			Pages []struct {
				Extras struct {
					FullTextOcr struct {
						Content string `json:"content"`
					} `json:"full_text_ocr"`
				} `json:"extras"`
			} `json:"pages"`
		} `json:"inference"`
	} `json:"document"`
}

func (p *MindeeProvider) Process(ctx context.Context, doc Document) (*RawResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("document", doc.FileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, bytes.NewReader(doc.Data)); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mindeeReceiptURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Token "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mindee request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("mindee returned status %d", resp.StatusCode)
	}

	var parsed mindeeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("mindee response decode failed: %w", err)
	}

	prediction := parsed.Document.Inference.Prediction
	fields := map[string]string{
		"vendor":    prediction.SupplierName.Value,
		"issueDate": prediction.Date.Value,
		"currency":  prediction.Locale.Currency,
	}
	if prediction.TotalAmount.Value != nil {
		fields["totalTTC"] = strconv.FormatFloat(*prediction.TotalAmount.Value, 'f', 2, 64)
	}

	var pages []string
	for _, page := range parsed.Document.Inference.Pages {
		pages = append(pages, page.Extras.FullTextOcr.Content)
	}
	text := strings.TrimSpace(strings.Join(pages, "\n\n"))
	if text == "" {
		// Older plans do not return the full text extra; the structured
		// fields still make a usable extraction.
		text = fmt.Sprintf("%s\n%s\n%s", fields["vendor"], fields["issueDate"], fields["totalTTC"])
		text = strings.TrimSpace(text)
	}

	return &RawResult{Provider: p.Name(), Text: text, Fields: fields}, nil
}

func (p *MindeeProvider) ToInvoiceFormat(raw *RawResult) PartialInvoice {
	partial := PartialInvoice{
		Vendor:    raw.Fields["vendor"],
		IssueDate: raw.Fields["issueDate"],
		Currency:  raw.Fields["currency"],
	}
	if v := raw.Fields["totalTTC"]; v != "" {
		if amount, err := strconv.ParseFloat(v, 64); err == nil {
			partial.TotalTTC = &amount
		}
	}
	return partial
}
