package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const mistralOcrURL = "https://api.mistral.ai/v1/ocr"

// MistralProvider calls the Mistral document OCR endpoint. It is the
// default first hop of the chain.
type MistralProvider struct {
	apiKey string
	client *http.Client
}

func NewMistralProvider() *MistralProvider {
	return &MistralProvider{
		apiKey: os.Getenv("MISTRAL_API_KEY"),
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *MistralProvider) Name() string { return ProviderMistral }

func (p *MistralProvider) IsConfigured() bool { return p.apiKey != "" }

type mistralDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type mistralRequest struct {
	Model    string          `json:"model"`
	Document mistralDocument `json:"document"`
}

type mistralResponse struct {
	Pages []struct {
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

func (p *MistralProvider) Process(ctx context.Context, doc Document) (*RawResult, error) {
	document := mistralDocument{Type: "document_url", DocumentURL: doc.URL}
	if doc.URL == "" {
		// Uploaded bytes go inline as a data URL.
		dataURL := fmt.Sprintf("data:%s;base64,%s", doc.MimeType, base64.StdEncoding.EncodeToString(doc.Data))
		if strings.HasPrefix(doc.MimeType, "image/") {
			document = mistralDocument{Type: "image_url", ImageURL: dataURL}
		} else {
			document = mistralDocument{Type: "document_url", DocumentURL: dataURL}
		}
	}

	body, err := json.Marshal(mistralRequest{Model: "mistral-ocr-latest", Document: document})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mistralOcrURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mistral request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mistral returned status %d", resp.StatusCode)
	}

	var parsed mistralResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("mistral response decode failed: %w", err)
	}

	var pages []string
	for _, page := range parsed.Pages {
		pages = append(pages, page.Markdown)
	}

	return &RawResult{
		Provider: p.Name(),
		Text:     strings.TrimSpace(strings.Join(pages, "\n\n")),
	}, nil
}

func (p *MistralProvider) ToInvoiceFormat(raw *RawResult) PartialInvoice {
	return PartialInvoice{}
}
