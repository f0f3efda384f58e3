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

const anthropicMessagesURL = "https://api.anthropic.com/v1/messages"

// ClaudeProvider extracts text through the Anthropic messages API,
// sending the document as a base64 content block.
type ClaudeProvider struct {
	apiKey string
	client *http.Client
}

func NewClaudeProvider() *ClaudeProvider {
	return &ClaudeProvider{
		apiKey: os.Getenv("CLAUDE_API_KEY"),
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *ClaudeProvider) Name() string { return ProviderClaude }

func (p *ClaudeProvider) IsConfigured() bool { return p.apiKey != "" }

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeContent struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (p *ClaudeProvider) Process(ctx context.Context, doc Document) (*RawResult, error) {
	blockType := "image"
	if doc.MimeType == "application/pdf" {
		blockType = "document"
	}

	reqBody := claudeRequest{
		Model:     "claude-3-5-haiku-latest",
		MaxTokens: 4096,
		Messages: []claudeMessage{{
			Role: "user",
			Content: []claudeContent{
				{Type: blockType, Source: &claudeSource{
					Type:      "base64",
					MediaType: doc.MimeType,
					Data:      base64.StdEncoding.EncodeToString(doc.Data),
				}},
				{Type: "text", Text: "Transcris intégralement le texte de ce document. " +
					"Réponds uniquement avec le texte brut."},
			},
		}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicMessagesURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("claude request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("claude returned status %d", resp.StatusCode)
	}

	var parsed claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("claude response decode failed: %w", err)
	}
	if len(parsed.Content) == 0 {
		return nil, fmt.Errorf("claude returned no content")
	}

	return &RawResult{
		Provider: p.Name(),
		Text:     strings.TrimSpace(parsed.Content[0].Text),
	}, nil
}

func (p *ClaudeProvider) ToInvoiceFormat(raw *RawResult) PartialInvoice {
	return PartialInvoice{}
}
