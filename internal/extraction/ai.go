package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// aiInvoice mirrors the JSON schema the model is asked to fill. Pointer
// fields distinguish "the model left it null" from zero values so the
// merge policy can fall back to the regex pass.
type aiInvoice struct {
	Vendor         *string    `json:"vendor"`
	Client         *string    `json:"client"`
	DocumentNumber *string    `json:"documentNumber"`
	IssueDate      *string    `json:"issueDate"`
	DueDate        *string    `json:"dueDate"`
	TotalHT        *float64   `json:"totalHT"`
	TotalVAT       *float64   `json:"totalVAT"`
	TotalTTC       *float64   `json:"totalTTC"`
	Currency       *string    `json:"currency"`
	LineItems      []LineItem `json:"lineItems"`
	Category       *string    `json:"category"`
	PaymentMethod  *string    `json:"paymentMethod"`
	Confidence     *float64   `json:"confidence"`
}

const aiExtractionPrompt = `Tu es un expert en traitement de factures et reçus français.
Analyse le texte OCR fourni et extrais les informations au format JSON strict, sans aucun texte autour :
{"vendor": null, "client": null, "documentNumber": null, "issueDate": "JJ/MM/AAAA", "dueDate": "JJ/MM/AAAA", "totalHT": null, "totalVAT": null, "totalTTC": null, "currency": "EUR", "lineItems": [{"description": "", "quantity": 0, "unitPrice": 0, "total": 0}], "category": null, "paymentMethod": null, "confidence": 0.0}
Les montants sont des nombres (point décimal). Utilise null pour tout champ introuvable.
Le champ confidence est ta propre estimation entre 0 et 1.`

// AIExtractor is the second extraction pass: the raw text plus the
// regex-pass hints go to the model with a strict JSON instruction.
type AIExtractor struct {
	model *genai.GenerativeModel
}

func NewAIExtractor(model *genai.GenerativeModel) *AIExtractor {
	if model != nil {
		model.SetTemperature(0.1)
	}
	return &AIExtractor{model: model}
}

func (e *AIExtractor) Available() bool { return e != nil && e.model != nil }

// Extract sends the OCR text and pattern hints to the model and parses
// the structured reply.
func (e *AIExtractor) Extract(ctx context.Context, text string, hints *PatternResult) (*aiInvoice, error) {
	if !e.Available() {
		return nil, fmt.Errorf("AI extractor is not configured")
	}

	var sb strings.Builder
	sb.WriteString(aiExtractionPrompt)
	sb.WriteString("\n\nIndices détectés par analyse préalable :\n")
	hintJSON, _ := json.Marshal(hints)
	sb.Write(hintJSON)
	sb.WriteString("\n\nTexte OCR :\n")
	sb.WriteString(text)

	resp, err := e.model.GenerateContent(ctx, genai.Text(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("AI extraction error: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("AI extraction returned no candidates")
	}

	reply, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("AI extraction returned a non-text part")
	}

	return parseAIInvoice(string(reply))
}

// parseAIInvoice tolerates markdown fences and leading/trailing prose
// around the JSON object.
func parseAIInvoice(reply string) (*aiInvoice, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in AI reply")
	}
	cleaned = cleaned[start : end+1]

	var invoice aiInvoice
	if err := json.Unmarshal([]byte(cleaned), &invoice); err != nil {
		return nil, fmt.Errorf("unmarshaling AI reply: %w", err)
	}
	return &invoice, nil
}
