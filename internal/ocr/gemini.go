package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// GeminiProvider extracts text with the Gemini multimodal API. It is
// the fallback of last resort in the fixed provider order.
type GeminiProvider struct {
	model *genai.GenerativeModel
}

func NewGeminiProvider(model *genai.GenerativeModel) *GeminiProvider {
	return &GeminiProvider{model: model}
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

func (p *GeminiProvider) IsConfigured() bool { return p.model != nil }

func (p *GeminiProvider) Process(ctx context.Context, doc Document) (*RawResult, error) {
	prompt := []genai.Part{
		genai.Text("Transcris intégralement le texte de ce document (facture ou reçu). " +
			"Réponds uniquement avec le texte brut, sans commentaire ni mise en forme."),
		&genai.Blob{MIMEType: doc.MimeType, Data: doc.Data},
	}

	resp, err := p.model.GenerateContent(ctx, prompt...)
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("gemini returned a non-text part")
	}

	return &RawResult{
		Provider: p.Name(),
		Text:     strings.TrimSpace(string(text)),
	}, nil
}

func (p *GeminiProvider) ToInvoiceFormat(raw *RawResult) PartialInvoice {
	// Text-only backend: everything is left to the normalizer.
	return PartialInvoice{}
}
