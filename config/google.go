package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var (
	GeminiClient *genai.GenerativeModel
)

// InitGoogleServices initializes the Gemini API client. The client is
// used both as an OCR backend of last resort and as the AI pass of the
// financial data normalizer. Missing GEMINI_API_KEY is not fatal: the
// provider chain simply skips the Gemini backend.
func InitGoogleServices() error {
	ctx := context.Background()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		slog.Warn("GEMINI_API_KEY is not set, Gemini backend disabled")
		return nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return fmt.Errorf("unable to create Gemini client: %v", err)
	}
	GeminiClient = client.GenerativeModel("gemini-1.5-flash")
	slog.Info("Gemini API client initialized")

	return nil
}
