package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sweily-fr/newbi-api-sub001/models"
)

// ProviderError is one backend's failure reason, kept so an operator
// can see which layer of the chain broke.
type ProviderError struct {
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

// Result is the outcome of one pass through the provider chain.
type Result struct {
	Success       bool            `json:"success"`
	Provider      string          `json:"provider,omitempty"`
	ExtractedText string          `json:"extractedText,omitempty"`
	Partial       PartialInvoice  `json:"partial,omitempty"`
	CacheHit      bool            `json:"cacheHit"`
	Errors        []ProviderError `json:"errors,omitempty"`
}

// Router drives the OCR provider chain for one call. It is an explicit
// constructed object: eligibility (configuration + quota) is recomputed
// on every call, so no state leaks across workspaces.
type Router struct {
	providers []Provider
	ledger    QuotaLedger
	cache     ResultCache
	tasks     *TaskQueue
}

func NewRouter(providers []Provider, ledger QuotaLedger, cache ResultCache, tasks *TaskQueue) *Router {
	return &Router{providers: providers, ledger: ledger, cache: cache, tasks: tasks}
}

// orderedFor returns the candidate list with the workspace's default
// provider promoted to priority 0. The remaining providers keep their
// fixed relative order.
func (r *Router) orderedFor(defaultProvider string) []Provider {
	if defaultProvider == "" {
		return r.providers
	}
	ordered := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if p.Name() == defaultProvider {
			ordered = append(ordered, p)
		}
	}
	for _, p := range r.providers {
		if p.Name() != defaultProvider {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// Process resolves the document to extracted text using the first
// eligible backend, falling through on any per-provider failure. All
// backends failing yields one aggregate error enumerating every reason.
func (r *Router) Process(ctx context.Context, workspaceID uint, defaultProvider string, doc Document) (*Result, error) {
	hash := DocumentHash(doc)
	if cached := r.cache.Get(ctx, hash); cached != nil {
		slog.Info("OCR cache hit", "workspace_id", workspaceID, "hash", hash)
		hit := *cached
		hit.CacheHit = true
		return &hit, nil
	}

	var errs []ProviderError
	for _, provider := range r.orderedFor(defaultProvider) {
		if !provider.IsConfigured() {
			continue
		}
		if !r.ledger.HasQuota(ctx, workspaceID, provider.Name()) {
			slog.Info("Provider quota exhausted, trying next", "provider", provider.Name(), "workspace_id", workspaceID)
			errs = append(errs, ProviderError{Provider: provider.Name(), Message: "monthly quota exhausted"})
			continue
		}

		raw, err := r.invoke(ctx, provider, doc)
		if err != nil {
			slog.Warn("OCR provider failed, trying next", "provider", provider.Name(), "error", err)
			errs = append(errs, ProviderError{Provider: provider.Name(), Message: err.Error()})
			continue
		}
		if strings.TrimSpace(raw.Text) == "" {
			errs = append(errs, ProviderError{Provider: provider.Name(), Message: "empty extraction result"})
			continue
		}

		result := &Result{
			Success:       true,
			Provider:      provider.Name(),
			ExtractedText: raw.Text,
			Partial:       provider.ToInvoiceFormat(raw),
		}

		// Usage accounting and cache writes are best-effort: they must
		// never delay or fail the response.
		name := provider.Name()
		entry := models.UsageHistoryEntry{At: time.Now().UTC(), FileName: doc.FileName, MimeType: doc.MimeType}
		r.tasks.Submit("ocr-usage-increment", func() error {
			return r.ledger.Increment(context.Background(), workspaceID, name, entry)
		})
		snapshot := *result
		r.tasks.Submit("ocr-cache-write", func() error {
			return r.cache.Set(context.Background(), hash, &snapshot)
		})

		return result, nil
	}

	if len(errs) == 0 {
		errs = append(errs, ProviderError{Provider: "none", Message: "no OCR provider is configured"})
	}
	reasons := make([]string, 0, len(errs))
	for _, e := range errs {
		reasons = append(reasons, fmt.Sprintf("%s: %s", e.Provider, e.Message))
	}
	return &Result{Success: false, Errors: errs},
		fmt.Errorf("all OCR providers failed: %s", strings.Join(reasons, "; "))
}

// invoke calls one backend, converting a panic into an error so a
// single broken provider cannot take the chain down.
func (r *Router) invoke(ctx context.Context, provider Provider, doc Document) (raw *RawResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("provider panicked: %v", rec)
		}
	}()
	return provider.Process(ctx, doc)
}
