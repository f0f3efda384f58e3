package ocr

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Sweily-fr/newbi-api-sub001/models"
)

type fakeProvider struct {
	name       string
	configured bool
	text       string
	err        error
	panics     bool
	calls      int
}

func (p *fakeProvider) Name() string       { return p.name }
func (p *fakeProvider) IsConfigured() bool { return p.configured }

func (p *fakeProvider) Process(ctx context.Context, doc Document) (*RawResult, error) {
	p.calls++
	if p.panics {
		panic("backend exploded")
	}
	if p.err != nil {
		return nil, p.err
	}
	return &RawResult{Provider: p.name, Text: p.text}, nil
}

func (p *fakeProvider) ToInvoiceFormat(raw *RawResult) PartialInvoice {
	return PartialInvoice{Vendor: "fake-" + p.name}
}

type fakeLedger struct {
	mu         sync.Mutex
	exhausted  map[string]bool
	increments map[string]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{exhausted: map[string]bool{}, increments: map[string]int{}}
}

func (l *fakeLedger) HasQuota(ctx context.Context, workspaceID uint, provider string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.exhausted[provider]
}

func (l *fakeLedger) Increment(ctx context.Context, workspaceID uint, provider string, entry models.UsageHistoryEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.increments[provider]++
	return nil
}

func (l *fakeLedger) count(provider string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.increments[provider]
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*Result
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*Result{}}
}

func (c *fakeCache) Get(ctx context.Context, hash string) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[hash]
}

func (c *fakeCache) Set(ctx context.Context, hash string, result *Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = result
	return nil
}

func testDoc() Document {
	return Document{FileName: "recu.pdf", MimeType: "application/pdf", Data: []byte("fake pdf bytes")}
}

func TestProcessFallsThroughToSecondProvider(t *testing.T) {
	first := &fakeProvider{name: ProviderMistral, configured: true, err: errors.New("503 from upstream")}
	second := &fakeProvider{name: ProviderClaude, configured: true, text: "FACTURE 49,99"}
	ledger := newFakeLedger()
	tasks := NewTaskQueue(16)

	router := NewRouter([]Provider{first, second}, ledger, newFakeCache(), tasks)

	result, err := router.Process(context.Background(), 1, "", testDoc())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	tasks.Close()

	if !result.Success || result.Provider != ProviderClaude {
		t.Errorf("result = %+v, want success via %s", result, ProviderClaude)
	}
	if result.ExtractedText != "FACTURE 49,99" {
		t.Errorf("ExtractedText = %q", result.ExtractedText)
	}
	if ledger.count(ProviderClaude) != 1 {
		t.Errorf("claude increments = %d, want 1", ledger.count(ProviderClaude))
	}
	if ledger.count(ProviderMistral) != 0 {
		t.Errorf("mistral increments = %d, want 0 for a failed call", ledger.count(ProviderMistral))
	}
}

func TestProcessSkipsUnconfiguredAndExhausted(t *testing.T) {
	unconfigured := &fakeProvider{name: ProviderMistral, configured: false, text: "x"}
	exhausted := &fakeProvider{name: ProviderClaude, configured: true, text: "x"}
	working := &fakeProvider{name: ProviderGemini, configured: true, text: "texte extrait"}
	ledger := newFakeLedger()
	ledger.exhausted[ProviderClaude] = true
	tasks := NewTaskQueue(16)

	router := NewRouter([]Provider{unconfigured, exhausted, working}, ledger, newFakeCache(), tasks)

	result, err := router.Process(context.Background(), 1, "", testDoc())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	tasks.Close()

	if result.Provider != ProviderGemini {
		t.Errorf("Provider = %q, want %q", result.Provider, ProviderGemini)
	}
	if unconfigured.calls != 0 {
		t.Error("unconfigured provider was invoked")
	}
	if exhausted.calls != 0 {
		t.Error("quota-exhausted provider was invoked")
	}
}

func TestProcessRecoversFromProviderPanic(t *testing.T) {
	panicking := &fakeProvider{name: ProviderMistral, configured: true, panics: true}
	backup := &fakeProvider{name: ProviderClaude, configured: true, text: "ok"}
	tasks := NewTaskQueue(16)

	router := NewRouter([]Provider{panicking, backup}, newFakeLedger(), newFakeCache(), tasks)

	result, err := router.Process(context.Background(), 1, "", testDoc())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	tasks.Close()

	if result.Provider != ProviderClaude {
		t.Errorf("Provider = %q, want the backup after a panic", result.Provider)
	}
}

func TestProcessAllProvidersFail(t *testing.T) {
	a := &fakeProvider{name: ProviderMistral, configured: true, err: errors.New("boom")}
	b := &fakeProvider{name: ProviderClaude, configured: true, text: "   "}
	tasks := NewTaskQueue(16)
	defer tasks.Close()

	router := NewRouter([]Provider{a, b}, newFakeLedger(), newFakeCache(), tasks)

	result, err := router.Process(context.Background(), 1, "", testDoc())
	if err == nil {
		t.Fatal("Process() error = nil, want aggregate failure")
	}
	if result.Success {
		t.Error("result.Success = true on total failure")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("Errors = %d, want one per provider", len(result.Errors))
	}
	if !strings.Contains(err.Error(), "boom") || !strings.Contains(err.Error(), "empty extraction result") {
		t.Errorf("aggregate error misses a reason: %v", err)
	}
}

func TestProcessCacheHitShortCircuits(t *testing.T) {
	provider := &fakeProvider{name: ProviderMistral, configured: true, text: "texte"}
	ledger := newFakeLedger()
	cache := newFakeCache()
	doc := testDoc()
	cache.entries[DocumentHash(doc)] = &Result{Success: true, Provider: ProviderGemini, ExtractedText: "depuis le cache"}
	tasks := NewTaskQueue(16)
	defer tasks.Close()

	router := NewRouter([]Provider{provider}, ledger, cache, tasks)

	result, err := router.Process(context.Background(), 1, "", doc)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !result.CacheHit {
		t.Error("CacheHit = false")
	}
	if result.ExtractedText != "depuis le cache" {
		t.Errorf("ExtractedText = %q", result.ExtractedText)
	}
	if provider.calls != 0 {
		t.Error("provider invoked despite cache hit")
	}
	if ledger.count(ProviderMistral) != 0 || ledger.count(ProviderGemini) != 0 {
		t.Error("cache hit must not consume quota")
	}
}

func TestProcessWritesCacheOnSuccess(t *testing.T) {
	provider := &fakeProvider{name: ProviderMistral, configured: true, text: "texte"}
	cache := newFakeCache()
	tasks := NewTaskQueue(16)
	doc := testDoc()

	router := NewRouter([]Provider{provider}, newFakeLedger(), cache, tasks)
	if _, err := router.Process(context.Background(), 1, "", doc); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	tasks.Close()

	cached := cache.Get(context.Background(), DocumentHash(doc))
	if cached == nil {
		t.Fatal("no cache entry written")
	}
	if cached.ExtractedText != "texte" {
		t.Errorf("cached text = %q", cached.ExtractedText)
	}
}

func TestOrderedForPromotesDefault(t *testing.T) {
	providers := []Provider{
		&fakeProvider{name: ProviderMistral},
		&fakeProvider{name: ProviderClaude},
		&fakeProvider{name: ProviderMindee},
	}
	router := NewRouter(providers, newFakeLedger(), newFakeCache(), nil)

	ordered := router.orderedFor(ProviderMindee)
	if ordered[0].Name() != ProviderMindee {
		t.Errorf("ordered[0] = %q, want the promoted default", ordered[0].Name())
	}
	if ordered[1].Name() != ProviderMistral || ordered[2].Name() != ProviderClaude {
		t.Errorf("remaining order changed: %q, %q", ordered[1].Name(), ordered[2].Name())
	}

	same := router.orderedFor("")
	if len(same) != 3 || same[0].Name() != ProviderMistral {
		t.Error("empty default must keep the fixed order")
	}
}

func TestDocumentHash(t *testing.T) {
	byURL := DocumentHash(Document{URL: "https://files/recu.pdf", Data: []byte("a")})
	byURLOther := DocumentHash(Document{URL: "https://files/recu.pdf", Data: []byte("b")})
	if byURL != byURLOther {
		t.Error("URL-addressed documents must hash by URL, not bytes")
	}

	byData := DocumentHash(Document{Data: []byte("a")})
	byDataOther := DocumentHash(Document{Data: []byte("b")})
	if byData == byDataOther {
		t.Error("distinct uploads must hash differently")
	}
}
