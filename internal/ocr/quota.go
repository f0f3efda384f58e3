package ocr

import (
	"context"
	"log/slog"
	"time"

	"github.com/Sweily-fr/newbi-api-sub001/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Unlimited marks a provider without a monthly cap.
const Unlimited = -1

// QuotaLedger tracks per-workspace, per-provider, per-month OCR usage.
type QuotaLedger interface {
	// HasQuota reports whether the provider may still be called this
	// calendar month.
	HasQuota(ctx context.Context, workspaceID uint, provider string) bool
	// Increment records one successful call. Failures must never fail
	// the OCR request itself.
	Increment(ctx context.Context, workspaceID uint, provider string, entry models.UsageHistoryEntry) error
}

// monthKey returns the ledger key for the month containing t.
func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// limitForPlan maps (plan, provider) to a monthly call limit. Mindee's
// free tier is hard-capped by the vendor; the paid plan routes through
// uncapped providers first.
func limitForPlan(plan, provider string) int {
	switch provider {
	case ProviderMindee:
		return 250
	case ProviderMistral, ProviderClaude, ProviderGemini:
		if plan == models.PlanFree {
			return 500
		}
		return Unlimited
	default:
		return 0
	}
}

// GormLedger is the Postgres-backed ledger. One row per (workspace,
// provider, month); crossing a month boundary starts a fresh row, so
// last month's exhaustion never carries over.
type GormLedger struct {
	db    *gorm.DB
	plans *PlanResolver
	now   func() time.Time
}

func NewGormLedger(db *gorm.DB, plans *PlanResolver) *GormLedger {
	return &GormLedger{db: db, plans: plans, now: time.Now}
}

// HasQuota reflects the current calendar month only.
func (l *GormLedger) HasQuota(ctx context.Context, workspaceID uint, provider string) bool {
	limit := limitForPlan(l.plans.Resolve(workspaceID), provider)
	if limit == Unlimited {
		return true
	}
	if limit == 0 {
		return false
	}

	var counter models.OcrUsageCounter
	err := l.db.WithContext(ctx).
		Where("workspace_id = ? AND provider = ? AND month = ?", workspaceID, provider, monthKey(l.now())).
		First(&counter).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			slog.Warn("Quota lookup failed, allowing call", "provider", provider, "error", err)
		}
		return true
	}
	return counter.Count < limit
}

// Increment upserts the month row and bumps the counter atomically.
// Concurrent requests for the same key must not lose updates, hence
// ON CONFLICT ... count = count + 1 instead of read-modify-write.
func (l *GormLedger) Increment(ctx context.Context, workspaceID uint, provider string, entry models.UsageHistoryEntry) error {
	now := l.now()
	counter := models.OcrUsageCounter{
		WorkspaceID: workspaceID,
		Provider:    provider,
		Month:       monthKey(now),
		Count:       1,
		Limit:       limitForPlan(l.plans.Resolve(workspaceID), provider),
		History:     models.UsageHistory{},
	}

	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "workspace_id"}, {Name: "provider"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("ocr_usage_counters.count + 1"),
			"updated_at": now,
		}),
	}).Create(&counter).Error
	if err != nil {
		return err
	}

	// History is auxiliary bookkeeping: a read-modify-write race here
	// only loses a ring-buffer entry, never a count.
	l.appendHistory(ctx, workspaceID, provider, monthKey(now), entry)
	return nil
}

func (l *GormLedger) appendHistory(ctx context.Context, workspaceID uint, provider, month string, entry models.UsageHistoryEntry) {
	var counter models.OcrUsageCounter
	err := l.db.WithContext(ctx).
		Where("workspace_id = ? AND provider = ? AND month = ?", workspaceID, provider, month).
		First(&counter).Error
	if err != nil {
		slog.Warn("Usage history lookup failed", "provider", provider, "error", err)
		return
	}

	history := append(counter.History, entry)
	if len(history) > models.MaxUsageHistory {
		history = history[len(history)-models.MaxUsageHistory:]
	}
	if err := l.db.WithContext(ctx).Model(&counter).Update("history", history).Error; err != nil {
		slog.Warn("Usage history update failed", "provider", provider, "error", err)
	}
}
