package ocr

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Sweily-fr/newbi-api-sub001/models"
	"gorm.io/gorm"
)

// planCacheTTL bounds how stale a cached plan may be. A workspace that
// upgrades mid-window keeps its old limits for a few minutes, which is
// acceptable for quota checks.
const planCacheTTL = 5 * time.Minute

type planEntry struct {
	plan      string
	expiresAt time.Time
}

// PlanResolver looks up the subscription plan of a workspace with a
// short in-process cache. A workspace without a row (or a lookup
// failure) defaults to the free plan.
type PlanResolver struct {
	db *gorm.DB

	mu    sync.Mutex
	cache map[uint]planEntry
}

func NewPlanResolver(db *gorm.DB) *PlanResolver {
	return &PlanResolver{db: db, cache: make(map[uint]planEntry)}
}

// Resolve returns the plan name for a workspace.
func (r *PlanResolver) Resolve(workspaceID uint) string {
	r.mu.Lock()
	if entry, ok := r.cache[workspaceID]; ok && time.Now().Before(entry.expiresAt) {
		r.mu.Unlock()
		return entry.plan
	}
	r.mu.Unlock()

	var workspace models.Workspace
	plan := models.PlanFree
	if err := r.db.First(&workspace, workspaceID).Error; err != nil {
		slog.Warn("Workspace plan lookup failed, defaulting to free", "workspace_id", workspaceID, "error", err)
	} else if workspace.Plan != "" {
		plan = workspace.Plan
	}

	r.mu.Lock()
	r.cache[workspaceID] = planEntry{plan: plan, expiresAt: time.Now().Add(planCacheTTL)}
	r.mu.Unlock()

	return plan
}
