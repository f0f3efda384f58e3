package models

import "gorm.io/gorm"

// Plan names, resolved from the subscription store. A workspace without
// a subscription row defaults to PlanFree.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Workspace is the tenant unit: every transaction, expense, usage
// counter and category rule is scoped to one workspace.
type Workspace struct {
	gorm.Model
	Name string `json:"name" gorm:"not null"`
	Plan string `json:"plan" gorm:"default:'free'"`
	// DefaultOcrProvider is promoted to priority 0 in the provider chain.
	DefaultOcrProvider string `json:"defaultOcrProvider"`
}
