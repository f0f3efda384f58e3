package models

import (
	"time"

	"gorm.io/gorm"
)

// Reconciliation statuses of a bank transaction.
const (
	StatusUnmatched = "unmatched"
	StatusMatched   = "matched"
)

// BankTransaction is a money movement imported from the bank
// aggregation feed. Rows are created by the external sync and only
// mutated here when a receipt is attached or detached; they are never
// deleted by the reconciliation subsystem.
type BankTransaction struct {
	gorm.Model
	WorkspaceID uint      `json:"workspaceId" gorm:"index;not null"`
	Workspace   Workspace `json:"-" gorm:"foreignKey:WorkspaceID"`

	// Provider + ExternalID identify the row in the aggregator feed.
	Provider   string `json:"provider" gorm:"not null;uniqueIndex:idx_tx_external"`
	ExternalID string `json:"externalId" gorm:"not null;uniqueIndex:idx_tx_external"`

	// Amount is signed: negative values are debits.
	Amount      float64   `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency    string    `json:"currency" gorm:"default:'EUR'"`
	Description string    `json:"description"`
	ProcessedAt time.Time `json:"processedAt" gorm:"index"`

	LinkedExpenseID *uint      `json:"linkedExpenseId" gorm:"index"`
	ReceiptFileURL  string     `json:"receiptFileUrl"`
	Status          string     `json:"status" gorm:"default:'unmatched';index"`
	MatchedAt       *time.Time `json:"matchedAt"`
	Category        string     `json:"category"`
}
