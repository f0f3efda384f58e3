package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ExpenseFilePaths stores the uploaded receipt file paths as JSONB.
type ExpenseFilePaths []string

// Value serializes the path list for storage.
func (p ExpenseFilePaths) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan reads the JSONB column back into the path list. Drivers return
// the column as either []byte or string.
func (p *ExpenseFilePaths) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = nil
		return nil
	default:
		return errors.New("unsupported source type for file paths column")
	}
}

// Sources of an expense record.
const (
	ExpenseSourceManual = "manual"
	ExpenseSourceOCR    = "ocr"
	ExpenseSourceAuto   = "auto"
)

// ExpenseRecord is a user- or OCR-created expense. At most one
// BankTransaction references a given record as its linked receipt;
// the linker enforces this, not a database constraint.
type ExpenseRecord struct {
	gorm.Model
	WorkspaceID uint      `json:"workspaceId" gorm:"index;not null"`
	Workspace   Workspace `json:"-" gorm:"foreignKey:WorkspaceID"`

	Vendor         string           `json:"vendor"`
	Amount         float64          `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency       string           `json:"currency" gorm:"default:'EUR'"`
	Category       string           `json:"category"`
	ExpenseDate    *time.Time       `json:"expenseDate"`
	DocumentNumber string           `json:"documentNumber"`
	Files          ExpenseFilePaths `json:"files" gorm:"type:jsonb"`

	LinkedTransactionID *uint   `json:"linkedTransactionId" gorm:"index"`
	Reconciled          bool    `json:"reconciled" gorm:"default:false"`
	Source              string  `json:"source" gorm:"default:'manual'"`
	OcrConfidence       float64 `json:"ocrConfidence"`
}
