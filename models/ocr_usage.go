package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// UsageHistoryEntry is one recent OCR call recorded on the counter row.
type UsageHistoryEntry struct {
	At       time.Time `json:"at"`
	FileName string    `json:"fileName"`
	MimeType string    `json:"mimeType"`
}

// UsageHistory keeps a short ring buffer of recent calls as JSONB.
type UsageHistory []UsageHistoryEntry

// MaxUsageHistory bounds the ring buffer on a counter row.
const MaxUsageHistory = 20

// Value serializes the history for storage.
func (h UsageHistory) Value() (driver.Value, error) {
	return json.Marshal(h)
}

// Scan reads the JSONB column back into the history slice. Drivers
// return the column as either []byte or string.
func (h *UsageHistory) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	case nil:
		*h = nil
		return nil
	default:
		return errors.New("unsupported source type for history column")
	}
}

// OcrUsageCounter tracks OCR calls for one (workspace, provider,
// calendar month). Count only grows within a month; a new month gets a
// new row, so crossing the boundary resets usage without any cleanup.
type OcrUsageCounter struct {
	gorm.Model
	WorkspaceID uint   `json:"workspaceId" gorm:"not null;uniqueIndex:idx_usage_month"`
	Provider    string `json:"provider" gorm:"not null;uniqueIndex:idx_usage_month"`
	// Month is the calendar month in "2006-01" form.
	Month   string       `json:"month" gorm:"not null;uniqueIndex:idx_usage_month"`
	Count   int          `json:"count" gorm:"default:0"`
	Limit   int          `json:"limit" gorm:"column:monthly_limit"`
	History UsageHistory `json:"history" gorm:"type:jsonb"`
}
