package models

import "gorm.io/gorm"

// CategoryRule is a workspace-defined categorization rule. Expression
// is a govaluate boolean over the extracted fields (amount, vendor,
// description); rules run in priority order before the built-in
// keyword table.
type CategoryRule struct {
	gorm.Model
	WorkspaceID uint      `json:"workspaceId" gorm:"index;not null"`
	Workspace   Workspace `json:"-" gorm:"foreignKey:WorkspaceID"`

	Category   string `json:"category" gorm:"not null"`
	Expression string `json:"expression" gorm:"not null"`
	Priority   int    `json:"priority" gorm:"default:0"`
	IsEnabled  bool   `json:"isEnabled" gorm:"default:true"`
}
