package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Login        string    `json:"login" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	FullName     string    `json:"fullName"`
	Role         string    `json:"role" gorm:"default:'member'"`
	WorkspaceID  uint      `json:"workspaceId" gorm:"index;not null"`
	Workspace    Workspace `json:"-" gorm:"foreignKey:WorkspaceID"`
}
