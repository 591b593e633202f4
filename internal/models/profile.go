package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile groups permissions. A user holds at most one profile.
type Profile struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Name        string         `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string         `gorm:"size:500" json:"description,omitempty"`
	// IsSystem profiles are seeded and cannot be deleted.
	IsSystem    bool         `gorm:"default:false" json:"is_system"`
	Permissions []Permission `gorm:"many2many:profile_permissions;" json:"permissions,omitempty"`
	Users       []User       `gorm:"foreignKey:ProfileID" json:"users,omitempty"`
}

// PermissionCodes returns the loaded permissions as "resource:action" codes.
func (p *Profile) PermissionCodes() []string {
	codes := make([]string, len(p.Permissions))
	for i, perm := range p.Permissions {
		codes[i] = perm.Code()
	}
	return codes
}

// Permission is one action on a resource type, e.g. "template:set_default".
type Permission struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	ResourceType string         `gorm:"size:50;not null;uniqueIndex:idx_perm_resource_action" json:"resource_type"`
	Action       string         `gorm:"size:50;not null;uniqueIndex:idx_perm_resource_action" json:"action"`
	Description  string         `gorm:"size:200" json:"description,omitempty"`
}

// Code returns the permission in "resource:action" format.
func (p Permission) Code() string {
	return p.ResourceType + ":" + p.Action
}
