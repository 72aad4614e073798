package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization / team lifecycle states.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusPaused    = "paused"
)

// Organization is the top-level tenant grouping.
type Organization struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"uniqueIndex;size:200;not null" json:"name"`
	Status    string         `gorm:"size:20;default:active" json:"status"` // active, suspended, paused
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Team belongs to one organization and owns a credit ledger.
type Team struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrganizationID uint           `gorm:"index;not null" json:"organization_id"`
	Organization   *Organization  `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Name           string         `gorm:"size:200;not null" json:"name"`
	Status         string         `gorm:"size:20;default:active" json:"status"` // active, suspended, paused
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// ModelGroup is a named, priority-ordered set of concrete provider models.
// Callers request the logical group name; resolution picks the concrete models.
type ModelGroup struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string            `gorm:"size:500" json:"description"`
	IsActive    bool              `gorm:"default:true" json:"is_active"`
	Models      []ModelGroupModel `gorm:"foreignKey:GroupID" json:"models,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `gorm:"index" json:"-"`
}

// ModelGroupModel attaches one concrete provider model to a group.
// Priority 0 is the primary; higher values are fallbacks.
type ModelGroupModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"index;not null" json:"group_id"`
	ModelName string    `gorm:"size:100;not null" json:"model_name"`
	Priority  int       `gorm:"default:0" json:"priority"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TeamModelGroupGrant grants a team access to a model group.
type TeamModelGroupGrant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"uniqueIndex:idx_team_group;not null" json:"team_id"`
	GroupID   uint      `gorm:"uniqueIndex:idx_team_group;not null" json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides
func (Organization) TableName() string        { return "organizations" }
func (Team) TableName() string                { return "teams" }
func (ModelGroup) TableName() string          { return "model_groups" }
func (ModelGroupModel) TableName() string     { return "model_group_models" }
func (TeamModelGroupGrant) TableName() string { return "team_model_group_grants" }
