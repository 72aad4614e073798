package models

import "time"

// ModelPrice holds USD prices per million tokens for one concrete model.
// The table is externally refreshable; the pricing service caches it in
// memory and reloads on demand.
type ModelPrice struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Model         string    `gorm:"uniqueIndex;size:100;not null" json:"model"`
	InputPerMTok  float64   `gorm:"not null" json:"input_per_mtok"`
	OutputPerMTok float64   `gorm:"not null" json:"output_per_mtok"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ModelPrice) TableName() string { return "model_prices" }
