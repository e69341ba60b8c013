package entity

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnsembleSignal is one persisted ensemble decision for a symbol.
type EnsembleSignal struct {
	ID              int64          `json:"id"`
	Symbol          string         `json:"symbol"`
	Recommendation  string         `json:"recommendation"`
	Confidence      float64        `json:"confidence"`
	DecisionScore   float64        `json:"decision_score"`
	RespondedModels int            `json:"responded_models"`
	TotalModels     int            `json:"total_models"`
	Data            datatypes.JSON `gorm:"type:jsonb" json:"data"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"deleted_at"`
}

func (EnsembleSignal) TableName() string {
	return "ensemble_signals"
}
