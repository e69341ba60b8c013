package repository

import (
	"context"

	"golang-trading-ensemble/internal/entity"

	"gorm.io/gorm"
)

// ensembleSignalRepository persists ensemble decisions with gorm.
type ensembleSignalRepository struct {
	db *gorm.DB
}

// NewEnsembleSignalRepository creates a new instance of ensembleSignalRepository.
func NewEnsembleSignalRepository(db *gorm.DB) EnsembleSignalRepository {
	return &ensembleSignalRepository{db: db}
}

// Create stores one decision row.
func (r *ensembleSignalRepository) Create(ctx context.Context, signal *entity.EnsembleSignal) error {
	return r.db.WithContext(ctx).Create(signal).Error
}

// FindBySymbol returns the most recent decisions for a symbol, newest first.
func (r *ensembleSignalRepository) FindBySymbol(ctx context.Context, symbol string, limit int) ([]entity.EnsembleSignal, error) {
	var signals []entity.EnsembleSignal
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("created_at DESC").
		Limit(limit).
		Find(&signals).Error
	return signals, err
}
