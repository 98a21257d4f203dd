package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shule-ratiba-api/internal/models"
)

// PeriodSlotRepository reads the daily period grid.
type PeriodSlotRepository struct {
	db *sqlx.DB
}

// NewPeriodSlotRepository constructs the repository.
func NewPeriodSlotRepository(db *sqlx.DB) *PeriodSlotRepository {
	return &PeriodSlotRepository{db: db}
}

// ListClassSlots returns schedulable periods ordered chronologically.
func (r *PeriodSlotRepository) ListClassSlots(ctx context.Context) ([]models.PeriodSlot, error) {
	const query = `SELECT id, label, start_time, end_time, is_class_slot, created_at FROM period_slots WHERE is_class_slot = TRUE ORDER BY start_time ASC`
	var slots []models.PeriodSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list class period slots: %w", err)
	}
	return slots, nil
}
