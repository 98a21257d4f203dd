package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shule-ratiba-api/internal/models"
)

// ClassGroupRepository reads class groups.
type ClassGroupRepository struct {
	db *sqlx.DB
}

// NewClassGroupRepository constructs the repository.
func NewClassGroupRepository(db *sqlx.DB) *ClassGroupRepository {
	return &ClassGroupRepository{db: db}
}

// ListOrdered returns all class groups in (level, name) order.
func (r *ClassGroupRepository) ListOrdered(ctx context.Context) ([]models.ClassGroup, error) {
	const query = `SELECT id, name, level, created_at, updated_at FROM class_groups ORDER BY level ASC, name ASC`
	var classes []models.ClassGroup
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list class groups: %w", err)
	}
	return classes, nil
}

// FindByID loads one class group.
func (r *ClassGroupRepository) FindByID(ctx context.Context, id string) (*models.ClassGroup, error) {
	const query = `SELECT id, name, level, created_at, updated_at FROM class_groups WHERE id = $1`
	var class models.ClassGroup
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}
