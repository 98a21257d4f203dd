package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shule-ratiba-api/internal/models"
)

// AssignmentRepository reads teacher-class-subject assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListSchedulable returns assignments joined with the subject fields the
// demand builder needs. Subjects that appear as a child of a composite
// subject are excluded: only the parent is placed on the timetable.
func (r *AssignmentRepository) ListSchedulable(ctx context.Context) ([]models.SchedulableAssignment, error) {
	const query = `
SELECT ta.id, ta.teacher_id, ta.class_group_id, ta.subject_id, ta.created_at,
       s.name AS subject_name, s.weekly_lessons, s.min_weekly_lessons,
       c.name AS class_name, c.level AS class_level
FROM teacher_assignments ta
JOIN subjects s ON s.id = ta.subject_id
JOIN class_groups c ON c.id = ta.class_group_id
WHERE ta.subject_id NOT IN (SELECT child_id FROM subject_components)
ORDER BY c.level ASC, c.name ASC, s.name ASC`
	var assignments []models.SchedulableAssignment
	if err := r.db.SelectContext(ctx, &assignments, query); err != nil {
		return nil, fmt.Errorf("list schedulable assignments: %w", err)
	}
	return assignments, nil
}
