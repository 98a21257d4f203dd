package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shule-ratiba-api/internal/models"
)

// schedulerLockKey is the advisory lock id shared by all generation runs so
// concurrent runs serialize at the database.
const schedulerLockKey = 7274141

// TimetableRepository persists timetable entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// BeginTxx starts a transaction for a generation run.
func (r *TimetableRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// AcquireRunLock takes the scheduler advisory lock for the lifetime of the
// transaction. A second run blocks here until the first commits.
func (r *TimetableRepository) AcquireRunLock(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schedulerLockKey); err != nil {
		return fmt.Errorf("acquire scheduler lock: %w", err)
	}
	return nil
}

// DeleteAllTx removes every timetable entry inside the run transaction.
func (r *TimetableRepository) DeleteAllTx(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM timetable_entries`); err != nil {
		return fmt.Errorf("clear timetable entries: %w", err)
	}
	return nil
}

// BulkCreateTx inserts the computed entries inside the run transaction.
func (r *TimetableRepository) BulkCreateTx(ctx context.Context, tx *sqlx.Tx, entries []models.TimetableEntry) error {
	now := time.Now().UTC()
	for i := range entries {
		payload := entries[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO timetable_entries (id, class_group_id, subject_id, teacher_id, day, period_slot_id, created_at, updated_at) VALUES (:id, :class_group_id, :subject_id, :teacher_id, :day, :period_slot_id, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("insert timetable entry: %w", err)
		}
		entries[i] = payload
	}
	return nil
}

// ListByClassDetail returns a class's entries with display fields, ordered by
// day then period start time.
func (r *TimetableRepository) ListByClassDetail(ctx context.Context, classGroupID string) ([]models.TimetableEntryDetail, error) {
	const query = `
SELECT te.id, te.class_group_id, te.subject_id, te.teacher_id, te.day, te.period_slot_id, te.created_at, te.updated_at,
       s.name AS subject_name, t.full_name AS teacher_name, p.label AS period_label, p.start_time
FROM timetable_entries te
JOIN subjects s ON s.id = te.subject_id
JOIN teachers t ON t.id = te.teacher_id
JOIN period_slots p ON p.id = te.period_slot_id
WHERE te.class_group_id = $1
ORDER BY te.day ASC, p.start_time ASC`
	var entries []models.TimetableEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, classGroupID); err != nil {
		return nil, fmt.Errorf("list timetable by class: %w", err)
	}
	return entries, nil
}
