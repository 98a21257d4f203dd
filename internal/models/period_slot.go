package models

import "time"

// PeriodSlot represents one column of the daily timetable grid. Slots with
// IsClassSlot=false (breaks, assemblies) are never scheduled. StartTime and
// EndTime are wall-clock values in HH:MM form; ordering StartTime
// lexicographically orders slots chronologically.
type PeriodSlot struct {
	ID          string    `db:"id" json:"id"`
	Label       string    `db:"label" json:"label"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	IsClassSlot bool      `db:"is_class_slot" json:"is_class_slot"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
