package models

import "time"

// Weekday enumerates the five school days.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
)

// SchoolDays returns the fixed five-day week in calendar order.
func SchoolDays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// TimetableEntry is one placed lesson: a class taught a subject by a teacher
// in a specific (day, period) cell of the repeating week.
type TimetableEntry struct {
	ID           string    `db:"id" json:"id"`
	ClassGroupID string    `db:"class_group_id" json:"class_group_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	Day          Weekday   `db:"day" json:"day"`
	PeriodSlotID string    `db:"period_slot_id" json:"period_slot_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TimetableEntryDetail enriches an entry with display names for class views.
type TimetableEntryDetail struct {
	TimetableEntry
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	PeriodLabel string `db:"period_label" json:"period_label"`
	StartTime   string `db:"start_time" json:"start_time"`
}
