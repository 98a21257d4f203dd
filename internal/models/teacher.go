package models

import "time"

// Teacher identifies a member of the teaching staff. The scheduler only
// needs identity; descriptive fields exist for timetable views.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	StaffNo   string    `db:"staff_no" json:"staff_no"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
