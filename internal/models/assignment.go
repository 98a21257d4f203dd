package models

import "time"

// TeacherAssignment links a teacher to the subject they teach for a class.
// Assignments are the source of truth for timetable demand.
type TeacherAssignment struct {
	ID           string    `db:"id" json:"id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	ClassGroupID string    `db:"class_group_id" json:"class_group_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SchedulableAssignment enriches an assignment with the subject fields the
// demand builder needs. Assignments whose subject is a component of a
// composite subject are excluded at query time.
type SchedulableAssignment struct {
	TeacherAssignment
	SubjectName      string `db:"subject_name" json:"subject_name"`
	WeeklyLessons    int    `db:"weekly_lessons" json:"weekly_lessons"`
	MinWeeklyLessons int    `db:"min_weekly_lessons" json:"min_weekly_lessons"`
	ClassName        string `db:"class_name" json:"class_name"`
	ClassLevel       string `db:"class_level" json:"class_level"`
}
