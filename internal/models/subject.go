package models

import (
	"strings"
	"time"
)

// prioritySubjects are scheduled every school day when capacity allows.
var prioritySubjects = map[string]struct{}{
	"mathematics": {},
	"english":     {},
	"kiswahili":   {},
}

// Subject represents an academic subject with its weekly lesson targets.
type Subject struct {
	ID               string    `db:"id" json:"id"`
	Code             string    `db:"code" json:"code"`
	Name             string    `db:"name" json:"name"`
	WeeklyLessons    int       `db:"weekly_lessons" json:"weekly_lessons"`
	MinWeeklyLessons int       `db:"min_weekly_lessons" json:"min_weekly_lessons"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectComponent links a composite subject to one of its component
// subjects. Component ("child") subjects are reported under their parent and
// never scheduled directly.
type SubjectComponent struct {
	ID       string  `db:"id" json:"id"`
	ParentID string  `db:"parent_id" json:"parent_id"`
	ChildID  string  `db:"child_id" json:"child_id"`
	Weight   float64 `db:"weight" json:"weight"`
}

// IsPrioritySubject reports whether a subject name belongs to the fixed
// daily-presence set.
func IsPrioritySubject(name string) bool {
	_, ok := prioritySubjects[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// IsMathematics reports whether the subject name is mathematics, which
// prefers early periods.
func IsMathematics(name string) bool {
	return strings.ToLower(strings.TrimSpace(name)) == "mathematics"
}
