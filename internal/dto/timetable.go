package dto

import "time"

// GenerateTimetableRequest instructs the engine to build the weekly
// timetable for the whole school.
type GenerateTimetableRequest struct {
	Overwrite bool   `json:"overwrite"`
	Seed      *int64 `json:"seed" validate:"omitempty"`
	Async     bool   `json:"async"`
}

// ClassCapacity summarises the demand diagnostics for one class.
type ClassCapacity struct {
	Capacity       int  `json:"capacity"`
	DemandOriginal int  `json:"demandOriginal"`
	DemandAdjusted int  `json:"demandAdjusted"`
	Oversubscribed bool `json:"oversubscribed"`
}

// TimetableReportMeta carries per-class diagnostics for a run.
type TimetableReportMeta struct {
	Classes map[string]ClassCapacity `json:"classes"`
}

// TimetableReport is the result of one generation run.
type TimetableReport struct {
	Placed   int                 `json:"placed"`
	Skipped  int                 `json:"skipped"`
	Reasons  map[string]int      `json:"reasons"`
	Meta     TimetableReportMeta `json:"meta"`
	Seed     int64               `json:"seed"`
	Duration time.Duration       `json:"duration"`
}

// EnqueuedRun acknowledges an asynchronous generation request.
type EnqueuedRun struct {
	RunID string `json:"runId"`
}

// ClassTimetableView groups a class's entries by day for display.
type ClassTimetableView struct {
	ClassGroupID string              `json:"classGroupId"`
	Days         []ClassTimetableDay `json:"days"`
}

// ClassTimetableDay lists the lessons of one school day in period order.
type ClassTimetableDay struct {
	Day     string               `json:"day"`
	Lessons []ClassTimetableCell `json:"lessons"`
}

// ClassTimetableCell is one lesson in a class timetable view.
type ClassTimetableCell struct {
	PeriodSlotID string `json:"periodSlotId"`
	PeriodLabel  string `json:"periodLabel"`
	StartTime    string `json:"startTime"`
	SubjectID    string `json:"subjectId"`
	SubjectName  string `json:"subjectName"`
	TeacherID    string `json:"teacherId"`
	TeacherName  string `json:"teacherName"`
}
