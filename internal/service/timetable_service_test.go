package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shule-ratiba-api/internal/dto"
	"github.com/noah-isme/shule-ratiba-api/internal/models"
	appErrors "github.com/noah-isme/shule-ratiba-api/pkg/errors"
)

type stubPeriodRepo struct {
	slots []models.PeriodSlot
	err   error
}

func (s *stubPeriodRepo) ListClassSlots(_ context.Context) ([]models.PeriodSlot, error) {
	return s.slots, s.err
}

type stubClassRepo struct {
	classes []models.ClassGroup
	err     error
}

func (s *stubClassRepo) ListOrdered(_ context.Context) ([]models.ClassGroup, error) {
	return s.classes, s.err
}

type stubAssignmentRepo struct {
	assignments []models.SchedulableAssignment
	err         error
}

func (s *stubAssignmentRepo) ListSchedulable(_ context.Context) ([]models.SchedulableAssignment, error) {
	return s.assignments, s.err
}

// mockTimetableStore backs transactions with sqlmock and records the
// persistence calls the generation run makes.
type mockTimetableStore struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock

	lockCalls   int
	deleteCalls int
	saved       [][]models.TimetableEntry
	details     []models.TimetableEntryDetail
	detailErr   error
}

func newMockTimetableStore(t *testing.T) *mockTimetableStore {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &mockTimetableStore{db: sqlx.NewDb(db, "sqlmock"), mock: mock}
}

// expectRuns arms sqlmock for n committed generation transactions.
func (m *mockTimetableStore) expectRuns(n int) {
	for i := 0; i < n; i++ {
		m.mock.ExpectBegin()
		m.mock.ExpectCommit()
	}
}

func (m *mockTimetableStore) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, opts)
}

func (m *mockTimetableStore) AcquireRunLock(_ context.Context, _ *sqlx.Tx) error {
	m.lockCalls++
	return nil
}

func (m *mockTimetableStore) DeleteAllTx(_ context.Context, _ *sqlx.Tx) error {
	m.deleteCalls++
	return nil
}

func (m *mockTimetableStore) BulkCreateTx(_ context.Context, _ *sqlx.Tx, entries []models.TimetableEntry) error {
	saved := make([]models.TimetableEntry, len(entries))
	copy(saved, entries)
	m.saved = append(m.saved, saved)
	return nil
}

func (m *mockTimetableStore) ListByClassDetail(_ context.Context, _ string) ([]models.TimetableEntryDetail, error) {
	return m.details, m.detailErr
}

func (m *mockTimetableStore) lastSaved() []models.TimetableEntry {
	if len(m.saved) == 0 {
		return nil
	}
	return m.saved[len(m.saved)-1]
}

func classSlotGrid(count int) []models.PeriodSlot {
	slots := make([]models.PeriodSlot, 0, count)
	for i := 0; i < count; i++ {
		slots = append(slots, models.PeriodSlot{
			ID:          fmt.Sprintf("p%d", i+1),
			Label:       fmt.Sprintf("Period %d", i+1),
			StartTime:   fmt.Sprintf("%02d:00", 8+i),
			EndTime:     fmt.Sprintf("%02d:40", 8+i),
			IsClassSlot: true,
		})
	}
	return slots
}

func classGroups(ids ...string) []models.ClassGroup {
	classes := make([]models.ClassGroup, 0, len(ids))
	for _, id := range ids {
		classes = append(classes, models.ClassGroup{ID: id, Name: id, Level: "Form 1"})
	}
	return classes
}

func assignment(classID, subjectID, subjectName, teacherID string, weekly, minWeekly int) models.SchedulableAssignment {
	return models.SchedulableAssignment{
		TeacherAssignment: models.TeacherAssignment{
			ID:           classID + "-" + subjectID,
			TeacherID:    teacherID,
			ClassGroupID: classID,
			SubjectID:    subjectID,
		},
		SubjectName:      subjectName,
		WeeklyLessons:    weekly,
		MinWeeklyLessons: minWeekly,
	}
}

func newTestService(
	t *testing.T,
	periods []models.PeriodSlot,
	classes []models.ClassGroup,
	assignments []models.SchedulableAssignment,
) (*TimetableService, *mockTimetableStore) {
	t.Helper()
	store := newMockTimetableStore(t)
	svc := NewTimetableService(
		&stubPeriodRepo{slots: periods},
		&stubClassRepo{classes: classes},
		&stubAssignmentRepo{assignments: assignments},
		store,
		nil,
		nil,
		nil,
		nil,
		TimetableServiceConfig{},
	)
	return svc, store
}

func seedPtr(v int64) *int64 { return &v }

// A lone mathematics assignment in a 6-period week: one lesson per day, all
// in the early periods, no skips, 25 natural blanks left alone.
func TestGenerateSingleMathClass(t *testing.T) {
	svc, store := newTestService(t,
		classSlotGrid(6),
		classGroups("c1"),
		[]models.SchedulableAssignment{
			assignment("c1", "subj-math", "Mathematics", "t1", 5, 0),
		},
	)
	store.expectRuns(1)

	report, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Seed: seedPtr(42)})
	require.NoError(t, err)

	assert.Equal(t, 5, report.Placed)
	assert.Equal(t, 0, report.Skipped)
	assert.Empty(t, report.Reasons)
	assert.Equal(t, int64(42), report.Seed)
	require.Contains(t, report.Meta.Classes, "c1")
	assert.Equal(t, dto.ClassCapacity{
		Capacity:       30,
		DemandOriginal: 5,
		DemandAdjusted: 5,
	}, report.Meta.Classes["c1"])

	entries := store.lastSaved()
	require.Len(t, entries, 5)

	early := map[string]bool{"p1": true, "p2": true, "p3": true, "p4": true}
	daysSeen := make(map[models.Weekday]bool)
	for _, e := range entries {
		assert.Equal(t, "c1", e.ClassGroupID)
		assert.Equal(t, "subj-math", e.SubjectID)
		assert.True(t, early[e.PeriodSlotID], "mathematics placed outside early periods: %s", e.PeriodSlotID)
		assert.False(t, daysSeen[e.Day], "mathematics twice on %s", e.Day)
		daysSeen[e.Day] = true
	}
	assert.Len(t, daysSeen, 5)
	assert.Equal(t, 1, store.lockCalls)
	assert.Equal(t, 0, store.deleteCalls)
	assert.NoError(t, store.mock.ExpectationsWereMet())
}

// fullWeekFixture gives every class its own teachers, so the whole demand is
// placeable without contention.
func fullWeekFixture() ([]models.PeriodSlot, []models.ClassGroup, []models.SchedulableAssignment) {
	periods := classSlotGrid(6)
	classes := classGroups("c1", "c2", "c3")

	subjects := []struct {
		id     string
		name   string
		weekly int
	}{
		{"subj-math", "Mathematics", 5},
		{"subj-eng", "English", 5},
		{"subj-kis", "Kiswahili", 5},
		{"subj-sci", "Science", 4},
		{"subj-his", "History", 3},
		{"subj-geo", "Geography", 3},
	}

	var assignments []models.SchedulableAssignment
	for _, class := range classes {
		for _, s := range subjects {
			teacherID := fmt.Sprintf("t-%s-%s", class.ID, s.id)
			assignments = append(assignments, assignment(class.ID, s.id, s.name, teacherID, s.weekly, 0))
		}
	}
	return periods, classes, assignments
}

func TestGenerateFullWeekNoConflicts(t *testing.T) {
	periods, classes, assignments := fullWeekFixture()
	svc, store := newTestService(t, periods, classes, assignments)
	store.expectRuns(1)

	report, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Seed: seedPtr(7)})
	require.NoError(t, err)

	// 25 lessons per class, nothing skipped with dedicated teachers.
	assert.Equal(t, 75, report.Placed)
	assert.Equal(t, 0, report.Skipped)

	entries := store.lastSaved()
	require.Len(t, entries, 75)

	classSlots := make(map[string]bool)
	teacherSlots := make(map[string]bool)
	for _, e := range entries {
		ck := fmt.Sprintf("%s|%s|%s", e.ClassGroupID, e.Day, e.PeriodSlotID)
		tk := fmt.Sprintf("%s|%s|%s", e.TeacherID, e.Day, e.PeriodSlotID)
		assert.False(t, classSlots[ck], "class double-booked at %s", ck)
		assert.False(t, teacherSlots[tk], "teacher double-booked at %s", tk)
		classSlots[ck] = true
		teacherSlots[tk] = true
	}

	// Every (class, subject, teacher) pair received its weekly count.
	pairCounts := make(map[string]int)
	for _, e := range entries {
		pairCounts[e.ClassGroupID+"|"+e.SubjectID]++
	}
	for _, a := range assignments {
		want := a.WeeklyLessons
		if models.IsPrioritySubject(a.SubjectName) && want < 5 {
			want = 5
		}
		assert.GreaterOrEqual(t, pairCounts[a.ClassGroupID+"|"+a.SubjectID], want,
			"pair %s/%s under its weekly demand", a.ClassGroupID, a.SubjectID)
	}
	assert.NoError(t, store.mock.ExpectationsWereMet())
}

func TestGeneratePrioritySubjectsDaily(t *testing.T) {
	periods, classes, assignments := fullWeekFixture()
	svc, store := newTestService(t, periods, classes, assignments)
	store.expectRuns(1)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Seed: seedPtr(99)})
	require.NoError(t, err)

	entries := store.lastSaved()
	seen := make(map[string]bool)
	for _, e := range entries {
		seen[fmt.Sprintf("%s|%s|%s", e.ClassGroupID, e.SubjectID, e.Day)] = true
	}

	for _, class := range classes {
		for _, subjectID := range []string{"subj-math", "subj-eng", "subj-kis"} {
			for _, day := range models.SchoolDays() {
				assert.True(t, seen[fmt.Sprintf("%s|%s|%s", class.ID, subjectID, day)],
					"class %s missing %s on %s", class.ID, subjectID, day)
			}
		}
	}
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	periods, classes, assignments := fullWeekFixture()

	run := func() []models.TimetableEntry {
		svc, store := newTestService(t, periods, classes, assignments)
		store.expectRuns(1)
		_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Seed: seedPtr(1234)})
		require.NoError(t, err)
		return store.lastSaved()
	}

	first := run()
	second := run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ClassGroupID, second[i].ClassGroupID, "entry %d", i)
		assert.Equal(t, first[i].SubjectID, second[i].SubjectID, "entry %d", i)
		assert.Equal(t, first[i].TeacherID, second[i].TeacherID, "entry %d", i)
		assert.Equal(t, first[i].Day, second[i].Day, "entry %d", i)
		assert.Equal(t, first[i].PeriodSlotID, second[i].PeriodSlotID, "entry %d", i)
	}
}

// An oversubscribed class is trimmed to grid capacity; priority subjects keep
// their full counts and the final grid has no blanks left over.
func TestGenerateOversubscribedClass(t *testing.T) {
	svc, store := newTestService(t,
		classSlotGrid(6),
		classGroups("c1"),
		[]models.SchedulableAssignment{
			assignment("c1", "subj-math", "Mathematics", "t1", 5, 0),
			assignment("c1", "subj-eng", "English", "t2", 5, 0),
			assignment("c1", "subj-kis", "Kiswahili", "t3", 5, 0),
			assignment("c1", "subj-sci", "Science", "t4", 10, 0),
			assignment("c1", "subj-his", "History", "t5", 10, 0),
		},
	)
	store.expectRuns(1)

	report, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Seed: seedPtr(5)})
	require.NoError(t, err)

	diag := report.Meta.Classes["c1"]
	assert.True(t, diag.Oversubscribed)
	assert.Equal(t, 35, diag.DemandOriginal)
	assert.Equal(t, 30, diag.DemandAdjusted)

	entries := store.lastSaved()
	require.Len(t, entries, 30)

	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.SubjectID]++
	}
	assert.Equal(t, 5, counts["subj-math"])
	assert.Equal(t, 5, counts["subj-eng"])
	assert.Equal(t, 5, counts["subj-kis"])
	assert.Equal(t, 15, counts["subj-sci"]+counts["subj-his"])
}

// Two classes fighting over one teacher: the teacher's whole week is used,
// the losing class's slots are reported, and the final fill cannot invent a
// free teacher.
func TestGenerateContendedTeacherReportsSkips(t *testing.T) {
	svc, store := newTestService(t,
		classSlotGrid(2),
		classGroups("c1", "c2"),
		[]models.SchedulableAssignment{
			assignment("c1", "subj-sci", "Science", "t1", 10, 0),
			assignment("c2", "subj-sci", "Science", "t1", 10, 0),
		},
	)
	store.expectRuns(1)

	report, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Seed: seedPtr(11)})
	require.NoError(t, err)

	// 2 periods x 5 days: the shared teacher can give at most 10 lessons.
	assert.Equal(t, 10, report.Placed)
	assert.Greater(t, report.Skipped, 0)
	assert.Greater(t, report.Reasons["no_match_for_period"], 0)
	assert.Greater(t, report.Reasons["final_fill_no_candidate"], 0)

	entries := store.lastSaved()
	teacherSlots := make(map[string]bool)
	for _, e := range entries {
		tk := fmt.Sprintf("%s|%s", e.Day, e.PeriodSlotID)
		assert.False(t, teacherSlots[tk], "teacher double-booked at %s", tk)
		teacherSlots[tk] = true
	}
}

// A class covering its full grid ends the run with at most the configured
// number of blank cells.
func TestGenerateFullySubscribedClassBlanksBounded(t *testing.T) {
	var assignments []models.SchedulableAssignment
	assignments = append(assignments,
		assignment("c1", "subj-math", "Mathematics", "t1", 5, 0),
		assignment("c1", "subj-eng", "English", "t2", 5, 0),
		assignment("c1", "subj-kis", "Kiswahili", "t3", 5, 0),
		assignment("c1", "subj-sci", "Science", "t4", 6, 0),
		assignment("c1", "subj-his", "History", "t5", 5, 0),
		assignment("c1", "subj-geo", "Geography", "t6", 4, 0),
	)
	svc, store := newTestService(t, classSlotGrid(6), classGroups("c1"), assignments)
	store.expectRuns(1)

	report, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Seed: seedPtr(3)})
	require.NoError(t, err)

	entries := store.lastSaved()
	blanks := 30 - len(entries)
	assert.LessOrEqual(t, blanks, 2, "fully subscribed class left %d blanks", blanks)
	assert.Equal(t, 30, report.Meta.Classes["c1"].DemandAdjusted)
}

func TestGenerateMinWeeklyLessonsFloor(t *testing.T) {
	svc, store := newTestService(t,
		classSlotGrid(6),
		classGroups("c1"),
		[]models.SchedulableAssignment{
			assignment("c1", "subj-sci", "Science", "t1", 1, 3),
		},
	)
	store.expectRuns(1)

	report, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Seed: seedPtr(8)})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Placed)
}

func TestGenerateEmptySnapshot(t *testing.T) {
	svc, store := newTestService(t, classSlotGrid(6), classGroups("c1"), nil)

	report, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Seed: seedPtr(1)})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Placed)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, int64(1), report.Seed)
	assert.Empty(t, store.saved)
	assert.Equal(t, 0, store.lockCalls)
}

func TestGenerateOverwriteClearsPrevious(t *testing.T) {
	periods, classes, assignments := fullWeekFixture()
	svc, store := newTestService(t, periods, classes, assignments)
	store.expectRuns(2)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Seed: seedPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 0, store.deleteCalls)

	_, err = svc.Generate(context.Background(), dto.GenerateTimetableRequest{Overwrite: true, Seed: seedPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 1, store.deleteCalls)
	assert.NoError(t, store.mock.ExpectationsWereMet())
}

func TestGenerateSnapshotLoadFailure(t *testing.T) {
	store := newMockTimetableStore(t)
	svc := NewTimetableService(
		&stubPeriodRepo{err: fmt.Errorf("db down")},
		&stubClassRepo{},
		&stubAssignmentRepo{},
		store,
		nil, nil, nil, nil,
		TimetableServiceConfig{},
	)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestClassTimetableGroupsByDay(t *testing.T) {
	store := newMockTimetableStore(t)
	store.details = []models.TimetableEntryDetail{
		{
			TimetableEntry: models.TimetableEntry{
				ClassGroupID: "c1", SubjectID: "subj-math", TeacherID: "t1",
				Day: models.Monday, PeriodSlotID: "p1",
			},
			SubjectName: "Mathematics", TeacherName: "A. Mwangi", PeriodLabel: "Period 1", StartTime: "08:00",
		},
		{
			TimetableEntry: models.TimetableEntry{
				ClassGroupID: "c1", SubjectID: "subj-eng", TeacherID: "t2",
				Day: models.Wednesday, PeriodSlotID: "p2",
			},
			SubjectName: "English", TeacherName: "B. Odhiambo", PeriodLabel: "Period 2", StartTime: "08:45",
		},
	}
	svc := NewTimetableService(
		&stubPeriodRepo{}, &stubClassRepo{}, &stubAssignmentRepo{},
		store, nil, nil, nil, nil, TimetableServiceConfig{},
	)

	view, err := svc.ClassTimetable(context.Background(), "c1")
	require.NoError(t, err)

	require.Len(t, view.Days, 5)
	assert.Equal(t, "MONDAY", view.Days[0].Day)
	require.Len(t, view.Days[0].Lessons, 1)
	assert.Equal(t, "Mathematics", view.Days[0].Lessons[0].SubjectName)
	require.Len(t, view.Days[2].Lessons, 1)
	assert.Equal(t, "English", view.Days[2].Lessons[0].SubjectName)
	assert.Empty(t, view.Days[1].Lessons)
}

func TestClassTimetableRequiresID(t *testing.T) {
	svc, _ := newTestService(t, nil, nil, nil)

	_, err := svc.ClassTimetable(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLatestReportWithoutCache(t *testing.T) {
	svc, _ := newTestService(t, nil, nil, nil)

	_, err := svc.LatestReport(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDefaultSeedNonNegative(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.GreaterOrEqual(t, defaultSeed(), int64(0))
		time.Sleep(time.Millisecond)
	}
}
