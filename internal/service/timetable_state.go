package service

import (
	"math/rand"
	"sort"

	"github.com/noah-isme/shule-ratiba-api/internal/dto"
	"github.com/noah-isme/shule-ratiba-api/internal/models"
)

// Skip reasons surfaced in the run report.
const (
	reasonNoMatchForPeriod     = "no_match_for_period"
	reasonFinalFillNoCandidate = "final_fill_no_candidate"
)

type pairKey struct {
	SubjectID string
	TeacherID string
}

// demandEntry is the mutable weekly lesson counter for one
// (class, subject, teacher) triple.
type demandEntry struct {
	SubjectID string
	TeacherID string
	Priority  bool
	Math      bool
	Remaining int
	Original  int
}

// classDemand owns a class's demand entries with an index for O(1) decrement.
type classDemand struct {
	ClassID  string
	Entries  []*demandEntry
	byPair   map[pairKey]*demandEntry
	adjusted int
}

func newClassDemand(classID string) *classDemand {
	return &classDemand{ClassID: classID, byPair: make(map[pairKey]*demandEntry)}
}

func (cd *classDemand) add(e *demandEntry) {
	key := pairKey{SubjectID: e.SubjectID, TeacherID: e.TeacherID}
	if existing, ok := cd.byPair[key]; ok {
		existing.Remaining += e.Remaining
		existing.Original += e.Original
		return
	}
	cd.byPair[key] = e
	cd.Entries = append(cd.Entries, e)
}

func (cd *classDemand) total() int {
	sum := 0
	for _, e := range cd.Entries {
		sum += e.Remaining
	}
	return sum
}

type classSlotKey struct {
	ClassID  string
	Day      models.Weekday
	PeriodID string
}

type teacherSlotKey struct {
	TeacherID string
	Day       models.Weekday
	PeriodID  string
}

type subjectDayKey struct {
	ClassID   string
	SubjectID string
	Day       models.Weekday
}

type teacherDayKey struct {
	TeacherID string
	Day       models.Weekday
}

// runReport accumulates placement statistics during a run.
type runReport struct {
	placed  int
	skipped int
	reasons map[string]int
	classes map[string]dto.ClassCapacity
}

func newRunReport() *runReport {
	return &runReport{
		reasons: make(map[string]int),
		classes: make(map[string]dto.ClassCapacity),
	}
}

func (r *runReport) addPlaced() {
	r.placed++
}

func (r *runReport) addSkipped(reason string) {
	r.skipped++
	r.reasons[reason]++
}

// schedulingState carries all mutable state of one generation run. Nothing in
// it outlives the run.
type schedulingState struct {
	days    []models.Weekday   // seeding/matching iteration order, shuffled per run
	periods []models.PeriodSlot // chronological
	early   []models.PeriodSlot
	late    []models.PeriodSlot
	classes []models.ClassGroup
	demands map[string]*classDemand

	classBusy   map[classSlotKey]*models.TimetableEntry
	teacherBusy map[teacherSlotKey]*models.TimetableEntry
	teacherLoad map[teacherDayKey]int
	subjectDay  map[subjectDayKey]int
	entries     []*models.TimetableEntry

	rng    *rand.Rand
	report *runReport
}

func newSchedulingState(
	periods []models.PeriodSlot,
	classes []models.ClassGroup,
	demands map[string]*classDemand,
	earlyCount int,
	rng *rand.Rand,
) *schedulingState {
	if earlyCount > len(periods) {
		earlyCount = len(periods)
	}
	days := models.SchoolDays()
	rng.Shuffle(len(days), func(i, j int) { days[i], days[j] = days[j], days[i] })

	return &schedulingState{
		days:        days,
		periods:     periods,
		early:       periods[:earlyCount],
		late:        periods[earlyCount:],
		classes:     classes,
		demands:     demands,
		classBusy:   make(map[classSlotKey]*models.TimetableEntry),
		teacherBusy: make(map[teacherSlotKey]*models.TimetableEntry),
		teacherLoad: make(map[teacherDayKey]int),
		subjectDay:  make(map[subjectDayKey]int),
		rng:         rng,
		report:      newRunReport(),
	}
}

func (st *schedulingState) classFree(classID string, day models.Weekday, periodID string) bool {
	_, busy := st.classBusy[classSlotKey{ClassID: classID, Day: day, PeriodID: periodID}]
	return !busy
}

func (st *schedulingState) teacherFree(teacherID string, day models.Weekday, periodID string) bool {
	_, busy := st.teacherBusy[teacherSlotKey{TeacherID: teacherID, Day: day, PeriodID: periodID}]
	return !busy
}

// occupant returns the entry a teacher is already committed to in this slot.
func (st *schedulingState) occupant(teacherID string, day models.Weekday, periodID string) *models.TimetableEntry {
	return st.teacherBusy[teacherSlotKey{TeacherID: teacherID, Day: day, PeriodID: periodID}]
}

func (st *schedulingState) taughtToday(classID, subjectID string, day models.Weekday) int {
	return st.subjectDay[subjectDayKey{ClassID: classID, SubjectID: subjectID, Day: day}]
}

// place materializes a lesson, updates both busy sets and decrements demand.
// Demand counts never go negative: a placement beyond the pair's count (final
// fill repeats) leaves the counter at zero.
func (st *schedulingState) place(classID string, e *demandEntry, day models.Weekday, periodID string) *models.TimetableEntry {
	entry := &models.TimetableEntry{
		ClassGroupID: classID,
		SubjectID:    e.SubjectID,
		TeacherID:    e.TeacherID,
		Day:          day,
		PeriodSlotID: periodID,
	}
	st.classBusy[classSlotKey{ClassID: classID, Day: day, PeriodID: periodID}] = entry
	st.teacherBusy[teacherSlotKey{TeacherID: e.TeacherID, Day: day, PeriodID: periodID}] = entry
	st.teacherLoad[teacherDayKey{TeacherID: e.TeacherID, Day: day}]++
	st.subjectDay[subjectDayKey{ClassID: classID, SubjectID: e.SubjectID, Day: day}]++
	st.entries = append(st.entries, entry)
	if e.Remaining > 0 {
		e.Remaining--
	}
	st.report.addPlaced()
	return entry
}

// move relocates an already-placed entry to another period of the same day.
func (st *schedulingState) move(entry *models.TimetableEntry, toPeriodID string) {
	delete(st.classBusy, classSlotKey{ClassID: entry.ClassGroupID, Day: entry.Day, PeriodID: entry.PeriodSlotID})
	delete(st.teacherBusy, teacherSlotKey{TeacherID: entry.TeacherID, Day: entry.Day, PeriodID: entry.PeriodSlotID})
	entry.PeriodSlotID = toPeriodID
	st.classBusy[classSlotKey{ClassID: entry.ClassGroupID, Day: entry.Day, PeriodID: toPeriodID}] = entry
	st.teacherBusy[teacherSlotKey{TeacherID: entry.TeacherID, Day: entry.Day, PeriodID: toPeriodID}] = entry
}

func (st *schedulingState) teacherDayLoad(teacherID string, day models.Weekday) int {
	return st.teacherLoad[teacherDayKey{TeacherID: teacherID, Day: day}]
}

func (st *schedulingState) shuffled(periods []models.PeriodSlot) []models.PeriodSlot {
	out := make([]models.PeriodSlot, len(periods))
	copy(out, periods)
	st.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (st *schedulingState) isEarly(periodID string) bool {
	for _, p := range st.early {
		if p.ID == periodID {
			return true
		}
	}
	return false
}

// exportEntries returns placed entries in deterministic (class, day, period)
// order for persistence.
func (st *schedulingState) exportEntries() []models.TimetableEntry {
	dayOrder := make(map[models.Weekday]int, 5)
	for i, d := range models.SchoolDays() {
		dayOrder[d] = i
	}
	periodOrder := make(map[string]int, len(st.periods))
	for i, p := range st.periods {
		periodOrder[p.ID] = i
	}

	out := make([]models.TimetableEntry, 0, len(st.entries))
	for _, e := range st.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClassGroupID != out[j].ClassGroupID {
			return out[i].ClassGroupID < out[j].ClassGroupID
		}
		if dayOrder[out[i].Day] != dayOrder[out[j].Day] {
			return dayOrder[out[i].Day] < dayOrder[out[j].Day]
		}
		return periodOrder[out[i].PeriodSlotID] < periodOrder[out[j].PeriodSlotID]
	})
	return out
}
