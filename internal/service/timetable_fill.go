package service

import (
	"sort"

	"github.com/noah-isme/shule-ratiba-api/internal/models"
)

type gapSlot struct {
	day    models.Weekday
	period models.PeriodSlot
}

// finalFill bounds the number of empty cells per class. A class whose demand
// never covered the grid keeps its natural blanks; a fully subscribed class
// is filled down to at most maxBlanks empty cells by repeating pairs the
// class already has, ignoring the same-day-repeat preference on purpose.
func finalFill(st *schedulingState, maxBlanks int) {
	capacity := len(st.periods) * len(models.SchoolDays())

	for _, class := range st.classes {
		cd := st.demands[class.ID]
		if cd == nil || len(cd.Entries) == 0 {
			continue
		}

		allowed := capacity - cd.adjusted + maxBlanks
		if allowed < maxBlanks {
			allowed = maxBlanks
		}

		gaps := st.classGaps(class.ID)
		for len(gaps) > allowed {
			gap := gaps[0]
			gaps = gaps[1:]

			placed := false
			for _, e := range st.fillCandidates(cd) {
				if !st.teacherFree(e.TeacherID, gap.day, gap.period.ID) {
					continue
				}
				st.place(class.ID, e, gap.day, gap.period.ID)
				placed = true
				break
			}
			if !placed {
				st.report.addSkipped(reasonFinalFillNoCandidate)
			}
		}
	}
}

// classGaps lists the unoccupied cells of a class in calendar order.
func (st *schedulingState) classGaps(classID string) []gapSlot {
	var gaps []gapSlot
	for _, day := range models.SchoolDays() {
		for _, period := range st.periods {
			if st.classFree(classID, day, period.ID) {
				gaps = append(gaps, gapSlot{day: day, period: period})
			}
		}
	}
	return gaps
}

// fillCandidates returns the class's (subject, teacher) pairs in fill order:
// priority pairs first, pairs that still owe lessons before pure repeats,
// otherwise seeded-shuffled.
func (st *schedulingState) fillCandidates(cd *classDemand) []*demandEntry {
	candidates := make([]*demandEntry, len(cd.Entries))
	copy(candidates, cd.Entries)
	st.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Remaining > 0 && candidates[j].Remaining == 0
	})
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Priority && !candidates[j].Priority })
	return candidates
}
