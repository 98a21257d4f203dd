package service

import "github.com/noah-isme/shule-ratiba-api/internal/models"

// seedPriorityDaily places one lesson of every priority subject per class per
// day before general filling, so daily presence survives the later passes.
// Mathematics tries the early periods first; a day with no fit is left for
// the matcher.
func seedPriorityDaily(st *schedulingState) {
	for _, class := range st.classes {
		cd := st.demands[class.ID]
		if cd == nil || len(cd.Entries) == 0 {
			continue
		}
		for _, day := range st.days {
			for _, e := range cd.Entries {
				if !e.Priority || e.Remaining <= 0 {
					continue
				}
				if st.taughtToday(class.ID, e.SubjectID, day) > 0 {
					continue
				}
				for _, period := range st.seedCandidates(e) {
					if !st.classFree(class.ID, day, period.ID) {
						continue
					}
					if !st.teacherFree(e.TeacherID, day, period.ID) {
						continue
					}
					st.place(class.ID, e, day, period.ID)
					break
				}
			}
		}
	}
}

func (st *schedulingState) seedCandidates(e *demandEntry) []models.PeriodSlot {
	if e.Math {
		return append(st.shuffled(st.early), st.shuffled(st.late)...)
	}
	return st.shuffled(st.periods)
}
