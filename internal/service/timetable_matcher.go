package service

import (
	"sort"

	"github.com/noah-isme/shule-ratiba-api/internal/models"
)

// matchAllSlots runs the per-slot bipartite matching over every (day, period)
// pair, with the swap and repeat fallbacks for classes the matching leaves
// unserved.
func matchAllSlots(st *schedulingState) {
	matchPeriods := st.shuffled(st.periods)
	for _, day := range st.days {
		for _, period := range matchPeriods {
			matchSlot(st, day, period)
		}
	}
}

// matchSlot computes a maximum matching between classes that still need a
// lesson in this slot and the teachers able to give one, then materializes it.
func matchSlot(st *schedulingState, day models.Weekday, period models.PeriodSlot) {
	type leftNode struct {
		classID string
		edges   []*demandEntry
	}

	var left []leftNode
	for _, class := range st.classes {
		cd := st.demands[class.ID]
		if cd == nil || cd.total() == 0 || !st.classFree(class.ID, day, period.ID) {
			continue
		}
		// Classes whose every candidate teacher is busy stay in the set:
		// they fall through to the swap fallback below.
		left = append(left, leftNode{classID: class.ID, edges: st.slotEdges(cd, day, period)})
	}
	if len(left) == 0 {
		return
	}

	// Most constrained classes augment first.
	sort.SliceStable(left, func(i, j int) bool { return len(left[i].edges) < len(left[j].edges) })

	edgesByClass := make(map[string][]*demandEntry, len(left))
	for _, node := range left {
		edgesByClass[node.classID] = node.edges
	}

	type match struct {
		classID string
		entry   *demandEntry
	}
	matched := make(map[string]*match) // teacherID -> current match

	var augment func(classID string, visited map[string]bool) bool
	augment = func(classID string, visited map[string]bool) bool {
		for _, e := range edgesByClass[classID] {
			if visited[e.TeacherID] {
				continue
			}
			visited[e.TeacherID] = true
			current, taken := matched[e.TeacherID]
			if !taken || augment(current.classID, visited) {
				matched[e.TeacherID] = &match{classID: classID, entry: e}
				return true
			}
		}
		return false
	}

	for _, node := range left {
		augment(node.classID, make(map[string]bool))
	}

	matchedClass := make(map[string]*demandEntry, len(matched))
	for _, m := range matched {
		matchedClass[m.classID] = m.entry
	}

	for _, node := range left {
		if e, ok := matchedClass[node.classID]; ok {
			st.place(node.classID, e, day, period.ID)
		}
	}

	// Residual pass: swap a busy teacher free, or repeat a lesson already
	// taught today; otherwise the slot is recorded as unmatched.
	for _, node := range left {
		if _, ok := matchedClass[node.classID]; ok {
			continue
		}
		if !st.classFree(node.classID, day, period.ID) {
			continue
		}
		cd := st.demands[node.classID]
		if swapAndPlace(st, cd, day, period) {
			continue
		}
		if repeatToday(st, cd, day, period) {
			continue
		}
		st.report.addSkipped(reasonNoMatchForPeriod)
	}
}

// slotEdges returns the demand entries a class could consume in this slot,
// ordered for the augmenting search: mathematics in an early period first,
// other priority subjects next, non-priority last with subjects already
// taught today pushed to the back, then stably by how loaded each teacher
// already is today.
func (st *schedulingState) slotEdges(cd *classDemand, day models.Weekday, period models.PeriodSlot) []*demandEntry {
	var edges []*demandEntry
	for _, e := range cd.Entries {
		if e.Remaining <= 0 {
			continue
		}
		if !st.teacherFree(e.TeacherID, day, period.ID) {
			continue
		}
		edges = append(edges, e)
	}

	early := st.isEarly(period.ID)
	rank := func(e *demandEntry) int {
		switch {
		case e.Math && early:
			return 0
		case e.Priority:
			return 1
		case st.taughtToday(cd.ClassID, e.SubjectID, day) == 0:
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(edges, func(i, j int) bool { return rank(edges[i]) < rank(edges[j]) })
	sort.SliceStable(edges, func(i, j int) bool {
		return st.teacherDayLoad(edges[i].TeacherID, day) < st.teacherDayLoad(edges[j].TeacherID, day)
	})
	return edges
}

// swapAndPlace frees a needed teacher by relocating the lesson they are
// giving this period to another free period the same day, then places the
// needed lesson in the vacated slot.
func swapAndPlace(st *schedulingState, cd *classDemand, day models.Weekday, period models.PeriodSlot) bool {
	for _, e := range cd.Entries {
		if e.Remaining <= 0 {
			continue
		}
		occupying := st.occupant(e.TeacherID, day, period.ID)
		if occupying == nil {
			continue
		}
		for _, alt := range st.periods {
			if alt.ID == period.ID {
				continue
			}
			if !st.classFree(occupying.ClassGroupID, day, alt.ID) {
				continue
			}
			if !st.teacherFree(occupying.TeacherID, day, alt.ID) {
				continue
			}
			st.move(occupying, alt.ID)
			st.place(cd.ClassID, e, day, period.ID)
			return true
		}
	}
	return false
}

// repeatToday is the low-priority fallback: place a non-priority pair the
// class already saw today, when its teacher happens to be free.
func repeatToday(st *schedulingState, cd *classDemand, day models.Weekday, period models.PeriodSlot) bool {
	for _, e := range cd.Entries {
		if e.Priority || e.Remaining <= 0 {
			continue
		}
		if st.taughtToday(cd.ClassID, e.SubjectID, day) == 0 {
			continue
		}
		if !st.teacherFree(e.TeacherID, day, period.ID) {
			continue
		}
		st.place(cd.ClassID, e, day, period.ID)
		return true
	}
	return false
}
