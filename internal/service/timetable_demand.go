package service

import (
	"sort"

	"github.com/noah-isme/shule-ratiba-api/internal/dto"
	"github.com/noah-isme/shule-ratiba-api/internal/models"
)

// buildDemand converts assignment rows into per-class demand counters.
// Each (class, subject, teacher) triple demands
// max(minWeeklyLessons, weeklyLessons) lessons; priority subjects are raised
// to numDays so they can appear every school day.
func buildDemand(assignments []models.SchedulableAssignment, numDays int) map[string]*classDemand {
	demands := make(map[string]*classDemand)
	for _, a := range assignments {
		count := a.WeeklyLessons
		if a.MinWeeklyLessons > count {
			count = a.MinWeeklyLessons
		}
		priority := models.IsPrioritySubject(a.SubjectName)
		if priority && count < numDays {
			count = numDays
		}
		if count <= 0 {
			continue
		}

		cd, ok := demands[a.ClassGroupID]
		if !ok {
			cd = newClassDemand(a.ClassGroupID)
			demands[a.ClassGroupID] = cd
		}
		cd.add(&demandEntry{
			SubjectID: a.SubjectID,
			TeacherID: a.TeacherID,
			Priority:  priority,
			Math:      models.IsMathematics(a.SubjectName),
			Remaining: count,
			Original:  count,
		})
	}
	return demands
}

// normalizeCapacity trims a class's demand so the weekly total fits the
// (days × periods) grid. Non-priority entries give up lessons first, largest
// first one unit at a time; priority entries are only trimmed afterwards and
// never below one lesson until every priority entry is already at one.
func normalizeCapacity(cd *classDemand, capacity int, report *runReport) {
	original := cd.total()
	diag := dto.ClassCapacity{
		Capacity:       capacity,
		DemandOriginal: original,
		DemandAdjusted: original,
	}

	if original <= capacity {
		cd.adjusted = original
		report.classes[cd.ClassID] = diag
		return
	}
	diag.Oversubscribed = true

	var priority, rest []*demandEntry
	for _, e := range cd.Entries {
		if e.Priority {
			priority = append(priority, e)
		} else {
			rest = append(rest, e)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Remaining > rest[j].Remaining })
	sort.SliceStable(priority, func(i, j int) bool { return priority[i].Remaining > priority[j].Remaining })

	total := original
	for total > capacity {
		e := largestAbove(rest, 0)
		if e == nil {
			break
		}
		e.Remaining--
		total--
	}

	// Rotate through priority entries one unit per visit so no single
	// subject absorbs the whole cut.
	for idx := 0; total > capacity && len(priority) > 0; idx++ {
		reduced := false
		for i := 0; i < len(priority) && total > capacity; i++ {
			e := priority[(idx+i)%len(priority)]
			if e.Remaining > 1 {
				e.Remaining--
				total--
				reduced = true
			}
		}
		if !reduced {
			break
		}
	}

	// All priority entries at one and still over: take the floor off.
	for total > capacity {
		e := largestAbove(priority, 0)
		if e == nil {
			break
		}
		e.Remaining--
		total--
	}

	for _, e := range cd.Entries {
		e.Original = e.Remaining
	}
	cd.adjusted = total
	diag.DemandAdjusted = total
	report.classes[cd.ClassID] = diag
}

func largestAbove(entries []*demandEntry, floor int) *demandEntry {
	var best *demandEntry
	for _, e := range entries {
		if e.Remaining <= floor {
			continue
		}
		if best == nil || e.Remaining > best.Remaining {
			best = e
		}
	}
	return best
}
