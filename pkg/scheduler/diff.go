package scheduler

import (
	"fmt"
	"sort"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

// Diff compares the active assignments of two drafts. A staff member who
// lost one shift and gained another is reported as moved rather than as a
// removal plus an addition.
func Diff(original, current *models.ScheduleDraft) models.DraftDiff {
	before := activeRefs(original)
	after := activeRefs(current)

	removedByStaff := make(map[string][]string)
	addedByStaff := make(map[string][]string)
	for ref := range before {
		if !after[ref] {
			removedByStaff[ref.StaffID] = append(removedByStaff[ref.StaffID], ref.ShiftID)
		}
	}
	for ref := range after {
		if !before[ref] {
			addedByStaff[ref.StaffID] = append(addedByStaff[ref.StaffID], ref.ShiftID)
		}
	}

	diff := models.DraftDiff{
		Added:   []models.AssignmentRef{},
		Removed: []models.AssignmentRef{},
		Moved:   []models.AssignmentMove{},
	}
	for _, staffID := range unionKeys(removedByStaff, addedByStaff) {
		removed := removedByStaff[staffID]
		added := addedByStaff[staffID]
		sort.Strings(removed)
		sort.Strings(added)

		paired := min(len(removed), len(added))
		for i := 0; i < paired; i++ {
			diff.Moved = append(diff.Moved, models.AssignmentMove{StaffID: staffID, FromShiftID: removed[i], ToShiftID: added[i]})
		}
		for _, shiftID := range removed[paired:] {
			diff.Removed = append(diff.Removed, models.AssignmentRef{ShiftID: shiftID, StaffID: staffID})
		}
		for _, shiftID := range added[paired:] {
			diff.Added = append(diff.Added, models.AssignmentRef{ShiftID: shiftID, StaffID: staffID})
		}
	}

	diff.ChangeCount = len(diff.Added) + len(diff.Removed) + len(diff.Moved)
	diff.HasChanges = diff.ChangeCount > 0
	if diff.HasChanges {
		diff.Message = fmt.Sprintf("%d added, %d removed, %d moved", len(diff.Added), len(diff.Removed), len(diff.Moved))
	} else {
		diff.Message = "No Changes Made"
	}
	return diff
}

func activeRefs(d *models.ScheduleDraft) map[models.AssignmentRef]bool {
	refs := make(map[models.AssignmentRef]bool)
	if d == nil {
		return refs
	}
	for _, a := range d.Assignments() {
		if a.Active() {
			refs[models.AssignmentRef{ShiftID: a.ShiftID, StaffID: a.StaffID}] = true
		}
	}
	return refs
}

func unionKeys(a, b map[string][]string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var keys []string
	for _, m := range []map[string][]string{a, b} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
