package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

func draftWith(refs ...models.AssignmentRef) *models.ScheduleDraft {
	index := make(map[string]int)
	d := &models.ScheduleDraft{}
	for _, r := range refs {
		i, ok := index[r.ShiftID]
		if !ok {
			d.Shifts = append(d.Shifts, models.DraftShift{Shift: models.Shift{ID: r.ShiftID}})
			i = len(d.Shifts) - 1
			index[r.ShiftID] = i
		}
		d.Shifts[i].Assignments = append(d.Shifts[i].Assignments, models.Assignment{ShiftID: r.ShiftID, StaffID: r.StaffID, Status: models.AssignmentAssigned})
	}
	return d
}

func TestDiff_NoChanges(t *testing.T) {
	a := draftWith(models.AssignmentRef{ShiftID: "s1", StaffID: "a"}, models.AssignmentRef{ShiftID: "s2", StaffID: "b"})
	b := draftWith(models.AssignmentRef{ShiftID: "s2", StaffID: "b"}, models.AssignmentRef{ShiftID: "s1", StaffID: "a"})

	d := Diff(a, b)
	assert.False(t, d.HasChanges)
	assert.Zero(t, d.ChangeCount)
	assert.Equal(t, "No Changes Made", d.Message)
}

func TestDiff_AddedRemovedMoved(t *testing.T) {
	original := draftWith(
		models.AssignmentRef{ShiftID: "s1", StaffID: "a"},
		models.AssignmentRef{ShiftID: "s2", StaffID: "b"},
	)
	current := draftWith(
		models.AssignmentRef{ShiftID: "s3", StaffID: "a"},
		models.AssignmentRef{ShiftID: "s3", StaffID: "c"},
	)

	d := Diff(original, current)
	assert.Equal(t, []models.AssignmentMove{{StaffID: "a", FromShiftID: "s1", ToShiftID: "s3"}}, d.Moved)
	assert.Equal(t, []models.AssignmentRef{{ShiftID: "s2", StaffID: "b"}}, d.Removed)
	assert.Equal(t, []models.AssignmentRef{{ShiftID: "s3", StaffID: "c"}}, d.Added)
	assert.Equal(t, 3, d.ChangeCount)
	assert.Equal(t, "1 added, 1 removed, 1 moved", d.Message)
}

func TestDiff_IgnoresInactiveAssignments(t *testing.T) {
	original := draftWith(models.AssignmentRef{ShiftID: "s1", StaffID: "a"})
	current := draftWith(models.AssignmentRef{ShiftID: "s1", StaffID: "a"})
	current.Shifts[0].Assignments[0].Status = models.AssignmentCalledInSick

	d := Diff(original, current)
	assert.Equal(t, []models.AssignmentRef{{ShiftID: "s1", StaffID: "a"}}, d.Removed)
	assert.True(t, d.HasChanges)
}
