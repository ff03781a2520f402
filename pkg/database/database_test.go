package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Create(&Business{ID: "biz", Name: "Bistro"}).Error)
	return db
}

func confidence(f float64) *float64 { return &f }

func TestUpsertStaff_RoundTrip(t *testing.T) {
	db := openTestDB(t)

	staff := []models.Staff{
		{ID: "a", Name: "Ana", Skills: []string{"bar"}, ReliabilityScore: 8, WeeklyHours: 10},
		{ID: "b", Name: "Ben", IsAvailable: models.Bool(false), UnavailableDates: []string{"2024-01-09"}},
	}
	require.NoError(t, UpsertStaff(db, "biz", staff))

	staff[0].Skills = []string{"bar", "kitchen"}
	require.NoError(t, UpsertStaff(db, "biz", staff[:1]))

	var count int64
	db.Model(&Staff{}).Count(&count)
	assert.EqualValues(t, 2, count)

	in, err := LoadScheduleInput(db, "biz", "2024-01-08", "2024-01-14")
	require.NoError(t, err)
	require.Len(t, in.Staff, 2)
	assert.Equal(t, []string{"bar", "kitchen"}, in.Staff[0].Skills)
	assert.True(t, in.Staff[0].Available())
	assert.False(t, in.Staff[1].Available())
	assert.Equal(t, []string{"2024-01-09"}, in.Staff[1].UnavailableDates)
}

func TestLoadScheduleInput_ScopesByBusinessAndRange(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&Business{ID: "other", Name: "Other"}).Error)

	require.NoError(t, UpsertShifts(db, "biz", []models.Shift{
		{ID: "before", Date: "2024-01-07", StartTime: "22:00", EndTime: "06:00", RequiredStaffCount: 1},
		{ID: "in", Date: "2024-01-10", StartTime: "10:00", EndTime: "14:00", RequiredStaffCount: 1},
		{ID: "far", Date: "2024-02-01", StartTime: "10:00", EndTime: "14:00", RequiredStaffCount: 1},
	}))
	require.NoError(t, UpsertShifts(db, "other", []models.Shift{
		{ID: "theirs", Date: "2024-01-10", StartTime: "10:00", EndTime: "14:00", RequiredStaffCount: 1},
	}))
	require.NoError(t, UpsertShiftTemplates(db, "biz", []models.ShiftTemplate{
		{ID: "brunch", RRule: "FREQ=WEEKLY;BYDAY=SU", StartTime: "09:00", EndTime: "13:00", RequiredStaffCount: 2},
	}))

	row, err := NewConstraint("biz", models.Constraint{
		ID: "c1", ConstraintType: models.ConstraintMaxHoursPerWeek, ConstraintValue: map[string]any{"hours": 40}, Priority: models.PriorityHigh,
	})
	require.NoError(t, err)
	require.NoError(t, db.Create(&row).Error)

	in, err := LoadScheduleInput(db, "biz", "2024-01-08", "2024-01-14")
	require.NoError(t, err)

	var ids []string
	for _, s := range in.Shifts {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"before", "in"}, ids)
	require.Len(t, in.ShiftTemplates, 1)
	assert.Equal(t, "brunch", in.ShiftTemplates[0].ID)

	require.Len(t, in.Constraints, 1)
	c := in.Constraints[0]
	assert.True(t, c.Active())
	assert.Equal(t, map[string]any{"hours": 40.0}, c.ConstraintValue)

	_, err = LoadScheduleInput(db, "biz", "tomorrow", "2024-01-14")
	assert.Error(t, err)
}

func sampleDraft() *models.ScheduleDraft {
	return &models.ScheduleDraft{
		BusinessID:     "biz",
		DateRangeStart: "2024-01-08",
		DateRangeEnd:   "2024-01-14",
		Status:         models.DraftPending,
		AIGenerated:    true,
		Shifts: []models.DraftShift{{
			Shift:  models.Shift{ID: "s1", Date: "2024-01-08", StartTime: "10:00", EndTime: "14:00", RequiredStaffCount: 1},
			Status: models.ShiftAssigned,
			Assignments: []models.Assignment{{
				ShiftID: "s1", StaffID: "a", StaffName: "Ana", Status: models.AssignmentAssigned,
				ConfidenceScore: confidence(0.9), IsAIGenerated: true,
				Reasoning: &models.ReasoningResult{ConfidenceScore: 0.9, ConfidenceLabel: "Excellent"},
			}},
		}},
	}
}

func TestSaveAndGetDraft(t *testing.T) {
	db := openTestDB(t)

	d := sampleDraft()
	require.NoError(t, SaveDraft(db, d))
	assert.NotEmpty(t, d.ID)
	assert.NotEmpty(t, d.Shifts[0].Assignments[0].ID)

	got, err := GetDraft(db, "biz", d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, models.DraftPending, got.Status)
	assert.Equal(t, "Excellent", got.Shifts[0].Assignments[0].Reasoning.ConfidenceLabel)

	_, err = GetDraft(db, "other", d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublishDraft(t *testing.T) {
	db := openTestDB(t)
	d := sampleDraft()
	require.NoError(t, SaveDraft(db, d))

	published, ok, err := PublishDraft(db, "biz", d.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.DraftPublished, published.Status)

	var rows []Assignment
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-08", rows[0].ShiftDate)
	assert.Equal(t, d.ID, rows[0].DraftID)

	// publishing twice changes nothing
	_, ok, err = PublishDraft(db, "biz", d.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = DiscardDraft(db, "biz", d.ID)
	assert.ErrorIs(t, err, ErrConflict)

	// a later draft for the same shift supersedes the published assignment
	next := sampleDraft()
	next.Shifts[0].Assignments[0].StaffID = "b"
	require.NoError(t, SaveDraft(db, next))
	_, _, err = PublishDraft(db, "biz", next.ID)
	require.NoError(t, err)

	rows = nil
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].StaffID)
}

func TestDiscardDraft(t *testing.T) {
	db := openTestDB(t)
	d := sampleDraft()
	require.NoError(t, SaveDraft(db, d))

	discarded, err := DiscardDraft(db, "biz", d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftDiscarded, discarded.Status)

	_, _, err = PublishDraft(db, "biz", d.ID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = DiscardDraft(db, "biz", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplySickCall(t *testing.T) {
	db := openTestDB(t)
	d := sampleDraft()
	require.NoError(t, SaveDraft(db, d))
	_, _, err := PublishDraft(db, "biz", d.ID)
	require.NoError(t, err)

	sick, err := GetAssignment(db, "biz", d.Shifts[0].Assignments[0].ID)
	require.NoError(t, err)

	replacement := []models.Assignment{
		{ShiftID: "s1", StaffID: "b", StaffName: "Ben", Status: models.AssignmentAssigned, IsAIGenerated: true},
	}

	// a failed refresh leaves nothing behind
	_, _, err = ApplySickCall(db, sick, d.Shifts[0].Shift, replacement, func(*models.ScheduleDraft) error {
		return errors.New("recount failed")
	})
	require.Error(t, err)
	unchanged, err := GetAssignment(db, "biz", sick.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.AssignmentAssigned), unchanged.Status)

	refreshed := false
	stored, snapshot, err := ApplySickCall(db, sick, d.Shifts[0].Shift, replacement, func(d *models.ScheduleDraft) error {
		refreshed = true
		d.FullyStaffed = 7
		return nil
	})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEmpty(t, stored[0].ID)
	assert.True(t, refreshed)
	assert.Equal(t, string(models.AssignmentCalledInSick), sick.Status)
	assert.Equal(t, 7, snapshot.FullyStaffed)

	in, err := LoadScheduleInput(db, "biz", "2024-01-08", "2024-01-14")
	require.NoError(t, err)
	require.Len(t, in.CurrentAssignments, 1)
	assert.Equal(t, "b", in.CurrentAssignments[0].StaffID)

	got, err := GetDraft(db, "biz", d.ID)
	require.NoError(t, err)
	as := got.Shifts[0].Assignments
	require.Len(t, as, 2)
	assert.Equal(t, models.AssignmentCalledInSick, as[0].Status)
	assert.Equal(t, "b", as[1].StaffID)
	assert.Equal(t, models.ShiftAssigned, got.Shifts[0].Status)
	assert.Equal(t, 7, got.FullyStaffed)

	_, err = GetAssignment(db, "biz", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
