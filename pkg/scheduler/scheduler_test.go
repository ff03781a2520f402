package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

func weekInput(staff []models.Staff, shifts []models.Shift, constraints ...models.Constraint) models.ScheduleInput {
	return models.ScheduleInput{
		DateRangeStart: "2024-01-08",
		DateRangeEnd:   "2024-01-14",
		Staff:          staff,
		Shifts:         shifts,
		Constraints:    constraints,
	}
}

func assignedStaff(ds models.DraftShift) []string {
	var ids []string
	for _, a := range ds.Assignments {
		if a.Active() {
			ids = append(ids, a.StaffID)
		}
	}
	return ids
}

func findShift(t *testing.T, d *models.ScheduleDraft, id string) models.DraftShift {
	t.Helper()
	for _, ds := range d.Shifts {
		if ds.Shift.ID == id {
			return ds
		}
	}
	t.Fatalf("shift %s not in draft", id)
	return models.DraftShift{}
}

func TestRun_CriticalSkillLeavesShiftUnderstaffed(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 8, "kitchen")},
		[]models.Shift{shiftAt("s1", "2024-01-08", "18:00", "23:00", "bar", 1)},
		rule(models.ConstraintSkillMatchRequired, models.PriorityCritical, nil),
	)

	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)

	ds := findShift(t, draft, "s1")
	assert.Equal(t, models.ShiftUnderstaffed, ds.Status)
	assert.Empty(t, assignedStaff(ds))
	assert.Equal(t, 0, draft.FullyStaffed)
	assert.Equal(t, 0.0, draft.ConfidenceScore)

	require.Len(t, draft.Violations, 1)
	v := draft.Violations[0]
	assert.Equal(t, models.ConstraintCoverage, v.ConstraintType)
	assert.Equal(t, models.SeverityError, v.Severity)
	assert.Equal(t, "Shift s1 on 2024-01-08 (18:00-23:00) is short 1 of 1 staff", v.Message)
	assert.Equal(t, "1 staff failed critical skill_match_required", v.SuggestedResolution)
	assert.Len(t, draft.Summary.CriticalIssues, 1)

	res, err := e.ValidatePair(in, "s1", "a")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, 0.0, res.ConfidenceScore)
	assert.Equal(t, "Poor", res.ConfidenceLabel)
	assert.Contains(t, res.Errors, "Missing required bar skill")
}

func TestRun_IsDeterministic(t *testing.T) {
	e := New(DefaultOptions())
	staff := []models.Staff{
		staffMember("c", 7, "bar", "kitchen"),
		staffMember("a", 7, "bar"),
		staffMember("b", 9, "kitchen"),
		staffMember("d", 7, "bar"),
	}
	shifts := []models.Shift{
		shiftAt("dinner-bar", "2024-01-09", "17:00", "23:00", "bar", 2),
		shiftAt("lunch-kitchen", "2024-01-09", "10:00", "15:00", "kitchen", 1),
		shiftAt("lunch-bar", "2024-01-09", "10:00", "15:00", "bar", 1),
		shiftAt("dinner-kitchen", "2024-01-10", "17:00", "23:00", "kitchen", 2),
	}
	in := weekInput(staff, shifts,
		rule(models.ConstraintSkillMatchRequired, models.PriorityCritical, nil),
		rule(models.ConstraintFairDistribution, models.PriorityMedium, nil),
		rule(models.ConstraintMaxHoursPerWeek, models.PriorityHigh, 40),
	)

	first, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	second, err := e.Run(context.Background(), in)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))

	// start time order, then shift id
	var order []string
	for _, ds := range first.Shifts {
		order = append(order, ds.Shift.ID)
	}
	assert.Equal(t, []string{"lunch-bar", "lunch-kitchen", "dinner-bar", "dinner-kitchen"}, order)
}

func TestRun_SequentialSelectionSpreadsHours(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 7), staffMember("b", 7)},
		[]models.Shift{
			shiftAt("late", "2024-01-08", "16:00", "20:00", "", 1),
			shiftAt("early", "2024-01-08", "10:00", "14:00", "", 1),
		},
		rule(models.ConstraintFairDistribution, models.PriorityHigh, nil),
	)

	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, assignedStaff(findShift(t, draft, "early")))
	assert.Equal(t, []string{"b"}, assignedStaff(findShift(t, draft, "late")))
	assert.Equal(t, 100.0, draft.FairnessScore)
	assert.Equal(t, 2, draft.FullyStaffed)
	assert.Equal(t, 2, draft.TotalShifts)
}

func TestRun_AssignmentCarriesReasoning(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 9, "bar"), staffMember("b", 6, "bar"), staffMember("c", 5, "bar"), staffMember("d", 4)},
		[]models.Shift{shiftAt("s1", "2024-01-08", "18:00", "23:00", "bar", 1)},
		rule(models.ConstraintSkillMatchRequired, models.PriorityHigh, nil),
	)
	in.StaffNotes = map[string]string{"a": "closing certified"}

	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)

	ds := findShift(t, draft, "s1")
	require.Len(t, ds.Assignments, 1)
	a := ds.Assignments[0]
	assert.Equal(t, "a", a.StaffID)
	assert.True(t, a.IsAIGenerated)
	require.NotNil(t, a.ConfidenceScore)
	assert.Equal(t, 1.0, *a.ConfidenceScore)
	require.NotNil(t, a.Reasoning)
	assert.Equal(t, "Excellent", a.Reasoning.ConfidenceLabel)
	assert.Contains(t, a.Reasoning.Considerations, "Manager note: closing certified")
	require.Len(t, a.Reasoning.AlternativesConsidered, 2)
	assert.Equal(t, "b", a.Reasoning.AlternativesConsidered[0].StaffID)
	assert.Equal(t, "c", a.Reasoning.AlternativesConsidered[1].StaffID)

	in.Alternatives = -1
	draft, err = e.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, findShift(t, draft, "s1").Assignments[0].Reasoning.AlternativesConsidered, 3)
}

func TestRun_OverlappingShiftsAreNotDoubleBooked(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 7)},
		[]models.Shift{
			shiftAt("s1", "2024-01-08", "10:00", "14:00", "", 1),
			shiftAt("s2", "2024-01-08", "12:00", "16:00", "", 1),
		},
	)

	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, assignedStaff(findShift(t, draft, "s1")))

	s2 := findShift(t, draft, "s2")
	assert.Equal(t, models.ShiftUnderstaffed, s2.Status)
	require.Len(t, draft.Violations, 1)
	assert.Equal(t, "1 staff had overlapping shifts", draft.Violations[0].SuggestedResolution)
	assert.InDelta(t, 0.5, draft.ConfidenceScore, 1e-9)
	assert.Equal(t, 1.0, draft.AverageConfidence)
}

func TestRun_UnavailableStaffSkipped(t *testing.T) {
	e := New(DefaultOptions())
	away := staffMember("a", 10)
	away.IsAvailable = models.Bool(false)
	in := weekInput(
		[]models.Staff{away, staffMember("b", 2)},
		[]models.Shift{shiftAt("s1", "2024-01-08", "10:00", "14:00", "", 1)},
	)

	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, assignedStaff(findShift(t, draft, "s1")))
}

func TestRun_OvernightRestVeto(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 9), staffMember("b", 5)},
		[]models.Shift{
			shiftAt("night", "2024-01-08", "22:00", "06:00", "", 1),
			shiftAt("morning", "2024-01-09", "10:00", "14:00", "", 1),
		},
		rule(models.ConstraintMinRestBetweenShifts, models.PriorityCritical, 8),
	)
	in.CurrentAssignments = []models.Assignment{{ShiftID: "night", StaffID: "a", Status: models.AssignmentAssigned}}

	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)

	night := findShift(t, draft, "night")
	assert.Equal(t, []string{"a"}, assignedStaff(night))
	assert.Equal(t, "Staff a", night.Assignments[0].StaffName)
	assert.Equal(t, []string{"b"}, assignedStaff(findShift(t, draft, "morning")))
	assert.Equal(t, 2, draft.FullyStaffed)
}

func TestRun_SpecialEventAddsDemand(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 7, "bar"), staffMember("b", 7, "bar"), staffMember("c", 7, "kitchen")},
		[]models.Shift{
			shiftAt("bar", "2024-01-12", "18:00", "23:00", "bar", 1),
			shiftAt("kitchen", "2024-01-12", "18:00", "23:00", "kitchen", 1),
		},
		rule(models.ConstraintSkillMatchRequired, models.PriorityCritical, nil),
	)
	in.SpecialEvents = []models.SpecialEvent{{Date: "2024-01-12", Name: "Live music", ExtraStaff: 1, Skill: "bar"}}

	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)

	bar := findShift(t, draft, "bar")
	assert.Equal(t, 2, bar.Shift.RequiredStaffCount)
	assert.Equal(t, []string{"a", "b"}, assignedStaff(bar))
	assert.Equal(t, 1, findShift(t, draft, "kitchen").Shift.RequiredStaffCount)
}

func TestRun_OutOfRangeShiftsIgnored(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 7)},
		[]models.Shift{
			shiftAt("s1", "2024-01-08", "10:00", "14:00", "", 1),
			shiftAt("later", "2024-01-20", "10:00", "14:00", "", 1),
		},
	)

	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, draft.TotalShifts)
	assert.Equal(t, "s1", draft.Shifts[0].Shift.ID)
}

func TestRun_NothingToFill(t *testing.T) {
	e := New(DefaultOptions())
	draft, err := e.Run(context.Background(), weekInput(nil, nil))
	require.NoError(t, err)
	assert.Equal(t, 1.0, draft.ConfidenceScore)
	assert.Empty(t, draft.Shifts)
	assert.NotNil(t, draft.Violations)
}

func TestRun_Cancelled(t *testing.T) {
	e := New(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	draft, err := e.Run(ctx, weekInput(
		[]models.Staff{staffMember("a", 7)},
		[]models.Shift{shiftAt("s1", "2024-01-08", "10:00", "14:00", "", 1)},
	))
	assert.Nil(t, draft)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_InvalidInput(t *testing.T) {
	e := New(DefaultOptions())
	cases := map[string]models.ScheduleInput{
		"reversed range": {DateRangeStart: "2024-01-14", DateRangeEnd: "2024-01-08"},
		"bad date":       {DateRangeStart: "08/01/2024", DateRangeEnd: "2024-01-14"},
		"duplicate staff": weekInput(
			[]models.Staff{staffMember("a", 1), staffMember("a", 2)}, nil),
		"zero length shift": weekInput(nil,
			[]models.Shift{shiftAt("s1", "2024-01-08", "10:00", "10:00", "", 1)}),
		"negative demand": weekInput(nil,
			[]models.Shift{shiftAt("s1", "2024-01-08", "10:00", "12:00", "", -1)}),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.Run(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestReplace_ExcludesSickStaff(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 9, "bar"), staffMember("b", 6, "bar"), staffMember("c", 8, "kitchen")},
		[]models.Shift{shiftAt("s1", "2024-01-08", "18:00", "23:00", "bar", 1)},
		rule(models.ConstraintSkillMatchRequired, models.PriorityCritical, nil),
	)
	in.CurrentAssignments = []models.Assignment{{ShiftID: "s1", StaffID: "a", Status: models.AssignmentCalledInSick}}

	rep, err := e.Replace(in, "s1", "a")
	require.NoError(t, err)
	assert.Equal(t, models.ShiftAssigned, rep.Status)
	require.Len(t, rep.Assignments, 1)
	assert.Equal(t, "b", rep.Assignments[0].StaffID)
	assert.Empty(t, rep.Violations)

	_, err = e.Replace(in, "missing", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplace_NoEligibleStaff(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 9, "bar")},
		[]models.Shift{shiftAt("s1", "2024-01-08", "18:00", "23:00", "bar", 1)},
	)

	rep, err := e.Replace(in, "s1", "a")
	require.NoError(t, err)
	assert.Equal(t, models.ShiftUnderstaffed, rep.Status)
	assert.Empty(t, rep.Assignments)
	require.Len(t, rep.Violations, 1)
	assert.Equal(t, "no staff could be considered for this shift", rep.Violations[0].SuggestedResolution)
}

func TestValidatePair(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 5, "bar"), staffMember("b", 7, "bar", "kitchen"), staffMember("c", 8, "kitchen")},
		[]models.Shift{
			shiftAt("s1", "2024-01-08", "10:00", "14:00", "kitchen", 1),
			shiftAt("s2", "2024-01-08", "12:00", "16:00", "bar", 1),
		},
		rule(models.ConstraintSkillMatchRequired, models.PriorityHigh, nil),
	)
	in.CurrentAssignments = []models.Assignment{
		{ShiftID: "s1", StaffID: "b", Status: models.AssignmentAssigned},
	}

	// b already works s1 which overlaps s2
	res, err := e.ValidatePair(in, "s2", "b")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "Already assigned to overlapping shift s1")

	// a lacks the kitchen skill; c is suggested
	res, err = e.ValidatePair(in, "s1", "a")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "Missing required kitchen skill")
	assert.Equal(t, 0.0, res.ConstraintScores["skill_match_required"])
	assert.Equal(t, []string{"Consider Staff c (100%, Excellent)"}, res.Suggestions)

	// the existing pairing does not collide with itself
	res, err = e.ValidatePair(in, "s1", "b")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 1.0, res.ConfidenceScore)
	assert.Empty(t, res.Suggestions)

	_, err = e.ValidatePair(in, "s1", "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRun_TemplateShiftBeforeRangeBlocksOverlap(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("x", 8)},
		[]models.Shift{shiftAt("early", "2024-01-09", "02:00", "06:00", "", 1)},
	)
	in.DateRangeStart, in.DateRangeEnd = "2024-01-09", "2024-01-09"
	in.ShiftTemplates = []models.ShiftTemplate{
		{ID: "late", RRule: "FREQ=DAILY", StartTime: "20:00", EndTime: "04:00", RequiredStaffCount: 1},
	}
	// x already works the close that runs into the first day of the range
	in.CurrentAssignments = []models.Assignment{{ShiftID: "late@2024-01-08", StaffID: "x", Status: models.AssignmentAssigned}}

	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 2, draft.TotalShifts)

	early := findShift(t, draft, "early")
	assert.Empty(t, assignedStaff(early))
	assert.Equal(t, models.ShiftUnderstaffed, early.Status)
	assert.Equal(t, []string{"x"}, assignedStaff(findShift(t, draft, "late@2024-01-09")))
}

func TestRun_ExpandsShiftTemplates(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 7, "bar"), staffMember("b", 7, "bar")},
		[]models.Shift{shiftAt("close@2024-01-12", "2024-01-12", "20:00", "02:00", "bar", 2)},
	)
	in.ShiftTemplates = []models.ShiftTemplate{
		{ID: "close", RRule: "FREQ=WEEKLY;BYDAY=WE,FR", StartTime: "18:00", EndTime: "23:00", RequiredSkill: "bar", RequiredStaffCount: 1},
	}

	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 2, draft.TotalShifts)

	wed := findShift(t, draft, "close@2024-01-10")
	assert.Equal(t, "close", wed.Shift.TemplateID)
	assert.Len(t, assignedStaff(wed), 1)

	// the explicit shift replaces the template occurrence
	fri := findShift(t, draft, "close@2024-01-12")
	assert.Equal(t, "20:00", fri.Shift.StartTime)
	assert.Len(t, assignedStaff(fri), 2)

	in.ShiftTemplates[0].RRule = "FREQ=NEVER"
	_, err = e.Run(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
