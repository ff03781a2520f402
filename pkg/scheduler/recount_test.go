package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

func violationTypes(d *models.ScheduleDraft) []models.ConstraintType {
	var out []models.ConstraintType
	for _, v := range d.Violations {
		out = append(out, v.ConstraintType)
	}
	return out
}

func TestRecount_AfterManualEdit(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 7, "bar"), staffMember("b", 7, "kitchen")},
		[]models.Shift{
			shiftAt("s1", "2024-01-08", "10:00", "14:00", "bar", 1),
			shiftAt("s2", "2024-01-09", "10:00", "14:00", "bar", 1),
		},
		rule(models.ConstraintSkillMatchRequired, models.PriorityMedium, nil),
	)
	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 2, draft.FullyStaffed)
	require.Empty(t, draft.Violations)

	// move s2 to b, who lacks the skill, then drop s1
	draft.Shifts[1].Assignments = []models.Assignment{{ShiftID: "s2", StaffID: "b", Status: models.AssignmentAssigned, ManualOverride: true}}
	draft.Shifts[0].Assignments = nil

	require.NoError(t, e.Recount(in, draft))

	assert.Equal(t, 1, draft.FullyStaffed)
	assert.Equal(t, models.ShiftUnderstaffed, draft.Shifts[0].Status)
	assert.Equal(t, []models.ConstraintType{models.ConstraintCoverage, models.ConstraintSkillMatchRequired}, violationTypes(draft))
	assert.Equal(t, "Assign 1 more staff to this shift", draft.Violations[0].SuggestedResolution)
	assert.Equal(t, "b", draft.Violations[1].AffectedStaffID)
	assert.Equal(t, models.SeverityWarning, draft.Violations[1].Severity)
	assert.Equal(t, 1, draft.Summary.TotalViolations)
	assert.Equal(t, 1, draft.Summary.TotalWarnings)

	require.NotNil(t, draft.Shifts[1].Assignments[0].ConfidenceScore)
	assert.Equal(t, 0.0, *draft.Shifts[1].Assignments[0].ConfidenceScore)
	assert.Equal(t, 0.0, draft.ConfidenceScore)
	assert.Equal(t, 0.0, draft.FairnessScore)
}

func TestRecount_ClearsStaleRestViolation(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("x", 8)},
		[]models.Shift{
			shiftAt("A", "2024-01-08", "10:00", "22:00", "", 1),
			shiftAt("B", "2024-01-09", "02:00", "10:00", "", 1),
		},
		rule(models.ConstraintMinRestBetweenShifts, models.PriorityMedium, map[string]any{"hours": 8}),
	)
	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, []models.ConstraintType{models.ConstraintMinRestBetweenShifts}, violationTypes(draft))
	assert.Equal(t, "B", draft.Violations[0].AffectedShiftID)

	draft.Shifts[0].Assignments = nil
	require.NoError(t, e.Recount(in, draft))

	require.Equal(t, []models.ConstraintType{models.ConstraintCoverage}, violationTypes(draft))
	assert.Equal(t, "A", draft.Violations[0].AffectedShiftID)
	assert.Equal(t, models.ShiftAssigned, draft.Shifts[1].Status)
}

func TestRecount_ReportsForcedCriticalFailure(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 9, "bar"), staffMember("c", 8, "kitchen")},
		[]models.Shift{shiftAt("s1", "2024-01-08", "10:00", "14:00", "bar", 1)},
		rule(models.ConstraintSkillMatchRequired, models.PriorityCritical, nil),
	)
	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, draft.Violations)

	zero := 0.0
	draft.Shifts[0].Assignments = []models.Assignment{{
		ShiftID: "s1", StaffID: "c", Status: models.AssignmentAssigned, ConfidenceScore: &zero, ManualOverride: true,
	}}
	require.NoError(t, e.Recount(in, draft))

	assert.Equal(t, models.ShiftAssigned, draft.Shifts[0].Status)
	require.Len(t, draft.Summary.CriticalIssues, 1)
	issue := draft.Summary.CriticalIssues[0]
	assert.Equal(t, models.ConstraintSkillMatchRequired, issue.ConstraintType)
	assert.Equal(t, "c", issue.AffectedStaffID)
	assert.Equal(t, "Missing required bar skill", issue.Message)
	assert.Equal(t, 1, draft.Summary.TotalViolations)
}

func TestRecount_ReportsForcedOverlap(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("a", 9)},
		[]models.Shift{
			shiftAt("lunch", "2024-01-08", "11:00", "15:00", "", 1),
			shiftAt("late-lunch", "2024-01-08", "13:00", "17:00", "", 0),
		},
	)
	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)

	draft.Shifts[1].Assignments = []models.Assignment{{ShiftID: "late-lunch", StaffID: "a", Status: models.AssignmentAssigned}}
	require.NoError(t, e.Recount(in, draft))

	require.Equal(t, []models.ConstraintType{models.ConstraintEligibility}, violationTypes(draft))
	assert.Equal(t, "Already assigned to overlapping shift lunch", draft.Violations[0].Message)
	assert.Equal(t, "late-lunch", draft.Violations[0].AffectedShiftID)
}

func TestRecount_KeepsRunExplanationOfShortfall(t *testing.T) {
	e := New(DefaultOptions())
	in := weekInput(
		[]models.Staff{staffMember("c", 8, "kitchen")},
		[]models.Shift{shiftAt("s1", "2024-01-08", "10:00", "14:00", "bar", 1)},
		rule(models.ConstraintSkillMatchRequired, models.PriorityCritical, nil),
	)
	draft, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, draft.Violations, 1)
	explained := draft.Violations[0]

	require.NoError(t, e.Recount(in, draft))
	require.Len(t, draft.Violations, 1)
	assert.Equal(t, explained, draft.Violations[0])
	assert.Equal(t, "1 staff failed critical skill_match_required", draft.Violations[0].SuggestedResolution)
}

func TestCheck(t *testing.T) {
	e := New(DefaultOptions())
	assert.NoError(t, e.Check(weekInput(nil, nil)))
	assert.ErrorIs(t, e.Check(models.ScheduleInput{DateRangeStart: "x", DateRangeEnd: "y"}), ErrInvalidInput)
}
