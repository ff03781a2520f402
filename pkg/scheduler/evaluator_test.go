package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

func TestEvaluate_SkillMatch(t *testing.T) {
	e := New(DefaultOptions())
	cook := staffMember("a", 7, "kitchen")
	rc := NewRunContext([]models.Staff{cook}, mustDate(t, "2024-01-08"))

	res, ok := e.Evaluate(rule(models.ConstraintSkillMatchRequired, models.PriorityCritical, nil), cook,
		shiftAt("s1", "2024-01-08", "10:00", "14:00", "Kitchen", 1), rc)
	require.True(t, ok)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, models.VerdictPass, res.Verdict)
	assert.Equal(t, "Has required Kitchen skill", res.Message)

	res, _ = e.Evaluate(rule(models.ConstraintSkillMatchRequired, models.PriorityCritical, nil), cook,
		shiftAt("s2", "2024-01-08", "10:00", "14:00", "bar", 1), rc)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, models.VerdictFail, res.Verdict)

	res, _ = e.Evaluate(rule(models.ConstraintSkillMatchRequired, models.PriorityMedium, nil), cook,
		shiftAt("s2", "2024-01-08", "10:00", "14:00", "bar", 1), rc)
	assert.Equal(t, models.VerdictWarn, res.Verdict, "medium priority skill gaps only warn")
}

func TestEvaluate_MaxHoursOverage(t *testing.T) {
	e := New(DefaultOptions())
	s := staffMember("a", 7)
	s.WeeklyHours = 38
	rc := NewRunContext([]models.Staff{s}, mustDate(t, "2024-01-08"))

	res, ok := e.Evaluate(rule(models.ConstraintMaxHoursPerWeek, models.PriorityMedium, map[string]any{"hours": 40.0}), s,
		shiftAt("s1", "2024-01-09", "10:00", "14:00", "", 1), rc)
	require.True(t, ok)
	assert.InDelta(t, 0.95, res.Score, 1e-9, "2h over a 40h limit")
	assert.Equal(t, models.VerdictFail, res.Verdict)
	assert.Contains(t, res.Message, "Exceeds weekly limit by 2.0h")
}

func TestEvaluate_MaxHoursWarnAndPass(t *testing.T) {
	e := New(DefaultOptions())
	s := staffMember("a", 7)
	s.WeeklyHours = 32
	rc := NewRunContext([]models.Staff{s}, mustDate(t, "2024-01-08"))
	shift := shiftAt("s1", "2024-01-09", "10:00", "14:00", "", 1)

	res, _ := e.Evaluate(rule(models.ConstraintMaxHoursPerWeek, models.PriorityHigh, 40), s, shift, rc)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, models.VerdictWarn, res.Verdict, "36h is within 10 percent of 40h")

	res, _ = e.Evaluate(rule(models.ConstraintMaxHoursPerWeek, models.PriorityHigh, "60"), s, shift, rc)
	assert.Equal(t, models.VerdictPass, res.Verdict)
}

func TestEvaluate_MaxHoursMisconfigured(t *testing.T) {
	e := New(DefaultOptions())
	s := staffMember("a", 7)
	rc := NewRunContext([]models.Staff{s}, mustDate(t, "2024-01-08"))

	res, _ := e.Evaluate(rule(models.ConstraintMaxHoursPerWeek, models.PriorityHigh, map[string]any{"limit": "x"}), s,
		shiftAt("s1", "2024-01-09", "10:00", "14:00", "", 1), rc)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, models.VerdictWarn, res.Verdict)
}

func TestEvaluate_MinRest(t *testing.T) {
	e := New(DefaultOptions())
	s := staffMember("a", 7)
	rc := NewRunContext([]models.Staff{s}, mustDate(t, "2024-01-08"))
	minRest := rule(models.ConstraintMinRestBetweenShifts, models.PriorityHigh, map[string]any{"hours": 10})
	morning := shiftAt("s2", "2024-01-09", "07:00", "12:00", "", 1)

	res, _ := e.Evaluate(minRest, s, morning, rc)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, models.VerdictPass, res.Verdict)

	require.NoError(t, rc.Record("a", shiftAt("s1", "2024-01-08", "15:00", "23:00", "", 1)))
	res, _ = e.Evaluate(minRest, s, morning, rc)
	assert.InDelta(t, 0.8, res.Score, 1e-9)
	assert.Equal(t, models.VerdictFail, res.Verdict)
	assert.Equal(t, "Only 8.0h rest between shifts (minimum 10h)", res.Message)
}

func TestEvaluate_FairDistribution(t *testing.T) {
	e := New(DefaultOptions())
	staff := []models.Staff{staffMember("a", 7), staffMember("b", 7), staffMember("c", 7)}
	rc := NewRunContext(staff, mustDate(t, "2024-01-08"))
	fair := rule(models.ConstraintFairDistribution, models.PriorityMedium, nil)
	shift := shiftAt("s2", "2024-01-09", "10:00", "14:00", "", 1)

	res, _ := e.Evaluate(fair, staff[0], shift, rc)
	assert.Equal(t, 1.0, res.Score, "nobody has hours yet")

	require.NoError(t, rc.Record("a", shiftAt("s1", "2024-01-08", "09:00", "17:00", "", 1)))

	res, _ = e.Evaluate(fair, staff[0], shift, rc)
	assert.InDelta(t, 1.0/3.0, res.Score, 1e-9)
	assert.Equal(t, models.VerdictWarn, res.Verdict)

	res, _ = e.Evaluate(fair, staff[1], shift, rc)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, models.VerdictPass, res.Verdict)
}

func TestEvaluate_Availability(t *testing.T) {
	e := New(DefaultOptions())
	s := staffMember("a", 7)
	s.UnavailableDates = []string{"2024-01-09"}
	rc := NewRunContext([]models.Staff{s}, mustDate(t, "2024-01-08"))
	avail := rule(models.ConstraintStaffAvailability, models.PriorityHigh, nil)

	res, _ := e.Evaluate(avail, s, shiftAt("s1", "2024-01-09", "10:00", "14:00", "", 1), rc)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, models.VerdictFail, res.Verdict)

	res, _ = e.Evaluate(avail, s, shiftAt("s2", "2024-01-10", "10:00", "14:00", "", 1), rc)
	assert.Equal(t, models.VerdictPass, res.Verdict)
}

func TestEvaluate_InactiveSkipped(t *testing.T) {
	e := New(DefaultOptions())
	s := staffMember("a", 7)
	rc := NewRunContext([]models.Staff{s}, mustDate(t, "2024-01-08"))
	c := rule(models.ConstraintSkillMatchRequired, models.PriorityCritical, nil)
	c.IsActive = models.Bool(false)

	_, ok := e.Evaluate(c, s, shiftAt("s1", "2024-01-08", "10:00", "14:00", "bar", 1), rc)
	assert.False(t, ok)
}

func TestEvaluate_UnknownTypeFailsClosed(t *testing.T) {
	e := New(DefaultOptions())
	s := staffMember("a", 7)
	rc := NewRunContext([]models.Staff{s}, mustDate(t, "2024-01-08"))

	res, ok := e.Evaluate(rule("max_tables_per_server", models.PriorityLow, 4), s,
		shiftAt("s1", "2024-01-08", "10:00", "14:00", "", 1), rc)
	require.True(t, ok)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, models.VerdictWarn, res.Verdict)
}

func TestNumberValue(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"bare float", 40.0, 40, true},
		{"bare int", 12, 12, true},
		{"string", " 8.5 ", 8.5, true},
		{"object", map[string]any{"hours": 10.0}, 10, true},
		{"fallback key", map[string]any{"max_hours": 38}, 38, true},
		{"missing", map[string]any{"other": 1}, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := numberValue(tc.in, "hours", "max_hours")
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
