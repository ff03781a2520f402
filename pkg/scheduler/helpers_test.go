package scheduler

import (
	"testing"
	"time"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

func staffMember(id string, reliability float64, skills ...string) models.Staff {
	return models.Staff{ID: id, Name: "Staff " + id, Skills: skills, ReliabilityScore: reliability}
}

func shiftAt(id, date, start, end, skill string, count int) models.Shift {
	return models.Shift{ID: id, Date: date, StartTime: start, EndTime: end, RequiredSkill: skill, RequiredStaffCount: count}
}

func rule(t models.ConstraintType, p models.Priority, value any) models.Constraint {
	return models.Constraint{ID: string(t), ConstraintType: t, Priority: p, ConstraintValue: value, IsActive: models.Bool(true)}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %s: %v", s, err)
	}
	return d
}
