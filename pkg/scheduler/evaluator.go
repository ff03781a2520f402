package scheduler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

// ConstraintResult is the outcome of one constraint for one staff/shift pairing
type ConstraintResult struct {
	ConstraintID string                `json:"constraint_id,omitempty"`
	Type         models.ConstraintType `json:"constraint_type"`
	Priority     models.Priority       `json:"priority"`
	Score        float64               `json:"score"`
	Verdict      models.Verdict        `json:"verdict"`
	Message      string                `json:"message"`
}

// Evaluate scores a single staff/shift pairing against one constraint.
// Inactive constraints are skipped and report ok == false. Unknown
// constraint types fail closed with a zero score and a warning.
func (e *Engine) Evaluate(c models.Constraint, staff models.Staff, shift models.Shift, rc *RunContext) (ConstraintResult, bool) {
	if !c.Active() {
		return ConstraintResult{}, false
	}

	res := ConstraintResult{ConstraintID: c.ID, Type: c.ConstraintType, Priority: c.Priority}
	start, end, err := ShiftWindow(shift)
	if err != nil {
		res.Verdict = models.VerdictWarn
		res.Message = fmt.Sprintf("Cannot evaluate shift times: %v", err)
		return res, true
	}
	w := window{shiftID: shift.ID, start: start, end: end}

	switch c.ConstraintType {
	case models.ConstraintSkillMatchRequired:
		e.evaluateSkill(&res, staff, shift)
	case models.ConstraintMaxHoursPerWeek:
		e.evaluateMaxHours(&res, c, staff, w, rc)
	case models.ConstraintMinRestBetweenShifts:
		e.evaluateMinRest(&res, c, staff, w, rc)
	case models.ConstraintFairDistribution:
		e.evaluateFairDistribution(&res, staff, rc)
	case models.ConstraintStaffAvailability:
		e.evaluateAvailability(&res, staff, shift)
	default:
		res.Score = 0
		res.Verdict = models.VerdictWarn
		res.Message = fmt.Sprintf("Unknown constraint type %q treated as unmet", c.ConstraintType)
	}
	return res, true
}

// hardVerdict is the verdict of an unmet yes/no rule: high and critical rules fail, the rest warn
func hardVerdict(p models.Priority) models.Verdict {
	if p == models.PriorityHigh || p == models.PriorityCritical {
		return models.VerdictFail
	}
	return models.VerdictWarn
}

func (e *Engine) evaluateSkill(res *ConstraintResult, staff models.Staff, shift models.Shift) {
	if shift.RequiredSkill == "" {
		res.Score, res.Verdict = 1, models.VerdictPass
		res.Message = "No specific skill required"
		return
	}
	for _, skill := range staff.Skills {
		if strings.EqualFold(skill, shift.RequiredSkill) {
			res.Score, res.Verdict = 1, models.VerdictPass
			res.Message = fmt.Sprintf("Has required %s skill", shift.RequiredSkill)
			return
		}
	}
	res.Score, res.Verdict = 0, hardVerdict(res.Priority)
	res.Message = fmt.Sprintf("Missing required %s skill", shift.RequiredSkill)
}

func (e *Engine) evaluateMaxHours(res *ConstraintResult, c models.Constraint, staff models.Staff, w window, rc *RunContext) {
	limit, ok := numberValue(c.ConstraintValue, "hours", "max_hours", "value")
	if !ok || limit <= 0 {
		res.Score, res.Verdict = 0, models.VerdictWarn
		res.Message = "Weekly hour limit is not configured with a positive number of hours"
		return
	}

	projected := rc.projectedWeekHours(staff.ID, w)
	over := projected - limit
	if over < 0 {
		over = 0
	}
	res.Score = clamp01(1 - over/limit)

	switch {
	case projected > limit:
		res.Verdict = models.VerdictFail
		res.Message = fmt.Sprintf("Exceeds weekly limit by %.1fh (%.1fh of %gh)", over, projected, limit)
	case projected >= limit*e.opts.MaxHoursWarnRatio:
		res.Verdict = models.VerdictWarn
		res.Message = fmt.Sprintf("Approaching weekly limit: %.1fh of %gh", projected, limit)
	default:
		res.Verdict = models.VerdictPass
		res.Message = fmt.Sprintf("Stays within %gh weekly limit (%.1fh projected)", limit, projected)
	}
}

func (e *Engine) evaluateMinRest(res *ConstraintResult, c models.Constraint, staff models.Staff, w window, rc *RunContext) {
	minimum, ok := numberValue(c.ConstraintValue, "hours", "min_hours", "value")
	if !ok || minimum <= 0 {
		res.Score, res.Verdict = 0, models.VerdictWarn
		res.Message = "Minimum rest is not configured with a positive number of hours"
		return
	}

	gap, found := rc.nearestGap(staff.ID, w)
	if !found {
		res.Score, res.Verdict = 1, models.VerdictPass
		res.Message = "No adjacent shifts in this period"
		return
	}
	if gap < minimum {
		res.Score, res.Verdict = clamp01(gap/minimum), models.VerdictFail
		res.Message = fmt.Sprintf("Only %.1fh rest between shifts (minimum %gh)", gap, minimum)
		return
	}
	res.Score, res.Verdict = 1, models.VerdictPass
	res.Message = fmt.Sprintf("Gets %.1fh rest between shifts (minimum %gh)", gap, minimum)
}

// evaluateFairDistribution compares the staff member's hours in this run
// with the run-wide average before this shift is added.
func (e *Engine) evaluateFairDistribution(res *ConstraintResult, staff models.Staff, rc *RunContext) {
	avg := rc.averageRunHours()
	current := rc.RunHours(staff.ID)
	if avg <= 0 || current <= avg {
		res.Score, res.Verdict = 1, models.VerdictPass
		res.Message = fmt.Sprintf("Workload at or below average (%.1fh vs %.1fh average)", current, avg)
		return
	}

	res.Score = 1 / (1 + (current-avg)/avg)
	if res.Score >= e.opts.ConsiderationThreshold {
		res.Verdict = models.VerdictPass
		res.Message = fmt.Sprintf("Workload slightly above average (%.1fh vs %.1fh average)", current, avg)
		return
	}
	res.Verdict = models.VerdictWarn
	res.Message = fmt.Sprintf("Already carries %.1fh vs %.1fh average this period", current, avg)
}

func (e *Engine) evaluateAvailability(res *ConstraintResult, staff models.Staff, shift models.Shift) {
	for _, d := range staff.UnavailableDates {
		if d == shift.Date {
			res.Score, res.Verdict = 0, hardVerdict(res.Priority)
			res.Message = fmt.Sprintf("Marked unavailable on %s", shift.Date)
			return
		}
	}
	res.Score, res.Verdict = 1, models.VerdictPass
	res.Message = fmt.Sprintf("Available on %s", shift.Date)
}

// numberValue reads a number from a constraint value that is either a bare
// number or an object holding one of keys
func numberValue(v any, keys ...string) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	case map[string]any:
		for _, k := range keys {
			if inner, ok := t[k]; ok {
				return numberValue(inner)
			}
		}
	}
	return 0, false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
