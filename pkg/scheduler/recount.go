package scheduler

import (
	"fmt"
	"sort"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

// Check validates a scheduling input without running it
func (e *Engine) Check(in models.ScheduleInput) error {
	_, err := e.prepare(in)
	return err
}

// DraftInput overlays a draft on a business's stored data: the draft's
// shifts and active assignments win over stored ones, and stored shifts
// outside the draft stay visible for rest and overlap checks.
func DraftInput(base models.ScheduleInput, d *models.ScheduleDraft) models.ScheduleInput {
	in := base
	inDraft := make(map[string]bool, len(d.Shifts))
	in.Shifts = make([]models.Shift, 0, len(d.Shifts)+len(base.Shifts))
	in.CurrentAssignments = nil
	for _, ds := range d.Shifts {
		inDraft[ds.Shift.ID] = true
		in.Shifts = append(in.Shifts, ds.Shift)
		for _, a := range ds.Assignments {
			if a.Active() {
				in.CurrentAssignments = append(in.CurrentAssignments, a)
			}
		}
	}
	for _, s := range base.Shifts {
		if !inDraft[s.ID] {
			in.Shifts = append(in.Shifts, s)
		}
	}
	for _, a := range base.CurrentAssignments {
		if !inDraft[a.ShiftID] {
			in.CurrentAssignments = append(in.CurrentAssignments, a)
		}
	}
	// Template occurrences in range are already draft shifts
	in.ShiftTemplates = nil
	in.SpecialEvents = nil
	return in
}

// Recount re-evaluates a draft after its assignments changed outside a run.
// Every active assignment is scored again in shift order, exactly as a run
// would have seen it, so violations, shift statuses and the draft-level
// scores describe the assignments the draft holds now. Assignments of
// shifts outside the draft are taken from base as fixed context.
// Assignments without a confidence score get the re-evaluated one.
func (e *Engine) Recount(base models.ScheduleInput, d *models.ScheduleDraft) error {
	in := DraftInput(base, d)
	in.DateRangeStart, in.DateRangeEnd = d.DateRangeStart, d.DateRangeEnd

	inDraft := make(map[string]bool, len(d.Shifts))
	for _, ds := range d.Shifts {
		inDraft[ds.Shift.ID] = true
	}
	var fixed []models.Assignment
	for _, a := range in.CurrentAssignments {
		if !inDraft[a.ShiftID] {
			fixed = append(fixed, a)
		}
	}
	in.CurrentAssignments = fixed

	p, err := e.prepare(in)
	if err != nil {
		return err
	}

	previous := make(map[string]models.ConstraintViolation)
	for _, v := range d.Violations {
		if v.ConstraintType == models.ConstraintCoverage {
			previous[v.AffectedShiftID] = v
		}
	}

	order := make([]int, len(d.Shifts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := p.shiftByID[d.Shifts[order[i]].Shift.ID], p.shiftByID[d.Shifts[order[j]].Shift.ID]
		if !a.w.start.Equal(b.w.start) {
			return a.w.start.Before(b.w.start)
		}
		return a.shift.ID < b.shift.ID
	})

	violations := []models.ConstraintViolation{}
	var confidenceSum float64
	var made, unfilled int
	d.FullyStaffed = 0
	for _, i := range order {
		ds := &d.Shifts[i]
		ps := p.shiftByID[ds.Shift.ID]
		for j := range ds.Assignments {
			a := &ds.Assignments[j]
			if !a.Active() {
				continue
			}
			staff, known := p.staffByID[a.StaffID]
			if !known {
				staff = models.Staff{ID: a.StaffID, Name: a.StaffName}
			}
			violations = append(violations, eligibilityViolations(p, ps, staff, known)...)

			cand := e.Score(staff, ps.shift, p.constraints, p.rc)
			violations = append(violations, violationsFor(cand, ps.shift.ID)...)
			if a.ConfidenceScore == nil {
				confidence := cand.Confidence
				a.ConfidenceScore = &confidence
			}
			confidenceSum += *a.ConfidenceScore
			made++
			p.rc.record(a.StaffID, ps.w)
		}

		ds.Status = shiftStatus(*ds)
		if ds.Status == models.ShiftAssigned {
			d.FullyStaffed++
			continue
		}
		missing := ds.Shift.RequiredStaffCount - activeCount(ds.Assignments)
		unfilled += missing
		v := models.ConstraintViolation{
			ConstraintType:      models.ConstraintCoverage,
			Priority:            models.PriorityCritical,
			Severity:            models.SeverityError,
			Message:             shortMessage(ds.Shift, missing),
			AffectedShiftID:     ds.Shift.ID,
			SuggestedResolution: fmt.Sprintf("Assign %d more staff to this shift", missing),
		}
		// A run's explanation of the same shortfall is more useful than the generic one
		if prev, ok := previous[ds.Shift.ID]; ok && prev.Message == v.Message {
			v = prev
		}
		violations = append(violations, v)
	}
	d.Violations = violations

	d.TotalShifts = len(d.Shifts)
	d.AverageConfidence = 0
	if made > 0 {
		d.AverageConfidence = confidenceSum / float64(made)
	}
	if made+unfilled > 0 {
		d.ConfidenceScore = confidenceSum / float64(made+unfilled)
	} else {
		d.ConfidenceScore = 1
	}
	d.Summary = Aggregate(d.Violations)
	d.FairnessScore = FairnessScore(p.rc.hoursByStaff())
	return nil
}

// eligibilityViolations records why a run would never have made this
// assignment: unknown or unavailable staff, or an overlapping booking
func eligibilityViolations(p *plan, ps plannedShift, staff models.Staff, known bool) []models.ConstraintViolation {
	var reasons []string
	switch {
	case !known:
		reasons = append(reasons, fmt.Sprintf("%s is not on the staff list", staff.ID))
	case !staff.Available():
		reasons = append(reasons, fmt.Sprintf("%s is marked unavailable", displayName(staff)))
	}
	if other, clash := p.rc.wouldOverlap(staff.ID, ps.w); clash {
		reasons = append(reasons, fmt.Sprintf("Already assigned to overlapping shift %s", other))
	}

	out := make([]models.ConstraintViolation, 0, len(reasons))
	for _, msg := range reasons {
		out = append(out, models.ConstraintViolation{
			ConstraintType:      models.ConstraintEligibility,
			Priority:            models.PriorityCritical,
			Severity:            models.SeverityError,
			Message:             msg,
			AffectedStaffID:     staff.ID,
			AffectedShiftID:     ps.shift.ID,
			SuggestedResolution: "Remove this assignment or pick someone who is free",
		})
	}
	return out
}
