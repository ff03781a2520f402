package scheduler

import (
	"sort"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

// Aggregate summarises violations by type and severity. Critical issues are
// violations from critical constraints or with error severity.
func Aggregate(violations []models.ConstraintViolation) models.ViolationSummary {
	summary := models.ViolationSummary{
		ByType: make(map[string]int),
		BySeverity: map[string]int{
			string(models.SeverityError):   0,
			string(models.SeverityWarning): 0,
		},
		AffectedStaff:  []string{},
		CriticalIssues: []models.ConstraintViolation{},
	}

	staff := make(map[string]bool)
	for _, v := range violations {
		summary.ByType[string(v.ConstraintType)]++
		summary.BySeverity[string(v.Severity)]++

		switch v.Severity {
		case models.SeverityError:
			summary.TotalViolations++
		case models.SeverityWarning:
			summary.TotalWarnings++
		}

		if v.AffectedStaffID != "" && !staff[v.AffectedStaffID] {
			staff[v.AffectedStaffID] = true
			summary.AffectedStaff = append(summary.AffectedStaff, v.AffectedStaffID)
		}

		if v.Priority == models.PriorityCritical || v.Severity == models.SeverityError {
			summary.CriticalIssues = append(summary.CriticalIssues, v)
		}
	}
	sort.Strings(summary.AffectedStaff)
	return summary
}

// violationsFor records every non-passing result of an assignment
func violationsFor(cand ScoredCandidate, shiftID string) []models.ConstraintViolation {
	var out []models.ConstraintViolation
	for _, res := range cand.Results {
		if res.Verdict == models.VerdictPass {
			continue
		}
		severity := models.SeverityWarning
		if res.Verdict == models.VerdictFail {
			severity = models.SeverityError
		}
		out = append(out, models.ConstraintViolation{
			ConstraintID:        res.ConstraintID,
			ConstraintType:      res.Type,
			Priority:            res.Priority,
			Severity:            severity,
			Message:             res.Message,
			AffectedStaffID:     cand.Staff.ID,
			AffectedShiftID:     shiftID,
			SuggestedResolution: resolutionFor(res.Type),
		})
	}
	return out
}

func resolutionFor(t models.ConstraintType) string {
	switch t {
	case models.ConstraintSkillMatchRequired:
		return "Assign staff trained for this station or cross-train the assignee"
	case models.ConstraintMaxHoursPerWeek:
		return "Move one of this person's shifts to someone with spare hours"
	case models.ConstraintMinRestBetweenShifts:
		return "Swap an adjacent shift so the rest period is respected"
	case models.ConstraintFairDistribution:
		return "Rebalance shifts towards staff with fewer hours"
	case models.ConstraintStaffAvailability:
		return "Confirm availability with the staff member or pick someone else"
	default:
		return "Review the constraint configuration"
	}
}
