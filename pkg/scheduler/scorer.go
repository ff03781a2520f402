package scheduler

import "github.com/arnavshah/restaurant-scheduler-api/pkg/models"

// ScoredCandidate is one staff member's fit for one shift
type ScoredCandidate struct {
	Staff         models.Staff                      `json:"staff"`
	Confidence    float64                           `json:"confidence"`
	PerConstraint map[models.ConstraintType]float64 `json:"per_constraint"`
	Results       []ConstraintResult                `json:"results"`
	// Vetoed is set when a critical constraint failed
	Vetoed bool `json:"vetoed"`
}

// Score combines every active constraint into one confidence for the pairing.
// The confidence is the priority-weighted mean of constraint scores, forced
// to zero when any critical constraint fails. With no active constraints
// the confidence is 1.
func (e *Engine) Score(staff models.Staff, shift models.Shift, constraints []models.Constraint, rc *RunContext) ScoredCandidate {
	cand := ScoredCandidate{
		Staff:         staff,
		PerConstraint: make(map[models.ConstraintType]float64),
	}

	var weighted, totalWeight float64
	for _, c := range constraints {
		res, ok := e.Evaluate(c, staff, shift, rc)
		if !ok {
			continue
		}
		cand.Results = append(cand.Results, res)

		// Repeated types keep their weakest score
		if prev, seen := cand.PerConstraint[res.Type]; !seen || res.Score < prev {
			cand.PerConstraint[res.Type] = res.Score
		}

		w := e.weight(res.Priority)
		weighted += w * res.Score
		totalWeight += w

		if res.Priority == models.PriorityCritical && res.Verdict == models.VerdictFail {
			cand.Vetoed = true
		}
	}

	switch {
	case cand.Vetoed:
		cand.Confidence = 0
	case totalWeight == 0:
		cand.Confidence = 1
	default:
		cand.Confidence = clamp01(weighted / totalWeight)
	}
	return cand
}

func (e *Engine) weight(p models.Priority) float64 {
	if w, ok := e.opts.Weights[p]; ok {
		return w
	}
	// Unrecognised priorities count like the lowest one
	return e.opts.Weights[models.PriorityLow]
}
