package scheduler

import (
	"fmt"
	"math"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

// ConfidenceLabel maps a confidence score to the band shown next to it
func ConfidenceLabel(score float64) string {
	switch {
	case score >= 0.9:
		return "Excellent"
	case score >= 0.8:
		return "Very Good"
	case score >= 0.7:
		return "Good"
	case score >= 0.6:
		return "Acceptable"
	case score >= 0.5:
		return "Marginal"
	default:
		return "Poor"
	}
}

// ConfidencePercent renders a score as a rounded percentage, e.g. "87%"
func ConfidencePercent(score float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(score*100)))
}

// Explain turns a winner's constraint results into a ReasoningResult.
// Passing results at or above the primary threshold become primary reasons,
// results below the consideration threshold become risk factors and
// everything in between is a consideration.
func (e *Engine) Explain(winner ScoredCandidate, alternatives []models.Alternative, note string) models.ReasoningResult {
	out := models.ReasoningResult{
		ConfidenceScore:        winner.Confidence,
		ConfidenceLabel:        ConfidenceLabel(winner.Confidence),
		PrimaryReasons:         []string{},
		Considerations:         []string{},
		RiskFactors:            []string{},
		AlternativesConsidered: alternatives,
	}
	if out.AlternativesConsidered == nil {
		out.AlternativesConsidered = []models.Alternative{}
	}

	for _, res := range winner.Results {
		switch {
		case res.Score < e.opts.ConsiderationThreshold:
			out.RiskFactors = append(out.RiskFactors, res.Message)
		case res.Score >= e.opts.PrimaryThreshold && res.Verdict == models.VerdictPass:
			out.PrimaryReasons = append(out.PrimaryReasons, res.Message)
		default:
			out.Considerations = append(out.Considerations, res.Message)
		}
	}

	if len(winner.Results) == 0 {
		out.PrimaryReasons = append(out.PrimaryReasons, "No active constraints limit this shift")
	}

	reliability := winner.Staff.ReliabilityScore
	switch {
	case reliability >= 8:
		out.PrimaryReasons = append(out.PrimaryReasons, fmt.Sprintf("Highly reliable (%.1f/10)", reliability))
	case reliability > 0 && reliability < 5:
		out.RiskFactors = append(out.RiskFactors, fmt.Sprintf("Low reliability score (%.1f/10)", reliability))
	}

	if note != "" {
		out.Considerations = append(out.Considerations, "Manager note: "+note)
	}
	return out
}
