package scheduler

import (
	"fmt"
	"sort"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

// Selection is the outcome of picking staff for one slot of a shift
type Selection struct {
	// Winner is nil when no candidate has a confidence above zero
	Winner       *ScoredCandidate     `json:"winner,omitempty"`
	Alternatives []models.Alternative `json:"alternatives"`
	Ranked       []ScoredCandidate    `json:"-"`
}

// RankCandidates sorts candidates by confidence, then reliability, both
// descending, then staff id ascending
func RankCandidates(candidates []ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Staff.ReliabilityScore != b.Staff.ReliabilityScore {
			return a.Staff.ReliabilityScore > b.Staff.ReliabilityScore
		}
		return a.Staff.ID < b.Staff.ID
	})
}

// SelectForShift ranks the candidates for a shift and picks the best one.
// maxAlternatives bounds the runners-up kept: 0 uses the engine default,
// a negative value keeps all of them.
func (e *Engine) SelectForShift(shift models.Shift, candidates []ScoredCandidate, maxAlternatives int) Selection {
	ranked := make([]ScoredCandidate, len(candidates))
	copy(ranked, candidates)
	RankCandidates(ranked)

	sel := Selection{Ranked: ranked, Alternatives: []models.Alternative{}}
	if len(ranked) == 0 || ranked[0].Confidence <= 0 {
		return sel
	}
	winner := ranked[0]
	sel.Winner = &winner

	if maxAlternatives == 0 {
		maxAlternatives = e.opts.DefaultAlternatives
	}
	rest := ranked[1:]
	if maxAlternatives > 0 && len(rest) > maxAlternatives {
		rest = rest[:maxAlternatives]
	}
	for i, cand := range rest {
		sel.Alternatives = append(sel.Alternatives, buildAlternative(winner, cand, i+2))
	}
	return sel
}

func buildAlternative(winner, cand ScoredCandidate, rank int) models.Alternative {
	alt := models.Alternative{
		StaffID:   cand.Staff.ID,
		StaffName: cand.Staff.Name,
		Score:     cand.Confidence,
		Pros:      []string{},
		Cons:      []string{},
	}
	for _, res := range cand.Results {
		if res.Verdict == models.VerdictPass {
			alt.Pros = append(alt.Pros, res.Message)
		} else {
			alt.Cons = append(alt.Cons, res.Message)
		}
	}

	winnerName := displayName(winner.Staff)
	switch {
	case cand.Vetoed:
		alt.Reason = fmt.Sprintf("Ranked #%d: ruled out by a critical constraint", rank)
	case cand.Confidence < winner.Confidence:
		alt.Reason = fmt.Sprintf("Ranked #%d: %s vs %s for %s", rank,
			ConfidencePercent(cand.Confidence), ConfidencePercent(winner.Confidence), winnerName)
	case cand.Staff.ReliabilityScore < winner.Staff.ReliabilityScore:
		alt.Reason = fmt.Sprintf("Ranked #%d: tied at %s, lower reliability (%.1f vs %.1f)", rank,
			ConfidencePercent(cand.Confidence), cand.Staff.ReliabilityScore, winner.Staff.ReliabilityScore)
	default:
		alt.Reason = fmt.Sprintf("Ranked #%d: tied with %s, ordered by staff id", rank, winnerName)
	}
	return alt
}

func displayName(s models.Staff) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}
