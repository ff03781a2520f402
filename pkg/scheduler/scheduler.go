package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/recurrence"
)

var (
	// ErrInvalidInput is returned for structurally broken input
	ErrInvalidInput = errors.New("invalid schedule input")
	// ErrNotFound is returned when a referenced staff member or shift does not exist
	ErrNotFound = errors.New("not found")
)

// Options tunes scoring and explanation
type Options struct {
	Weights                map[models.Priority]float64
	DefaultAlternatives    int
	MaxHoursWarnRatio      float64
	PrimaryThreshold       float64
	ConsiderationThreshold float64
}

// DefaultOptions returns the standard priority weights and thresholds
func DefaultOptions() Options {
	return Options{
		Weights: map[models.Priority]float64{
			models.PriorityLow:      1,
			models.PriorityMedium:   2,
			models.PriorityHigh:     3,
			models.PriorityCritical: 5,
		},
		DefaultAlternatives:    2,
		MaxHoursWarnRatio:      0.9,
		PrimaryThreshold:       0.8,
		ConsiderationThreshold: 0.5,
	}
}

// Engine assigns staff to shifts and explains its choices.
// An Engine holds no run state and may be shared.
type Engine struct {
	opts Options
}

// New creates an engine; zero-valued options fall back to the defaults
func New(opts Options) *Engine {
	def := DefaultOptions()
	if len(opts.Weights) == 0 {
		opts.Weights = def.Weights
	}
	if opts.DefaultAlternatives == 0 {
		opts.DefaultAlternatives = def.DefaultAlternatives
	}
	if opts.MaxHoursWarnRatio == 0 {
		opts.MaxHoursWarnRatio = def.MaxHoursWarnRatio
	}
	if opts.PrimaryThreshold == 0 {
		opts.PrimaryThreshold = def.PrimaryThreshold
	}
	if opts.ConsiderationThreshold == 0 {
		opts.ConsiderationThreshold = def.ConsiderationThreshold
	}
	return &Engine{opts: opts}
}

type plannedShift struct {
	shift models.Shift
	w     window
}

// plan is a validated, ordered view of a ScheduleInput
type plan struct {
	rangeStart  string
	rangeEnd    string
	staff       []models.Staff
	staffByID   map[string]models.Staff
	shifts      []plannedShift
	shiftByID   map[string]plannedShift
	constraints []models.Constraint
	assigned    map[string][]models.Assignment
	rc          *RunContext
}

func (p *plan) inRange(ps plannedShift) bool {
	return ps.shift.Date >= p.rangeStart && ps.shift.Date <= p.rangeEnd
}

func (e *Engine) prepare(in models.ScheduleInput) (*plan, error) {
	start, err := ParseDate(in.DateRangeStart)
	if err != nil {
		return nil, fmt.Errorf("%w: date_range_start: %v", ErrInvalidInput, err)
	}
	end, err := ParseDate(in.DateRangeEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: date_range_end: %v", ErrInvalidInput, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: date range ends before it starts", ErrInvalidInput)
	}

	p := &plan{
		rangeStart: start.Format(dateLayout),
		rangeEnd:   end.Format(dateLayout),
		staffByID:  make(map[string]models.Staff, len(in.Staff)),
		shiftByID:  make(map[string]plannedShift, len(in.Shifts)),
		assigned:   make(map[string][]models.Assignment),
	}

	for _, s := range in.Staff {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: staff without id", ErrInvalidInput)
		}
		if _, dup := p.staffByID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate staff id %s", ErrInvalidInput, s.ID)
		}
		p.staffByID[s.ID] = s
		p.staff = append(p.staff, s)
	}
	sort.Slice(p.staff, func(i, j int) bool { return p.staff[i].ID < p.staff[j].ID })

	extra, err := eventDemand(in.SpecialEvents)
	if err != nil {
		return nil, err
	}
	shifts, err := withTemplates(in, start, end)
	if err != nil {
		return nil, err
	}
	for _, sh := range shifts {
		if sh.ID == "" {
			return nil, fmt.Errorf("%w: shift without id", ErrInvalidInput)
		}
		if _, dup := p.shiftByID[sh.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate shift id %s", ErrInvalidInput, sh.ID)
		}
		if sh.RequiredStaffCount < 0 {
			return nil, fmt.Errorf("%w: shift %s has negative required_staff_count", ErrInvalidInput, sh.ID)
		}
		winStart, winEnd, err := ShiftWindow(sh)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		for _, ev := range extra[sh.Date] {
			if ev.Skill == "" || strings.EqualFold(ev.Skill, sh.RequiredSkill) {
				sh.RequiredStaffCount += ev.ExtraStaff
			}
		}
		ps := plannedShift{shift: sh, w: window{shiftID: sh.ID, start: winStart, end: winEnd}}
		p.shiftByID[sh.ID] = ps
		p.shifts = append(p.shifts, ps)
	}
	sort.Slice(p.shifts, func(i, j int) bool {
		a, b := p.shifts[i], p.shifts[j]
		if !a.w.start.Equal(b.w.start) {
			return a.w.start.Before(b.w.start)
		}
		return a.shift.ID < b.shift.ID
	})

	for _, c := range in.Constraints {
		if c.Active() {
			p.constraints = append(p.constraints, c)
		}
	}

	var available []models.Staff
	for _, s := range p.staff {
		if s.Available() {
			available = append(available, s)
		}
	}
	p.rc = NewRunContext(available, start)
	p.prefill(in.CurrentAssignments)
	return p, nil
}

// prefill records existing assignments; unknown ids and inactive
// assignments are ignored
func (p *plan) prefill(assignments []models.Assignment) {
	for _, a := range assignments {
		if !a.Active() {
			continue
		}
		ps, okShift := p.shiftByID[a.ShiftID]
		st, okStaff := p.staffByID[a.StaffID]
		if !okShift || !okStaff || p.rc.isBooked(a.StaffID, a.ShiftID) {
			continue
		}
		a.Status = models.AssignmentAssigned
		if a.StaffName == "" {
			a.StaffName = st.Name
		}
		p.assigned[a.ShiftID] = append(p.assigned[a.ShiftID], a)
		p.rc.record(a.StaffID, ps.w)
	}
}

// withTemplates appends template occurrences not already given as explicit
// shifts. Occurrences on the day either side of the range are included so
// assignments to them count for rest and overlap, like stored neighbour shifts.
func withTemplates(in models.ScheduleInput, start, end time.Time) ([]models.Shift, error) {
	if len(in.ShiftTemplates) == 0 {
		return in.Shifts, nil
	}
	generated, err := recurrence.ExpandAnchored(in.ShiftTemplates, start, start.AddDate(0, 0, -1), end.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	explicit := make(map[string]bool, len(in.Shifts))
	for _, sh := range in.Shifts {
		explicit[sh.ID] = true
	}
	shifts := append([]models.Shift{}, in.Shifts...)
	for _, sh := range generated {
		if !explicit[sh.ID] {
			shifts = append(shifts, sh)
		}
	}
	return shifts, nil
}

func eventDemand(events []models.SpecialEvent) (map[string][]models.SpecialEvent, error) {
	out := make(map[string][]models.SpecialEvent)
	for _, ev := range events {
		if _, err := ParseDate(ev.Date); err != nil {
			return nil, fmt.Errorf("%w: special event %q: %v", ErrInvalidInput, ev.Name, err)
		}
		if ev.ExtraStaff < 0 {
			return nil, fmt.Errorf("%w: special event %q has negative extra_staff", ErrInvalidInput, ev.Name)
		}
		out[ev.Date] = append(out[ev.Date], ev)
	}
	return out, nil
}

// fillReport tracks why candidates could not take a slot
type fillReport struct {
	unavailable  int
	doubleBooked int
	vetoedBy     map[models.ConstraintType]int
	considered   int
}

// candidatesFor scores every eligible staff member for a shift
func (e *Engine) candidatesFor(p *plan, ps plannedShift, exclude map[string]bool) ([]ScoredCandidate, fillReport) {
	report := fillReport{vetoedBy: make(map[models.ConstraintType]int)}
	var out []ScoredCandidate
	for _, st := range p.staff {
		if exclude[st.ID] || p.rc.isBooked(st.ID, ps.shift.ID) {
			continue
		}
		if !st.Available() {
			report.unavailable++
			continue
		}
		if _, clash := p.rc.wouldOverlap(st.ID, ps.w); clash {
			report.doubleBooked++
			continue
		}
		cand := e.Score(st, ps.shift, p.constraints, p.rc)
		report.considered++
		if cand.Vetoed {
			for _, res := range cand.Results {
				if res.Priority == models.PriorityCritical && res.Verdict == models.VerdictFail {
					report.vetoedBy[res.Type]++
				}
			}
		}
		out = append(out, cand)
	}
	return out, report
}

func (e *Engine) assignmentFor(shift models.Shift, sel Selection, notes map[string]string) models.Assignment {
	winner := *sel.Winner
	confidence := winner.Confidence
	reasoning := e.Explain(winner, sel.Alternatives, notes[winner.Staff.ID])
	return models.Assignment{
		ShiftID:         shift.ID,
		StaffID:         winner.Staff.ID,
		StaffName:       winner.Staff.Name,
		Status:          models.AssignmentAssigned,
		ConfidenceScore: &confidence,
		IsAIGenerated:   true,
		Reasoning:       &reasoning,
	}
}

func understaffedViolation(shift models.Shift, missing int, report fillReport) models.ConstraintViolation {
	var reasons []string
	types := make([]string, 0, len(report.vetoedBy))
	for t := range report.vetoedBy {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		reasons = append(reasons, fmt.Sprintf("%d staff failed critical %s", report.vetoedBy[models.ConstraintType(t)], t))
	}
	if report.unavailable > 0 {
		reasons = append(reasons, fmt.Sprintf("%d staff were unavailable", report.unavailable))
	}
	if report.doubleBooked > 0 {
		reasons = append(reasons, fmt.Sprintf("%d staff had overlapping shifts", report.doubleBooked))
	}
	if len(reasons) == 0 && report.considered > 0 {
		reasons = append(reasons, fmt.Sprintf("%d staff scored zero confidence", report.considered))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no staff could be considered for this shift")
	}

	return models.ConstraintViolation{
		ConstraintType:      models.ConstraintCoverage,
		Priority:            models.PriorityCritical,
		Severity:            models.SeverityError,
		Message:             shortMessage(shift, missing),
		AffectedShiftID:     shift.ID,
		SuggestedResolution: strings.Join(reasons, "; "),
	}
}

func shortMessage(shift models.Shift, missing int) string {
	return fmt.Sprintf("Shift %s on %s (%s-%s) is short %d of %d staff", shift.ID, shift.Date, shift.StartTime, shift.EndTime, missing, shift.RequiredStaffCount)
}

func activeCount(assignments []models.Assignment) int {
	n := 0
	for _, a := range assignments {
		if a.Active() {
			n++
		}
	}
	return n
}

func shiftStatus(ds models.DraftShift) models.ShiftStatus {
	if activeCount(ds.Assignments) >= ds.Shift.RequiredStaffCount {
		return models.ShiftAssigned
	}
	return models.ShiftUnderstaffed
}

// fill selects staff for every open slot of a shift, recording each pick in
// the run context before the next slot is scored
func (e *Engine) fill(p *plan, ps plannedShift, exclude map[string]bool, maxAlternatives int, notes map[string]string) ([]models.Assignment, []models.ConstraintViolation) {
	var made []models.Assignment
	var violations []models.ConstraintViolation

	needed := ps.shift.RequiredStaffCount - activeCount(p.assigned[ps.shift.ID])
	for ; needed > 0; needed-- {
		candidates, report := e.candidatesFor(p, ps, exclude)
		sel := e.SelectForShift(ps.shift, candidates, maxAlternatives)
		if sel.Winner == nil {
			violations = append(violations, understaffedViolation(ps.shift, needed, report))
			break
		}
		a := e.assignmentFor(ps.shift, sel, notes)
		made = append(made, a)
		violations = append(violations, violationsFor(*sel.Winner, ps.shift.ID)...)
		p.assigned[ps.shift.ID] = append(p.assigned[ps.shift.ID], a)
		p.rc.record(a.StaffID, ps.w)
	}
	return made, violations
}

// Run builds a draft for the input's date range. Shifts are filled one at a
// time in start-time order (shift id breaks ties) and every pick updates the
// staff hours seen by later shifts. The result depends only on the input;
// the caller assigns ids and timestamps. Cancelling ctx aborts the run and
// returns no draft.
func (e *Engine) Run(ctx context.Context, in models.ScheduleInput) (*models.ScheduleDraft, error) {
	p, err := e.prepare(in)
	if err != nil {
		return nil, err
	}

	draft := &models.ScheduleDraft{
		DateRangeStart: p.rangeStart,
		DateRangeEnd:   p.rangeEnd,
		Status:         models.DraftPending,
		AIGenerated:    true,
		Shifts:         []models.DraftShift{},
		Violations:     []models.ConstraintViolation{},
	}

	var confidenceSum float64
	var made, unfilled int
	for _, ps := range p.shifts {
		if !p.inRange(ps) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scheduling run aborted: %w", err)
		}

		assignments, violations := e.fill(p, ps, nil, in.Alternatives, in.StaffNotes)
		for _, a := range assignments {
			confidenceSum += *a.ConfidenceScore
			made++
		}
		draft.Violations = append(draft.Violations, violations...)

		ds := models.DraftShift{
			Shift:       ps.shift,
			Assignments: append([]models.Assignment{}, p.assigned[ps.shift.ID]...),
		}
		ds.Status = shiftStatus(ds)
		if ds.Status == models.ShiftAssigned {
			draft.FullyStaffed++
		} else {
			unfilled += ps.shift.RequiredStaffCount - activeCount(ds.Assignments)
		}
		draft.Shifts = append(draft.Shifts, ds)
	}

	draft.TotalShifts = len(draft.Shifts)
	if made > 0 {
		draft.AverageConfidence = confidenceSum / float64(made)
	}
	// Unfilled slots count as zero confidence in the draft-level score
	if made+unfilled > 0 {
		draft.ConfidenceScore = confidenceSum / float64(made+unfilled)
	} else {
		draft.ConfidenceScore = 1
	}
	draft.Summary = Aggregate(draft.Violations)
	draft.FairnessScore = FairnessScore(p.rc.hoursByStaff())
	return draft, nil
}

// Replacement is the outcome of re-filling one shift
type Replacement struct {
	ShiftID     string                       `json:"shift_id"`
	Status      models.ShiftStatus           `json:"status"`
	Assignments []models.Assignment          `json:"assignments"`
	Violations  []models.ConstraintViolation `json:"violations"`
}

// Replace re-enters candidate evaluation for a single shift, typically after
// an assignee called in sick. Excluded staff are never considered. Inactive
// assignments in the input no longer occupy their slot.
func (e *Engine) Replace(in models.ScheduleInput, shiftID string, exclude ...string) (*Replacement, error) {
	p, err := e.prepare(in)
	if err != nil {
		return nil, err
	}
	ps, ok := p.shiftByID[shiftID]
	if !ok {
		return nil, fmt.Errorf("shift %s: %w", shiftID, ErrNotFound)
	}

	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	made, violations := e.fill(p, ps, skip, in.Alternatives, in.StaffNotes)
	out := &Replacement{
		ShiftID:     shiftID,
		Assignments: made,
		Violations:  violations,
	}
	if out.Assignments == nil {
		out.Assignments = []models.Assignment{}
	}
	if out.Violations == nil {
		out.Violations = []models.ConstraintViolation{}
	}
	out.Status = shiftStatus(models.DraftShift{Shift: ps.shift, Assignments: p.assigned[shiftID]})
	return out, nil
}

// ValidatePair checks one staff/shift pairing against the active
// constraints, given the other assignments in the input. An existing
// assignment of the same pair is ignored so it does not collide with itself.
func (e *Engine) ValidatePair(in models.ScheduleInput, shiftID, staffID string) (models.ValidationResult, error) {
	others := make([]models.Assignment, 0, len(in.CurrentAssignments))
	for _, a := range in.CurrentAssignments {
		if a.ShiftID == shiftID && a.StaffID == staffID {
			continue
		}
		others = append(others, a)
	}
	in.CurrentAssignments = others

	p, err := e.prepare(in)
	if err != nil {
		return models.ValidationResult{}, err
	}
	ps, ok := p.shiftByID[shiftID]
	if !ok {
		return models.ValidationResult{}, fmt.Errorf("shift %s: %w", shiftID, ErrNotFound)
	}
	staff, ok := p.staffByID[staffID]
	if !ok {
		return models.ValidationResult{}, fmt.Errorf("staff %s: %w", staffID, ErrNotFound)
	}

	result := models.ValidationResult{
		Errors:           []string{},
		Warnings:         []string{},
		Suggestions:      []string{},
		ConstraintScores: make(map[string]float64),
	}
	if !staff.Available() {
		result.Errors = append(result.Errors, fmt.Sprintf("%s is marked unavailable", displayName(staff)))
	}
	if other, clash := p.rc.wouldOverlap(staffID, ps.w); clash {
		result.Errors = append(result.Errors, fmt.Sprintf("Already assigned to overlapping shift %s", other))
	}

	cand := e.Score(staff, ps.shift, p.constraints, p.rc)
	for t, score := range cand.PerConstraint {
		result.ConstraintScores[string(t)] = score
	}
	for _, res := range cand.Results {
		switch res.Verdict {
		case models.VerdictFail:
			result.Errors = append(result.Errors, res.Message)
		case models.VerdictWarn:
			result.Warnings = append(result.Warnings, res.Message)
		}
	}
	result.ConfidenceScore = cand.Confidence
	result.ConfidenceLabel = ConfidenceLabel(cand.Confidence)
	result.Valid = len(result.Errors) == 0 && cand.Confidence > 0

	better, _ := e.candidatesFor(p, ps, map[string]bool{staffID: true})
	RankCandidates(better)
	for _, alt := range better {
		if len(result.Suggestions) == 3 || alt.Confidence <= cand.Confidence {
			break
		}
		result.Suggestions = append(result.Suggestions, fmt.Sprintf("Consider %s (%s, %s)",
			displayName(alt.Staff), ConfidencePercent(alt.Confidence), ConfidenceLabel(alt.Confidence)))
	}
	return result, nil
}
