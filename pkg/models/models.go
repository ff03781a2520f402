package models

import "time"

// Priority ranks how much a constraint matters when scoring candidates
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ConstraintType identifies the business rule a Constraint encodes
type ConstraintType string

const (
	ConstraintMaxHoursPerWeek      ConstraintType = "max_hours_per_week"
	ConstraintMinRestBetweenShifts ConstraintType = "min_rest_between_shifts"
	ConstraintSkillMatchRequired   ConstraintType = "skill_match_required"
	ConstraintFairDistribution     ConstraintType = "fair_distribution"
	ConstraintStaffAvailability    ConstraintType = "staff_availability"

	// ConstraintCoverage and ConstraintEligibility are never configured. They
	// tag understaffed shifts and hand-made assignments a run would not make.
	ConstraintCoverage    ConstraintType = "coverage"
	ConstraintEligibility ConstraintType = "eligibility"
)

// Known reports whether t can be evaluated against a staff/shift pairing
func (t ConstraintType) Known() bool {
	switch t {
	case ConstraintMaxHoursPerWeek, ConstraintMinRestBetweenShifts, ConstraintSkillMatchRequired,
		ConstraintFairDistribution, ConstraintStaffAvailability:
		return true
	}
	return false
}

// Verdict is the outcome of evaluating one constraint
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictWarn Verdict = "warn"
	VerdictFail Verdict = "fail"
)

// Severity of a recorded violation
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// AssignmentStatus tracks an assignment after it was made
type AssignmentStatus string

const (
	AssignmentAssigned     AssignmentStatus = "assigned"
	AssignmentCalledInSick AssignmentStatus = "called_in_sick"
	AssignmentDeclined     AssignmentStatus = "declined"
)

// ShiftStatus is the per-shift state reached by a scheduling run
type ShiftStatus string

const (
	ShiftUnassigned   ShiftStatus = "unassigned"
	ShiftAssigned     ShiftStatus = "assigned"
	ShiftUnderstaffed ShiftStatus = "understaffed"
)

// DraftStatus tracks a draft through review and publish
type DraftStatus string

const (
	DraftPending   DraftStatus = "pending"
	DraftPublished DraftStatus = "published"
	DraftDiscarded DraftStatus = "discarded"
)

// NotificationStatus tracks delivery of one publish notification
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Staff represents a person who can be assigned to shifts
type Staff struct {
	ID               string   `json:"id" yaml:"id" binding:"required"`
	Name             string   `json:"name" yaml:"name"`
	Skills           []string `json:"skills" yaml:"skills"`
	HourlyRate       float64  `json:"hourly_rate" yaml:"hourly_rate"`
	IsAvailable      *bool    `json:"is_available,omitempty" yaml:"is_available,omitempty"`
	ReliabilityScore float64  `json:"reliability_score" yaml:"reliability_score" binding:"gte=0,lte=10"`
	// WeeklyHours is time already worked in the week the run starts in, outside the run.
	WeeklyHours      float64  `json:"weekly_hours" yaml:"weekly_hours" binding:"gte=0"`
	UnavailableDates []string `json:"unavailable_dates,omitempty" yaml:"unavailable_dates,omitempty"`
}

// Available treats a missing is_available flag as available
func (s Staff) Available() bool {
	return s.IsAvailable == nil || *s.IsAvailable
}

// Shift represents a time slot that needs covering.
// EndTime before StartTime means the shift ends on the next day.
type Shift struct {
	ID                 string  `json:"id" yaml:"id" binding:"required"`
	Name               string  `json:"name,omitempty" yaml:"name,omitempty"`
	Date               string  `json:"date" yaml:"date" binding:"required"`
	StartTime          string  `json:"start_time" yaml:"start_time" binding:"required"`
	EndTime            string  `json:"end_time" yaml:"end_time" binding:"required"`
	RequiredSkill      string  `json:"required_skill,omitempty" yaml:"required_skill,omitempty"`
	RequiredStaffCount int     `json:"required_staff_count" yaml:"required_staff_count" binding:"gte=0"`
	HourlyRate         float64 `json:"hourly_rate,omitempty" yaml:"hourly_rate,omitempty"`
	TemplateID         string  `json:"template_id,omitempty" yaml:"template_id,omitempty"`
}

// ShiftTemplate describes a recurring shift as an RFC 5545 recurrence rule
type ShiftTemplate struct {
	ID                 string  `json:"id" yaml:"id" binding:"required"`
	Name               string  `json:"name,omitempty" yaml:"name,omitempty"`
	RRule              string  `json:"rrule" yaml:"rrule" binding:"required"`
	StartTime          string  `json:"start_time" yaml:"start_time" binding:"required"`
	EndTime            string  `json:"end_time" yaml:"end_time" binding:"required"`
	RequiredSkill      string  `json:"required_skill,omitempty" yaml:"required_skill,omitempty"`
	RequiredStaffCount int     `json:"required_staff_count" yaml:"required_staff_count" binding:"gte=0"`
	HourlyRate         float64 `json:"hourly_rate,omitempty" yaml:"hourly_rate,omitempty"`
}

// Assignment links one staff member to one shift
type Assignment struct {
	ID              string           `json:"id,omitempty" yaml:"id,omitempty"`
	ShiftID         string           `json:"shift_id" yaml:"shift_id" binding:"required"`
	StaffID         string           `json:"staff_id" yaml:"staff_id" binding:"required"`
	StaffName       string           `json:"staff_name,omitempty" yaml:"staff_name,omitempty"`
	Status          AssignmentStatus `json:"status" yaml:"status"`
	ConfidenceScore *float64         `json:"confidence_score,omitempty" yaml:"confidence_score,omitempty"`
	IsAIGenerated   bool             `json:"is_ai_generated" yaml:"is_ai_generated"`
	ManualOverride  bool             `json:"manual_override" yaml:"manual_override"`
	Reasoning       *ReasoningResult `json:"reasoning,omitempty" yaml:"-"`
}

// Active reports whether the assignment still occupies the staff member.
// An empty status is treated as assigned.
func (a Assignment) Active() bool {
	return a.Status == "" || a.Status == AssignmentAssigned
}

// Constraint is a business-scoped scheduling rule.
// ConstraintValue is either a bare number or an object such as {"hours": 40}.
type Constraint struct {
	ID              string         `json:"id,omitempty" yaml:"id,omitempty"`
	ConstraintType  ConstraintType `json:"constraint_type" yaml:"constraint_type" binding:"required"`
	ConstraintValue any            `json:"constraint_value,omitempty" yaml:"constraint_value,omitempty"`
	Priority        Priority       `json:"priority" yaml:"priority" binding:"required,oneof=low medium high critical"`
	IsActive        *bool          `json:"is_active,omitempty" yaml:"is_active,omitempty"`
}

// Active treats a missing is_active flag as active
func (c Constraint) Active() bool {
	return c.IsActive == nil || *c.IsActive
}

// ConstraintViolation is a failed or warned constraint for a pairing or shift
type ConstraintViolation struct {
	ConstraintID        string         `json:"constraint_id,omitempty"`
	ConstraintType      ConstraintType `json:"constraint_type"`
	Priority            Priority       `json:"priority"`
	Severity            Severity       `json:"severity"`
	Message             string         `json:"message"`
	AffectedStaffID     string         `json:"affected_staff_id,omitempty"`
	AffectedShiftID     string         `json:"affected_shift_id"`
	SuggestedResolution string         `json:"suggested_resolution,omitempty"`
}

// Alternative is a runner-up candidate for an assignment
type Alternative struct {
	StaffID   string   `json:"staff_id"`
	StaffName string   `json:"staff_name,omitempty"`
	Score     float64  `json:"score"`
	Reason    string   `json:"reason"`
	Pros      []string `json:"pros"`
	Cons      []string `json:"cons"`
}

// ReasoningResult explains why an assignment was made
type ReasoningResult struct {
	ConfidenceScore        float64       `json:"confidence_score"`
	ConfidenceLabel        string        `json:"confidence_label"`
	PrimaryReasons         []string      `json:"primary_reasons"`
	Considerations         []string      `json:"considerations"`
	RiskFactors            []string      `json:"risk_factors"`
	AlternativesConsidered []Alternative `json:"alternatives_considered"`
}

// ViolationSummary rolls up all violations of a draft
type ViolationSummary struct {
	TotalViolations int                   `json:"total_violations"`
	TotalWarnings   int                   `json:"total_warnings"`
	ByType          map[string]int        `json:"by_type"`
	BySeverity      map[string]int        `json:"by_severity"`
	AffectedStaff   []string              `json:"affected_staff"`
	CriticalIssues  []ConstraintViolation `json:"critical_issues"`
}

// SpecialEvent raises demand on a given date
type SpecialEvent struct {
	Date       string `json:"date" yaml:"date" binding:"required"`
	Name       string `json:"name" yaml:"name"`
	ExtraStaff int    `json:"extra_staff" yaml:"extra_staff" binding:"gte=0"`
	// Skill restricts the extra demand to shifts requiring it
	Skill string `json:"skill,omitempty" yaml:"skill,omitempty"`
}

// NotificationSettings controls what happens when a draft is published
type NotificationSettings struct {
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Channels []string `json:"channels,omitempty" yaml:"channels,omitempty"`
}

// DraftShift is a shift together with its assignments inside a draft
type DraftShift struct {
	Shift       Shift        `json:"shift"`
	Status      ShiftStatus  `json:"status"`
	Assignments []Assignment `json:"assignments"`
}

// ScheduleDraft is an uncommitted schedule proposal for a date range
type ScheduleDraft struct {
	ID                   string                `json:"id,omitempty"`
	BusinessID           string                `json:"business_id,omitempty"`
	ParentID             string                `json:"parent_id,omitempty"`
	DateRangeStart       string                `json:"date_range_start"`
	DateRangeEnd         string                `json:"date_range_end"`
	Status               DraftStatus           `json:"status"`
	AIGenerated          bool                  `json:"ai_generated"`
	ConfidenceScore      float64               `json:"confidence_score"`
	AverageConfidence    float64               `json:"averageConfidence"`
	TotalShifts          int                   `json:"totalShifts"`
	FullyStaffed         int                   `json:"fullyStaffed"`
	FairnessScore        float64               `json:"fairness_score"`
	Shifts               []DraftShift          `json:"shifts"`
	Violations           []ConstraintViolation `json:"violations"`
	Summary              ViolationSummary      `json:"summary"`
	NotificationSettings *NotificationSettings `json:"notification_settings,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	ModifiedAt           time.Time             `json:"modified_at"`
}

// Assignments flattens the draft's assignments in shift order
func (d *ScheduleDraft) Assignments() []Assignment {
	var out []Assignment
	for _, ds := range d.Shifts {
		out = append(out, ds.Assignments...)
	}
	return out
}

// ScheduleInput is everything a scheduling run needs. ShiftTemplates are
// expanded over the date range; an explicit shift with the same id wins.
type ScheduleInput struct {
	DateRangeStart     string            `json:"date_range_start" yaml:"date_range_start" binding:"required"`
	DateRangeEnd       string            `json:"date_range_end" yaml:"date_range_end" binding:"required"`
	Staff              []Staff           `json:"staff" yaml:"staff" binding:"dive"`
	Shifts             []Shift           `json:"shifts" yaml:"shifts" binding:"dive"`
	ShiftTemplates     []ShiftTemplate   `json:"shift_templates,omitempty" yaml:"shift_templates,omitempty" binding:"dive"`
	Constraints        []Constraint      `json:"constraints" yaml:"constraints" binding:"dive"`
	CurrentAssignments []Assignment      `json:"current_assignments,omitempty" yaml:"current_assignments,omitempty"`
	SpecialEvents      []SpecialEvent    `json:"special_events,omitempty" yaml:"special_events,omitempty" binding:"dive"`
	StaffNotes         map[string]string `json:"staff_notes,omitempty" yaml:"staff_notes,omitempty"`
	// Alternatives is how many runners-up to keep per assignment: 0 uses the default, negative keeps all
	Alternatives int `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// ValidationResult is the live per-pair validation payload
type ValidationResult struct {
	Valid            bool               `json:"valid"`
	ConfidenceScore  float64            `json:"confidence_score"`
	ConfidenceLabel  string             `json:"confidence_label"`
	Errors           []string           `json:"errors"`
	Warnings         []string           `json:"warnings"`
	Suggestions      []string           `json:"suggestions"`
	ConstraintScores map[string]float64 `json:"constraint_scores,omitempty"`
}

// AssignmentRef identifies an assignment inside a draft diff
type AssignmentRef struct {
	ShiftID string `json:"shift_id"`
	StaffID string `json:"staff_id"`
}

// AssignmentMove records a staff member moved between shifts
type AssignmentMove struct {
	StaffID     string `json:"staff_id"`
	FromShiftID string `json:"from_shift_id"`
	ToShiftID   string `json:"to_shift_id"`
}

// DraftDiff compares two drafts
type DraftDiff struct {
	Added       []AssignmentRef  `json:"added"`
	Removed     []AssignmentRef  `json:"removed"`
	Moved       []AssignmentMove `json:"moved"`
	ChangeCount int              `json:"change_count"`
	HasChanges  bool             `json:"has_changes"`
	Message     string           `json:"message"`
}

// Bool returns a pointer to b, for optional flags
func Bool(b bool) *bool { return &b }
