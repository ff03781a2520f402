package database

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

// Business represents the businesses table
type Business struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

// Staff represents the staff table
type Staff struct {
	ID               uint           `gorm:"primaryKey" json:"-"`
	BusinessID       string         `gorm:"uniqueIndex:idx_business_staff;not null" json:"business_id"`
	StaffID          string         `gorm:"uniqueIndex:idx_business_staff;not null" json:"id"`
	Name             string         `json:"name"`
	Skills           datatypes.JSON `json:"skills"`
	HourlyRate       float64        `json:"hourly_rate"`
	IsAvailable      bool           `json:"is_available"`
	ReliabilityScore float64        `json:"reliability_score"`
	WeeklyHours      float64        `json:"weekly_hours"`
	UnavailableDates datatypes.JSON `json:"unavailable_dates"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TableName keeps the table singular
func (Staff) TableName() string { return "staff" }

// Shift represents the shifts table
type Shift struct {
	ID                 uint      `gorm:"primaryKey" json:"-"`
	BusinessID         string    `gorm:"uniqueIndex:idx_business_shift;not null" json:"business_id"`
	ShiftID            string    `gorm:"uniqueIndex:idx_business_shift;not null" json:"id"`
	Name               string    `json:"name"`
	Date               string    `gorm:"index;not null" json:"date"`
	StartTime          string    `gorm:"not null" json:"start_time"`
	EndTime            string    `gorm:"not null" json:"end_time"`
	RequiredSkill      string    `json:"required_skill"`
	RequiredStaffCount int       `json:"required_staff_count"`
	HourlyRate         float64   `json:"hourly_rate"`
	TemplateID         string    `json:"template_id"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ShiftTemplate represents the shift_templates table
type ShiftTemplate struct {
	ID                 uint      `gorm:"primaryKey" json:"-"`
	BusinessID         string    `gorm:"uniqueIndex:idx_business_template;not null" json:"business_id"`
	TemplateID         string    `gorm:"uniqueIndex:idx_business_template;not null" json:"id"`
	Name               string    `json:"name"`
	RRule              string    `gorm:"not null" json:"rrule"`
	StartTime          string    `gorm:"not null" json:"start_time"`
	EndTime            string    `gorm:"not null" json:"end_time"`
	RequiredSkill      string    `json:"required_skill"`
	RequiredStaffCount int       `json:"required_staff_count"`
	HourlyRate         float64   `json:"hourly_rate"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Constraint represents the constraints table
type Constraint struct {
	ID              string         `gorm:"primaryKey" json:"id"`
	BusinessID      string         `gorm:"index;not null" json:"business_id"`
	ConstraintType  string         `gorm:"not null" json:"constraint_type"`
	ConstraintValue datatypes.JSON `json:"constraint_value"`
	Priority        string         `gorm:"not null" json:"priority"`
	IsActive        bool           `json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Draft represents the schedule_drafts table. Snapshot holds the full
// draft; the other columns are kept for filtering.
type Draft struct {
	ID              string         `gorm:"primaryKey"`
	BusinessID      string         `gorm:"index;not null"`
	ParentID        string         `gorm:"index"`
	Status          string         `gorm:"index;not null"`
	DateRangeStart  string         `gorm:"not null"`
	DateRangeEnd    string         `gorm:"not null"`
	ConfidenceScore float64
	FairnessScore   float64
	Snapshot        datatypes.JSON `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PublishedAt     *time.Time
}

// TableName names the drafts table
func (Draft) TableName() string { return "schedule_drafts" }

// Assignment represents the assignments table: assignments of published drafts
type Assignment struct {
	ID              string         `gorm:"primaryKey" json:"id"`
	BusinessID      string         `gorm:"index;not null" json:"business_id"`
	DraftID         string         `gorm:"index;not null" json:"draft_id"`
	ShiftID         string         `gorm:"index;not null" json:"shift_id"`
	ShiftDate       string         `gorm:"index" json:"shift_date"`
	StaffID         string         `gorm:"index;not null" json:"staff_id"`
	StaffName       string         `json:"staff_name"`
	Status          string         `gorm:"not null" json:"status"`
	ConfidenceScore *float64       `json:"confidence_score"`
	IsAIGenerated   bool           `json:"is_ai_generated"`
	ManualOverride  bool           `json:"manual_override"`
	Reasoning       datatypes.JSON `json:"reasoning,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Notification represents the notifications table
type Notification struct {
	ID           string                    `gorm:"primaryKey" json:"id"`
	DraftID      string                    `gorm:"index;not null" json:"draft_id"`
	BusinessID   string                    `gorm:"index;not null" json:"business_id"`
	StaffID      string                    `gorm:"not null" json:"staff_id"`
	StaffName    string                    `json:"staff_name"`
	Channel      string                    `gorm:"not null" json:"channel"`
	Status       models.NotificationStatus `gorm:"index;not null" json:"status"`
	RetryCount   int                       `json:"retry_count"`
	ErrorMessage string                    `json:"error_message"`
	ExternalID   string                    `json:"external_id"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

func toJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func fromJSON[T any](raw datatypes.JSON) T {
	var out T
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

// NewStaff converts a staff member for storage
func NewStaff(businessID string, s models.Staff) (Staff, error) {
	skills, err := toJSON(s.Skills)
	if err != nil {
		return Staff{}, err
	}
	dates, err := toJSON(s.UnavailableDates)
	if err != nil {
		return Staff{}, err
	}
	return Staff{
		BusinessID:       businessID,
		StaffID:          s.ID,
		Name:             s.Name,
		Skills:           skills,
		HourlyRate:       s.HourlyRate,
		IsAvailable:      s.Available(),
		ReliabilityScore: s.ReliabilityScore,
		WeeklyHours:      s.WeeklyHours,
		UnavailableDates: dates,
	}, nil
}

// ToModel converts a stored staff member for the engine
func (r Staff) ToModel() models.Staff {
	return models.Staff{
		ID:               r.StaffID,
		Name:             r.Name,
		Skills:           fromJSON[[]string](r.Skills),
		HourlyRate:       r.HourlyRate,
		IsAvailable:      models.Bool(r.IsAvailable),
		ReliabilityScore: r.ReliabilityScore,
		WeeklyHours:      r.WeeklyHours,
		UnavailableDates: fromJSON[[]string](r.UnavailableDates),
	}
}

// NewShift converts a shift for storage
func NewShift(businessID string, s models.Shift) Shift {
	return Shift{
		BusinessID:         businessID,
		ShiftID:            s.ID,
		Name:               s.Name,
		Date:               s.Date,
		StartTime:          s.StartTime,
		EndTime:            s.EndTime,
		RequiredSkill:      s.RequiredSkill,
		RequiredStaffCount: s.RequiredStaffCount,
		HourlyRate:         s.HourlyRate,
		TemplateID:         s.TemplateID,
	}
}

// ToModel converts a stored shift for the engine
func (r Shift) ToModel() models.Shift {
	return models.Shift{
		ID:                 r.ShiftID,
		Name:               r.Name,
		Date:               r.Date,
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		RequiredSkill:      r.RequiredSkill,
		RequiredStaffCount: r.RequiredStaffCount,
		HourlyRate:         r.HourlyRate,
		TemplateID:         r.TemplateID,
	}
}

// NewShiftTemplate converts a template for storage
func NewShiftTemplate(businessID string, t models.ShiftTemplate) ShiftTemplate {
	return ShiftTemplate{
		BusinessID:         businessID,
		TemplateID:         t.ID,
		Name:               t.Name,
		RRule:              t.RRule,
		StartTime:          t.StartTime,
		EndTime:            t.EndTime,
		RequiredSkill:      t.RequiredSkill,
		RequiredStaffCount: t.RequiredStaffCount,
		HourlyRate:         t.HourlyRate,
	}
}

// ToModel converts a stored template
func (r ShiftTemplate) ToModel() models.ShiftTemplate {
	return models.ShiftTemplate{
		ID:                 r.TemplateID,
		Name:               r.Name,
		RRule:              r.RRule,
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		RequiredSkill:      r.RequiredSkill,
		RequiredStaffCount: r.RequiredStaffCount,
		HourlyRate:         r.HourlyRate,
	}
}

// NewConstraint converts a constraint for storage
func NewConstraint(businessID string, c models.Constraint) (Constraint, error) {
	value, err := toJSON(c.ConstraintValue)
	if err != nil {
		return Constraint{}, fmt.Errorf("constraint_value: %w", err)
	}
	return Constraint{
		ID:              c.ID,
		BusinessID:      businessID,
		ConstraintType:  string(c.ConstraintType),
		ConstraintValue: value,
		Priority:        string(c.Priority),
		IsActive:        c.Active(),
	}, nil
}

// ToModel converts a stored constraint for the engine
func (r Constraint) ToModel() models.Constraint {
	return models.Constraint{
		ID:              r.ID,
		ConstraintType:  models.ConstraintType(r.ConstraintType),
		ConstraintValue: fromJSON[any](r.ConstraintValue),
		Priority:        models.Priority(r.Priority),
		IsActive:        models.Bool(r.IsActive),
	}
}

// NewDraft converts a draft for storage
func NewDraft(d *models.ScheduleDraft) (Draft, error) {
	snapshot, err := toJSON(d)
	if err != nil {
		return Draft{}, fmt.Errorf("draft snapshot: %w", err)
	}
	return Draft{
		ID:              d.ID,
		BusinessID:      d.BusinessID,
		ParentID:        d.ParentID,
		Status:          string(d.Status),
		DateRangeStart:  d.DateRangeStart,
		DateRangeEnd:    d.DateRangeEnd,
		ConfidenceScore: d.ConfidenceScore,
		FairnessScore:   d.FairnessScore,
		Snapshot:        snapshot,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.ModifiedAt,
	}, nil
}

// ToModel restores the stored draft; the row's status wins over the snapshot
func (r Draft) ToModel() (*models.ScheduleDraft, error) {
	var d models.ScheduleDraft
	if err := json.Unmarshal(r.Snapshot, &d); err != nil {
		return nil, fmt.Errorf("draft %s has a corrupt snapshot: %w", r.ID, err)
	}
	d.ID = r.ID
	d.BusinessID = r.BusinessID
	d.ParentID = r.ParentID
	d.Status = models.DraftStatus(r.Status)
	return &d, nil
}

// NewAssignment converts an assignment of a published draft for storage
func NewAssignment(businessID, draftID string, shift models.Shift, a models.Assignment) (Assignment, error) {
	var reasoning datatypes.JSON
	if a.Reasoning != nil {
		var err error
		if reasoning, err = toJSON(a.Reasoning); err != nil {
			return Assignment{}, err
		}
	}
	status := a.Status
	if status == "" {
		status = models.AssignmentAssigned
	}
	return Assignment{
		ID:              a.ID,
		BusinessID:      businessID,
		DraftID:         draftID,
		ShiftID:         shift.ID,
		ShiftDate:       shift.Date,
		StaffID:         a.StaffID,
		StaffName:       a.StaffName,
		Status:          string(status),
		ConfidenceScore: a.ConfidenceScore,
		IsAIGenerated:   a.IsAIGenerated,
		ManualOverride:  a.ManualOverride,
		Reasoning:       reasoning,
	}, nil
}

// ToModel converts a stored assignment
func (r Assignment) ToModel() models.Assignment {
	a := models.Assignment{
		ID:              r.ID,
		ShiftID:         r.ShiftID,
		StaffID:         r.StaffID,
		StaffName:       r.StaffName,
		Status:          models.AssignmentStatus(r.Status),
		ConfidenceScore: r.ConfidenceScore,
		IsAIGenerated:   r.IsAIGenerated,
		ManualOverride:  r.ManualOverride,
	}
	if len(r.Reasoning) > 0 {
		reasoning := fromJSON[models.ReasoningResult](r.Reasoning)
		a.Reasoning = &reasoning
	}
	return a
}
