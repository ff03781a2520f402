package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

const dateLayout = "2006-01-02"

// GetBusiness loads a business by id
func GetBusiness(db *gorm.DB, id string) (*Business, error) {
	var b Business
	if err := db.First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// UpsertStaff inserts or updates staff members by (business, staff id)
func UpsertStaff(db *gorm.DB, businessID string, staff []models.Staff) error {
	if len(staff) == 0 {
		return nil
	}
	rows := make([]Staff, 0, len(staff))
	for _, s := range staff {
		row, err := NewStaff(businessID, s)
		if err != nil {
			return fmt.Errorf("staff %s: %w", s.ID, err)
		}
		rows = append(rows, row)
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "business_id"}, {Name: "staff_id"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

// UpsertShifts inserts or updates shifts by (business, shift id)
func UpsertShifts(db *gorm.DB, businessID string, shifts []models.Shift) error {
	if len(shifts) == 0 {
		return nil
	}
	rows := make([]Shift, 0, len(shifts))
	for _, s := range shifts {
		rows = append(rows, NewShift(businessID, s))
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "business_id"}, {Name: "shift_id"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

// UpsertShiftTemplates inserts or updates templates by (business, template id)
func UpsertShiftTemplates(db *gorm.DB, businessID string, templates []models.ShiftTemplate) error {
	if len(templates) == 0 {
		return nil
	}
	rows := make([]ShiftTemplate, 0, len(templates))
	for _, t := range templates {
		rows = append(rows, NewShiftTemplate(businessID, t))
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "business_id"}, {Name: "template_id"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

// ListConstraints returns a business's constraints, oldest first
func ListConstraints(db *gorm.DB, businessID string) ([]Constraint, error) {
	var rows []Constraint
	err := db.Where("business_id = ?", businessID).Order("created_at, id").Find(&rows).Error
	return rows, err
}

// LoadScheduleInput gathers a business's staff, shifts, templates,
// constraints and published assignments for a run over [start, end].
// Shifts a day either side of the range are included so rest periods and
// overlaps across the range boundary are seen.
func LoadScheduleInput(db *gorm.DB, businessID, start, end string) (models.ScheduleInput, error) {
	in := models.ScheduleInput{DateRangeStart: start, DateRangeEnd: end}

	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return in, fmt.Errorf("invalid date_range_start: %w", err)
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return in, fmt.Errorf("invalid date_range_end: %w", err)
	}
	lo := from.AddDate(0, 0, -1).Format(dateLayout)
	hi := to.AddDate(0, 0, 1).Format(dateLayout)

	var staff []Staff
	if err := db.Where("business_id = ?", businessID).Order("staff_id").Find(&staff).Error; err != nil {
		return in, err
	}
	for _, s := range staff {
		in.Staff = append(in.Staff, s.ToModel())
	}

	var shifts []Shift
	if err := db.Where("business_id = ? AND date BETWEEN ? AND ?", businessID, lo, hi).
		Order("date, start_time, shift_id").Find(&shifts).Error; err != nil {
		return in, err
	}
	for _, s := range shifts {
		in.Shifts = append(in.Shifts, s.ToModel())
	}

	var templates []ShiftTemplate
	if err := db.Where("business_id = ?", businessID).Order("template_id").Find(&templates).Error; err != nil {
		return in, err
	}
	for _, t := range templates {
		in.ShiftTemplates = append(in.ShiftTemplates, t.ToModel())
	}

	constraints, err := ListConstraints(db, businessID)
	if err != nil {
		return in, err
	}
	for _, c := range constraints {
		in.Constraints = append(in.Constraints, c.ToModel())
	}

	var assignments []Assignment
	if err := db.Where("business_id = ? AND status = ? AND shift_date BETWEEN ? AND ?",
		businessID, models.AssignmentAssigned, lo, hi).Order("shift_id, staff_id").Find(&assignments).Error; err != nil {
		return in, err
	}
	for _, a := range assignments {
		in.CurrentAssignments = append(in.CurrentAssignments, a.ToModel())
	}
	return in, nil
}

// SaveDraft stores a new draft, assigning ids to the draft and its assignments
func SaveDraft(db *gorm.DB, d *models.ScheduleDraft) error {
	now := time.Now().UTC()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.ModifiedAt = now
	for i := range d.Shifts {
		for j := range d.Shifts[i].Assignments {
			if d.Shifts[i].Assignments[j].ID == "" {
				d.Shifts[i].Assignments[j].ID = uuid.NewString()
			}
		}
	}

	row, err := NewDraft(d)
	if err != nil {
		return err
	}
	return db.Save(&row).Error
}

// GetDraft loads a business's draft
func GetDraft(db *gorm.DB, businessID, id string) (*models.ScheduleDraft, error) {
	var row Draft
	if err := db.Where("business_id = ? AND id = ?", businessID, id).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row.ToModel()
}

// DiscardDraft marks a pending draft discarded. Published drafts cannot be discarded.
func DiscardDraft(db *gorm.DB, businessID, id string) (*models.ScheduleDraft, error) {
	var out *models.ScheduleDraft
	err := db.Transaction(func(tx *gorm.DB) error {
		d, err := GetDraft(tx, businessID, id)
		if err != nil {
			return err
		}
		switch d.Status {
		case models.DraftDiscarded:
			out = d
			return nil
		case models.DraftPublished:
			return fmt.Errorf("draft %s is published: %w", id, ErrConflict)
		}
		d.Status = models.DraftDiscarded
		out = d
		return updateSnapshot(tx, d)
	})
	return out, err
}

// PublishDraft commits a pending draft: its assignments replace any
// published assignments of the same shifts. Publishing an already published
// draft is a no-op and reports published=false.
func PublishDraft(db *gorm.DB, businessID, id string) (draft *models.ScheduleDraft, published bool, err error) {
	err = db.Transaction(func(tx *gorm.DB) error {
		d, err := GetDraft(tx, businessID, id)
		if err != nil {
			return err
		}
		switch d.Status {
		case models.DraftPublished:
			draft = d
			return nil
		case models.DraftDiscarded:
			return fmt.Errorf("draft %s is discarded: %w", id, ErrConflict)
		}

		shiftIDs := make([]string, 0, len(d.Shifts))
		var rows []Assignment
		for _, ds := range d.Shifts {
			shiftIDs = append(shiftIDs, ds.Shift.ID)
			for _, a := range ds.Assignments {
				if !a.Active() {
					continue
				}
				row, err := NewAssignment(businessID, d.ID, ds.Shift, a)
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}
		}

		if len(shiftIDs) > 0 {
			if err := tx.Where("business_id = ? AND shift_id IN ?", businessID, shiftIDs).Delete(&Assignment{}).Error; err != nil {
				return err
			}
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		d.Status = models.DraftPublished
		if err := updateSnapshot(tx, d); err != nil {
			return err
		}
		if err := tx.Model(&Draft{}).Where("id = ?", d.ID).Update("published_at", now).Error; err != nil {
			return err
		}
		draft, published = d, true
		return nil
	})
	return draft, published, err
}

// GetAssignment loads a published assignment
func GetAssignment(db *gorm.DB, businessID, id string) (*Assignment, error) {
	var row Assignment
	if err := db.Where("business_id = ? AND id = ?", businessID, id).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

// ApplySickCall marks an assignment called_in_sick and stores its
// replacements. The published draft's snapshot gets the same change and
// is handed to refresh before it is saved, so its statuses and violations
// can be brought in step; a refresh error rolls everything back.
func ApplySickCall(db *gorm.DB, sick *Assignment, shift models.Shift, replacements []models.Assignment,
	refresh func(*models.ScheduleDraft) error) ([]models.Assignment, *models.ScheduleDraft, error) {
	var stored []models.Assignment
	var draft *models.ScheduleDraft
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Assignment{}).Where("id = ?", sick.ID).
			Update("status", string(models.AssignmentCalledInSick)).Error; err != nil {
			return err
		}

		for _, a := range replacements {
			if a.ID == "" {
				a.ID = uuid.NewString()
			}
			row, err := NewAssignment(sick.BusinessID, sick.DraftID, shift, a)
			if err != nil {
				return err
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			stored = append(stored, row.ToModel())
		}

		d, err := GetDraft(tx, sick.BusinessID, sick.DraftID)
		if err != nil {
			return err
		}
		for i := range d.Shifts {
			if d.Shifts[i].Shift.ID != sick.ShiftID {
				continue
			}
			for j := range d.Shifts[i].Assignments {
				if d.Shifts[i].Assignments[j].ID == sick.ID {
					d.Shifts[i].Assignments[j].Status = models.AssignmentCalledInSick
				}
			}
			d.Shifts[i].Assignments = append(d.Shifts[i].Assignments, stored...)
			if countActive(d.Shifts[i].Assignments) >= d.Shifts[i].Shift.RequiredStaffCount {
				d.Shifts[i].Status = models.ShiftAssigned
			} else {
				d.Shifts[i].Status = models.ShiftUnderstaffed
			}
		}
		if refresh != nil {
			if err := refresh(d); err != nil {
				return err
			}
		}
		draft = d
		return updateSnapshot(tx, d)
	})
	if err != nil {
		return nil, nil, err
	}
	sick.Status = string(models.AssignmentCalledInSick)
	return stored, draft, nil
}

func countActive(assignments []models.Assignment) int {
	n := 0
	for _, a := range assignments {
		if a.Active() {
			n++
		}
	}
	return n
}

func updateSnapshot(tx *gorm.DB, d *models.ScheduleDraft) error {
	d.ModifiedAt = time.Now().UTC()
	row, err := NewDraft(d)
	if err != nil {
		return err
	}
	return tx.Model(&Draft{}).Where("id = ?", d.ID).Updates(map[string]any{
		"status":     row.Status,
		"snapshot":   row.Snapshot,
		"updated_at": d.ModifiedAt,
	}).Error
}
