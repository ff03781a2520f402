package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

const dateLayout = "2006-01-02"

// ShiftID is the id of a template's occurrence on a date
func ShiftID(templateID, date string) string {
	return templateID + "@" + date
}

// Validate checks the rrule syntax of a template
func Validate(tpl models.ShiftTemplate) error {
	if _, err := rrule.StrToRRule(tpl.RRule); err != nil {
		return fmt.Errorf("invalid rrule for template %s: %w", tpl.ID, err)
	}
	return nil
}

// Dates lists the days in [from, to] on which the rule recurs. A rule
// without its own DTSTART is anchored at from.
func Dates(rule string, from, to time.Time) ([]string, error) {
	return AnchoredDates(rule, from, from, to)
}

// AnchoredDates is Dates with rules lacking DTSTART anchored at anchor
// instead of from. Days before the anchor follow the rule's own period, so
// widening [from, to] never moves the days the rule recurs on.
func AnchoredDates(rule string, anchor, from, to time.Time) ([]string, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, err
	}
	if r.OrigOptions.Dtstart.IsZero() {
		opts := r.OrigOptions
		opts.Dtstart = anchor
		for opts.Dtstart.After(from) {
			opts.Dtstart = periodBefore(opts.Dtstart, opts.Freq, opts.Interval)
		}
		if r, err = rrule.NewRRule(opts); err != nil {
			return nil, err
		}
	}

	// Include every occurrence on the last day, whatever its time of day
	until := to.AddDate(0, 0, 1).Add(-time.Nanosecond)

	seen := make(map[string]bool)
	var dates []string
	for _, occurrence := range r.Between(from, until, true) {
		d := occurrence.Format(dateLayout)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	return dates, nil
}

// periodBefore steps t back by one full period of the rule. Sub-daily rules
// step back a whole day since only dates matter here.
func periodBefore(t time.Time, freq rrule.Frequency, interval int) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch freq {
	case rrule.YEARLY:
		return t.AddDate(-interval, 0, 0)
	case rrule.MONTHLY:
		return t.AddDate(0, -interval, 0)
	case rrule.WEEKLY:
		return t.AddDate(0, 0, -7*interval)
	case rrule.DAILY:
		return t.AddDate(0, 0, -interval)
	default:
		return t.AddDate(0, 0, -1)
	}
}

// Expand turns templates into concrete shifts for the date range, in
// template order then date order
func Expand(templates []models.ShiftTemplate, from, to time.Time) ([]models.Shift, error) {
	return ExpandAnchored(templates, from, from, to)
}

// ExpandAnchored is Expand with undated rules anchored at anchor, see AnchoredDates
func ExpandAnchored(templates []models.ShiftTemplate, anchor, from, to time.Time) ([]models.Shift, error) {
	var shifts []models.Shift
	for _, tpl := range templates {
		dates, err := AnchoredDates(tpl.RRule, anchor, from, to)
		if err != nil {
			return nil, fmt.Errorf("invalid rrule for template %s: %w", tpl.ID, err)
		}
		for _, d := range dates {
			shifts = append(shifts, models.Shift{
				ID:                 ShiftID(tpl.ID, d),
				Name:               tpl.Name,
				Date:               d,
				StartTime:          tpl.StartTime,
				EndTime:            tpl.EndTime,
				RequiredSkill:      tpl.RequiredSkill,
				RequiredStaffCount: tpl.RequiredStaffCount,
				HourlyRate:         tpl.HourlyRate,
				TemplateID:         tpl.ID,
			})
		}
	}
	return shifts, nil
}
