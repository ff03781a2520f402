package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

const dateLayout = "2006-01-02"

var clockLayouts = []string{"15:04", "15:04:05"}

// ParseDate parses a YYYY-MM-DD date in UTC
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func parseClock(s string) (time.Duration, error) {
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time %q", s)
}

// ShiftWindow resolves a shift to absolute start and end times.
// An end time earlier than the start time is on the following day.
func ShiftWindow(shift models.Shift) (time.Time, time.Time, error) {
	day, err := ParseDate(shift.Date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	startOffset, err := parseClock(shift.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endOffset, err := parseClock(shift.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if startOffset == endOffset {
		return time.Time{}, time.Time{}, fmt.Errorf("shift %s starts and ends at %s", shift.ID, shift.StartTime)
	}

	start := day.Add(startOffset)
	end := day.Add(endOffset)
	if endOffset < startOffset {
		end = end.Add(24 * time.Hour)
	}
	return start, end, nil
}

// DurationHours calculates the duration between two times in hours
func DurationHours(start, end time.Time) float64 {
	return end.Sub(start).Hours()
}

// Overlap checks if two time ranges overlap
func Overlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

type window struct {
	shiftID string
	start   time.Time
	end     time.Time
}

func (w window) hours() float64 { return DurationHours(w.start, w.end) }

type staffLoad struct {
	baseHours float64
	weekHours map[string]float64
	runHours  float64
	windows   []window
}

// RunContext is the cross-shift state of one scheduling run: hours and
// shifts each staff member has picked up so far. It is not safe for
// concurrent use; selections must be recorded in shift order.
type RunContext struct {
	baseWeek string
	loads    map[string]*staffLoad
}

// NewRunContext creates a context for the given staff. WeeklyHours of each
// staff member counts towards the ISO week containing rangeStart.
func NewRunContext(staff []models.Staff, rangeStart time.Time) *RunContext {
	rc := &RunContext{
		baseWeek: weekKey(rangeStart),
		loads:    make(map[string]*staffLoad, len(staff)),
	}
	for _, s := range staff {
		rc.load(s.ID).baseHours = s.WeeklyHours
	}
	return rc
}

func (rc *RunContext) load(staffID string) *staffLoad {
	l, ok := rc.loads[staffID]
	if !ok {
		l = &staffLoad{weekHours: make(map[string]float64)}
		rc.loads[staffID] = l
	}
	return l
}

// Record books a shift for a staff member
func (rc *RunContext) Record(staffID string, shift models.Shift) error {
	start, end, err := ShiftWindow(shift)
	if err != nil {
		return err
	}
	rc.record(staffID, window{shiftID: shift.ID, start: start, end: end})
	return nil
}

func (rc *RunContext) record(staffID string, w window) {
	l := rc.load(staffID)
	l.windows = append(l.windows, w)
	l.weekHours[weekKey(w.start)] += w.hours()
	l.runHours += w.hours()
}

// RunHours is the time booked for a staff member in this run
func (rc *RunContext) RunHours(staffID string) float64 {
	if l, ok := rc.loads[staffID]; ok {
		return l.runHours
	}
	return 0
}

// projectedWeekHours is the week's total for staffID if w were added
func (rc *RunContext) projectedWeekHours(staffID string, w window) float64 {
	total := w.hours()
	l, ok := rc.loads[staffID]
	if !ok {
		return total
	}
	wk := weekKey(w.start)
	total += l.weekHours[wk]
	if wk == rc.baseWeek {
		total += l.baseHours
	}
	return total
}

// averageRunHours is the mean run hours across every staff member in the context
func (rc *RunContext) averageRunHours() float64 {
	if len(rc.loads) == 0 {
		return 0
	}
	var sum float64
	for _, l := range rc.loads {
		sum += l.runHours
	}
	return sum / float64(len(rc.loads))
}

// wouldOverlap checks if a staff member's booked shifts overlap with w
func (rc *RunContext) wouldOverlap(staffID string, w window) (string, bool) {
	l, ok := rc.loads[staffID]
	if !ok {
		return "", false
	}
	for _, existing := range l.windows {
		if existing.shiftID == w.shiftID {
			continue
		}
		if Overlap(existing.start, existing.end, w.start, w.end) {
			return existing.shiftID, true
		}
	}
	return "", false
}

// isBooked reports whether staffID already holds shiftID
func (rc *RunContext) isBooked(staffID, shiftID string) bool {
	l, ok := rc.loads[staffID]
	if !ok {
		return false
	}
	for _, existing := range l.windows {
		if existing.shiftID == shiftID {
			return true
		}
	}
	return false
}

// nearestGap returns the shortest rest in hours between w and any other
// booked shift of staffID. Overlapping shifts give a gap of zero.
func (rc *RunContext) nearestGap(staffID string, w window) (float64, bool) {
	l, ok := rc.loads[staffID]
	if !ok || len(l.windows) == 0 {
		return 0, false
	}
	best := -1.0
	for _, existing := range l.windows {
		if existing.shiftID == w.shiftID {
			continue
		}
		var gap float64
		switch {
		case !existing.end.After(w.start):
			gap = w.start.Sub(existing.end).Hours()
		case !existing.start.Before(w.end):
			gap = existing.start.Sub(w.end).Hours()
		default:
			gap = 0
		}
		if best < 0 || gap < best {
			best = gap
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// hoursByStaff lists run hours in staff id order
func (rc *RunContext) hoursByStaff() []float64 {
	ids := make([]string, 0, len(rc.loads))
	for id := range rc.loads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	hours := make([]float64, 0, len(ids))
	for _, id := range ids {
		hours = append(hours, rc.loads[id].runHours)
	}
	return hours
}
