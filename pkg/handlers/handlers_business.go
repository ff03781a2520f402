package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/database"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/recurrence"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/scheduler"
)

// ListStaff returns a business's staff
func (h *Handler) ListStaff(c *gin.Context) {
	var rows []database.Staff
	if err := h.DB.Where("business_id = ?", c.Param("businessId")).Order("staff_id").Find(&rows).Error; err != nil {
		h.respondError(c, err)
		return
	}
	staff := make([]models.Staff, 0, len(rows))
	for _, r := range rows {
		staff = append(staff, r.ToModel())
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff})
}

// PutStaff bulk upserts staff members
func (h *Handler) PutStaff(c *gin.Context) {
	var req struct {
		Staff []models.Staff `json:"staff" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := database.UpsertStaff(h.DB, c.Param("businessId"), req.Staff); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(req.Staff)})
}

func checkShifts(shifts []models.Shift) error {
	for _, s := range shifts {
		if _, _, err := scheduler.ShiftWindow(s); err != nil {
			return fmt.Errorf("%w: %v", scheduler.ErrInvalidInput, err)
		}
	}
	return nil
}

// PutShifts bulk upserts shifts
func (h *Handler) PutShifts(c *gin.Context) {
	var req struct {
		Shifts []models.Shift `json:"shifts" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := checkShifts(req.Shifts); err != nil {
		h.respondError(c, err)
		return
	}
	if err := database.UpsertShifts(h.DB, c.Param("businessId"), req.Shifts); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(req.Shifts)})
}

// PutShiftTemplates bulk upserts recurring shift templates
func (h *Handler) PutShiftTemplates(c *gin.Context) {
	var req struct {
		Templates []models.ShiftTemplate `json:"shift_templates" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, t := range req.Templates {
		if err := recurrence.Validate(t); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := database.UpsertShiftTemplates(h.DB, c.Param("businessId"), req.Templates); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(req.Templates)})
}

// ImportCSV upserts staff and shifts from uploaded CSV files. Either file may
// be omitted but not both. List columns are separated by "|". Rows are checked
// against the same rules as the JSON endpoints and stored all or nothing.
func (h *Handler) ImportCSV(c *gin.Context) {
	staffFile, _ := c.FormFile("staff_file")
	shiftsFile, _ := c.FormFile("shifts_file")
	if staffFile == nil && shiftsFile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "staff_file or shifts_file is required"})
		return
	}

	var staff []models.Staff
	if staffFile != nil {
		rows, err := readCSV(staffFile)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "staff_file: " + err.Error()})
			return
		}
		for i, r := range rows {
			s, err := staffFromRow(r)
			if err == nil {
				err = binding.Validator.ValidateStruct(s)
			}
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("staff_file row %d: %v", i+2, err)})
				return
			}
			staff = append(staff, s)
		}
	}

	var shifts []models.Shift
	if shiftsFile != nil {
		rows, err := readCSV(shiftsFile)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shifts_file: " + err.Error()})
			return
		}
		for i, r := range rows {
			s, err := shiftFromRow(r)
			if err == nil {
				err = binding.Validator.ValidateStruct(s)
			}
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("shifts_file row %d: %v", i+2, err)})
				return
			}
			shifts = append(shifts, s)
		}
		if err := checkShifts(shifts); err != nil {
			h.respondError(c, err)
			return
		}
	}

	businessID := c.Param("businessId")
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := database.UpsertStaff(tx, businessID, staff); err != nil {
			return err
		}
		return database.UpsertShifts(tx, businessID, shifts)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.RecordUsage(c, len(shifts), len(staff))
	c.JSON(http.StatusOK, gin.H{
		"staff_imported":  len(staff),
		"shifts_imported": len(shifts),
	})
}

// csvRow maps header names to the values of one record
type csvRow map[string]string

func readCSV(fh *multipart.FileHeader) ([]csvRow, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, errors.New("failed to read header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["id"]; !ok {
		return nil, errors.New("missing id column")
	}

	var rows []csvRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(csvRow, len(cols))
		for name, i := range cols {
			if i < len(record) {
				row[name] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r csvRow) list(col string) []string {
	if r[col] == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(r[col], "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r csvRow) float(col string) (float64, error) {
	if r[col] == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(r[col], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", col, r[col])
	}
	return f, nil
}

func staffFromRow(r csvRow) (models.Staff, error) {
	s := models.Staff{
		ID:               r["id"],
		Name:             r["name"],
		Skills:           r.list("skills"),
		UnavailableDates: r.list("unavailable_dates"),
	}
	if s.ID == "" {
		return s, errors.New("id is required")
	}
	var err error
	if s.HourlyRate, err = r.float("hourly_rate"); err != nil {
		return s, err
	}
	if s.ReliabilityScore, err = r.float("reliability_score"); err != nil {
		return s, err
	}
	if s.WeeklyHours, err = r.float("weekly_hours"); err != nil {
		return s, err
	}
	if v := r["is_available"]; v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			return s, fmt.Errorf("invalid is_available %q", v)
		}
		s.IsAvailable = models.Bool(available)
	}
	return s, nil
}

func shiftFromRow(r csvRow) (models.Shift, error) {
	s := models.Shift{
		ID:            r["id"],
		Name:          r["name"],
		Date:          r["date"],
		StartTime:     r["start_time"],
		EndTime:       r["end_time"],
		RequiredSkill: r["required_skill"],
		TemplateID:    r["template_id"],
	}
	if s.ID == "" {
		return s, errors.New("id is required")
	}
	if v := r["required_staff_count"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return s, fmt.Errorf("invalid required_staff_count %q", v)
		}
		s.RequiredStaffCount = n
	}
	var err error
	if s.HourlyRate, err = r.float("hourly_rate"); err != nil {
		return s, err
	}
	return s, nil
}
