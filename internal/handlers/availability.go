package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"telecare-server/internal/middleware"
	"telecare-server/internal/models"
	"telecare-server/internal/scheduling"
	"telecare-server/internal/utils"
)

// AvailabilityHandler manages a doctor's recurring weekly schedule.
type AvailabilityHandler struct {
	DB *gorm.DB
}

// NewAvailabilityHandler creates a new AvailabilityHandler.
func NewAvailabilityHandler(db *gorm.DB) *AvailabilityHandler {
	return &AvailabilityHandler{DB: db}
}

// AvailabilityDay is one weekday's window as exchanged with clients.
type AvailabilityDay struct {
	DayOfWeek int    `json:"dayOfWeek" binding:"required,min=1,max=7"`
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
}

// GetAvailability returns the authenticated doctor's weekly schedule. A
// doctor who never saved one gets the default week, Monday to Friday
// 09:00-17:00.
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	doctorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var rows []models.DoctorAvailability
	if err := h.DB.Where("user_id = ?", doctorID).Order("day_of_week").Find(&rows).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
		return
	}

	if len(rows) == 0 {
		defaults := make([]AvailabilityDay, 0, 7)
		for d := 1; d <= 7; d++ {
			defaults = append(defaults, AvailabilityDay{
				DayOfWeek: d,
				Enabled:   d <= 5,
				StartTime: "09:00",
				EndTime:   "17:00",
			})
		}
		utils.Success(c, defaults)
		return
	}

	days := make([]AvailabilityDay, len(rows))
	for i, r := range rows {
		days[i] = AvailabilityDay{
			DayOfWeek: r.DayOfWeek,
			Enabled:   r.Enabled,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
		}
	}
	utils.Success(c, days)
}

// SaveAvailabilityRequest replaces the whole week in one call.
type SaveAvailabilityRequest struct {
	Days []AvailabilityDay `json:"days" binding:"required"`
}

// SaveAvailability atomically replaces the doctor's weekly schedule. End
// before start is a valid overnight shift; an enabled day with identical
// start and end is rejected because it can never produce a slot.
func (h *AvailabilityHandler) SaveAvailability(c *gin.Context) {
	doctorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req SaveAvailabilityRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if len(req.Days) == 0 || len(req.Days) > 7 {
		utils.BadRequest(c, "Expected between 1 and 7 day entries")
		return
	}

	seen := map[int]bool{}
	for _, d := range req.Days {
		if seen[d.DayOfWeek] {
			utils.BadRequest(c, fmt.Sprintf("Duplicate entry for day %d", d.DayOfWeek))
			return
		}
		seen[d.DayOfWeek] = true

		start, okS := scheduling.ParseClock(d.StartTime)
		end, okE := scheduling.ParseClock(d.EndTime)
		if !okS || !okE {
			utils.BadRequest(c, fmt.Sprintf("Day %d has a malformed time, expected HH:MM", d.DayOfWeek))
			return
		}
		if d.Enabled && start == end {
			utils.UnprocessableEntity(c, fmt.Sprintf("Day %d start and end are identical", d.DayOfWeek))
			return
		}
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", doctorID).Delete(&models.DoctorAvailability{}).Error; err != nil {
			return err
		}
		for _, d := range req.Days {
			start, _ := scheduling.ParseClock(d.StartTime)
			end, _ := scheduling.ParseClock(d.EndTime)
			row := models.DoctorAvailability{
				UserID:    doctorID,
				DayOfWeek: d.DayOfWeek,
				Enabled:   d.Enabled,
				StartTime: scheduling.FormatClock(start),
				EndTime:   scheduling.FormatClock(end),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to save availability: "+err.Error())
		return
	}

	utils.Success(c, gin.H{"saved": len(req.Days)})
}
