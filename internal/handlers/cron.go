package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"telecare-server/internal/scheduling"
	"telecare-server/internal/utils"
)

// CronHandler exposes scheduled jobs as HTTP endpoints for an external
// cron runner.
type CronHandler struct {
	Reminders *scheduling.ReminderEngine
	Log       zerolog.Logger
}

// NewCronHandler creates a new CronHandler.
func NewCronHandler(reminders *scheduling.ReminderEngine, log zerolog.Logger) *CronHandler {
	return &CronHandler{Reminders: reminders, Log: log}
}

// RunReminders executes one reminder sweep and reports the counts.
func (h *CronHandler) RunReminders(c *gin.Context) {
	report, err := h.Reminders.RunOnce(c.Request.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("reminder sweep failed")
		utils.InternalServerError(c, "Reminder sweep failed: "+err.Error())
		return
	}

	utils.Success(c, report)
}
