package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"telecare-server/internal/middleware"
	"telecare-server/internal/models"
	"telecare-server/internal/scheduling"
	"telecare-server/internal/utils"
)

// AppointmentHandler wires the scheduling core to the HTTP surface.
type AppointmentHandler struct {
	DB          *gorm.DB
	Resolver    *scheduling.SlotResolver
	Coordinator *scheduling.BookingCoordinator
	Notifier    scheduling.Notifier
	DaysAhead   int
	Log         zerolog.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, resolver *scheduling.SlotResolver, coordinator *scheduling.BookingCoordinator, notifier scheduling.Notifier, daysAhead int, log zerolog.Logger) *AppointmentHandler {
	if daysAhead <= 0 {
		daysAhead = 7
	}
	return &AppointmentHandler{
		DB:          db,
		Resolver:    resolver,
		Coordinator: coordinator,
		Notifier:    notifier,
		DaysAhead:   daysAhead,
		Log:         log,
	}
}

// GetDoctorSlots returns the bookable slot calendar for one doctor.
// ?days= overrides the configured horizon; the resolver clamps it.
func (h *AppointmentHandler) GetDoctorSlots(c *gin.Context) {
	doctorID := c.Param("id")

	days := h.DaysAhead
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.BadRequest(c, "days must be a number")
			return
		}
		days = parsed
	}

	daysOut, err := h.Resolver.Resolve(c.Request.Context(), doctorID, days)
	if err != nil {
		h.failScheduling(c, err)
		return
	}

	utils.Success(c, gin.H{"days": daysOut})
}

// BookAppointmentRequest is the booking payload a patient submits.
type BookAppointmentRequest struct {
	DoctorID    string  `json:"doctorId" binding:"required"`
	Specialty   string  `json:"specialty" binding:"required"`
	ConsultType string  `json:"consultType" binding:"required"`
	Date        string  `json:"date" binding:"required"`
	Time        string  `json:"time" binding:"required"`
	Symptoms    *string `json:"symptoms"`
}

// BookAppointment reserves a slot for the authenticated patient.
func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	patientID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req BookAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	result, err := h.Coordinator.Book(c.Request.Context(), scheduling.BookingRequest{
		PatientID:    patientID,
		DoctorID:     req.DoctorID,
		SpecialtyKey: req.Specialty,
		ConsultType:  req.ConsultType,
		Date:         req.Date,
		Time:         req.Time,
		Symptoms:     req.Symptoms,
	})
	if err != nil {
		h.failScheduling(c, err)
		return
	}

	utils.Created(c, result)
}

// AppointmentListing is one row in a patient's or doctor's appointment list.
type AppointmentListing struct {
	ID           string                   `json:"id"`
	PublicCode   string                   `json:"publicCode"`
	ScheduledAt  string                   `json:"scheduledAt"`
	Specialty    string                   `json:"specialty"`
	ConsultType  models.ConsultType       `json:"consultType"`
	Status       models.AppointmentStatus `json:"status"`
	FeeAmount    int                      `json:"feeAmount"`
	DurationMin  int                      `json:"durationMin"`
	Symptoms     *string                  `json:"symptoms,omitempty"`
	WithUserID   string                   `json:"withUserId"`
	WithUserName string                   `json:"withUserName"`
}

// GetAppointments lists the authenticated user's appointments, newest first.
// Patients see their bookings, doctors their schedule. ?status= filters.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	role, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Patient").Preload("Doctor").Order("scheduled_at DESC")
	if role == models.RoleDoctor {
		query = query.Where("doctor_id = ?", userID)
	} else {
		query = query.Where("patient_id = ?", userID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	listings := make([]AppointmentListing, len(appointments))
	for i, a := range appointments {
		counterpart := a.Doctor
		if role == models.RoleDoctor {
			counterpart = a.Patient
		}
		listings[i] = AppointmentListing{
			ID:           a.ID,
			PublicCode:   a.PublicCode,
			ScheduledAt:  a.ScheduledAt.Format("2006-01-02 15:04"),
			Specialty:    a.Specialty,
			ConsultType:  a.ConsultType,
			Status:       a.Status,
			FeeAmount:    a.FeeAmount,
			DurationMin:  a.DurationMin,
			Symptoms:     a.Symptoms,
			WithUserID:   counterpart.ID,
			WithUserName: counterpart.FirstName + " " + counterpart.LastName,
		}
	}

	utils.Success(c, listings)
}

// GetAppointmentByID returns one appointment the caller is party to.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appointment, ok := h.loadOwned(c, c.Param("id"), userID)
	if !ok {
		return
	}
	utils.Success(c, appointment)
}

// statusTransitions maps each requestable status to the set of statuses it
// may be entered from. Who may request which status is enforced separately.
var statusTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusConfirmed:  {models.StatusBooked},
	models.StatusInProgress: {models.StatusBooked, models.StatusConfirmed},
	models.StatusCompleted:  {models.StatusBooked, models.StatusConfirmed, models.StatusInProgress},
	models.StatusNoShow:     {models.StatusBooked, models.StatusConfirmed, models.StatusInProgress},
	models.StatusCancelled:  {models.StatusBooked, models.StatusConfirmed},
}

// doctorStatuses are the transitions only the doctor may request.
var doctorStatuses = map[models.AppointmentStatus]bool{
	models.StatusConfirmed:  true,
	models.StatusInProgress: true,
	models.StatusCompleted:  true,
	models.StatusNoShow:     true,
}

// UpdateStatusRequest carries the requested appointment status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=CONFIRMED IN_PROGRESS COMPLETED NO_SHOW CANCELLED"`
}

// UpdateStatus moves an appointment through its lifecycle. Doctors confirm,
// start, complete or mark no-shows; either party may cancel while the
// appointment is still upcoming. Cancelling frees the slot.
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	role, _ := middleware.GetUserRoleFromContext(c)

	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	target := models.AppointmentStatus(req.Status)

	appointment, ok := h.loadOwned(c, c.Param("id"), userID)
	if !ok {
		return
	}

	if doctorStatuses[target] && (role != models.RoleDoctor || appointment.DoctorID != userID) {
		utils.Forbidden(c, "Only the doctor can set this status")
		return
	}

	allowedFrom := statusTransitions[target]
	permitted := false
	for _, from := range allowedFrom {
		if appointment.Status == from {
			permitted = true
			break
		}
	}
	if !permitted {
		utils.Conflict(c, "INVALID_TRANSITION",
			fmt.Sprintf("Cannot move appointment from %s to %s", appointment.Status, target))
		return
	}

	previous := appointment.Status
	appointment.Status = target
	if err := h.DB.Save(appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
		return
	}

	h.notifyStatusChange(c, appointment, previous, userID)

	utils.Success(c, appointment)
}

// notifyStatusChange tells the counterpart about a status change. Failures
// are logged and swallowed; the status update already committed.
func (h *AppointmentHandler) notifyStatusChange(c *gin.Context, a *models.Appointment, previous models.AppointmentStatus, actorID string) {
	counterpartID := a.DoctorID
	if actorID == a.DoctorID {
		counterpartID = a.PatientID
	}

	title := "Appointment update"
	body := fmt.Sprintf("Appointment %s is now %s.", a.PublicCode, a.Status)
	if a.Status == models.StatusCancelled {
		title = "Appointment cancelled"
		body = fmt.Sprintf("Appointment %s on %s was cancelled.", a.PublicCode, a.ScheduledAt.Format("2006-01-02 15:04"))
	}

	_, err := h.Notifier.Notify(c.Request.Context(), counterpartID, title, body, map[string]any{
		"type":       "appointment_status",
		"bookingId":  a.ID,
		"status":     string(a.Status),
		"previously": string(previous),
	})
	if err != nil {
		h.Log.Warn().Err(err).Str("appointment_id", a.ID).Msg("status change notification failed")
	}
}

// loadOwned fetches an appointment and verifies the caller is a party to it.
func (h *AppointmentHandler) loadOwned(c *gin.Context, id, userID string) (*models.Appointment, bool) {
	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	if appointment.PatientID != userID && appointment.DoctorID != userID {
		utils.Forbidden(c, "Not your appointment")
		return nil, false
	}
	return &appointment, true
}

// failScheduling translates a scheduling core error into the API envelope.
func (h *AppointmentHandler) failScheduling(c *gin.Context, err error) {
	if se, ok := scheduling.AsError(err); ok {
		if se.Code == scheduling.CodeAlreadyBookedToday && se.BookingID != "" {
			utils.FailWithData(c, se.HTTPStatus(), string(se.Code), se.Message, gin.H{"bookingId": se.BookingID})
			return
		}
		utils.Fail(c, se.HTTPStatus(), string(se.Code), se.Message)
		return
	}
	h.Log.Error().Err(err).Msg("scheduling failure")
	utils.InternalServerError(c, "Internal error")
}
