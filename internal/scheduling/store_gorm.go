package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"telecare-server/internal/models"
)

// Store is the MySQL-backed implementation of every scheduling collaborator:
// DoctorDirectory, AvailabilityStore, AppointmentStore, ReminderStore and
// Notifier. Reservation transactions rely on InnoDB row locks (SELECT ...
// FOR UPDATE) to serialize conflicting bookings; the gap lock taken on the
// (doctor_id, scheduled_at) index also fences concurrent inserts for a slot
// that has no row yet.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a gorm connection. InitDB must have been opened with
// TranslateError so duplicate-key failures surface as gorm.ErrDuplicatedKey.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DoctorByID implements DoctorDirectory.
func (s *Store) DoctorByID(ctx context.Context, id string) (*DoctorInfo, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Where("id = ? AND role = ?", id, models.RoleDoctor).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	info := &DoctorInfo{
		ID:       user.ID,
		Active:   user.IsActive,
		Verified: user.AdminVerificationStatus == models.VerificationVerified,
	}
	if user.Profile != nil {
		info.HasProfile = true
		info.FeeAmount = user.Profile.FeeAmount
		info.Specialization = user.Profile.Specialization
	}
	return info, nil
}

// WeeklyRows implements AvailabilityStore.
func (s *Store) WeeklyRows(ctx context.Context, doctorID string) ([]AvailabilityRow, error) {
	var rows []models.DoctorAvailability
	err := s.db.WithContext(ctx).
		Where("user_id = ?", doctorID).
		Order("day_of_week ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]AvailabilityRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, AvailabilityRow{
			DayOfWeek: r.DayOfWeek,
			Enabled:   r.Enabled,
			Start:     r.StartTime,
			End:       r.EndTime,
		})
	}
	return out, nil
}

// BookedTimes implements AppointmentStore.
func (s *Store) BookedTimes(ctx context.Context, doctorID, from, to string) ([]BookedSlot, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND status IN ? AND DATE(scheduled_at) BETWEEN ? AND ?",
			doctorID, models.BlockingStatuses, from, to).
		Find(&appts).Error
	if err != nil {
		return nil, err
	}

	slots := make([]BookedSlot, 0, len(appts))
	for _, a := range appts {
		slots = append(slots, BookedSlot{
			Date: a.ScheduledAt.Format("2006-01-02"),
			Time: a.ScheduledAt.Format("15:04"),
		})
	}
	return slots, nil
}

// Reserve implements AppointmentStore. fn runs inside one database
// transaction; returning an error rolls everything back.
func (s *Store) Reserve(ctx context.Context, fn func(ReservationTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&reservationTx{tx: tx})
	})
}

type reservationTx struct {
	tx *gorm.DB
}

func (r *reservationTx) ActivePatientBooking(doctorID, patientID, date string) (string, error) {
	var appt models.Appointment
	err := r.tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("patient_id = ? AND doctor_id = ? AND DATE(scheduled_at) = ? AND status IN ?",
			patientID, doctorID, date, models.BlockingStatuses).
		Order("scheduled_at DESC").
		First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return appt.ID, nil
}

func (r *reservationTx) SlotOccupied(doctorID string, at time.Time) (bool, error) {
	var appt models.Appointment
	err := r.tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("doctor_id = ? AND scheduled_at = ? AND status IN ?",
			doctorID, at, models.BlockingStatuses).
		First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *reservationTx) Insert(res *Reservation) error {
	appt := models.Appointment{
		PublicCode:  res.PublicCode,
		PatientID:   res.PatientID,
		DoctorID:    res.DoctorID,
		Specialty:   res.Specialty,
		ConsultType: models.ConsultType(res.ConsultType),
		Symptoms:    res.Symptoms,
		FeeAmount:   res.FeeAmount,
		ScheduledAt: res.ScheduledAt,
		DurationMin: res.DurationMin,
		Status:      models.StatusBooked,
	}
	if err := r.tx.Create(&appt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCode
		}
		return err
	}
	res.ID = appt.ID
	return nil
}

// DueAppointments implements ReminderStore.
func (s *Store) DueAppointments(ctx context.Context, from, to time.Time, limit int) ([]ReminderCandidate, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("status IN ? AND scheduled_at > ? AND scheduled_at < ?",
			[]models.AppointmentStatus{models.StatusBooked, models.StatusConfirmed}, from, to).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(appts))
	for _, a := range appts {
		ids = append(ids, a.ID)
	}
	var states []models.AppointmentReminderState
	if err := s.db.WithContext(ctx).Where("appointment_id IN ?", ids).Find(&states).Error; err != nil {
		return nil, err
	}
	stateByAppt := make(map[string]models.AppointmentReminderState, len(states))
	for _, st := range states {
		stateByAppt[st.AppointmentID] = st
	}

	out := make([]ReminderCandidate, 0, len(appts))
	for _, a := range appts {
		cand := ReminderCandidate{
			AppointmentID: a.ID,
			PatientID:     a.PatientID,
			DoctorID:      a.DoctorID,
			ConsultType:   string(a.ConsultType),
			ScheduledAt:   a.ScheduledAt,
		}
		if st, ok := stateByAppt[a.ID]; ok {
			cand.LastStage = st.LastStage
			cand.PatientNotifID = st.PatientNotifID
			cand.DoctorNotifID = st.DoctorNotifID
		}
		out = append(out, cand)
	}
	return out, nil
}

// Advance implements ReminderStore. fn runs inside one database transaction
// so the retire/notify/save writes of a stage advance commit or roll back
// together; a failure leaves the previous pair live and the stage unrecorded
// for the next run to retry.
func (s *Store) Advance(ctx context.Context, fn func(StageTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&stageTx{tx: tx})
	})
}

type stageTx struct {
	tx *gorm.DB
}

func (t *stageTx) Retire(notificationID string) error {
	return retireNotification(t.tx, notificationID)
}

func (t *stageTx) Notify(userID, title, body string, data map[string]any) (string, error) {
	return createNotification(t.tx, userID, title, body, data)
}

// SaveStage upserts the reminder state keyed on the appointment id.
func (t *stageTx) SaveStage(appointmentID, stage, patientNotifID, doctorNotifID string) error {
	state := models.AppointmentReminderState{
		AppointmentID:  appointmentID,
		LastStage:      stage,
		PatientNotifID: patientNotifID,
		DoctorNotifID:  doctorNotifID,
	}
	return t.tx.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "appointment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_stage", "patient_notif_id", "doctor_notif_id", "updated_at"}),
		}).
		Create(&state).Error
}

// Notify implements Notifier by inserting an in-app notification row.
func (s *Store) Notify(ctx context.Context, userID, title, body string, data map[string]any) (string, error) {
	return createNotification(s.db.WithContext(ctx), userID, title, body, data)
}

// Retire implements Notifier with a soft delete; ids that no longer exist
// are not an error.
func (s *Store) Retire(ctx context.Context, notificationID string) error {
	return retireNotification(s.db.WithContext(ctx), notificationID)
}

func createNotification(db *gorm.DB, userID, title, body string, data map[string]any) (string, error) {
	n := models.Notification{
		UserID: userID,
		Title:  title,
		Body:   body,
	}
	if len(data) > 0 {
		payload, err := json.Marshal(data)
		if err != nil {
			return "", fmt.Errorf("encode notification data: %w", err)
		}
		n.Data = datatypes.JSON(payload)
	}
	if err := db.Create(&n).Error; err != nil {
		return "", err
	}
	return n.ID, nil
}

func retireNotification(db *gorm.DB, notificationID string) error {
	return db.Delete(&models.Notification{}, "id = ?", notificationID).Error
}
