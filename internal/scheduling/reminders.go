package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Stage is one reminder bucket: fire when minutes-to-start falls inside
// [Minutes-Window, Minutes+Window].
type Stage struct {
	Key     string
	Minutes int
	Window  int
}

// ReminderStages is the default stage table, ordered farthest-to-nearest.
// The scan takes the first matching stage, so when tolerance windows overlap
// the farther stage wins; editing the offsets without re-deriving the windows
// changes that tie-break.
var ReminderStages = []Stage{
	{Key: "2D", Minutes: 2880, Window: 30},
	{Key: "1D", Minutes: 1440, Window: 20},
	{Key: "14H", Minutes: 840, Window: 15},
	{Key: "5H", Minutes: 300, Window: 10},
	{Key: "1H", Minutes: 60, Window: 5},
	{Key: "30M", Minutes: 30, Window: 3},
	{Key: "10M", Minutes: 10, Window: 2},
	{Key: "5M", Minutes: 5, Window: 2},
	{Key: "1M", Minutes: 1, Window: 1},
}

// StageDue returns the first stage whose tolerance window contains
// minutesLeft, scanning stages in the order given (farthest-first).
func StageDue(stages []Stage, minutesLeft int) (Stage, bool) {
	for _, s := range stages {
		if minutesLeft >= s.Minutes-s.Window && minutesLeft <= s.Minutes+s.Window {
			return s, true
		}
	}
	return Stage{}, false
}

func stageLabel(key string) string {
	switch key {
	case "2D":
		return "in 2 days"
	case "1D":
		return "in 1 day"
	case "14H":
		return "in 14 hours"
	case "5H":
		return "in 5 hours"
	case "1H":
		return "in 1 hour"
	case "30M":
		return "in 30 minutes"
	case "10M":
		return "in 10 minutes"
	case "5M":
		return "in 5 minutes"
	case "1M":
		return "in 1 minute"
	default:
		return "soon"
	}
}

// ReminderReport is one run's counters.
type ReminderReport struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
}

// ReminderEngine walks near-future active appointments and advances each
// one's reminder stage, replacing the previous stage's notifications instead
// of stacking new ones. Each advance is one store transaction, so a failed
// step leaves no half-written notification pair behind. Safe to invoke
// redundantly: a stage already recorded in the reminder state is never
// re-sent.
type ReminderEngine struct {
	store  ReminderStore
	clock  Clock
	stages []Stage
	limit  int
	log    zerolog.Logger
}

const (
	// reminderHorizon bounds how far ahead a run looks.
	reminderHorizon = 3 * 24 * time.Hour
	// reminderGrace keeps just-started appointments in scope briefly.
	reminderGrace = 10 * time.Minute
	// pastSkipMinutes drops appointments that started more than a few
	// minutes ago without touching their state.
	pastSkipMinutes = -5
	// defaultBatchLimit caps the rows one run processes.
	defaultBatchLimit = 500
)

// NewReminderEngine wires an engine with its collaborators and the default
// stage table.
func NewReminderEngine(store ReminderStore, clock Clock, log zerolog.Logger) *ReminderEngine {
	return &ReminderEngine{
		store:  store,
		clock:  clock,
		stages: ReminderStages,
		limit:  defaultBatchLimit,
		log:    log,
	}
}

// RunOnce performs one reminder sweep. A single appointment's failure is
// logged and left for the next run; it never aborts the batch.
func (e *ReminderEngine) RunOnce(ctx context.Context) (ReminderReport, error) {
	now := e.clock.Now()

	candidates, err := e.store.DueAppointments(ctx, now.Add(-reminderGrace), now.Add(reminderHorizon), e.limit)
	if err != nil {
		return ReminderReport{}, fmt.Errorf("load due appointments: %w", err)
	}

	report := ReminderReport{Processed: len(candidates)}

	for _, cand := range candidates {
		minutesLeft := int(cand.ScheduledAt.Sub(now).Minutes())

		if minutesLeft < pastSkipMinutes {
			report.Skipped++
			continue
		}

		stage, due := StageDue(e.stages, minutesLeft)
		if !due {
			report.Skipped++
			continue
		}
		if cand.LastStage == stage.Key {
			report.Skipped++
			continue
		}

		if err := e.advance(ctx, cand, stage); err != nil {
			e.log.Warn().Err(err).
				Str("appointment_id", cand.AppointmentID).
				Str("stage", stage.Key).
				Msg("reminder stage advance failed; will retry next run")
			continue
		}
		report.Sent++
		report.Updated++
	}

	return report, nil
}

// advance replaces the previous stage's notifications with this stage's and
// records the new stage, all inside one store transaction. Any failure rolls
// the whole step back, so the next run sees the previous state intact and
// retries cleanly.
func (e *ReminderEngine) advance(ctx context.Context, cand ReminderCandidate, stage Stage) error {
	when := cand.ScheduledAt.Format("2006-01-02 15:04")
	inTxt := stageLabel(stage.Key)

	data := map[string]any{
		"type":           "APPOINTMENT_REMINDER",
		"appointment_id": cand.AppointmentID,
		"stage":          stage.Key,
		"scheduled_at":   when,
		"consult_type":   cand.ConsultType,
	}
	patientBody := fmt.Sprintf("Your %s consultation is %s (%s).", cand.ConsultType, inTxt, when)
	doctorBody := fmt.Sprintf("You have a %s consultation %s (%s).", cand.ConsultType, inTxt, when)

	return e.store.Advance(ctx, func(tx StageTx) error {
		if cand.PatientNotifID != "" {
			if err := tx.Retire(cand.PatientNotifID); err != nil {
				return fmt.Errorf("retire patient reminder: %w", err)
			}
		}
		if cand.DoctorNotifID != "" {
			if err := tx.Retire(cand.DoctorNotifID); err != nil {
				return fmt.Errorf("retire doctor reminder: %w", err)
			}
		}

		patientNotifID, err := tx.Notify(cand.PatientID, "Appointment reminder", patientBody, data)
		if err != nil {
			return fmt.Errorf("notify patient: %w", err)
		}
		doctorNotifID, err := tx.Notify(cand.DoctorID, "Appointment reminder", doctorBody, data)
		if err != nil {
			return fmt.Errorf("notify doctor: %w", err)
		}

		if err := tx.SaveStage(cand.AppointmentID, stage.Key, patientNotifID, doctorNotifID); err != nil {
			return fmt.Errorf("save reminder state: %w", err)
		}
		return nil
	})
}
