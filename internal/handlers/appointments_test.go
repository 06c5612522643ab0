package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"telecare-server/internal/models"
	"telecare-server/internal/scheduling"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

type stubDirectory struct {
	doctors map[string]*scheduling.DoctorInfo
}

func (s *stubDirectory) DoctorByID(_ context.Context, id string) (*scheduling.DoctorInfo, error) {
	return s.doctors[id], nil
}

type stubAvailability struct {
	rows []scheduling.AvailabilityRow
}

func (s *stubAvailability) WeeklyRows(_ context.Context, _ string) ([]scheduling.AvailabilityRow, error) {
	return s.rows, nil
}

type stubReservationTx struct {
	existingBooking string
	occupied        bool
}

func (s *stubReservationTx) ActivePatientBooking(_, _, _ string) (string, error) {
	return s.existingBooking, nil
}

func (s *stubReservationTx) SlotOccupied(_ string, _ time.Time) (bool, error) {
	return s.occupied, nil
}

func (s *stubReservationTx) Insert(res *scheduling.Reservation) error {
	res.ID = "appt-new"
	return nil
}

type stubAppointments struct {
	booked []scheduling.BookedSlot
	tx     stubReservationTx
}

func (s *stubAppointments) BookedTimes(_ context.Context, _, _, _ string) ([]scheduling.BookedSlot, error) {
	return s.booked, nil
}

func (s *stubAppointments) Reserve(_ context.Context, fn func(scheduling.ReservationTx) error) error {
	return fn(&s.tx)
}

type stubNotifier struct{ sent int }

func (s *stubNotifier) Notify(_ context.Context, _, _, _ string, _ map[string]any) (string, error) {
	s.sent++
	return "notif-1", nil
}

func (s *stubNotifier) Retire(_ context.Context, _ string) error { return nil }

// Monday 08:00 local.
var handlerNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newTestRouter(dir *stubDirectory, appts *stubAppointments) *gin.Engine {
	gin.SetMode(gin.TestMode)
	clock := fixedClock{t: handlerNow}
	av := &stubAvailability{}
	notifier := &stubNotifier{}
	log := zerolog.Nop()

	resolver := scheduling.NewSlotResolver(dir, av, appts, clock, 30)
	coordinator := scheduling.NewBookingCoordinator(dir, av, appts, notifier, clock, 30, log)
	h := NewAppointmentHandler(nil, resolver, coordinator, notifier, 7, log)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "p1")
		c.Set("userRole", models.RolePatient)
	})
	r.GET("/doctors/:id/slots", h.GetDoctorSlots)
	r.POST("/appointments", h.BookAppointment)
	return r
}

func verifiedDirectory() *stubDirectory {
	return &stubDirectory{doctors: map[string]*scheduling.DoctorInfo{
		"d1": {ID: "d1", Active: true, Verified: true, HasProfile: true, FeeAmount: 500, Specialization: "cardiology"},
	}}
}

type envelope struct {
	OK    bool           `json:"ok"`
	Data  map[string]any `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return env
}

func TestGetDoctorSlotsUnknownDoctor(t *testing.T) {
	r := newTestRouter(&stubDirectory{doctors: map[string]*scheduling.DoctorInfo{}}, &stubAppointments{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/doctors/ghost/slots", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	env := decodeEnvelope(t, w)
	if env.OK || env.Error == nil || env.Error.Code != "DOCTOR_NOT_FOUND" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestGetDoctorSlotsReturnsCalendar(t *testing.T) {
	r := newTestRouter(verifiedDirectory(), &stubAppointments{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/doctors/d1/slots?days=3", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	days, ok := env.Data["days"].([]any)
	if !ok || len(days) != 3 {
		t.Fatalf("expected 3 days, got %v", env.Data["days"])
	}
}

func TestGetDoctorSlotsRejectsBadDaysParam(t *testing.T) {
	r := newTestRouter(verifiedDirectory(), &stubAppointments{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/doctors/d1/slots?days=soon", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func bookingBody() *strings.Reader {
	return strings.NewReader(`{
		"doctorId": "d1",
		"specialty": "cardiology",
		"consultType": "VIDEO",
		"date": "2025-03-10",
		"time": "14:00"
	}`)
}

func TestBookAppointmentSuccess(t *testing.T) {
	r := newTestRouter(verifiedDirectory(), &stubAppointments{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/appointments", bookingBody())
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if !env.OK {
		t.Fatalf("expected ok envelope, got %s", w.Body.String())
	}
	if env.Data["bookingId"] != "appt-new" {
		t.Fatalf("bookingId = %v, want appt-new", env.Data["bookingId"])
	}
	if env.Data["fee_amount"] != float64(500) {
		t.Fatalf("fee_amount = %v, want 500", env.Data["fee_amount"])
	}
}

func TestBookAppointmentConflictCarriesExistingBooking(t *testing.T) {
	appts := &stubAppointments{tx: stubReservationTx{existingBooking: "appt-old"}}
	r := newTestRouter(verifiedDirectory(), appts)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/appointments", bookingBody())
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusConflict, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if env.Error == nil || env.Error.Code != "ALREADY_BOOKED_TODAY" {
		t.Fatalf("unexpected error: %+v", env.Error)
	}
	if env.Data["bookingId"] != "appt-old" {
		t.Fatalf("bookingId = %v, want appt-old", env.Data["bookingId"])
	}
}

func TestBookAppointmentSlotTaken(t *testing.T) {
	appts := &stubAppointments{tx: stubReservationTx{occupied: true}}
	r := newTestRouter(verifiedDirectory(), appts)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/appointments", bookingBody())
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	env := decodeEnvelope(t, w)
	if env.Error == nil || env.Error.Code != "SLOT_TAKEN" {
		t.Fatalf("unexpected error: %+v", env.Error)
	}
}
