package scheduling

import (
	"errors"
	"net/http"
)

// Code classifies a scheduling failure for API clients.
type Code string

const (
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeDoctorNotFound      Code = "DOCTOR_NOT_FOUND"
	CodeDoctorUnavailable   Code = "DOCTOR_UNAVAILABLE"
	CodeOutsideAvailability Code = "OUTSIDE_AVAILABILITY"
	CodeTimePassed          Code = "TIME_PASSED"
	CodeAlreadyBookedToday  Code = "ALREADY_BOOKED_TODAY"
	CodeSlotTaken           Code = "SLOT_TAKEN"
)

// Error is a typed scheduling failure. BookingID is set on
// ALREADY_BOOKED_TODAY conflicts so clients can surface the existing booking.
type Error struct {
	Code      Code
	Message   string
	BookingID string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// HTTPStatus maps the error code to the status the API surfaces.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeDoctorNotFound:
		return http.StatusNotFound
	case CodeDoctorUnavailable:
		return http.StatusForbidden
	case CodeAlreadyBookedToday, CodeSlotTaken:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// AsError unwraps err into a *Error when it carries one.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ErrDuplicateCode is returned by ReservationTx.Insert when the generated
// public code is already taken; the coordinator regenerates and retries.
var ErrDuplicateCode = errors.New("public code already in use")
