package reservation

import (
	"encoding/json"
	"errors"
	"github.com/skybi/reservation-console/internal/machine"
	"time"
)

// ErrInvalidReservation is returned whenever a reservation request violates its preconditions
var ErrInvalidReservation = errors.New("a reservation needs a count and duration of at least 1 and a non-empty password")

// Reservation represents an active reservation as reported by the backend.
// SecondsRemaining is a snapshot taken at FetchedAt and is never advanced locally.
type Reservation struct {
	ID               int64              `json:"id"`
	Username         string             `json:"username" required:"true"`
	Machine          string             `json:"machine" required:"true"`
	Host             string             `json:"host"`
	Port             int                `json:"port"`
	ReservedUntil    *machine.Timestamp `json:"reserved_until"`
	SecondsRemaining *int64             `json:"seconds_remaining"`
	FetchedAt        time.Time          `json:"fetched_at"`
}

// UnmarshalJSON implements json.Unmarshaler; the backend reports the ID as 'reservation_id'
func (reservation *Reservation) UnmarshalJSON(data []byte) error {
	type plain Reservation
	var raw struct {
		plain
		ReservationID *int64 `json:"reservation_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*reservation = Reservation(raw.plain)
	if raw.ReservationID != nil {
		reservation.ID = *raw.ReservationID
	}
	return nil
}

// Request describes a reservation attempt
type Request struct {
	Count           int
	DurationMinutes int
	Password        string

	// Username defaults to the identity of the session if empty
	Username string
}

// Validate checks the local preconditions of the request
func (request *Request) Validate() error {
	if request.Count < 1 || request.DurationMinutes < 1 || request.Password == "" {
		return ErrInvalidReservation
	}
	return nil
}

type listResponse struct {
	Reservations []*Reservation `json:"reservations" required:"true"`
}
