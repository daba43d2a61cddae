package reservation

import (
	"context"
	"fmt"
	"github.com/rs/zerolog/log"
	"github.com/skybi/reservation-console/internal/gateway"
	"github.com/skybi/reservation-console/internal/machine"
	"github.com/skybi/reservation-console/internal/session"
	"github.com/skybi/reservation-console/internal/view"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// MessageReleased is displayed after all reservations were released
	MessageReleased = "All reservations released."
)

// MessageReserved builds the message displayed after a successful reservation
func MessageReserved(count int) string {
	return fmt.Sprintf("Reserved %d machine(s).", count)
}

// Orchestrator translates pool and reservation intents into backend calls and keeps the resulting view models.
// Every mutation is followed by a re-fetch of the affected list; nothing is patched locally.
type Orchestrator struct {
	caller      gateway.Caller
	credentials session.Holder
	scope       *view.Scope

	availability *view.Model[*machine.Availability]
	machines     *view.Model[[]*machine.Machine]
	reservations *view.Model[[]*Reservation]
}

// New creates a new orchestrator performing its calls on behalf of the given credentials
func New(caller gateway.Caller, credentials session.Holder) *Orchestrator {
	return &Orchestrator{
		caller:       caller,
		credentials:  credentials,
		scope:        view.NewScope(),
		availability: view.NewModel[*machine.Availability](),
		machines:     view.NewModel[[]*machine.Machine](),
		reservations: view.NewModel[[]*Reservation](),
	}
}

// Close cancels every in-flight call and discards their results
func (orchestrator *Orchestrator) Close() {
	orchestrator.scope.Close()
	orchestrator.availability.Invalidate()
	orchestrator.machines.Invalidate()
	orchestrator.reservations.Invalidate()
}

// Availability returns the pool overview view model
func (orchestrator *Orchestrator) Availability() view.Snapshot[*machine.Availability] {
	return orchestrator.availability.Snapshot()
}

// Machines returns the machine inventory view model
func (orchestrator *Orchestrator) Machines() view.Snapshot[[]*machine.Machine] {
	return orchestrator.machines.Snapshot()
}

// Reservations returns the active reservations view model
func (orchestrator *Orchestrator) Reservations() view.Snapshot[[]*Reservation] {
	return orchestrator.reservations.Snapshot()
}

func (orchestrator *Orchestrator) call(ctx context.Context, request *gateway.Request, target any) error {
	ctx, done, err := orchestrator.scope.Bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	request.Credential = orchestrator.credentials.State().Token
	return orchestrator.caller.Call(ctx, request, target)
}

// ListAvailability fetches the names of the free and reserved machines
func (orchestrator *Orchestrator) ListAvailability(ctx context.Context) (*machine.Availability, error) {
	generation := orchestrator.availability.Begin()
	availability := new(machine.Availability)
	err := orchestrator.call(ctx, &gateway.Request{Method: http.MethodGet, Path: "/available"}, availability)
	if err != nil {
		orchestrator.availability.Fail(generation, err)
		return nil, err
	}
	if availability.Available == nil {
		availability.Available = []string{}
	}
	if availability.Reserved == nil {
		availability.Reserved = []string{}
	}
	orchestrator.availability.Resolve(generation, availability)
	return availability, nil
}

// ListMachines fetches the machine inventory
func (orchestrator *Orchestrator) ListMachines(ctx context.Context) ([]*machine.Machine, error) {
	generation := orchestrator.machines.Begin()
	var machines []*machine.Machine
	err := orchestrator.call(ctx, &gateway.Request{Method: http.MethodGet, Path: "/machines"}, &machines)
	if err != nil {
		orchestrator.machines.Fail(generation, err)
		return nil, err
	}
	if machines == nil {
		machines = []*machine.Machine{}
	}
	orchestrator.machines.Resolve(generation, machines)
	return machines, nil
}

// CreateMachine registers a new machine and re-fetches the inventory
func (orchestrator *Orchestrator) CreateMachine(ctx context.Context, create *machine.Create) error {
	return orchestrator.mutateMachines(ctx, &gateway.Request{
		Method: http.MethodPost,
		Path:   "/machines",
		Body:   create,
	})
}

// DeleteMachine removes a machine and re-fetches the inventory
func (orchestrator *Orchestrator) DeleteMachine(ctx context.Context, name string) error {
	return orchestrator.mutateMachines(ctx, &gateway.Request{
		Method: http.MethodDelete,
		Path:   "/machines/" + gateway.PathEscape(name),
	})
}

func (orchestrator *Orchestrator) mutateMachines(ctx context.Context, request *gateway.Request) error {
	orchestrator.machines.Clear()
	if err := orchestrator.call(ctx, request, nil); err != nil {
		orchestrator.machines.Reject(err)
		return err
	}
	if _, err := orchestrator.ListMachines(ctx); err != nil {
		log.Warn().Err(err).Msg("could not refresh the machine inventory after a mutation")
	}
	return nil
}

// ListReservations fetches the active reservations
func (orchestrator *Orchestrator) ListReservations(ctx context.Context) ([]*Reservation, error) {
	generation := orchestrator.reservations.Begin()
	response := new(listResponse)
	err := orchestrator.call(ctx, &gateway.Request{Method: http.MethodGet, Path: "/reservations"}, response)
	if err != nil {
		orchestrator.reservations.Fail(generation, err)
		return nil, err
	}

	fetchedAt := time.Now()
	reservations := response.Reservations
	if reservations == nil {
		reservations = []*Reservation{}
	}
	for _, reservation := range reservations {
		reservation.FetchedAt = fetchedAt
	}
	orchestrator.reservations.Resolve(generation, reservations)
	return reservations, nil
}

// Reserve requests machines and re-fetches the active reservations.
// The preconditions are checked before any call is made.
func (orchestrator *Orchestrator) Reserve(ctx context.Context, request *Request) error {
	if err := request.Validate(); err != nil {
		return err
	}

	username := request.Username
	if username == "" {
		username = orchestrator.credentials.State().Identity
	}
	query := url.Values{}
	query.Set("count", strconv.Itoa(request.Count))
	query.Set("duration", strconv.Itoa(request.DurationMinutes))
	if username != "" {
		query.Set("username", username)
	}
	query.Set("reservation_password", request.Password)

	orchestrator.reservations.Clear()
	err := orchestrator.call(ctx, &gateway.Request{
		Method:   http.MethodGet,
		Path:     "/reserve",
		Query:    query,
		Mutating: true,
	}, nil)
	if err != nil {
		orchestrator.reservations.Reject(err)
		return err
	}

	orchestrator.reservations.Notice(MessageReserved(request.Count))
	orchestrator.refreshReservations(ctx)
	return nil
}

// ReleaseAll releases the reservations the backend lets the session release and re-fetches the active reservations
func (orchestrator *Orchestrator) ReleaseAll(ctx context.Context) error {
	orchestrator.reservations.Clear()
	err := orchestrator.call(ctx, &gateway.Request{
		Method:   http.MethodGet,
		Path:     "/release_all",
		Mutating: true,
	}, nil)
	if err != nil {
		orchestrator.reservations.Reject(err)
		return err
	}

	orchestrator.reservations.Notice(MessageReleased)
	orchestrator.refreshReservations(ctx)
	return nil
}

func (orchestrator *Orchestrator) refreshReservations(ctx context.Context) {
	if _, err := orchestrator.ListReservations(ctx); err != nil {
		log.Warn().Err(err).Msg("could not refresh the reservations after a mutation")
	}
}
