package reservation_test

import (
	"context"
	"errors"
	"github.com/skybi/reservation-console/internal/backendtest"
	"github.com/skybi/reservation-console/internal/gateway"
	"github.com/skybi/reservation-console/internal/machine"
	"github.com/skybi/reservation-console/internal/reservation"
	"github.com/skybi/reservation-console/internal/session"
	"github.com/skybi/reservation-console/internal/session/storage/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"testing"
	"time"
)

func setup(t *testing.T, username, password string) (*backendtest.Backend, *reservation.Orchestrator) {
	backend := backendtest.New(t)
	backend.AddUser("alice", "secret", false)
	backend.AddUser("bob", "hunter2", false)
	backend.AddUser("root", "toor", true)
	for _, name := range []string{"m1", "m2", "m3", "m4"} {
		backend.AddMachine(name, "10.0.0."+name[1:], 22)
	}
	return backend, login(t, backend, username, password)
}

func login(t *testing.T, backend *backendtest.Backend, username, password string) *reservation.Orchestrator {
	storage, err := inmem.New(time.Hour)
	require.NoError(t, err)
	caller := gateway.New(backend.URL())
	store := session.NewStore(caller, storage, username)
	require.True(t, store.Login(context.Background(), username, password))

	orchestrator := reservation.New(caller, store)
	t.Cleanup(orchestrator.Close)
	return orchestrator
}

func reservationOwners(reservations []*reservation.Reservation) map[string]int {
	owners := make(map[string]int)
	for _, item := range reservations {
		owners[item.Username]++
	}
	return owners
}

func TestReserve_ListReflectsReservation(t *testing.T) {
	_, orchestrator := setup(t, "alice", "secret")
	ctx := context.Background()

	err := orchestrator.Reserve(ctx, &reservation.Request{Count: 2, DurationMinutes: 60, Password: "x"})
	require.NoError(t, err)

	snapshot := orchestrator.Reservations()
	assert.Equal(t, "Reserved 2 machine(s).", snapshot.Message)
	assert.Empty(t, snapshot.Error)
	require.Len(t, snapshot.Value, 2)
	for _, item := range snapshot.Value {
		assert.Equal(t, "alice", item.Username)
		assert.NotZero(t, item.ID)
		require.NotNil(t, item.SecondsRemaining)
		assert.InDelta(t, 3600, *item.SecondsRemaining, 5)
		assert.False(t, item.FetchedAt.IsZero())
	}

	listed, err := orchestrator.ListReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reservationOwners(listed)["alice"])
}

func TestReserve_ForOtherUsername(t *testing.T) {
	backend, orchestrator := setup(t, "root", "toor")

	err := orchestrator.Reserve(context.Background(), &reservation.Request{Count: 1, DurationMinutes: 5, Password: "x", Username: "bob"})
	require.NoError(t, err)

	reservations := backend.Reservations()
	require.Len(t, reservations, 1)
	assert.Equal(t, "bob", reservations[0].Username)
	assert.Equal(t, "x", reservations[0].Password)
}

func TestReserve_Preconditions(t *testing.T) {
	backend, orchestrator := setup(t, "alice", "secret")

	for _, request := range []*reservation.Request{
		{Count: 0, DurationMinutes: 60, Password: "x"},
		{Count: 1, DurationMinutes: 0, Password: "x"},
		{Count: 1, DurationMinutes: 60, Password: ""},
	} {
		err := orchestrator.Reserve(context.Background(), request)
		assert.True(t, errors.Is(err, reservation.ErrInvalidReservation))
	}
	assert.Zero(t, backend.Calls(http.MethodGet, "/reserve"))
}

func TestReserve_RejectedShowsBackendText(t *testing.T) {
	backend, orchestrator := setup(t, "alice", "secret")
	_, err := orchestrator.ListReservations(context.Background())
	require.NoError(t, err)
	refreshes := backend.Calls(http.MethodGet, "/reservations")

	err = orchestrator.Reserve(context.Background(), &reservation.Request{Count: 10, DurationMinutes: 60, Password: "x"})
	require.Error(t, err)

	snapshot := orchestrator.Reservations()
	assert.Equal(t, `{"error":"Only 4 machines available"}`, snapshot.Error)
	assert.Empty(t, snapshot.Message)
	assert.Empty(t, snapshot.Value)
	assert.Equal(t, refreshes, backend.Calls(http.MethodGet, "/reservations"))
}

func TestReleaseAll_NonAdminOnlyOwn(t *testing.T) {
	backend, alice := setup(t, "alice", "secret")
	bob := login(t, backend, "bob", "hunter2")
	ctx := context.Background()

	require.NoError(t, alice.Reserve(ctx, &reservation.Request{Count: 2, DurationMinutes: 60, Password: "x"}))
	require.NoError(t, bob.Reserve(ctx, &reservation.Request{Count: 1, DurationMinutes: 60, Password: "y"}))

	require.NoError(t, alice.ReleaseAll(ctx))
	snapshot := alice.Reservations()
	assert.Equal(t, reservation.MessageReleased, snapshot.Message)
	assert.Empty(t, snapshot.Value)

	remaining := backend.Reservations()
	require.Len(t, remaining, 1)
	assert.Equal(t, "bob", remaining[0].Username)
}

func TestReleaseAll_AdminReleasesEverything(t *testing.T) {
	backend, root := setup(t, "root", "toor")
	alice := login(t, backend, "alice", "secret")
	ctx := context.Background()

	require.NoError(t, alice.Reserve(ctx, &reservation.Request{Count: 2, DurationMinutes: 60, Password: "x"}))
	listed, err := root.ListReservations(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	require.NoError(t, root.ReleaseAll(ctx))
	assert.Empty(t, backend.Reservations())
	assert.Empty(t, root.Reservations().Value)
}

func TestListAvailability(t *testing.T) {
	_, orchestrator := setup(t, "alice", "secret")
	ctx := context.Background()
	require.NoError(t, orchestrator.Reserve(ctx, &reservation.Request{Count: 1, DurationMinutes: 60, Password: "x"}))

	availability, err := orchestrator.ListAvailability(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m3", "m4"}, availability.Available)
	assert.Equal(t, []string{"m1"}, availability.Reserved)
	assert.Equal(t, availability, orchestrator.Availability().Value)
}

func TestListAvailability_ReadFailureCarriesStatus(t *testing.T) {
	backend, orchestrator := setup(t, "alice", "secret")
	backend.Override(http.MethodGet, "/available", http.StatusInternalServerError, `boom`)

	_, err := orchestrator.ListAvailability(context.Background())
	require.Error(t, err)
	assert.Equal(t, "500", orchestrator.Availability().Error)
}

func TestMachines_CreateAndDelete(t *testing.T) {
	backend, orchestrator := setup(t, "root", "toor")
	ctx := context.Background()

	create := machine.DefaultCreate()
	create.Name = "m5"
	create.Host = "10.0.0.5"
	create.Password = "pw"
	require.NoError(t, orchestrator.CreateMachine(ctx, create))

	snapshot := orchestrator.Machines()
	require.Len(t, snapshot.Value, 5)
	assert.Equal(t, "m5", snapshot.Value[4].Name)
	assert.Equal(t, 22, snapshot.Value[4].Port)

	require.NoError(t, orchestrator.DeleteMachine(ctx, "m1"))
	assert.Len(t, orchestrator.Machines().Value, 4)
	assert.NotContains(t, backend.MachineNames(), "m1")
}

func TestMachines_FailedMutationKeepsList(t *testing.T) {
	backend, orchestrator := setup(t, "root", "toor")
	ctx := context.Background()

	before, err := orchestrator.ListMachines(ctx)
	require.NoError(t, err)
	refreshes := backend.Calls(http.MethodGet, "/machines")

	err = orchestrator.CreateMachine(ctx, &machine.Create{Name: "m1", Host: "h", Port: 22, User: "root", Password: "pw"})
	require.Error(t, err)

	snapshot := orchestrator.Machines()
	assert.Equal(t, before, snapshot.Value)
	assert.Equal(t, `{"error":"conflict","message":"Machine exists"}`, snapshot.Error)
	assert.Equal(t, refreshes, backend.Calls(http.MethodGet, "/machines"))
}

func TestMachines_NonAdminRejectedByBackend(t *testing.T) {
	_, orchestrator := setup(t, "alice", "secret")

	err := orchestrator.DeleteMachine(context.Background(), "m1")
	var statusErr *gateway.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.Status)
}

func TestListMachines_OlderGenerationLosesRace(t *testing.T) {
	backend, orchestrator := setup(t, "alice", "secret")
	ctx := context.Background()

	release := backend.Hold(http.MethodGet, "/machines")
	slowDone := make(chan struct{})
	go func() {
		orchestrator.ListMachines(ctx)
		close(slowDone)
	}()
	require.Eventually(t, func() bool {
		return backend.Calls(http.MethodGet, "/machines") == 1
	}, 5*time.Second, 10*time.Millisecond)

	// a newer generation starts and fails; the slow, older response must not overwrite its outcome
	backend.Override(http.MethodGet, "/machines", http.StatusServiceUnavailable, ``)
	release()
	_, err := orchestrator.ListMachines(ctx)
	require.Error(t, err)
	<-slowDone

	snapshot := orchestrator.Machines()
	assert.Equal(t, "503", snapshot.Error)
}

func TestClose_CancelsInFlightCalls(t *testing.T) {
	backend, orchestrator := setup(t, "alice", "secret")
	release := backend.Hold(http.MethodGet, "/reservations")
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := orchestrator.ListReservations(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool {
		return backend.Calls(http.MethodGet, "/reservations") == 1
	}, 5*time.Second, 10*time.Millisecond)

	orchestrator.Close()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight call was not cancelled")
	}
	assert.False(t, orchestrator.Reservations().Loaded)

	_, err := orchestrator.ListReservations(context.Background())
	assert.True(t, errors.Is(err, context.Canceled))
}
