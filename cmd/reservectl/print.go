package main

import (
	"fmt"
	"github.com/skybi/reservation-console/internal/machine"
	"github.com/skybi/reservation-console/internal/permission"
	"github.com/skybi/reservation-console/internal/reservation"
	"github.com/skybi/reservation-console/internal/session"
	"github.com/skybi/reservation-console/internal/user"
	"github.com/skybi/reservation-console/internal/view"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func printSession(out io.Writer, state session.State) {
	roles := make([]string, 0, len(state.Roles))
	for _, role := range state.Roles.Slice() {
		roles = append(roles, string(role))
	}
	table := newTable(out)
	fmt.Fprintf(table, "identity\t%s\n", orDash(state.Identity))
	fmt.Fprintf(table, "status\t%s\n", state.Status)
	fmt.Fprintf(table, "roles\t%s\n", orDash(strings.Join(roles, ", ")))
	fmt.Fprintf(table, "capabilities\t%s\n", orDash(strings.Join(permission.Names(state.Permissions), ", ")))
	table.Flush()
}

func printAvailability(out io.Writer, availability *machine.Availability) {
	table := newTable(out)
	fmt.Fprintf(table, "available\t%d\t%s\n", len(availability.Available), strings.Join(availability.Available, " "))
	fmt.Fprintf(table, "reserved\t%d\t%s\n", len(availability.Reserved), strings.Join(availability.Reserved, " "))
	table.Flush()
}

func printMachines(out io.Writer, machines []*machine.Machine) {
	table := newTable(out)
	fmt.Fprintln(table, "NAME\tHOST\tPORT\tUSER\tRESERVED BY\tRESERVED UNTIL")
	for _, item := range machines {
		reservedBy, reservedUntil := "-", "-"
		if item.ReservedBy != nil {
			reservedBy = *item.ReservedBy
		}
		if item.ReservedUntil != nil {
			reservedUntil = item.ReservedUntil.String()
		}
		fmt.Fprintf(table, "%s\t%s\t%d\t%s\t%s\t%s\n", item.Name, item.Host, item.Port, item.User, reservedBy, reservedUntil)
	}
	table.Flush()
}

func printReservations(out io.Writer, reservations []*reservation.Reservation) {
	table := newTable(out)
	fmt.Fprintln(table, "ID\tUSER\tMACHINE\tADDRESS\tUNTIL\tREMAINING")
	for _, item := range reservations {
		until, remaining := "-", "-"
		if item.ReservedUntil != nil {
			until = item.ReservedUntil.String()
		}
		if item.SecondsRemaining != nil {
			remaining = (time.Duration(*item.SecondsRemaining) * time.Second).String()
		}
		address := fmt.Sprintf("%s:%d", item.Host, item.Port)
		fmt.Fprintf(table, "%d\t%s\t%s\t%s\t%s\t%s\n", item.ID, item.Username, item.Machine, address, until, remaining)
	}
	table.Flush()
}

func printUsers(out io.Writer, users []*user.User) {
	table := newTable(out)
	fmt.Fprintln(table, "USERNAME\tADMIN\tCREATED")
	for _, item := range users {
		created := "-"
		if item.CreatedAt != nil {
			created = item.CreatedAt.String()
		}
		fmt.Fprintf(table, "%s\t%t\t%s\n", item.Username, item.IsAdmin, created)
	}
	table.Flush()
}

// printNotes prints the message and the inline error a mutation left on its view
func printNotes[T any](out io.Writer, snapshot view.Snapshot[T]) {
	if snapshot.Message != "" {
		fmt.Fprintln(out, snapshot.Message)
	}
	if snapshot.Error != "" {
		fmt.Fprintf(out, "could not refresh the list: %s\n", snapshot.Error)
	}
}

func printMachinesView(out io.Writer, snapshot view.Snapshot[[]*machine.Machine]) {
	printNotes(out, snapshot)
	if snapshot.Loaded {
		printMachines(out, snapshot.Value)
	}
}

func printReservationsView(out io.Writer, snapshot view.Snapshot[[]*reservation.Reservation]) {
	printNotes(out, snapshot)
	if snapshot.Loaded {
		printReservations(out, snapshot.Value)
	}
}

func printUsersView(out io.Writer, snapshot view.Snapshot[[]*user.User]) {
	printNotes(out, snapshot)
	if snapshot.Loaded {
		printUsers(out, snapshot.Value)
	}
}
