package main

import (
	"github.com/rs/zerolog"
	"github.com/skybi/reservation-console/internal/access"
	"github.com/skybi/reservation-console/internal/config"
	"github.com/skybi/reservation-console/internal/machine"
	"github.com/skybi/reservation-console/internal/permission"
	"github.com/skybi/reservation-console/internal/reservation"
	"github.com/skybi/reservation-console/internal/user"
	"github.com/spf13/cobra"
	"os"
)

var (
	policySession        = access.RequireSession()
	policyViewPool       = policySession.RequireCapabilities(permission.CapabilityViewPool)
	policyViewMachines   = policySession.RequireCapabilities(permission.CapabilityViewMachines)
	policyManageMachines = policySession.RequireCapabilities(permission.CapabilityManageMachines)
	policyViewReserved   = policySession.RequireCapabilities(permission.CapabilityViewReservations)
	policyReserve        = policySession.RequireCapabilities(permission.CapabilityReserve)
	policyManageUsers    = policySession.RequireRole(permission.RoleAdmin).RequireCapabilities(permission.CapabilityManageUsers)
	policyReleaseAll     = policySession.RequireRole(permission.RoleAdmin).RequireCapabilities(permission.CapabilityReleaseAll)
)

func newRootCommand() (*cobra.Command, *client) {
	cli := new(client)
	verbose := false

	root := &cobra.Command{
		Use:          "reservectl",
		Short:        "Reserve machines of the shared pool from the command line",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("api") {
				cli.baseURL = cfg.APIBaseURL
			}
			if !cmd.Flags().Changed("timeout") {
				cli.timeout = cfg.RequestTimeout
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cli.baseURL, "api", "", "backend API base URL (defaults to RC_API_BASE_URL)")
	flags.DurationVar(&cli.timeout, "timeout", 0, "timeout of a single backend call (defaults to RC_REQUEST_TIMEOUT)")
	flags.StringVarP(&cli.username, "username", "u", os.Getenv("RC_USERNAME"), "username to log in with")
	flags.StringVarP(&cli.password, "password", "p", os.Getenv("RC_PASSWORD"), "password to log in with")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(
		newWhoamiCommand(cli),
		newAvailableCommand(cli),
		newMachinesCommand(cli),
		newReservationsCommand(cli),
		newReserveCommand(cli),
		newReleaseAllCommand(cli),
		newUsersCommand(cli),
	)
	return root, cli
}

func newWhoamiCommand(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity and capabilities of the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.connect(cmd.Context(), policySession); err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), cli.store.State())
			return nil
		},
	}
}

func newAvailableCommand(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "available",
		Short: "Show the free and reserved machines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.connect(cmd.Context(), policyViewPool); err != nil {
				return err
			}
			availability, err := cli.orchestrator.ListAvailability(cmd.Context())
			if err != nil {
				return err
			}
			printAvailability(cmd.OutOrStdout(), availability)
			return nil
		},
	}
}

func newMachinesCommand(cli *client) *cobra.Command {
	command := &cobra.Command{
		Use:   "machines",
		Short: "List the machine inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.connect(cmd.Context(), policyViewMachines); err != nil {
				return err
			}
			machines, err := cli.orchestrator.ListMachines(cmd.Context())
			if err != nil {
				return err
			}
			printMachines(cmd.OutOrStdout(), machines)
			return nil
		},
	}

	create := machine.DefaultCreate()
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Register a new machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			create.Name = args[0]
			if err := cli.connect(cmd.Context(), policyManageMachines); err != nil {
				return err
			}
			if err := cli.orchestrator.CreateMachine(cmd.Context(), create); err != nil {
				return err
			}
			printMachinesView(cmd.OutOrStdout(), cli.orchestrator.Machines())
			return nil
		},
	}
	add.Flags().StringVar(&create.Host, "host", "", "host name or address")
	add.Flags().IntVar(&create.Port, "port", create.Port, "SSH port")
	add.Flags().StringVar(&create.User, "user", create.User, "login user")
	add.Flags().StringVar(&create.Password, "machine-password", "", "login password")
	_ = add.MarkFlagRequired("host")
	_ = add.MarkFlagRequired("machine-password")

	remove := &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Remove a machine",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.connect(cmd.Context(), policyManageMachines); err != nil {
				return err
			}
			if err := cli.orchestrator.DeleteMachine(cmd.Context(), args[0]); err != nil {
				return err
			}
			printMachinesView(cmd.OutOrStdout(), cli.orchestrator.Machines())
			return nil
		},
	}

	command.AddCommand(add, remove)
	return command
}

func newReservationsCommand(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "reservations",
		Short: "List the active reservations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.connect(cmd.Context(), policyViewReserved); err != nil {
				return err
			}
			reservations, err := cli.orchestrator.ListReservations(cmd.Context())
			if err != nil {
				return err
			}
			printReservations(cmd.OutOrStdout(), reservations)
			return nil
		},
	}
}

func newReserveCommand(cli *client) *cobra.Command {
	request := &reservation.Request{Count: 1, DurationMinutes: 60}
	command := &cobra.Command{
		Use:   "reserve",
		Short: "Reserve machines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := request.Validate(); err != nil {
				return err
			}
			if err := cli.connect(cmd.Context(), policyReserve); err != nil {
				return err
			}
			if err := cli.orchestrator.Reserve(cmd.Context(), request); err != nil {
				return err
			}
			printReservationsView(cmd.OutOrStdout(), cli.orchestrator.Reservations())
			return nil
		},
	}
	command.Flags().IntVarP(&request.Count, "count", "n", request.Count, "number of machines")
	command.Flags().IntVarP(&request.DurationMinutes, "duration", "d", request.DurationMinutes, "duration in minutes")
	command.Flags().StringVar(&request.Password, "reservation-password", "", "password set on the reserved machines")
	command.Flags().StringVar(&request.Username, "for", "", "user to reserve for (defaults to the logged in user)")
	return command
}

func newReleaseAllCommand(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "release-all",
		Short: "Release every active reservation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.connect(cmd.Context(), policyReleaseAll); err != nil {
				return err
			}
			if err := cli.orchestrator.ReleaseAll(cmd.Context()); err != nil {
				return err
			}
			printReservationsView(cmd.OutOrStdout(), cli.orchestrator.Reservations())
			return nil
		},
	}
}

func newUsersCommand(cli *client) *cobra.Command {
	command := &cobra.Command{
		Use:   "users",
		Short: "List the registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.connect(cmd.Context(), policyManageUsers); err != nil {
				return err
			}
			users, err := cli.directory.List(cmd.Context())
			if err != nil {
				return err
			}
			printUsers(cmd.OutOrStdout(), users)
			return nil
		},
	}

	create := new(user.Create)
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a new user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			create.Username = args[0]
			if err := cli.connect(cmd.Context(), policyManageUsers); err != nil {
				return err
			}
			if err := cli.directory.Create(cmd.Context(), create); err != nil {
				return err
			}
			printUsersView(cmd.OutOrStdout(), cli.directory.Users())
			return nil
		},
	}
	add.Flags().StringVar(&create.Password, "user-password", "", "password of the new user")
	add.Flags().BoolVar(&create.IsAdmin, "admin", false, "grant the admin role")
	_ = add.MarkFlagRequired("user-password")

	remove := &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a user",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.connect(cmd.Context(), policyManageUsers); err != nil {
				return err
			}
			if err := cli.directory.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printUsersView(cmd.OutOrStdout(), cli.directory.Users())
			return nil
		},
	}

	command.AddCommand(add, remove)
	return command
}
