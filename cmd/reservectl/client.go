package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/skybi/reservation-console/internal/access"
	"github.com/skybi/reservation-console/internal/gateway"
	"github.com/skybi/reservation-console/internal/reservation"
	"github.com/skybi/reservation-console/internal/session"
	"github.com/skybi/reservation-console/internal/session/storage/inmem"
	"github.com/skybi/reservation-console/internal/user"
	"time"
)

const tabID = "reservectl"

var errMissingUsername = errors.New("a username is required (--username or RC_USERNAME)")

// client holds the session of a single reservectl invocation
type client struct {
	baseURL  string
	timeout  time.Duration
	username string
	password string

	store        *session.Store
	orchestrator *reservation.Orchestrator
	directory    *user.Directory
}

// connect logs in and checks the given policy against the resulting session
func (cli *client) connect(ctx context.Context, policy *access.Policy) error {
	if cli.username == "" {
		return errMissingUsername
	}

	caller := gateway.New(cli.baseURL, gateway.WithTimeout(cli.timeout))
	storage, err := inmem.New(0)
	if err != nil {
		return err
	}
	cli.store = session.NewStore(caller, storage, tabID)
	if !cli.store.Login(ctx, cli.username, cli.password) {
		return errors.New(session.MessageInvalidCredentials)
	}

	if decision := policy.Evaluate(cli.store.State()); !decision.Allowed {
		return fmt.Errorf("not permitted: %s", decision.Reason)
	}

	cli.orchestrator = reservation.New(caller, cli.store)
	cli.directory = user.NewDirectory(caller, cli.store)
	return nil
}

func (cli *client) close() {
	if cli.orchestrator != nil {
		cli.orchestrator.Close()
	}
	if cli.directory != nil {
		cli.directory.Close()
	}
	if cli.store != nil {
		cli.store.Logout(context.Background())
	}
}
