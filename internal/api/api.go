package api

import (
	"errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/skybi/reservation-console/internal/api/console"
	"github.com/skybi/reservation-console/internal/config"
	"github.com/skybi/reservation-console/internal/gateway"
	"github.com/skybi/reservation-console/internal/session"
	"net/http"
)

// Service represents the console API service
type Service struct {
	Config   *config.Config
	Caller   gateway.Caller
	Storage  session.TokenStorage
	Gatherer prometheus.Gatherer
	console  *console.Service
}

// Startup starts up the console API
func (service *Service) Startup(errs chan<- error) {
	consoleService := &console.Service{
		Config:   service.Config,
		Caller:   service.Caller,
		Storage:  service.Storage,
		Gatherer: service.Gatherer,
	}
	service.console = consoleService
	go func() {
		if err := consoleService.Startup(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
}

// Shutdown shuts down the console API
func (service *Service) Shutdown() {
	if service.console != nil {
		service.console.Shutdown()
		service.console = nil
	}
}
