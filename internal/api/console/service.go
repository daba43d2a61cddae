package console

import (
	"context"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/skybi/reservation-console/internal/access"
	"github.com/skybi/reservation-console/internal/api/schema"
	"github.com/skybi/reservation-console/internal/config"
	"github.com/skybi/reservation-console/internal/gateway"
	"github.com/skybi/reservation-console/internal/hashmap"
	"github.com/skybi/reservation-console/internal/permission"
	"github.com/skybi/reservation-console/internal/session"
	"github.com/skybi/reservation-console/internal/task"
	"net/http"
	"sync"
)

var (
	policySession         = access.RequireSession()
	policyManageMachines  = policySession.RequireCapabilities(permission.CapabilityManageMachines)
	policyReserve         = policySession.RequireCapabilities(permission.CapabilityReserve)
	policyManageUsers     = policySession.RequireRole(permission.RoleAdmin).RequireCapabilities(permission.CapabilityManageUsers)
	policyReleaseAll      = policySession.RequireRole(permission.RoleAdmin).RequireCapabilities(permission.CapabilityReleaseAll)
	policyViewPool        = policySession.RequireCapabilities(permission.CapabilityViewPool)
	policyViewMachines    = policySession.RequireCapabilities(permission.CapabilityViewMachines)
	policyViewReservation = policySession.RequireCapabilities(permission.CapabilityViewReservations)
)

// Service represents the console service every browser tab talks to
type Service struct {
	serverMtx sync.Mutex
	server    *http.Server
	closed    bool

	Config *config.Config

	// Caller performs the backend calls of every tab
	Caller gateway.Caller

	// Storage persists the token of every tab
	Storage session.TokenStorage

	// Gatherer is exposed on '/metrics' if set
	Gatherer prometheus.Gatherer

	setupOnce      sync.Once
	handler        http.Handler
	tabs           *hashmap.ExpiringMap[string, *tab]
	tabsMtx        sync.Mutex
	storageSweeper *task.RepeatingTask

	writer *schema.Writer
}

// Handler builds the console's HTTP handler and starts its housekeeping tasks.
// Subsequent calls return the same handler.
func (service *Service) Handler() http.Handler {
	service.setupOnce.Do(service.setup)
	return service.handler
}

func (service *Service) setup() {
	// Create the HTTP schema writer
	service.writer = &schema.Writer{
		InternalErrorHook: func(err error) {
			log.Error().Err(err).Msg("the console experienced an unexpected error")
		},
	}

	// Create the tab registry; tabs forgotten after their lifetime unmount all of their views
	service.tabs = hashmap.NewExpiring[string, *tab](service.Config.TabLifetime)
	service.tabs.OnExpire = func(id string, expired *tab) {
		expired.close()
		log.Debug().Str("tab", id).Msg("forgot an idle tab")
	}
	service.tabs.ScheduleCleanupTask(service.Config.TabSweepInterval)

	service.storageSweeper = task.NewRepeating(func() {
		n, err := service.Storage.TerminateExpired(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("could not terminate expired tab tokens")
			return
		}
		if n > 0 {
			log.Debug().Int("amount", n).Msg("terminated expired tab tokens")
		}
	}, service.Config.TabSweepInterval)
	service.storageSweeper.Start()

	// Create the HTTP router
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RedirectSlashes)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{service.Config.ConsoleAllowedOrigin},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	router.NotFound(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
	})
	router.MethodNotAllowed(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusMethodNotAllowed, schema.ErrMethodNotAllowed)
	})

	// Register the session endpoints
	router.Get("/login", service.with(service.EndpointGetLogin, nil))
	router.Post("/login", service.with(service.EndpointLogin, nil))
	router.Post("/logout", service.with(service.EndpointLogout, nil))
	router.Get("/", service.with(service.EndpointGetHome, policySession))

	// Register the pool endpoints
	router.Get("/available", service.with(service.EndpointGetAvailability, policyViewPool))
	router.Get("/machines", service.with(service.EndpointGetMachines, policyViewMachines))
	router.Post("/machines", service.with(service.EndpointCreateMachine, policyManageMachines))
	router.Delete("/machines/{name}", service.with(service.EndpointDeleteMachine, policyManageMachines))

	// Register the reservation endpoints
	router.Get("/reservations", service.with(service.EndpointGetReservations, policyViewReservation))
	router.Post("/reservations/reserve", service.with(service.EndpointReserve, policyReserve))
	router.Post("/reservations/release_all", service.with(service.EndpointReleaseAll, policyReleaseAll))

	// Register the user administration endpoints
	router.Get("/users", service.with(service.EndpointGetUsers, policyManageUsers))
	router.Post("/users", service.with(service.EndpointCreateUser, policyManageUsers))
	router.Delete("/users/{name}", service.with(service.EndpointDeleteUser, policyManageUsers))

	if service.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(service.Gatherer, promhttp.HandlerOpts{}))
	}

	service.handler = router
}

// with attaches the requesting tab and evaluates the given policy before the endpoint runs
func (service *Service) with(endpoint http.HandlerFunc, policy *access.Policy) http.HandlerFunc {
	handler := endpoint
	if policy != nil {
		handler = service.MiddlewareGuard(policy)(handler)
	}
	return service.MiddlewareAttachTab(handler)
}

// Startup starts up the console and blocks until it is shut down.
// It returns http.ErrServerClosed if Shutdown was called before or during the startup.
func (service *Service) Startup() error {
	handler := service.Handler()

	service.serverMtx.Lock()
	if service.closed {
		service.serverMtx.Unlock()
		return http.ErrServerClosed
	}
	server := &http.Server{
		Addr:    service.Config.ConsoleListenAddress,
		Handler: handler,
	}
	service.server = server
	service.serverMtx.Unlock()

	return server.ListenAndServe()
}

// Shutdown shuts down the console and unmounts the views of every tab
func (service *Service) Shutdown() {
	// Waits for a concurrent setup to finish
	service.Handler()

	service.serverMtx.Lock()
	service.closed = true
	if service.server != nil {
		service.server.Close()
		service.server = nil
	}
	service.serverMtx.Unlock()

	service.tabs.StopCleanupTask()
	for _, obj := range service.tabs.Drain() {
		obj.close()
	}
	service.storageSweeper.Stop(false)
}
