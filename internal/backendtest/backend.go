// Package backendtest provides an in-memory implementation of the reservation backend's REST contract for tests.
package backendtest

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const timeLayout = "2006-01-02T15:04:05"

type account struct {
	password  string
	admin     bool
	createdAt time.Time
}

// Machine represents a machine known to the fake backend
type Machine struct {
	Name          string
	Host          string
	Port          int
	User          string
	Password      string
	ReservedBy    string
	ReservedUntil *time.Time
}

// Reservation represents an active reservation known to the fake backend
type Reservation struct {
	ID            int64
	Username      string
	Machine       string
	ReservedUntil time.Time
	Password      string
}

type override struct {
	status int
	body   string
}

// Backend is a fake reservation backend served through httptest
type Backend struct {
	mtx sync.Mutex

	users        map[string]*account
	tokens       map[string]string
	machines     map[string]*Machine
	reservations []*Reservation
	nextID       int64

	calls     map[string]int
	overrides map[string]override
	gates     map[string]chan struct{}

	server *httptest.Server
}

// New starts a new fake backend that is shut down once the test finishes
func New(t testing.TB) *Backend {
	backend := &Backend{
		users:     make(map[string]*account),
		tokens:    make(map[string]string),
		machines:  make(map[string]*Machine),
		calls:     make(map[string]int),
		overrides: make(map[string]override),
		gates:     make(map[string]chan struct{}),
	}
	backend.server = httptest.NewServer(backend.router())
	t.Cleanup(backend.server.Close)
	return backend
}

// URL returns the API root of the fake backend
func (backend *Backend) URL() string {
	return backend.server.URL + "/api"
}

// AddUser registers a user account
func (backend *Backend) AddUser(username, password string, admin bool) {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	backend.users[username] = &account{password: password, admin: admin, createdAt: time.Now().UTC()}
}

// AddMachine registers a free machine
func (backend *Backend) AddMachine(name, host string, port int) {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	backend.machines[name] = &Machine{Name: name, Host: host, Port: port, User: "root", Password: "secret"}
}

// Override makes the given endpoint answer with a fixed status and body until ClearOverride is called
func (backend *Backend) Override(method, path string, status int, body string) {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	backend.overrides[method+" "+path] = override{status: status, body: body}
}

// ClearOverride removes an override registered using Override
func (backend *Backend) ClearOverride(method, path string) {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	delete(backend.overrides, method+" "+path)
}

// Hold blocks every call to the given endpoint until the returned function is called
func (backend *Backend) Hold(method, path string) func() {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	gate := make(chan struct{})
	backend.gates[method+" "+path] = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			backend.mtx.Lock()
			delete(backend.gates, method+" "+path)
			backend.mtx.Unlock()
			close(gate)
		})
	}
}

// Calls returns how often the given endpoint was called
func (backend *Backend) Calls(method, path string) int {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	return backend.calls[method+" "+path]
}

// Reservations returns a copy of all active reservations
func (backend *Backend) Reservations() []Reservation {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	out := make([]Reservation, 0, len(backend.reservations))
	for _, reservation := range backend.reservations {
		out = append(out, *reservation)
	}
	return out
}

// MachineNames returns the names of all registered machines in lexical order
func (backend *Backend) MachineNames() []string {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	return backend.sortedMachineNames()
}

func (backend *Backend) sortedMachineNames() []string {
	names := make([]string, 0, len(backend.machines))
	for name := range backend.machines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (backend *Backend) router() http.Handler {
	router := chi.NewRouter()
	router.Route("/api", func(router chi.Router) {
		router.Use(backend.middlewareIntercept)
		router.Post("/login", backend.login)

		router.Group(func(router chi.Router) {
			router.Use(backend.middlewareAuth)
			router.Get("/whoami", backend.whoami)
			router.Get("/machines", backend.listMachines)
			router.Get("/available", backend.available)
			router.Get("/reservations", backend.listReservations)
			router.Get("/reserve", backend.reserve)
			router.Get("/release_all", backend.releaseAll)

			router.Group(func(router chi.Router) {
				router.Use(backend.middlewareAdmin)
				router.Post("/machines", backend.createMachine)
				router.Delete("/machines/{name}", backend.deleteMachine)
				router.Get("/users", backend.listUsers)
				router.Post("/users", backend.createUser)
				router.Delete("/users/{name}", backend.deleteUser)
			})
		})
	})
	return router
}

type contextKey string

const contextKeyUser contextKey = "user"

func (backend *Backend) middlewareIntercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		path := strings.TrimPrefix(request.URL.Path, "/api")
		key := request.Method + " " + path

		backend.mtx.Lock()
		backend.calls[key]++
		ovr, overridden := backend.overrides[key]
		gate := backend.gates[key]
		backend.mtx.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-request.Context().Done():
				return
			}
		}
		if overridden {
			writer.WriteHeader(ovr.status)
			writer.Write([]byte(ovr.body))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func (backend *Backend) middlewareAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		header := request.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))

		backend.mtx.Lock()
		username, ok := backend.tokens[token]
		backend.mtx.Unlock()

		if !strings.HasPrefix(header, "Bearer") || !ok {
			writeJSON(writer, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(writer, request.WithContext(contextWithUser(request, username)))
	})
}

func (backend *Backend) middlewareAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !backend.isAdmin(userOf(request)) {
			writeJSON(writer, http.StatusForbidden, map[string]any{"error": "forbidden"})
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func (backend *Backend) isAdmin(username string) bool {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	acc, ok := backend.users[username]
	return ok && acc.admin
}

func (backend *Backend) login(writer http.ResponseWriter, request *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(request.Body).Decode(&in); err != nil || in.Username == "" || in.Password == "" {
		writeJSON(writer, http.StatusBadRequest, map[string]any{"error": "invalid_request", "message": "username and password are required"})
		return
	}

	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	acc, ok := backend.users[in.Username]
	if !ok || acc.password != in.Password {
		writeJSON(writer, http.StatusUnauthorized, map[string]any{"error": "invalid_grant", "message": "invalid credentials"})
		return
	}
	token := uuid.NewString()
	backend.tokens[token] = in.Username
	writeJSON(writer, http.StatusOK, map[string]any{"access_token": token, "token_type": "Bearer", "expires_in": 3600})
}

func (backend *Backend) whoami(writer http.ResponseWriter, request *http.Request) {
	username := userOf(request)
	roles := []string{}
	if backend.isAdmin(username) {
		roles = append(roles, "admin")
	}
	writeJSON(writer, http.StatusOK, map[string]any{"user": username, "roles": roles})
}

func (backend *Backend) listMachines(writer http.ResponseWriter, _ *http.Request) {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	out := make([]map[string]any, 0, len(backend.machines))
	for _, name := range backend.sortedMachineNames() {
		machine := backend.machines[name]
		item := map[string]any{
			"name":           machine.Name,
			"host":           machine.Host,
			"port":           machine.Port,
			"user":           machine.User,
			"reserved":       machine.ReservedBy != "",
			"reserved_by":    nil,
			"reserved_until": nil,
		}
		if machine.ReservedBy != "" {
			item["reserved_by"] = machine.ReservedBy
			item["reserved_until"] = machine.ReservedUntil.Format(timeLayout)
		}
		out = append(out, item)
	}
	writeJSON(writer, http.StatusOK, out)
}

func (backend *Backend) createMachine(writer http.ResponseWriter, request *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Host     string `json:"host"`
		Port     int    `json:"port"`
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(request.Body).Decode(&in); err != nil || in.Name == "" || in.Host == "" || in.User == "" || in.Password == "" || in.Port <= 0 {
		writeJSON(writer, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}

	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	if _, exists := backend.machines[in.Name]; exists {
		writeJSON(writer, http.StatusConflict, map[string]any{"error": "conflict", "message": "Machine exists"})
		return
	}
	backend.machines[in.Name] = &Machine{Name: in.Name, Host: in.Host, Port: in.Port, User: in.User, Password: in.Password}
	writeJSON(writer, http.StatusCreated, map[string]any{"name": in.Name, "host": in.Host, "port": in.Port, "user": in.User, "reserved": false})
}

func (backend *Backend) deleteMachine(writer http.ResponseWriter, request *http.Request) {
	name := chi.URLParam(request, "name")

	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	if _, exists := backend.machines[name]; !exists {
		writeJSON(writer, http.StatusNotFound, map[string]any{"error": "not_found"})
		return
	}
	delete(backend.machines, name)
	writer.WriteHeader(http.StatusNoContent)
}

func (backend *Backend) available(writer http.ResponseWriter, _ *http.Request) {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	available, reserved := []string{}, []string{}
	for _, name := range backend.sortedMachineNames() {
		if backend.machines[name].ReservedBy == "" {
			available = append(available, name)
		} else {
			reserved = append(reserved, name)
		}
	}
	writeJSON(writer, http.StatusOK, map[string]any{"available": available, "reserved": reserved})
}

func (backend *Backend) listReservations(writer http.ResponseWriter, request *http.Request) {
	username := userOf(request)
	admin := backend.isAdmin(username)

	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	now := time.Now().UTC()
	out := make([]map[string]any, 0, len(backend.reservations))
	for _, reservation := range backend.reservations {
		if !admin && reservation.Username != username {
			continue
		}
		machine := backend.machines[reservation.Machine]
		remaining := int(reservation.ReservedUntil.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		item := map[string]any{
			"reservation_id":    reservation.ID,
			"username":          reservation.Username,
			"machine":           reservation.Machine,
			"host":              "",
			"port":              0,
			"reserved_until":    reservation.ReservedUntil.Format(timeLayout),
			"seconds_remaining": remaining,
		}
		if machine != nil {
			item["host"] = machine.Host
			item["port"] = machine.Port
		}
		out = append(out, item)
	}
	writeJSON(writer, http.StatusOK, map[string]any{"reservations": out})
}

func (backend *Backend) reserve(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	username := query.Get("username")
	if username == "" {
		username = userOf(request)
	}
	count, err := strconv.Atoi(defaultString(query.Get("count"), "1"))
	if err != nil || count < 1 {
		writeJSON(writer, http.StatusBadRequest, map[string]any{"error": "invalid count"})
		return
	}
	duration, err := strconv.Atoi(defaultString(query.Get("duration"), "60"))
	if err != nil || duration < 1 {
		writeJSON(writer, http.StatusBadRequest, map[string]any{"error": "invalid duration"})
		return
	}
	password := query.Get("reservation_password")

	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	var free []*Machine
	for _, name := range backend.sortedMachineNames() {
		if backend.machines[name].ReservedBy == "" {
			free = append(free, backend.machines[name])
		}
	}
	if len(free) < count {
		writeJSON(writer, http.StatusBadRequest, map[string]any{"error": fmt.Sprintf("Only %d machines available", len(free))})
		return
	}

	until := time.Now().UTC().Add(time.Duration(duration) * time.Minute)
	machines := make([]map[string]any, 0, count)
	for _, machine := range free[:count] {
		backend.nextID++
		machine.ReservedBy = username
		machine.ReservedUntil = &until
		backend.reservations = append(backend.reservations, &Reservation{
			ID:            backend.nextID,
			Username:      username,
			Machine:       machine.Name,
			ReservedUntil: until,
			Password:      password,
		})
		machines = append(machines, map[string]any{"machine": machine.Name, "host": machine.Host, "port": machine.Port})
	}
	writeJSON(writer, http.StatusOK, map[string]any{
		"username":         username,
		"machines":         machines,
		"reserved_until":   until.Format(timeLayout),
		"duration_minutes": duration,
	})
}

func (backend *Backend) releaseAll(writer http.ResponseWriter, request *http.Request) {
	username := userOf(request)
	admin := backend.isAdmin(username)

	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	kept := backend.reservations[:0]
	for _, reservation := range backend.reservations {
		if admin || reservation.Username == username {
			if machine, ok := backend.machines[reservation.Machine]; ok {
				machine.ReservedBy = ""
				machine.ReservedUntil = nil
			}
			continue
		}
		kept = append(kept, reservation)
	}
	backend.reservations = kept
	writeJSON(writer, http.StatusOK, map[string]any{"message": "All machines released"})
}

func (backend *Backend) listUsers(writer http.ResponseWriter, _ *http.Request) {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	names := make([]string, 0, len(backend.users))
	for name := range backend.users {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		acc := backend.users[name]
		out = append(out, map[string]any{
			"username":   name,
			"is_admin":   acc.admin,
			"created_at": acc.createdAt.Format(timeLayout),
		})
	}
	writeJSON(writer, http.StatusOK, out)
}

func (backend *Backend) createUser(writer http.ResponseWriter, request *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if err := json.NewDecoder(request.Body).Decode(&in); err != nil || in.Username == "" || in.Password == "" {
		writeJSON(writer, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}

	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	if _, exists := backend.users[in.Username]; exists {
		writeJSON(writer, http.StatusConflict, map[string]any{"error": "conflict", "message": "User exists"})
		return
	}
	backend.users[in.Username] = &account{password: in.Password, admin: in.IsAdmin, createdAt: time.Now().UTC()}
	writeJSON(writer, http.StatusCreated, map[string]any{"username": in.Username, "is_admin": in.IsAdmin})
}

func (backend *Backend) deleteUser(writer http.ResponseWriter, request *http.Request) {
	name := chi.URLParam(request, "name")

	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	if _, exists := backend.users[name]; !exists {
		writeJSON(writer, http.StatusNotFound, map[string]any{"error": "not_found"})
		return
	}
	delete(backend.users, name)
	writeJSON(writer, http.StatusOK, map[string]any{"message": "deleted"})
}

func contextWithUser(request *http.Request, username string) context.Context {
	return context.WithValue(request.Context(), contextKeyUser, username)
}

func userOf(request *http.Request) string {
	username, _ := request.Context().Value(contextKeyUser).(string)
	return username
}

func writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(payload)
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
