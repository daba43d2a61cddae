package console

import (
	"github.com/go-chi/chi/v5"
	"github.com/skybi/reservation-console/internal/api/schema"
	"github.com/skybi/reservation-console/internal/machine"
	"net/http"
)

// EndpointGetAvailability handles the 'GET /available' endpoint
func (service *Service) EndpointGetAvailability(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())
	orchestrator, _ := obj.views()

	if _, err := orchestrator.ListAvailability(request.Context()); err != nil {
		service.writeCallError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, newListView(obj.store.State(), orchestrator.Availability()))
}

// EndpointGetMachines handles the 'GET /machines' endpoint
func (service *Service) EndpointGetMachines(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())
	orchestrator, _ := obj.views()

	if _, err := orchestrator.ListMachines(request.Context()); err != nil {
		service.writeCallError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, newListView(obj.store.State(), orchestrator.Machines()))
}

// EndpointCreateMachine handles the 'POST /machines' endpoint
func (service *Service) EndpointCreateMachine(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())
	orchestrator, _ := obj.views()

	// Unmarshal and validate the request body on top of the form defaults
	payload := machine.DefaultCreate()
	validationErrs, err := schema.DecodeBody(request, payload)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	if err := orchestrator.CreateMachine(request.Context(), payload); err != nil {
		service.writeCallError(writer, err)
		return
	}
	service.writer.WriteJSONCode(writer, http.StatusCreated, newListView(obj.store.State(), orchestrator.Machines()))
}

// EndpointDeleteMachine handles the 'DELETE /machines/{name}' endpoint
func (service *Service) EndpointDeleteMachine(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())
	orchestrator, _ := obj.views()

	if err := orchestrator.DeleteMachine(request.Context(), chi.URLParam(request, "name")); err != nil {
		service.writeCallError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, newListView(obj.store.State(), orchestrator.Machines()))
}
