package console

import (
	"github.com/go-chi/chi/v5"
	"github.com/skybi/reservation-console/internal/api/schema"
	"github.com/skybi/reservation-console/internal/user"
	"net/http"
)

// EndpointGetUsers handles the 'GET /users' endpoint
func (service *Service) EndpointGetUsers(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())
	_, directory := obj.views()

	if _, err := directory.List(request.Context()); err != nil {
		service.writeCallError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, newListView(obj.store.State(), directory.Users()))
}

// EndpointCreateUser handles the 'POST /users' endpoint
func (service *Service) EndpointCreateUser(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())
	_, directory := obj.views()

	// Unmarshal and validate the request body
	payload, validationErrs, err := schema.UnmarshalBody[user.Create](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	if err := directory.Create(request.Context(), payload); err != nil {
		service.writeCallError(writer, err)
		return
	}
	service.writer.WriteJSONCode(writer, http.StatusCreated, newListView(obj.store.State(), directory.Users()))
}

// EndpointDeleteUser handles the 'DELETE /users/{name}' endpoint
func (service *Service) EndpointDeleteUser(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())
	_, directory := obj.views()

	if err := directory.Delete(request.Context(), chi.URLParam(request, "name")); err != nil {
		service.writeCallError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, newListView(obj.store.State(), directory.Users()))
}
