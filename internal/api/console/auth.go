package console

import (
	"github.com/skybi/reservation-console/internal/api/schema"
	"github.com/skybi/reservation-console/internal/session"
	"net/http"
)

type loginView struct {
	Session *sessionView `json:"session"`
}

// EndpointGetLogin handles the 'GET /login' endpoint
func (service *Service) EndpointGetLogin(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())
	service.writer.WriteJSON(writer, &loginView{
		Session: newSessionView(obj.store.State()),
	})
}

type endpointLoginRequestPayload struct {
	Username string `json:"username" required:"true"`
	Password string `json:"password" required:"true"`
}

// EndpointLogin handles the 'POST /login' endpoint
func (service *Service) EndpointLogin(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())

	// Unmarshal and validate the request body
	payload, validationErrs, err := schema.UnmarshalBody[endpointLoginRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	if !obj.store.Login(request.Context(), payload.Username, payload.Password) {
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrInvalidCredentials)
		return
	}
	service.writer.WriteJSON(writer, &loginView{
		Session: newSessionView(obj.store.State()),
	})
}

// EndpointLogout handles the 'POST /logout' endpoint
func (service *Service) EndpointLogout(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())
	obj.store.Logout(request.Context())
	service.writer.WriteJSON(writer, &loginView{
		Session: newSessionView(obj.store.State()),
	})
}

type homeView struct {
	Session *sessionView `json:"session"`
	Status  string       `json:"status"`
}

// EndpointGetHome handles the 'GET /' endpoint
func (service *Service) EndpointGetHome(writer http.ResponseWriter, request *http.Request) {
	state := tabFromContext(request.Context()).store.State()
	status := "signed in"
	if state.Status == session.StatusDemoted {
		status = "identity unresolved"
	}
	service.writer.WriteJSON(writer, &homeView{
		Session: newSessionView(state),
		Status:  status,
	})
}
