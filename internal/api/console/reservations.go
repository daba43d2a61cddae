package console

import (
	"github.com/skybi/reservation-console/internal/api/schema"
	"github.com/skybi/reservation-console/internal/api/validation"
	"github.com/skybi/reservation-console/internal/reservation"
	"net/http"
)

// EndpointGetReservations handles the 'GET /reservations' endpoint
func (service *Service) EndpointGetReservations(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())
	orchestrator, _ := obj.views()

	if _, err := orchestrator.ListReservations(request.Context()); err != nil {
		service.writeCallError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, newListView(obj.store.State(), orchestrator.Reservations()))
}

// EndpointReserve handles the
// 'POST /reservations/reserve?count={number?:1}&duration={number?:60}&username={string?}&reservation_password={string}'
// endpoint
func (service *Service) EndpointReserve(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())
	orchestrator, _ := obj.views()

	var validationErrs []*schema.Error

	count, validationErr := validation.QueryNumber(request, "count", false, 1, 1, 1000)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	duration, validationErr := validation.QueryNumber(request, "duration", false, 60, 1, 60*24*365)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	password, validationErr := validation.QueryString(request, "reservation_password", true, "")
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	username, validationErr := validation.QueryString(request, "username", false, "")
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	err := orchestrator.Reserve(request.Context(), &reservation.Request{
		Count:           int(count),
		DurationMinutes: int(duration),
		Password:        password,
		Username:        username,
	})
	if err != nil {
		service.writeCallError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, newListView(obj.store.State(), orchestrator.Reservations()))
}

// EndpointReleaseAll handles the 'POST /reservations/release_all' endpoint
func (service *Service) EndpointReleaseAll(writer http.ResponseWriter, request *http.Request) {
	obj := tabFromContext(request.Context())
	orchestrator, _ := obj.views()

	if err := orchestrator.ReleaseAll(request.Context()); err != nil {
		service.writeCallError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, newListView(obj.store.State(), orchestrator.Reservations()))
}
