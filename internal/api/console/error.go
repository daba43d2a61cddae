package console

import (
	"context"
	"errors"
	"github.com/skybi/reservation-console/internal/api/schema"
	"github.com/skybi/reservation-console/internal/gateway"
	"github.com/skybi/reservation-console/internal/reservation"
	"net/http"
)

var errInvalidReservation = &schema.Error{
	Type:    "validation.reservation.invalid",
	Message: reservation.ErrInvalidReservation.Error(),
	Details: map[string]interface{}{},
}

// writeCallError writes the inline error of a failed backend call.
// Rejections keep the backend's status code and text.
func (service *Service) writeCallError(writer http.ResponseWriter, err error) {
	var statusErr *gateway.StatusError
	var decodeErr *gateway.DecodeError
	var transportErr *gateway.TransportError

	switch {
	case errors.Is(err, reservation.ErrInvalidReservation):
		service.writer.WriteErrors(writer, http.StatusBadRequest, errInvalidReservation)
	case errors.As(err, &statusErr):
		service.writer.WriteErrors(writer, statusErr.Status, schema.Rejected(statusErr.Error()))
	case errors.As(err, &decodeErr):
		service.writer.WriteErrors(writer, http.StatusBadGateway, schema.Malformed(decodeErr.Error(), decodeErr.Problems))
	case errors.Is(err, context.Canceled):
		service.writer.WriteErrors(writer, http.StatusServiceUnavailable, schema.ErrCancelled)
	case errors.As(err, &transportErr):
		service.writer.WriteErrors(writer, http.StatusBadGateway, schema.Unreachable(transportErr.Error()))
	default:
		service.writer.WriteInternalError(writer, err)
	}
}
