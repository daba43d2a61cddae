package console

import (
	"github.com/rs/zerolog/log"
	"github.com/skybi/reservation-console/internal/access"
	"net/http"
)

type navigationResponse struct {
	Redirect string `json:"redirect"`
	Reason   string `json:"reason"`
}

// MiddlewareGuard evaluates the given policy against the session of the requesting tab.
// Denied navigations are answered with a redirect to the view the policy points to.
func (service *Service) MiddlewareGuard(policy *access.Policy) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(writer http.ResponseWriter, request *http.Request) {
			obj := tabFromContext(request.Context())
			decision := policy.Evaluate(obj.store.State())
			if !decision.Allowed {
				log.Debug().
					Str("tab", obj.id).
					Str("path", request.URL.Path).
					Str("redirect", decision.Redirect).
					Str("reason", decision.Reason).
					Msg("navigation denied")
				service.writer.WriteRedirect(writer, decision.Redirect, &navigationResponse{
					Redirect: decision.Redirect,
					Reason:   decision.Reason,
				})
				return
			}
			next(writer, request)
		}
	}
}
