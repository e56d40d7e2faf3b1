package app

import (
	"errors"
	"net/http"

	"github.com/fundwise/fundwise/internal/rest"
	"github.com/fundwise/fundwise/pkg/user"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const userHeader = "X-User-Id"

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies) {
	r.Use(userMiddleware(deps.UserService))
}

// userMiddleware resolves the X-User-Id header into the request context for
// downstream services. Requests for unknown users are refused.
func userMiddleware(users user.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			uid := req.Header.Get(userHeader)
			if uid == "" {
				// The live stream cannot send headers from EventSource.
				uid = req.URL.Query().Get("user")
			}
			if uid == "" {
				next.ServeHTTP(w, req)
				return
			}

			u, err := users.GetUserByUid(req.Context(), uid)
			if err != nil {
				if errors.Is(err, user.ErrUserNotFound) {
					log.Debugf("user not found: %s", uid)
					rest.WriteError(w, http.StatusForbidden)
					return
				}
				log.Errorf("failed to get user: %v", err)
				rest.WriteError(w, http.StatusInternalServerError)
				return
			}
			log.Tracef("request by user %s", u.Uid)
			next.ServeHTTP(w, req.WithContext(user.WithUser(req.Context(), u)))
		})
	}
}
