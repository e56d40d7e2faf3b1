package user

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type contextKey struct{}

// noUserError reports a request that reached a service without a resolved
// user. Handlers answer it with 403.
type noUserError struct{}

func (noUserError) Error() string   { return "user not found" }
func (noUserError) StatusCode() int { return http.StatusForbidden }

var ErrNoUser error = noUserError{}

// CurrentUser returns the user the request was authenticated as.
func CurrentUser(ctx context.Context) (User, error) {
	if u, ok := ctx.Value(contextKey{}).(User); ok {
		return u, nil
	}
	log.Trace("no user in context")
	return User{}, ErrNoUser
}

func CurrentId(ctx context.Context) (int, error) {
	u, err := CurrentUser(ctx)
	if err != nil {
		return 0, err
	}
	return u.Id, nil
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}
