package user

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const UserKey contextKey = "user"

var ErrNoUser = errors.New("user not found")

// CurrentId returns the id of the user the request middleware put on the
// context. Every repository call is scoped by it.
func CurrentId(ctx context.Context) (int, error) {
	user, ok := ctx.Value(UserKey).(User)
	if !ok {
		log.Trace("no user on context")
		return 0, ErrNoUser
	}
	return user.Id, nil
}

// CurrentUser returns the full user from the context, for callers that need
// settings rather than just the id.
func CurrentUser(ctx context.Context) (User, error) {
	user, ok := ctx.Value(UserKey).(User)
	if !ok {
		log.Trace("no user on context")
		return User{}, ErrNoUser
	}
	return user, nil
}

// WithUser stores the user on the context. The middleware calls it per
// request; tests call it directly.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}
