package caldav

import (
	"context"
	"errors"
)

// ErrNoServer is the transport error returned by Unconfigured.
var ErrNoServer = errors.New("no CalDAV server configured")

// Unconfigured is the Transport used when no server is configured.
// Every call fails at the transport level, so queued actions against
// remote calendars retain instead of being misclassified, and local
// calendars keep working.
type Unconfigured struct{}

func (Unconfigured) Put(context.Context, string, []byte, PutOptions) (Response, error) {
	return Response{}, ErrNoServer
}

func (Unconfigured) Get(context.Context, string) (Response, error) {
	return Response{}, ErrNoServer
}

func (Unconfigured) Delete(context.Context, string, string) (Response, error) {
	return Response{}, ErrNoServer
}

func (Unconfigured) Move(context.Context, string, string) (Response, error) {
	return Response{}, ErrNoServer
}

func (Unconfigured) CTag(context.Context, string) (string, error) {
	return "", ErrNoServer
}

func (Unconfigured) ListTodos(context.Context, string) ([]Object, error) {
	return nil, ErrNoServer
}

func (Unconfigured) FindCalendars(context.Context) ([]Calendar, error) {
	return nil, ErrNoServer
}
