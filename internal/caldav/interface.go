// Package caldav provides the wire transport seam for the sync engine
// and an HTTP implementation of it.
//
// The engine depends only on status-code classes and the ETag and
// Location headers; everything else about the protocol (auth, TLS,
// redirects, XML bodies) stays behind the Transport interface. Tests
// substitute a fake Transport instance per engine, so forcing a
// synthetic server outcome for one action never touches shared
// process state.
package caldav

import "context"

// Response carries the slice of an HTTP response the engine consumes.
type Response struct {
	// StatusCode is 0 when the request never reached the server.
	StatusCode int
	ETag       string
	Location   string
	Body       []byte
}

// OK reports whether the status is in the 2xx success class.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ServerError reports whether the status is in the 5xx class.
func (r Response) ServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// PutOptions selects the optimistic-concurrency precondition for a PUT.
type PutOptions struct {
	// IfMatch makes the PUT conditional on the resource's current etag.
	IfMatch string
	// IfNoneMatch sends If-None-Match: * so the PUT fails with 412 if
	// the resource already exists.
	IfNoneMatch bool
}

// Object is one calendar resource from a listing.
type Object struct {
	Href string
	ETag string
	Data []byte
}

// Calendar is one collection from server discovery.
type Calendar struct {
	Href  string
	Name  string
	Color string
}

// Transport executes CalDAV verbs against a server.
//
// Mutation verbs return a transport error only when no HTTP response
// was obtained (DNS, TLS, timeout); any response with a status code,
// including errors, comes back as a Response so the engine can apply
// its status-class rules.
type Transport interface {
	// Put writes a calendar object.
	Put(ctx context.Context, href string, body []byte, opts PutOptions) (Response, error)

	// Get fetches a calendar object.
	Get(ctx context.Context, href string) (Response, error)

	// Delete removes a calendar object, conditional on etag when
	// non-empty.
	Delete(ctx context.Context, href, etag string) (Response, error)

	// Move relocates a calendar object to dstHref.
	Move(ctx context.Context, srcHref, dstHref string) (Response, error)

	// CTag fetches the collection change token for a calendar.
	CTag(ctx context.Context, calendarHref string) (string, error)

	// ListTodos fetches all VTODO resources in a calendar with their
	// etags and bodies.
	ListTodos(ctx context.Context, calendarHref string) ([]Object, error)

	// FindCalendars discovers VTODO-capable collections on the server.
	FindCalendars(ctx context.Context) ([]Calendar, error)
}
