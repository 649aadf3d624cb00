package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/davtask/davtask/internal/caldav"
)

// fakeObject is one resource on the fake server.
type fakeObject struct {
	etag string
	body []byte
}

// fakeTransport is an in-memory CalDAV server implementing the
// Transport seam. By default it behaves like a well-behaved server
// (etag checks, 404s, ctag bumps); individual requests can be forced
// to a synthetic status or a transport error per method+href.
type fakeTransport struct {
	mu      sync.Mutex
	objects map[string]*fakeObject
	ctags   map[string]string
	cals    []caldav.Calendar

	force  map[string]int  // "METHOD href" -> status override
	netErr map[string]bool // "METHOD href" -> fail at transport level

	putCalls    int
	deleteCalls int
	moveCalls   int
	etagSeq     int
	ctagSeq     int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		objects: make(map[string]*fakeObject),
		ctags:   make(map[string]string),
		force:   make(map[string]int),
		netErr:  make(map[string]bool),
	}
}

func (f *fakeTransport) forceStatus(method, href string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.force[method+" "+href] = status
}

func (f *fakeTransport) forceNetErr(method, href string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.netErr[method+" "+href] = true
}

// seed places an object on the server and returns its etag.
func (f *fakeTransport) seed(href string, body []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	etag := f.nextETag()
	f.objects[href] = &fakeObject{etag: etag, body: body}
	f.bumpCTag(collectionOf(href))
	return etag
}

func (f *fakeTransport) setCTag(calHref, ctag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctags[calHref] = ctag
}

func (f *fakeTransport) nextETag() string {
	f.etagSeq++
	return fmt.Sprintf("etag-%d", f.etagSeq)
}

func (f *fakeTransport) bumpCTag(calHref string) {
	f.ctagSeq++
	f.ctags[calHref] = fmt.Sprintf("ctag-%d", f.ctagSeq)
}

func collectionOf(href string) string {
	i := strings.LastIndex(strings.TrimSuffix(href, "/"), "/")
	return href[:i+1]
}

func (f *fakeTransport) intercept(method, href string) (int, bool, bool) {
	key := method + " " + href
	if f.netErr[key] {
		return 0, false, true
	}
	if status, ok := f.force[key]; ok {
		return status, true, false
	}
	return 0, false, false
}

func (f *fakeTransport) Put(_ context.Context, href string, body []byte, opts caldav.PutOptions) (caldav.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	if status, forced, netErr := f.intercept("PUT", href); netErr {
		return caldav.Response{}, fmt.Errorf("connection refused")
	} else if forced {
		return caldav.Response{StatusCode: status}, nil
	}

	existing, exists := f.objects[href]
	if opts.IfNoneMatch && exists {
		return caldav.Response{StatusCode: 412}, nil
	}
	if opts.IfMatch != "" {
		if !exists {
			return caldav.Response{StatusCode: 404}, nil
		}
		if existing.etag != opts.IfMatch {
			return caldav.Response{StatusCode: 412}, nil
		}
	}

	etag := f.nextETag()
	f.objects[href] = &fakeObject{etag: etag, body: body}
	f.bumpCTag(collectionOf(href))
	status := 204
	if !exists {
		status = 201
	}
	return caldav.Response{StatusCode: status, ETag: etag}, nil
}

func (f *fakeTransport) Get(_ context.Context, href string) (caldav.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, forced, netErr := f.intercept("GET", href); netErr {
		return caldav.Response{}, fmt.Errorf("connection refused")
	} else if forced {
		return caldav.Response{StatusCode: status}, nil
	}
	obj, ok := f.objects[href]
	if !ok {
		return caldav.Response{StatusCode: 404}, nil
	}
	return caldav.Response{StatusCode: 200, ETag: obj.etag, Body: obj.body}, nil
}

func (f *fakeTransport) Delete(_ context.Context, href, etag string) (caldav.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if status, forced, netErr := f.intercept("DELETE", href); netErr {
		return caldav.Response{}, fmt.Errorf("connection refused")
	} else if forced {
		return caldav.Response{StatusCode: status}, nil
	}
	obj, ok := f.objects[href]
	if !ok {
		return caldav.Response{StatusCode: 404}, nil
	}
	if etag != "" && obj.etag != etag {
		return caldav.Response{StatusCode: 412}, nil
	}
	delete(f.objects, href)
	f.bumpCTag(collectionOf(href))
	return caldav.Response{StatusCode: 204}, nil
}

func (f *fakeTransport) Move(_ context.Context, srcHref, dstHref string) (caldav.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moveCalls++
	if status, forced, netErr := f.intercept("MOVE", srcHref); netErr {
		return caldav.Response{}, fmt.Errorf("connection refused")
	} else if forced {
		return caldav.Response{StatusCode: status}, nil
	}
	obj, ok := f.objects[srcHref]
	if !ok {
		return caldav.Response{StatusCode: 404}, nil
	}
	delete(f.objects, srcHref)
	f.objects[dstHref] = obj
	f.bumpCTag(collectionOf(srcHref))
	f.bumpCTag(collectionOf(dstHref))
	return caldav.Response{StatusCode: 201}, nil
}

func (f *fakeTransport) CTag(_ context.Context, calHref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, _, netErr := f.intercept("PROPFIND", calHref); netErr {
		return "", fmt.Errorf("connection refused")
	}
	ctag, ok := f.ctags[calHref]
	if !ok {
		ctag = "ctag-0"
		f.ctags[calHref] = ctag
	}
	return ctag, nil
}

func (f *fakeTransport) ListTodos(_ context.Context, calHref string) ([]caldav.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, _, netErr := f.intercept("REPORT", calHref); netErr {
		return nil, fmt.Errorf("connection refused")
	}
	var out []caldav.Object
	for href, obj := range f.objects {
		if collectionOf(href) != calHref {
			continue
		}
		out = append(out, caldav.Object{Href: href, ETag: obj.etag, Data: obj.body})
	}
	return out, nil
}

func (f *fakeTransport) FindCalendars(_ context.Context) ([]caldav.Calendar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, _, netErr := f.intercept("PROPFIND", "/"); netErr {
		return nil, fmt.Errorf("connection refused")
	}
	return f.cals, nil
}
