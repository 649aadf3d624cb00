package caldav

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// Client is the net/http implementation of Transport.
type Client struct {
	baseURL  *url.URL
	username string
	password string
	http     *http.Client

	// HomeSet is the calendar home collection path used for discovery.
	HomeSet string
}

// NewClient creates a transport for the given server.
//
// baseURL is the server root (scheme://host[:port]); homeSet is the
// calendar home path, e.g. /remote.php/dav/calendars/alice/.
func NewClient(baseURL, homeSet, username, password string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL %q must be http or https", baseURL)
	}
	return &Client{
		baseURL:  u,
		username: username,
		password: password,
		HomeSet:  homeSet,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// resolve joins an href against the server base.
func (c *Client) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return c.baseURL.String() + href
	}
	return c.baseURL.ResolveReference(ref).String()
}

func (c *Client) do(ctx context.Context, method, href string, body []byte, header http.Header) (Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(href), reader)
	if err != nil {
		return Response{}, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%s %s: %w", method, href, err)
	}
	defer resp.Body.Close()

	// Listing bodies are bounded in practice; 16 MiB guards against a
	// misbehaving server.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return Response{}, fmt.Errorf("%s %s: reading response: %w", method, href, err)
	}

	return Response{
		StatusCode: resp.StatusCode,
		ETag:       strings.Trim(resp.Header.Get("ETag"), `"`),
		Location:   resp.Header.Get("Location"),
		Body:       data,
	}, nil
}

// Put implements Transport.
func (c *Client) Put(ctx context.Context, href string, body []byte, opts PutOptions) (Response, error) {
	header := http.Header{}
	header.Set("Content-Type", "text/calendar; charset=utf-8")
	if opts.IfNoneMatch {
		header.Set("If-None-Match", "*")
	} else if opts.IfMatch != "" {
		header.Set("If-Match", `"`+opts.IfMatch+`"`)
	}
	return c.do(ctx, http.MethodPut, href, body, header)
}

// Get implements Transport.
func (c *Client) Get(ctx context.Context, href string) (Response, error) {
	return c.do(ctx, http.MethodGet, href, nil, nil)
}

// Delete implements Transport.
func (c *Client) Delete(ctx context.Context, href, etag string) (Response, error) {
	header := http.Header{}
	if etag != "" {
		header.Set("If-Match", `"`+etag+`"`)
	}
	return c.do(ctx, http.MethodDelete, href, nil, header)
}

// Move implements Transport.
func (c *Client) Move(ctx context.Context, srcHref, dstHref string) (Response, error) {
	header := http.Header{}
	header.Set("Destination", c.resolve(dstHref))
	header.Set("Overwrite", "F")
	return c.do(ctx, "MOVE", srcHref, nil, header)
}

// CTag implements Transport. A PROPFIND Depth:0 for the
// calendarserver getctag property.
func (c *Client) CTag(ctx context.Context, calendarHref string) (string, error) {
	header := http.Header{}
	header.Set("Depth", "0")
	header.Set("Content-Type", "application/xml; charset=utf-8")
	resp, err := c.do(ctx, "PROPFIND", calendarHref, []byte(ctagPropfindBody), header)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", fmt.Errorf("PROPFIND %s: unexpected status %d", calendarHref, resp.StatusCode)
	}
	ms, err := parseMultistatus(resp.Body)
	if err != nil {
		return "", fmt.Errorf("PROPFIND %s: %w", calendarHref, err)
	}
	for _, r := range ms.Responses {
		if ctag := r.prop("getctag"); ctag != "" {
			return ctag, nil
		}
	}
	return "", fmt.Errorf("PROPFIND %s: server returned no CTag", calendarHref)
}

// ListTodos implements Transport. A REPORT calendar-query filtered to
// VTODO components, asking for etags and calendar data.
func (c *Client) ListTodos(ctx context.Context, calendarHref string) ([]Object, error) {
	header := http.Header{}
	header.Set("Depth", "1")
	header.Set("Content-Type", "application/xml; charset=utf-8")
	resp, err := c.do(ctx, "REPORT", calendarHref, []byte(todoReportBody), header)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("REPORT %s: unexpected status %d", calendarHref, resp.StatusCode)
	}
	ms, err := parseMultistatus(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("REPORT %s: %w", calendarHref, err)
	}

	var objects []Object
	for _, r := range ms.Responses {
		data := r.prop("calendar-data")
		if r.Href == "" || data == "" {
			continue
		}
		objects = append(objects, Object{
			Href: r.Href,
			ETag: strings.Trim(r.prop("getetag"), `"`),
			Data: []byte(data),
		})
	}
	return objects, nil
}

// FindCalendars implements Transport. A PROPFIND Depth:1 on the
// calendar home set, keeping collections that support VTODO.
func (c *Client) FindCalendars(ctx context.Context) ([]Calendar, error) {
	header := http.Header{}
	header.Set("Depth", "1")
	header.Set("Content-Type", "application/xml; charset=utf-8")
	resp, err := c.do(ctx, "PROPFIND", c.HomeSet, []byte(calendarPropfindBody), header)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("PROPFIND %s: unexpected status %d", c.HomeSet, resp.StatusCode)
	}
	ms, err := parseMultistatus(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("PROPFIND %s: %w", c.HomeSet, err)
	}

	var calendars []Calendar
	for _, r := range ms.Responses {
		if r.Href == "" || strings.TrimSuffix(r.Href, "/") == strings.TrimSuffix(c.HomeSet, "/") {
			continue
		}
		if !r.supportsComponent("VTODO") {
			continue
		}
		name := r.prop("displayname")
		if name == "" {
			name = path.Base(strings.TrimSuffix(r.Href, "/"))
		}
		calendars = append(calendars, Calendar{
			Href:  r.Href,
			Name:  name,
			Color: r.prop("calendar-color"),
		})
	}
	return calendars, nil
}
