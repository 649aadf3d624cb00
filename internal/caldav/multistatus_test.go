package caldav

import "testing"

const sampleReport = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:cal="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/calendars/alice/work/abc.ics</d:href>
    <d:propstat>
      <d:prop>
        <d:getetag>"33441-34321"</d:getetag>
        <cal:calendar-data>BEGIN:VCALENDAR
VERSION:2.0
BEGIN:VTODO
UID:abc
SUMMARY:from the wire
END:VTODO
END:VCALENDAR
</cal:calendar-data>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

const sampleDiscovery = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:cal="urn:ietf:params:xml:ns:caldav"
               xmlns:a="http://apple.com/ns/ical/">
  <d:response>
    <d:href>/calendars/alice/</d:href>
    <d:propstat>
      <d:prop><d:displayname>Home collection</d:displayname></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/calendars/alice/work/</d:href>
    <d:propstat>
      <d:prop>
        <d:displayname>Work</d:displayname>
        <a:calendar-color>#FF0000</a:calendar-color>
        <cal:supported-calendar-component-set>
          <cal:comp name="VTODO"/>
          <cal:comp name="VEVENT"/>
        </cal:supported-calendar-component-set>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/calendars/alice/meetings/</d:href>
    <d:propstat>
      <d:prop>
        <d:displayname>Meetings</d:displayname>
        <cal:supported-calendar-component-set>
          <cal:comp name="VEVENT"/>
        </cal:supported-calendar-component-set>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

func TestParseMultistatusReport(t *testing.T) {
	ms, err := parseMultistatus([]byte(sampleReport))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(ms.Responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(ms.Responses))
	}
	r := ms.Responses[0]
	if r.Href != "/calendars/alice/work/abc.ics" {
		t.Errorf("unexpected href %q", r.Href)
	}
	if got := r.prop("getetag"); got != `"33441-34321"` {
		t.Errorf("unexpected etag %q", got)
	}
	if data := r.prop("calendar-data"); data == "" {
		t.Errorf("calendar-data missing")
	}
}

func TestParseMultistatusComponentSets(t *testing.T) {
	ms, err := parseMultistatus([]byte(sampleDiscovery))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	byHref := make(map[string]msResponse)
	for _, r := range ms.Responses {
		byHref[r.Href] = r
	}

	work := byHref["/calendars/alice/work/"]
	if !work.supportsComponent("VTODO") {
		t.Errorf("work calendar must support VTODO")
	}
	meetings := byHref["/calendars/alice/meetings/"]
	if meetings.supportsComponent("VTODO") {
		t.Errorf("event-only calendar must not claim VTODO support")
	}
	// A collection that omits the property gets the benefit of the
	// doubt.
	home := byHref["/calendars/alice/"]
	if !home.supportsComponent("VTODO") {
		t.Errorf("absent component set must not exclude a collection")
	}
}

func TestParseMultistatusRejectsGarbage(t *testing.T) {
	if _, err := parseMultistatus([]byte("not xml at all")); err == nil {
		t.Errorf("garbage must not parse")
	}
}
