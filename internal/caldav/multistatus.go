package caldav

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Request bodies. Namespaces: DAV:, urn:ietf:params:xml:ns:caldav,
// and calendarserver.org for the getctag extension.
const (
	ctagPropfindBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:" xmlns:cs="http://calendarserver.org/ns/">
  <d:prop>
    <cs:getctag/>
  </d:prop>
</d:propfind>`

	todoReportBody = `<?xml version="1.0" encoding="utf-8"?>
<c:calendar-query xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:prop>
    <d:getetag/>
    <c:calendar-data/>
  </d:prop>
  <c:filter>
    <c:comp-filter name="VCALENDAR">
      <c:comp-filter name="VTODO"/>
    </c:comp-filter>
  </c:filter>
</c:calendar-query>`

	calendarPropfindBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav"
            xmlns:a="http://apple.com/ns/ical/">
  <d:prop>
    <d:displayname/>
    <d:resourcetype/>
    <a:calendar-color/>
    <c:supported-calendar-component-set/>
  </d:prop>
</d:propfind>`
)

// multistatus mirrors the subset of a DAV:multistatus document the
// client consumes. Property elements are collected generically by
// local name so namespace-prefix differences between servers do not
// matter.
type multistatus struct {
	Responses []msResponse
}

type msResponse struct {
	Href  string
	Props map[string]string
	Comps []string // supported-calendar-component-set comp names
}

func (r msResponse) prop(localName string) string {
	return r.Props[localName]
}

func (r msResponse) supportsComponent(name string) bool {
	// Servers that omit the property entirely are given the benefit
	// of the doubt.
	if len(r.Comps) == 0 {
		return true
	}
	for _, c := range r.Comps {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

type xmlMultistatus struct {
	XMLName   xml.Name      `xml:"multistatus"`
	Responses []xmlResponse `xml:"response"`
}

type xmlResponse struct {
	Href      string        `xml:"href"`
	Propstats []xmlPropstat `xml:"propstat"`
}

type xmlPropstat struct {
	Status string  `xml:"status"`
	Prop   xmlProp `xml:"prop"`
}

type xmlProp struct {
	Elements []xmlAnyElement `xml:",any"`
}

type xmlAnyElement struct {
	XMLName xml.Name
	Value   string       `xml:",chardata"`
	Comps   []xmlCompRef `xml:"comp"`
}

type xmlCompRef struct {
	Name string `xml:"name,attr"`
}

func parseMultistatus(body []byte) (multistatus, error) {
	var raw xmlMultistatus
	if err := xml.Unmarshal(body, &raw); err != nil {
		return multistatus{}, fmt.Errorf("invalid multistatus response: %w", err)
	}

	var out multistatus
	for _, resp := range raw.Responses {
		r := msResponse{
			Href:  strings.TrimSpace(resp.Href),
			Props: make(map[string]string),
		}
		for _, ps := range resp.Propstats {
			// Only take properties the server actually returned.
			if ps.Status != "" && !strings.Contains(ps.Status, "200") {
				continue
			}
			for _, el := range ps.Prop.Elements {
				name := el.XMLName.Local
				if name == "supported-calendar-component-set" {
					for _, comp := range el.Comps {
						r.Comps = append(r.Comps, comp.Name)
					}
					continue
				}
				if v := strings.TrimSpace(el.Value); v != "" {
					r.Props[name] = v
				}
			}
		}
		out.Responses = append(out.Responses, r)
	}
	return out, nil
}
