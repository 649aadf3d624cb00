package task

import "strings"

// Synthetic calendar hrefs. Anything under the local:// scheme never
// touches the server.
const (
	// LocalCalendarHref is the built-in always-available local calendar.
	LocalCalendarHref = "local://local"
	// RecoveryCalendarHref holds tasks whose sync failed unrecoverably.
	RecoveryCalendarHref = "local://recovery"
)

// CalendarListEntry describes one calendar in the discovery listing.
type CalendarListEntry struct {
	Name  string `json:"name"`
	Href  string `json:"href"`
	Color string `json:"color,omitempty"`

	// LocalOnly marks calendars that exist only in local storage.
	// Their tasks never have etags and are exempt from ghost pruning.
	LocalOnly bool `json:"local_only,omitempty"`
}

// IsLocalHref reports whether href addresses local-only storage.
func IsLocalHref(href string) bool {
	return strings.HasPrefix(href, "local://")
}
