package verifone

import (
	"strings"
	"time"
)

// DisplayLayout is how the portal renders on-site times, e.g. "26/08/2025 3:46 PM".
const DisplayLayout = "2/1/2006 3:04 PM"

const (
	yes = "YES"
	no  = "NO"
)

// ParseDisplayTime parses an on-site display time as wall time in loc.
func ParseDisplayTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.ToUpper(strings.Join(strings.Fields(value), " "))
	if value == "" || value == NotAvailable {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DisplayLayout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AfterHours is YES for on-site times at or after 18:00 or before 06:00.
func AfterHours(display string) string {
	t, ok := ParseDisplayTime(display, time.UTC)
	if !ok {
		return NotAvailable
	}
	if t.Hour() >= 18 || t.Hour() < 6 {
		return yes
	}
	return no
}

// Weekend is YES for on-site times falling on a Saturday or a Sunday.
func Weekend(display string) string {
	t, ok := ParseDisplayTime(display, time.UTC)
	if !ok {
		return NotAvailable
	}
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return yes
	}
	return no
}

// ClientID falls back to the first three letters of the device type when the bank brand
// is unset, the device model names carry the brand prefix.
func ClientID(client, deviceType string) string {
	unset := client == "" || client == NotAvailable || strings.EqualFold(client, "none")
	if !unset || deviceType == "" || deviceType == NotAvailable {
		return client
	}
	prefix := []rune(deviceType)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return strings.ToUpper(string(prefix))
}
