package rfctime

import (
	"encoding/json"
	"strings"
	"time"
)

// Format string for date-time in RFC3339, disallowing Z as time-offset.
//
// Use it to stringify time.Time forcing timezone offset not to use "Z".
const RFC3339DateTimeFormat string = "2006-01-02T15:04:05.999-07:00"

// Format string for date-time in RFC3339, allowing Z as time-offset.
const RFC3339DateTimeFormatZ string = time.RFC3339Nano

// date-time in https://www.ietf.org/rfc/rfc3339.txt .
//
// This type is useful to interchange timestamps via network/file.
type RFC3339 time.Time

func New(t time.Time) RFC3339 {
	return RFC3339(t)
}

func (rfctime RFC3339) Time() time.Time {
	return time.Time(rfctime)
}

// true when both sides point the same instant.
//
// Timezone offsets do not matter, as time.Time#Equal does not care.
func (rfctime *RFC3339) Equal(other *RFC3339) bool {
	if (rfctime == nil) != (other == nil) {
		return false
	}
	return rfctime == nil || rfctime.Time().Equal(other.Time())
}

func (rfctime RFC3339) String() string {
	return rfctime.Time().Format(RFC3339DateTimeFormat)
}

func (rfctime RFC3339) MarshalJSON() ([]byte, error) {
	return json.Marshal(rfctime.String())
}

func (rfctime *RFC3339) UnmarshalJSON(b []byte) error {
	var expr string
	if err := json.Unmarshal(b, &expr); err != nil {
		return err
	}
	t, err := ParseRFC3339DateTime(expr)
	if err != nil {
		return err
	}
	*rfctime = t
	return nil
}

// parse RFC3339 date-time expression, Z offset allowed.
func ParseRFC3339DateTime(expr string) (RFC3339, error) {
	t, err := time.Parse(RFC3339DateTimeFormatZ, strings.TrimSpace(expr))
	if err != nil {
		return RFC3339{}, err
	}
	return RFC3339(t), nil
}
