package mapping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// timePattern tolerates the formats documents actually use: "14:30",
// "14h30", "2:30 PM", "09:15:00". Seconds are accepted and discarded.
var timePattern = regexp.MustCompile(`(?i)(\d{1,2})[:h](\d{2})(?:[:m](\d{2}))?\s*(AM|PM)?`)

// TimeValue is a parsed clock time in 24-hour terms.
type TimeValue struct {
	Hour   int
	Minute int
}

// ParseTime extracts a clock time from free text. The meridiem, when
// present, is applied: "1:30 PM" yields 13:30, "12:05 AM" yields 00:05.
func ParseTime(raw string) (TimeValue, bool) {
	m := timePattern.FindStringSubmatch(raw)
	if m == nil {
		return TimeValue{}, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return TimeValue{}, false
	}
	minute, err := strconv.Atoi(m[2])
	if err != nil || minute > 59 {
		return TimeValue{}, false
	}

	switch strings.ToUpper(m[4]) {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 {
		return TimeValue{}, false
	}
	return TimeValue{Hour: hour, Minute: minute}, true
}

// SubInputs renders the time for a composite destination field: hour in
// input 1, minute in input 2, and for 12-hour fields the meridiem in input
// 3. fieldID is the base identifier the sub-input suffixes attach to.
func (t TimeValue) SubInputs(fieldID, format string) map[string]string {
	out := make(map[string]string, 3)
	if format == "12" {
		hour := t.Hour % 12
		if hour == 0 {
			hour = 12
		}
		meridiem := "am"
		if t.Hour >= 12 {
			meridiem = "pm"
		}
		out[fieldID+"_1"] = strconv.Itoa(hour)
		out[fieldID+"_3"] = meridiem
	} else {
		out[fieldID+"_1"] = strconv.Itoa(t.Hour)
	}
	out[fieldID+"_2"] = fmt.Sprintf("%02d", t.Minute)
	return out
}
