package present

import (
	"regexp"
	"strconv"
	"strings"
)

// clockPattern matches "9 PM", "10:30pm", "12 am" and similar. It is not
// anchored, so times glued to other text ("FRI7PM") still match.
var clockPattern = regexp.MustCompile(`(?i)(\d{1,2})(?::(\d{2}))?\s*(AM|PM)`)

// ClassifyAtmosphere decides whether a free-text time reads as daytime or
// nighttime. Only the first clock time in s is considered; minutes are
// ignored. Anything without a recognizable time is Day.
//
// Hours are not range checked, so "13 PM" classifies as Night.
func ClassifyAtmosphere(s string) Atmosphere {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return Day
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return Day
	}

	switch strings.ToUpper(m[3]) {
	case "PM":
		if hour >= 6 || hour == 12 {
			return Night
		}
	case "AM":
		if hour < 6 || hour == 12 {
			return Night
		}
	}
	return Day
}
