package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	clockRe     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(AM|PM)?$`)
	timeInTextRe = regexp.MustCompile(`(?i)\b(?:at|for|@)?\s*(\d{1,2}(?::\d{2})?\s*(?:AM|PM)?)\b`)
)

// TimeOfDay parses a time expression into canonical HH:MM (24-hour) form.
// Accepted inputs: "14:30", "2:30 PM", "2pm", "10 AM", and bare integers.
// A bare integer is read with a 12-hour midpoint heuristic: 12 and above is
// taken as an already-PM 24-hour value, below 12 as AM.
func TimeOfDay(input string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(input))
	if s == "" {
		return "", false
	}

	// "2pm" -> "2 PM"
	s = strings.NewReplacer("AM", " AM", "PM", " PM").Replace(s)
	s = strings.Join(strings.Fields(s), " ")

	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil {
			return "", false
		}
	}

	switch m[3] {
	case "PM":
		if hour > 12 {
			return "", false
		}
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
	default:
		// no meridiem: bare values below 12 read as AM, 12+ as 24-hour
	}

	if hour > 23 || minute > 59 {
		return "", false
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// TimeFromText scans free text for a time expression ("at 2:00 PM",
// "for 10am") and returns it in canonical form.
func TimeFromText(query string) (string, bool) {
	m := timeInTextRe.FindStringSubmatch(query)
	if m == nil {
		return "", false
	}
	return TimeOfDay(m[1])
}
