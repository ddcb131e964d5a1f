package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Default time of day for "every <weekday>" without an explicit time.
const (
	defaultHour   = 13
	defaultMinute = 0
)

var (
	usernameRe  = regexp.MustCompile(`^@?(\w+)$`)
	recurringRe = regexp.MustCompile(`(?i)^every\s+([a-z]+)(?:\s+at\s+(\d{1,2}):(\d{2}))?$`)
	clockRe     = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// Schedule is the parsed answer to the "when" prompt of /newpost.
type Schedule struct {
	Hour      int
	Minute    int
	Day       *time.Weekday
	Recurring bool
}

// ParseUsername extracts a username from command arguments.
// The first word is used and a leading "@" is stripped.
func ParseUsername(args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", fmt.Errorf("username is required")
	}
	m := usernameRe.FindStringSubmatch(fields[0])
	if m == nil {
		return "", fmt.Errorf("invalid username %q", fields[0])
	}
	return m[1], nil
}

// ParseSchedule parses "HH:MM" or "every <weekday> [at HH:MM]".
func ParseSchedule(text string) (Schedule, error) {
	text = strings.TrimSpace(text)

	if m := recurringRe.FindStringSubmatch(text); m != nil {
		day, err := ParseWeekday(m[1])
		if err != nil {
			return Schedule{}, err
		}
		hour, minute := defaultHour, defaultMinute
		if m[2] != "" {
			hour, minute, err = parseClock(m[2], m[3])
			if err != nil {
				return Schedule{}, err
			}
		}
		return Schedule{Hour: hour, Minute: minute, Day: &day, Recurring: true}, nil
	}

	if m := clockRe.FindStringSubmatch(text); m != nil {
		hour, minute, err := parseClock(m[1], m[2])
		if err != nil {
			return Schedule{}, err
		}
		return Schedule{Hour: hour, Minute: minute}, nil
	}

	return Schedule{}, fmt.Errorf("unrecognized time %q", text)
}

// ParseWeekday maps an English weekday name, in any case, to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	name = strings.ToLower(name)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

func parseClock(h, m string) (int, int, error) {
	hour, err := strconv.Atoi(h)
	if err != nil || hour > 23 {
		return 0, 0, fmt.Errorf("hour must be between 0 and 23")
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute > 59 {
		return 0, 0, fmt.Errorf("minute must be between 0 and 59")
	}
	return hour, minute, nil
}
