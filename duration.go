package sharedlock

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses a duration string, adding support for the "d" unit
// meaning number of days, where a day is assumed to be 24h. A leading sign
// applies to the whole duration, as with time.ParseDuration.
func ParseDuration(s string) (time.Duration, error) {
	if !strings.Contains(s, "d") {
		return time.ParseDuration(s)
	}
	var inNumber bool
	var numStart int
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 'd' {
			daysStr := s[numStart:i]
			days, err := strconv.ParseFloat(daysStr, 64)
			if err != nil {
				return 0, err
			}
			hours := days * 24.0
			hoursStr := strconv.FormatFloat(hours, 'f', -1, 64)
			s = s[:numStart] + hoursStr + "h" + s[i+1:]
			i--
			continue
		}
		if !inNumber {
			numStart = i
		}
		inNumber = (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+'
	}
	return time.ParseDuration(s)
}

// GetDurationEnvOrDefault returns the duration parsed from the environment
// variable key, or defaultValue if the variable is unset or unparseable.
// Used for the tunable policy constants (warning timeout, read retry window
// and interval, access timeout floor).
func GetDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	d, err := ParseDuration(val)
	if err != nil {
		return defaultValue
	}
	return d
}
