package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	startOfDay = "00:00"
	endOfDay   = "23:59"
)

// clock is a time of day in seconds since midnight.
type clock int

func parseClock(s string) (clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return 0, fmt.Errorf("time %q is not in HH:MM form", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("time %q has an invalid hour", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q has an invalid minute", s)
	}
	return clock(hour*3600 + minute*60), nil
}

func clockOf(t time.Time) clock {
	return clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// isMidnightAlias reports the 24:MM spelling of midnight.
func isMidnightAlias(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "24")
}
