package period

import (
	"fmt"
	"strings"
	"time"
)

// weekdayIndex maps three-letter abbreviations to calendar order, Mon=0..Sun=6.
var weekdayIndex = map[string]int{
	"mon": 0,
	"tue": 1,
	"wed": 2,
	"thu": 3,
	"fri": 4,
	"sat": 5,
	"sun": 6,
}

// calendarDay converts time.Weekday (Sunday=0) to Mon=0..Sun=6.
func calendarDay(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func parseWeekday(s string) (int, bool) {
	idx, ok := weekdayIndex[strings.ToLower(strings.TrimSpace(s))]
	return idx, ok
}

// dayMatch is the result of matching a days-of-week expression.
type dayMatch struct {
	matched bool
	// problems are recoverable parse failures, one per bad token.
	problems []string
	// aborted is set when a malformed range failed the whole expression.
	aborted bool
}

// matchDays reports whether day falls in expr, a comma-separated list of
// weekdays ("MON") and inclusive ranges ("MON-FRI"). An unknown single day
// is skipped; a malformed range fails the whole expression.
func matchDays(expr string, day time.Weekday) dayMatch {
	var res dayMatch
	today := calendarDay(day)

	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)

		if strings.Contains(token, "-") {
			from, to, err := parseRange(token)
			if err != nil {
				res.problems = append(res.problems, err.Error())
				res.aborted = true
				res.matched = false
				return res
			}
			if from <= today && today <= to {
				res.matched = true
			}
			continue
		}

		idx, ok := parseWeekday(token)
		if !ok {
			res.problems = append(res.problems, fmt.Sprintf(
				"unable to parse day %q, expected MON, TUE, WED, THU, FRI, SAT or SUN", token))
			continue
		}
		if idx == today {
			res.matched = true
		}
	}
	return res
}

func parseRange(token string) (int, int, error) {
	parts := strings.Split(token, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed day range %q, expected two days such as MON-FRI", token)
	}
	from, okFrom := parseWeekday(parts[0])
	to, okTo := parseWeekday(parts[1])
	if !okFrom || !okTo {
		return 0, 0, fmt.Errorf("unable to parse day range %q, either %q or %q is not a day such as MON, TUE, WED",
			token, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}
	if from > to {
		return 0, 0, fmt.Errorf("day range %q ends before it starts in the Monday to Sunday week", token)
	}
	return from, to, nil
}
