package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/macropower/tidy/pkg/ruleset"
)

// Admit reports whether now falls inside the trigger's schedule window.
// Filters are optional and conjunctive: an empty filter or an "all" token
// is unconstrained, and every other non-empty filter must admit. Malformed
// tokens are ignored.
//
// Conventions: days of week are 1-7 with Monday=1; weeks of month are
// ceil(day/7), so a partial 5th week is 5 and never matches a 1-4 filter;
// months are 1-12.
func Admit(now time.Time, opts ruleset.OnLoadOptions) bool {
	if filter := opts.DaysOfWeek; filter != "" && !admitsAll(filter) {
		day := int(now.Weekday())
		if day == 0 {
			day = 7 // Sunday.
		}

		if !containsInt(parseIntList(filter), day) {
			return false
		}
	}

	if filter := opts.HoursOfDay; filter != "" && !admitsAll(filter) && !hourAdmitted(filter, now.Hour()) {
		return false
	}

	if filter := opts.WeeksOfMonth; filter != "" && !admitsAll(filter) {
		week := (now.Day() + 6) / 7

		if !containsInt(parseIntList(filter), week) {
			return false
		}
	}

	if filter := opts.MonthsOfYear; filter != "" && !admitsAll(filter) && !containsInt(parseIntList(filter), int(now.Month())) {
		return false
	}

	return true
}

// admitsAll reports whether the filter contains an "all" token.
func admitsAll(filter string) bool {
	for token := range strings.SplitSeq(filter, ",") {
		if strings.EqualFold(strings.TrimSpace(token), "all") {
			return true
		}
	}

	return false
}

// hourAdmitted checks hour against comma-separated tokens, each a single
// hour or an inclusive start-end range.
func hourAdmitted(filter string, hour int) bool {
	for token := range strings.SplitSeq(filter, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		start, end, isRange := strings.Cut(token, "-")
		if !isRange {
			if v, err := strconv.Atoi(token); err == nil && v == hour {
				return true
			}

			continue
		}

		lo, err := strconv.Atoi(strings.TrimSpace(start))
		if err != nil {
			continue
		}

		hi, err := strconv.Atoi(strings.TrimSpace(end))
		if err != nil {
			continue
		}

		if hour >= lo && hour <= hi {
			return true
		}
	}

	return false
}

func parseIntList(s string) []int {
	var out []int

	for token := range strings.SplitSeq(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil {
			continue
		}

		out = append(out, v)
	}

	return out
}

func containsInt(list []int, v int) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}

	return false
}
