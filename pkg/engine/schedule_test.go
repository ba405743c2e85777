package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/macropower/tidy/pkg/engine"
	"github.com/macropower/tidy/pkg/ruleset"
)

// September 2026: the 1st is a Tuesday, the 6th a Sunday, the 29th falls in
// the partial 5th week.
var (
	tuesday   = time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	saturday  = time.Date(2026, 9, 5, 10, 30, 0, 0, time.UTC)
	sunday    = time.Date(2026, 9, 6, 10, 30, 0, 0, time.UTC)
	fifthWeek = time.Date(2026, 9, 29, 10, 30, 0, 0, time.UTC)
)

func TestAdmit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts ruleset.OnLoadOptions
		now  time.Time
		want bool
	}{
		{
			name: "no filters always admits",
			now:  tuesday,
			want: true,
		},
		{
			name: "weekday filter admits tuesday",
			opts: ruleset.OnLoadOptions{DaysOfWeek: "1,2,3"},
			now:  tuesday,
			want: true,
		},
		{
			name: "weekday filter rejects saturday",
			opts: ruleset.OnLoadOptions{DaysOfWeek: "1,2,3"},
			now:  saturday,
			want: false,
		},
		{
			name: "sunday maps to 7",
			opts: ruleset.OnLoadOptions{DaysOfWeek: "7"},
			now:  sunday,
			want: true,
		},
		{
			name: "hour range admits",
			opts: ruleset.OnLoadOptions{HoursOfDay: "8-12"},
			now:  tuesday, // 10:30.
			want: true,
		},
		{
			name: "hour range rejects",
			opts: ruleset.OnLoadOptions{HoursOfDay: "12-14"},
			now:  tuesday,
			want: false,
		},
		{
			name: "single hour token is exact",
			opts: ruleset.OnLoadOptions{HoursOfDay: "9,11"},
			now:  tuesday,
			want: false,
		},
		{
			name: "mixed tokens",
			opts: ruleset.OnLoadOptions{HoursOfDay: "9,10,22-23"},
			now:  tuesday,
			want: true,
		},
		{
			name: "malformed hour tokens are ignored",
			opts: ruleset.OnLoadOptions{HoursOfDay: "x,9-y,10"},
			now:  tuesday,
			want: true,
		},
		{
			name: "all hour tokens malformed admits nothing",
			opts: ruleset.OnLoadOptions{HoursOfDay: "x,y"},
			now:  tuesday,
			want: false,
		},
		{
			name: "all hours token admits any hour",
			opts: ruleset.OnLoadOptions{HoursOfDay: "all"},
			now:  tuesday,
			want: true,
		},
		{
			name: "all token is case-insensitive",
			opts: ruleset.OnLoadOptions{MonthsOfYear: "All"},
			now:  tuesday,
			want: true,
		},
		{
			name: "all token alongside numbers admits",
			opts: ruleset.OnLoadOptions{WeeksOfMonth: "1,all"},
			now:  fifthWeek,
			want: true,
		},
		{
			name: "all token leaves other filters conjunctive",
			opts: ruleset.OnLoadOptions{HoursOfDay: "all", DaysOfWeek: "1,2,3"},
			now:  saturday,
			want: false,
		},
		{
			name: "first week",
			opts: ruleset.OnLoadOptions{WeeksOfMonth: "1"},
			now:  tuesday,
			want: true,
		},
		{
			name: "partial fifth week never matches 1-4",
			opts: ruleset.OnLoadOptions{WeeksOfMonth: "1,2,3,4"},
			now:  fifthWeek,
			want: false,
		},
		{
			name: "partial fifth week matches 5",
			opts: ruleset.OnLoadOptions{WeeksOfMonth: "5"},
			now:  fifthWeek,
			want: true,
		},
		{
			name: "month filter admits",
			opts: ruleset.OnLoadOptions{MonthsOfYear: "9,10"},
			now:  tuesday,
			want: true,
		},
		{
			name: "month filter rejects",
			opts: ruleset.OnLoadOptions{MonthsOfYear: "1,2"},
			now:  tuesday,
			want: false,
		},
		{
			name: "filters are conjunctive",
			opts: ruleset.OnLoadOptions{DaysOfWeek: "2", HoursOfDay: "12-14"},
			now:  tuesday,
			want: false,
		},
		{
			name: "all filters admit together",
			opts: ruleset.OnLoadOptions{
				DaysOfWeek:   "2",
				HoursOfDay:   "10",
				WeeksOfMonth: "1",
				MonthsOfYear: "9",
			},
			now:  tuesday,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, engine.Admit(tt.now, tt.opts))
		})
	}
}
