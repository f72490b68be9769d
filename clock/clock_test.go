package clock

import (
	"testing"
	"time"
)

type fixed time.Time

func (f fixed) Now() time.Time { return time.Time(f) }

func TestDay(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)

	tests := map[string]struct {
		In   time.Time
		Want time.Time
	}{
		"utc-midday": {
			time.Date(2025, 12, 24, 12, 30, 0, 0, time.UTC),
			time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC),
		},
		"local-late-evening": {
			// 23:00 in BRT is already the 25th in UTC, the calendar day stays the 24th.
			time.Date(2025, 12, 24, 23, 0, 0, 0, loc),
			time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Day(test.In); !got.Equal(test.Want) {
				t.Errorf("expected %s, got %s", test.Want, got)
			}
		})
	}
}

func TestToday(t *testing.T) {
	c := fixed(time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC))
	if got := Today(c); !got.Equal(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected day %s", got)
	}
}
