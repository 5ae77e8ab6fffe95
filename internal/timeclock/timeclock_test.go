package timeclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Minute {
	t.Helper()
	m, err := Parse(s)
	require.NoError(t, err)
	return m
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Minute
	}{
		{"06:15", 375},
		{"06:15:00", 375},
		{"06:15:29", 375},
		{"06:15:30", 376},
		{"00:00", 0},
		{"23:59", 1439},
		{"24:00:00", 0},     // service-day rollover normalizes
		{"25:10:00", 70},    // hours taken modulo 24
		{"7", 420},          // missing fields default to zero
		{"7:", 420},
		{"07:05:", 425},
	}
	for _, tc := range tests {
		got, err := Parse(tc.in)
		require.NoError(t, err, "Parse(%q)", tc.in)
		assert.Equal(t, tc.want, got, "Parse(%q)", tc.in)
	}

	for _, bad := range []string{"", "  ", "ab:cd", "-1:00", "1:2:3:4"} {
		_, err := Parse(bad)
		assert.Error(t, err, "Parse(%q)", bad)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "06:05", Minute(365).Format())
	assert.Equal(t, "00:00", Minute(0).Format())
	assert.Equal(t, "23:59", Minute(1439).Format())
}

func TestForwardDistance(t *testing.T) {
	// Identity: zero distance to self everywhere on the ring.
	for _, a := range []Minute{0, 1, 719, 1439} {
		assert.Equal(t, 0, ForwardDistance(a, a))
	}

	// Going around both ways sums to a full day unless both are zero.
	pairs := [][2]Minute{{0, 1}, {100, 900}, {1400, 30}, {1439, 0}}
	for _, p := range pairs {
		f := ForwardDistance(p[0], p[1])
		b := ForwardDistance(p[1], p[0])
		assert.Equal(t, 0, (f+b)%MinutesPerDay)
	}

	// Overnight wrap: 22:00 -> 01:30 is 210 minutes forward.
	assert.Equal(t, 210, ForwardDistance(mustParse(t, "22:00"), mustParse(t, "01:30")))
	// 22:00 -> 20:00 is only reachable the long way around.
	assert.Equal(t, 1320, ForwardDistance(mustParse(t, "22:00"), mustParse(t, "20:00")))
}

func TestWindowContains(t *testing.T) {
	day := Window{Start: mustParse(t, "06:00"), End: mustParse(t, "10:00")}
	for m := Minute(0); m < MinutesPerDay; m++ {
		want := m >= day.Start && m <= day.End
		assert.Equal(t, want, day.Contains(m), "day window at %s", m.Format())
	}

	night := Window{Start: mustParse(t, "22:00"), End: mustParse(t, "02:00")}
	for m := Minute(0); m < MinutesPerDay; m++ {
		want := m >= night.Start || m <= night.End
		assert.Equal(t, want, night.Contains(m), "night window at %s", m.Format())
	}
}

func TestWindowOverlaps(t *testing.T) {
	w := Window{Start: mustParse(t, "23:00"), End: mustParse(t, "01:00")}

	// Interval itself wraps and overlaps the wrapping window.
	assert.True(t, w.Overlaps(mustParse(t, "23:50"), mustParse(t, "00:10")))
	// Entirely before the window.
	assert.False(t, w.Overlaps(mustParse(t, "20:00"), mustParse(t, "21:00")))
	// Touching the boundary counts.
	assert.True(t, w.Overlaps(mustParse(t, "22:00"), mustParse(t, "23:00")))

	day := Window{Start: mustParse(t, "06:00"), End: mustParse(t, "20:00")}
	assert.False(t, day.Overlaps(mustParse(t, "23:50"), mustParse(t, "23:55")))
	assert.True(t, day.Overlaps(mustParse(t, "19:00"), mustParse(t, "21:00")))
}

func TestWindowClamp(t *testing.T) {
	day := Window{Start: mustParse(t, "06:00"), End: mustParse(t, "10:00")}
	assert.Equal(t, mustParse(t, "06:00"), day.Clamp(mustParse(t, "05:00")))
	assert.Equal(t, mustParse(t, "10:00"), day.Clamp(mustParse(t, "11:30")))
	assert.Equal(t, mustParse(t, "07:45"), day.Clamp(mustParse(t, "07:45")))

	night := Window{Start: mustParse(t, "22:00"), End: mustParse(t, "02:00")}
	// Inside an overnight window: unchanged, both sides of midnight.
	assert.Equal(t, mustParse(t, "23:30"), night.Clamp(mustParse(t, "23:30")))
	assert.Equal(t, mustParse(t, "01:15"), night.Clamp(mustParse(t, "01:15")))
	// Outside: snap to the circularly closer boundary.
	assert.Equal(t, mustParse(t, "22:00"), night.Clamp(mustParse(t, "20:00")))
	assert.Equal(t, mustParse(t, "02:00"), night.Clamp(mustParse(t, "03:00")))
}

func TestAdd(t *testing.T) {
	assert.Equal(t, mustParse(t, "00:30"), mustParse(t, "23:45").Add(45))
	assert.Equal(t, mustParse(t, "23:45"), mustParse(t, "00:30").Add(-45))
}
