package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("15/01/2024")
	assert.Error(t, err)
}

func TestDaysInclusive(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		expected   int
	}{
		{"same day", "2024-01-15", "2024-01-15", 1},
		{"one week", "2024-01-15", "2024-01-21", 7},
		{"leap february", "2024-02-01", "2024-02-29", 29},
		{"reversed", "2024-01-21", "2024-01-15", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := ParseDate(tt.start)
			e, _ := ParseDate(tt.end)
			assert.Equal(t, tt.expected, DaysInclusive(s, e))
		})
	}
}

func TestDateOfDropsClock(t *testing.T) {
	in := time.Date(2024, 3, 5, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), DateOf(in))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 85.71, Round2(30.0/35.0*100))
	assert.Equal(t, 5.0, Round2(5))
}

func TestUserHourOverrideActiveDuring(t *testing.T) {
	start, _ := ParseDate("2024-02-01")
	end, _ := ParseDate("2024-02-29")

	open := UserHourOverride{}
	assert.True(t, open.ActiveDuring(start, end))

	bounded := UserHourOverride{StartDate: &start, EndDate: &end}
	assert.True(t, bounded.ActiveDuring(start, end))
	assert.False(t, bounded.ActiveDuring(AddDays(start, -1), end))
	assert.False(t, bounded.ActiveDuring(start, AddDays(end, 1)))
}

func TestUpstreamWorklogValid(t *testing.T) {
	now := time.Now()
	assert.True(t, UpstreamWorklog{ID: "1", StartTime: now, EndTime: now}.Valid())
	assert.False(t, UpstreamWorklog{StartTime: now, EndTime: now}.Valid())
	assert.False(t, UpstreamWorklog{ID: "1", EndTime: now}.Valid())
	assert.False(t, UpstreamWorklog{ID: "1", StartTime: now}.Valid())
}

func TestIvaUserExternalID(t *testing.T) {
	u := IvaUser{ExternalUserIDv1: "a", ExternalUserIDv2: "b"}
	assert.Equal(t, "a", u.ExternalID(APIv1))
	assert.Equal(t, "b", u.ExternalID(APIv2))
}
