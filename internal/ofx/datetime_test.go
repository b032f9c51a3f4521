package ofx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  time.Time
	}{
		{
			name:  "date only is midnight UTC",
			token: "20170716",
			want:  time.Date(2017, 7, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "date-time without offset is already UTC",
			token: "20170717091500",
			want:  time.Date(2017, 7, 17, 9, 15, 0, 0, time.UTC),
		},
		{
			name:  "milliseconds without offset",
			token: "20170717091500.123",
			want:  time.Date(2017, 7, 17, 9, 15, 0, 123000000, time.UTC),
		},
		{
			name:  "zero offset maps to UTC",
			token: "20170717091500.123[0:GMT]",
			want:  time.Date(2017, 7, 17, 9, 15, 0, 123000000, time.UTC),
		},
		{
			name:  "offset without milliseconds defaults them to zero",
			token: "20170717091500[0:GMT]",
			want:  time.Date(2017, 7, 17, 9, 15, 0, 0, time.UTC),
		},
		{
			name:  "single digit positive offset",
			token: "20170717091500[1:BST]",
			want:  time.Date(2017, 7, 17, 8, 15, 0, 0, time.UTC),
		},
		{
			name:  "explicit plus sign",
			token: "20170717091500[+2:CEST]",
			want:  time.Date(2017, 7, 17, 7, 15, 0, 0, time.UTC),
		},
		{
			name:  "negative offset",
			token: "20170717091500[-5:EST]",
			want:  time.Date(2017, 7, 17, 14, 15, 0, 0, time.UTC),
		},
		{
			name:  "two digit offset",
			token: "20170717091500[11:AEDT]",
			want:  time.Date(2017, 7, 16, 22, 15, 0, 0, time.UTC),
		},
		{
			name:  "milliseconds and negative offset",
			token: "20170717091500.500[-3:BRT]",
			want:  time.Date(2017, 7, 17, 12, 15, 0, 500000000, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateTime(tt.token)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseDateTimeFailures(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "too short", token: "2017"},
		{name: "letters", token: "not-a-date"},
		{name: "time truncated", token: "201707170915"},
		{name: "invalid calendar date", token: "20171345"},
		{name: "invalid clock", token: "20170717256000"},
		{name: "fractional hour offset is unsupported", token: "20170717091500[5.5:IST]"},
		{name: "offset out of range", token: "20170717091500[13:XXX]"},
		{name: "offset without zone name", token: "20170717091500[5]"},
		{name: "trailing garbage", token: "20170716abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDateTime(tt.token)
			assert.Error(t, err)
		})
	}
}

// Adding the offset back to the parsed instant must reproduce the token's
// wall-clock digits.
func TestParseDateTimeOffsetRoundTrip(t *testing.T) {
	tokens := map[string]int{
		"20170717091500[0:GMT]":   0,
		"20170717091500[1:BST]":   1,
		"20170717091500[9:JST]":   9,
		"20170717091500[12:NZST]": 12,
		"20170717091500[-5:EST]":  -5,
		"20170717091500[-10:HST]": -10,
	}

	for token, hours := range tokens {
		got, err := ParseDateTime(token)
		require.NoError(t, err)
		local := got.Add(time.Duration(hours) * time.Hour)
		assert.Equal(t, "20170717091500", local.Format("20060102150405"), "token %s", token)
	}
}

// The parser is pure: repeated calls on the same token yield identical
// results.
func TestParseDateTimeIdempotent(t *testing.T) {
	token := "20170717091500.123[-5:EST]"

	first, err := ParseDateTime(token)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := ParseDateTime(token)
		require.NoError(t, err)
		assert.True(t, first.Equal(again))
	}
}
