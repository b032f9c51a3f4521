package ofx

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// OFX date tokens arrive in several shapes from the same bank, sometimes in
// the same file: a bare date, a date-time, a date-time with milliseconds, and
// any of those with a bracketed hour offset such as [0:GMT] or [-5:EST].
// dateTokenRe matches the whole grammar in one pass; the optional groups
// decide which shape we got.
var dateTokenRe = regexp.MustCompile(`^(\d{8})(?:(\d{6})(?:\.(\d{3}))?(?:\[([+-]?\d{1,2}):[A-Za-z]+\])?)?$`)

// ParseDateTime converts an OFX date token to a UTC instant.
//
// Shapes, in priority order:
//
//	YYYYMMDD                   midnight UTC on that date
//	YYYYMMDDHHMMSS             that instant, already UTC
//	YYYYMMDDHHMMSS.mmm         as above with milliseconds
//	YYYYMMDDHHMMSS[.mmm][±N:TZ] local instant at an integer hour offset N,
//	                           converted to UTC; milliseconds default to 000
//
// Fractional-hour offsets (e.g. [5.5:IST]) are unsupported and fail the
// parse rather than being rounded. The function is pure: same token in,
// same instant out, no state between calls. A token matching none of the
// shapes returns an error; callers drop the line, never the batch.
func ParseDateTime(token string) (time.Time, error) {
	m := dateTokenRe.FindStringSubmatch(token)
	if m == nil {
		return time.Time{}, fmt.Errorf("malformed OFX date token %q", token)
	}

	date, clock, msec, offset := m[1], m[2], m[3], m[4]

	if clock == "" {
		t, err := time.Parse("20060102", date)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid OFX date %q: %w", token, err)
		}
		return t, nil
	}

	t, err := time.Parse("20060102150405", date+clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid OFX date-time %q: %w", token, err)
	}

	if msec != "" {
		ms, _ := strconv.Atoi(msec)
		t = t.Add(time.Duration(ms) * time.Millisecond)
	}

	if offset != "" {
		hours, err := strconv.Atoi(offset)
		if err != nil || hours < -12 || hours > 12 {
			return time.Time{}, fmt.Errorf("unsupported timezone offset in OFX date token %q", token)
		}
		// The digits are local wall-clock time; subtracting the offset
		// yields the UTC instant.
		t = t.Add(-time.Duration(hours) * time.Hour)
	}

	return t, nil
}
