package utils

import (
	"time"
)

// RaidTimeLayout is the input format for raid start times: day.month hour:minute
const RaidTimeLayout = "02.01 15:04"

// RaidTimeDisplayLayout is used when showing a start time back to the user
const RaidTimeDisplayLayout = "02.01.2006 15:04"

// ParseRaidStart parses a raid start time in the fixed human format,
// defaulting the year to the current one and interpreting the result in loc.
func ParseRaidStart(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(RaidTimeLayout, raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(now.Year(), parsed.Month(), parsed.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}
