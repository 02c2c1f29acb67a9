package util

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"
)

const secondsPerDay = 24 * 60 * 60

var ErrDurationTooLong = errors.New("duration is 24 hours or longer")
var ErrNegativeDuration = errors.New("duration is negative")

// DurationToTimeString converts a duration in seconds to hh:mm:ss.
// Durations of a day or more are not wrapped: the hours keep counting past 23 and
// ErrDurationTooLong is returned alongside so the caller can flag it.
func DurationToTimeString(seconds int64) (string, error) {
	if seconds < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegativeDuration, seconds)
	}

	timeString := fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)

	if seconds >= secondsPerDay {
		return timeString, fmt.Errorf("%w: %d seconds", ErrDurationTooLong, seconds)
	}

	return timeString, nil
}

// TimestampToTimeString formats a unix timestamp as hh:mm:ss in the given location
func TimestampToTimeString(timestamp int64, location *time.Location) string {
	if location == nil {
		location = time.UTC
	}

	return time.Unix(timestamp, 0).In(location).Format("15:04:05")
}

// TimestampToDateTimeString formats a unix timestamp as "YYYY-MM-DD hh:mm:ss" in UTC
func TimestampToDateTimeString(timestamp int64) string {
	return time.Unix(timestamp, 0).UTC().Format("2006-01-02 15:04:05")
}
