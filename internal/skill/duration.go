package skill

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

const (
	dayLayout = "2006-01-02"
	day       = 24 * time.Hour
)

var timeLayouts = []string{"15:04", "15:04:05"}

// Time-of-day codes the platform uses for "morning", "afternoon", "evening" and "night".
var timeOfDayCodes = map[string]string{
	"MO": "09:00",
	"AF": "14:00",
	"EV": "19:00",
	"NI": "22:00",
}

// ComputeDuration returns how long from now until the reminder described by
// action should fire. An explicit duration wins over day and time. A day with
// no time keeps now's time of day. A time with no day means today, or
// tomorrow if that moment has already passed.
func ComputeDuration(action Action, now time.Time) (time.Duration, error) {
	if action.Duration != "" {
		d, err := duration.Parse(action.Duration)
		if err != nil {
			return 0, fmt.Errorf("%w: duration %q: %v", ErrInvalidTarget, action.Duration, err)
		}
		if !representable(d) {
			return 0, fmt.Errorf("%w: duration %q out of range", ErrInvalidTarget, action.Duration)
		}
		if d.Negative {
			return 0, fmt.Errorf("%w: duration %q", ErrTargetInPast, action.Duration)
		}
		return d.ToTimeDuration(), nil
	}

	switch {
	case action.Day != "":
		var target time.Time
		var err error
		if action.Time != "" {
			target, err = parseTarget(action.Day, action.Time, now.Location())
		} else {
			target, err = sameClockOn(action.Day, now)
		}
		if err != nil {
			return 0, err
		}
		d := target.Sub(now)
		if d < 0 {
			return 0, fmt.Errorf("%w: %s", ErrTargetInPast, target.Format(time.RFC3339))
		}
		return d, nil

	case action.Time != "":
		target, err := parseTarget(now.Format(dayLayout), action.Time, now.Location())
		if err != nil {
			return 0, err
		}
		if target.Before(now) {
			target = target.Add(day)
		}
		return target.Sub(now), nil
	}

	return 0, ErrNoTarget
}

// representable reports whether d fits in a time.Duration. Units match the
// ones ToTimeDuration converts with.
func representable(d *duration.Duration) bool {
	const year = 365 * day
	ns := d.Years*float64(year) +
		d.Months*float64(year/12) +
		d.Weeks*float64(7*day) +
		d.Days*float64(day) +
		d.Hours*float64(time.Hour) +
		d.Minutes*float64(time.Minute) +
		d.Seconds*float64(time.Second)
	return ns < float64(math.MaxInt64-int64(time.Second))
}

// sameClockOn is dayValue at now's exact time of day.
func sameClockOn(dayValue string, now time.Time) (time.Time, error) {
	date, err := time.ParseInLocation(dayLayout, dayValue, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTarget, dayValue)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location()), nil
}

// parseTarget reads "day clock" as a wall-clock instant in loc.
func parseTarget(dayValue, clock string, loc *time.Location) (time.Time, error) {
	if code, ok := timeOfDayCodes[strings.ToUpper(clock)]; ok {
		clock = code
	}
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(dayLayout+" "+layout, dayValue+" "+clock, loc)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q at %q", ErrInvalidTarget, dayValue, clock)
}
