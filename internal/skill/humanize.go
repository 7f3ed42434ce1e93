package skill

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Spoken magnitudes, e.g. "a few seconds", "an hour", "3 days".
var spokenMagnitudes = []humanize.RelTimeMagnitude{
	{D: 45 * time.Second, Format: "a few seconds %s"},
	{D: 90 * time.Second, Format: "a minute %s"},
	{D: 45 * time.Minute, Format: "%d minutes %s", DivBy: time.Minute},
	{D: 90 * time.Minute, Format: "an hour %s"},
	{D: 22 * time.Hour, Format: "%d hours %s", DivBy: time.Hour},
	{D: 36 * time.Hour, Format: "a day %s"},
	{D: 26 * day, Format: "%d days %s", DivBy: day},
	{D: 45 * day, Format: "a month %s"},
	{D: 320 * day, Format: "%d months %s", DivBy: 30 * day},
	{D: 548 * day, Format: "a year %s"},
	{D: math.MaxInt64, Format: "%d years %s", DivBy: 365 * day},
}

// Humanize renders d the way it is spoken back to the user.
func Humanize(d time.Duration) string {
	return humanizeWith(d, "")
}

// HumanizeFromNow renders d followed by "from now".
func HumanizeFromNow(d time.Duration) string {
	return humanizeWith(d, "from now")
}

func humanizeWith(d time.Duration, label string) string {
	var base time.Time
	d = roundToSpokenUnit(d)
	return strings.TrimSpace(humanize.CustomRelTime(base, base.Add(d), label, label, spokenMagnitudes))
}

// roundToSpokenUnit rounds d to the nearest unit its range is spoken in, so
// 10h40m is "11 hours" rather than "10 hours".
func roundToSpokenUnit(d time.Duration) time.Duration {
	switch {
	case d < 45*time.Second:
		return d
	case d < 45*time.Minute:
		return d.Round(time.Minute)
	case d < 22*time.Hour:
		return d.Round(time.Hour)
	case d < 26*day:
		return d.Round(day)
	case d < 320*day:
		return d.Round(30 * day)
	default:
		return d.Round(365 * day)
	}
}
