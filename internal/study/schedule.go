package study

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// PublishHour is the hour of day studies go live
const PublishHour = 9

// NextWednesday returns the next Wednesday at 09:00 in from's location. On a
// Wednesday before noon that is the same day; from noon on it is a week later.
func NextWednesday(from time.Time) time.Time {
	days := (int(time.Wednesday) - int(from.Weekday()) + 7) % 7
	if days == 0 && from.Hour() >= 12 {
		days = 7
	}
	d := from.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), PublishHour, 0, 0, 0, from.Location())
}

var naturalDates = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseSchedule resolves a schedule given as RFC 3339, as a plain date
// (published at 09:00 UTC) or in natural language such as
// "next wednesday 9am", relative to base
func ParseSchedule(text string, base time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty schedule")
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t.UTC(), nil
	}
	if d, err := time.Parse("2006-01-02", text); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), PublishHour, 0, 0, 0, time.UTC), nil
	}

	result, err := naturalDates.Parse(text, base)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q: %w", text, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("could not understand schedule %q", text)
	}
	return result.Time.UTC(), nil
}
