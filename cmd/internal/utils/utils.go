package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

func FormatEpoch(millis int64) string {
	return time.UnixMilli(millis).
		UTC().
		Format(time.RFC3339)
}

// ParseDate parses a calendar date (YYYY-MM-DD) as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ParseClock converts "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// DateAndMinute splits an instant into the calendar date and minute of day
// as seen in loc.
func DateAndMinute(t time.Time, loc *time.Location) (string, int) {
	local := t.In(loc)
	return local.Format(DateLayout), local.Hour()*60 + local.Minute()
}

// AddDays shifts a YYYY-MM-DD date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// ValidRange checks that from <= to for two YYYY-MM-DD dates.
func ValidRange(from, to string) error {
	f, err := ParseDate(from)
	if err != nil {
		return err
	}
	t, err := ParseDate(to)
	if err != nil {
		return err
	}
	if t.Before(f) {
		return errors.New("range end is before range start")
	}
	return nil
}

func Sanitize(o any) {
	v := reflect.ValueOf(o)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		panic("sanitize: expected pointer to struct")
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		panic("sanitize: expected struct")
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(sanitizeString(field.String()))

		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				for j := 0; j < field.Len(); j++ {
					field.Index(j).SetString(sanitizeString(field.Index(j).String()))
				}
			}
		}
	}
}

func sanitizeString(s string) string {
	return strings.TrimSpace(s)
}
