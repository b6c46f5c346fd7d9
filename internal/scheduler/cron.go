// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package scheduler

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
	"time"
)

// Schedule yields the next activation strictly after a given instant.
type Schedule interface {
	Next(after time.Time) time.Time
}

// Cron is a parsed 5-field cron expression: minute hour day-of-month month day-of-week.
// Each field is stored as a bit set of the values it accepts.
type Cron struct {
	expr    string
	minutes uint64 // bits 0-59
	hours   uint64 // bits 0-23
	doms    uint64 // bits 1-31
	months  uint64 // bits 1-12
	dows    uint64 // bits 0-6, 0 = Sunday

	domStar bool
	dowStar bool
	loc     *time.Location
}

// ParseCron parses a cron expression evaluated in the local timezone.
//
// Supported syntax per field: *, n, n-m, lists with commas, and steps
// (*/s, n/s, n-m/s). Day-of-week accepts 0-7 with both 0 and 7 meaning Sunday.
//
// Examples:
//   - "0 3 * * *" - daily at 03:00
//   - "*/5 * * * *" - every 5 minutes
func ParseCron(expr string) (*Cron, error) {
	return ParseCronIn(expr, time.Local)
}

// ParseCronIn parses a cron expression evaluated in loc. A nil loc means UTC.
func ParseCronIn(expr string, loc *time.Location) (*Cron, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}
	if loc == nil {
		loc = time.UTC
	}

	c := &Cron{expr: expr, loc: loc}
	specs := []struct {
		name     string
		dst      *uint64
		min, max int
	}{
		{"minute", &c.minutes, 0, 59},
		{"hour", &c.hours, 0, 23},
		{"day-of-month", &c.doms, 1, 31},
		{"month", &c.months, 1, 12},
		{"day-of-week", &c.dows, 0, 7},
	}
	for i, spec := range specs {
		mask, err := parseField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", spec.name, err)
		}
		*spec.dst = mask
	}

	// Fold 7 onto Sunday.
	if c.dows&(1<<7) != 0 {
		c.dows = (c.dows &^ (1 << 7)) | 1
	}
	c.domStar = fields[2] == "*" || bits.OnesCount64(c.doms) == 31
	c.dowStar = fields[4] == "*" || bits.OnesCount64(c.dows) == 7

	return c, nil
}

// String returns the source expression.
func (c *Cron) String() string {
	return c.expr
}

// Next returns the first matching minute strictly after after.
// A zero time is returned if nothing matches within four years
// (for example "0 0 31 2 *").
func (c *Cron) Next(after time.Time) time.Time {
	t := after.In(c.loc).Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(4, 0, 0)

	for t.Before(limit) {
		if !has(c.months, int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, c.loc)
			continue
		}
		if !c.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, c.loc)
			continue
		}
		if !has(c.hours, t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, c.loc)
			continue
		}
		if !has(c.minutes, t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}
	return time.Time{}
}

// dayMatches applies the usual cron rule: when both day fields are
// restricted, either one matching is enough.
func (c *Cron) dayMatches(t time.Time) bool {
	dom := has(c.doms, t.Day())
	dow := has(c.dows, int(t.Weekday()))
	switch {
	case c.domStar && c.dowStar:
		return true
	case c.domStar:
		return dow
	case c.dowStar:
		return dom
	default:
		return dom || dow
	}
}

func has(mask uint64, v int) bool {
	return mask&(1<<uint(v)) != 0
}

func parseField(field string, minVal, maxVal int) (uint64, error) {
	var mask uint64
	for _, part := range strings.Split(field, ",") {
		m, err := parsePart(part, minVal, maxVal)
		if err != nil {
			return 0, err
		}
		mask |= m
	}
	return mask, nil
}

func parsePart(part string, minVal, maxVal int) (uint64, error) {
	if part == "" {
		return 0, fmt.Errorf("empty value")
	}

	rangePart, step := part, 1
	if i := strings.IndexByte(part, '/'); i >= 0 {
		s, err := strconv.Atoi(part[i+1:])
		if err != nil || s <= 0 {
			return 0, fmt.Errorf("invalid step value: %s", part[i+1:])
		}
		rangePart, step = part[:i], s
	}

	var lo, hi int
	switch {
	case rangePart == "*":
		lo, hi = minVal, maxVal
	case strings.Contains(rangePart, "-"):
		bounds := strings.SplitN(rangePart, "-", 2)
		var err error
		if lo, err = strconv.Atoi(bounds[0]); err != nil {
			return 0, fmt.Errorf("invalid range start: %s", bounds[0])
		}
		if hi, err = strconv.Atoi(bounds[1]); err != nil {
			return 0, fmt.Errorf("invalid range end: %s", bounds[1])
		}
	default:
		v, err := strconv.Atoi(rangePart)
		if err != nil {
			return 0, fmt.Errorf("invalid value: %s", rangePart)
		}
		lo, hi = v, v
		if step > 1 {
			// "n/s" runs from n to the end of the field.
			hi = maxVal
		}
	}

	if lo < minVal || hi > maxVal || lo > hi {
		return 0, fmt.Errorf("value out of range: %s (allowed %d-%d)", rangePart, minVal, maxVal)
	}

	var mask uint64
	for v := lo; v <= hi; v += step {
		mask |= 1 << uint(v)
	}
	return mask, nil
}

// Every is a fixed-interval schedule.
type Every time.Duration

// Next returns after plus the interval.
func (e Every) Next(after time.Time) time.Time {
	return after.Add(time.Duration(e))
}
