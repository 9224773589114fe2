// Package schedule normalizes job schedule specifications into trigger fields.
//
// A specification is either a classic 5-field cron string
// ("minute hour day-of-month month day-of-week") or a mapping with named
// keys (second, minute, hour, day, month, day_of_week, week). Both forms
// normalize to the same TriggerFields value, which the scheduler registers
// with its cron dispatcher.
package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

// fieldParser validates classic 5-field cron expressions.
var fieldParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// recognized maps specification keys to TriggerFields slots. Keys outside
// this set are carried in Extra without interpretation.
var recognized = map[string]bool{
	"second":      true,
	"minute":      true,
	"hour":        true,
	"day":         true,
	"month":       true,
	"day_of_week": true,
	"week":        true,
}

// TriggerFields is the canonical form of a schedule. Unset fields fire on
// every value of that unit, matching cron "*" semantics.
type TriggerFields struct {
	Second    string
	Minute    string
	Hour      string
	Day       string
	Month     string
	DayOfWeek string
	Week      string

	// Extra holds unrecognized mapping keys, passed through uninterpreted.
	Extra map[string]string
}

// Parse normalizes a schedule specification. Accepted forms are a cron
// string and a key/value mapping; anything else is an InvalidScheduleError.
// Parse has no side effects and performs no registration.
func Parse(spec any) (*TriggerFields, error) {
	switch v := spec.(type) {
	case string:
		return parseCronString(v)
	case map[string]any:
		return parseFieldMap(v)
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[k] = val
		}
		return parseFieldMap(m)
	case nil:
		return nil, &InvalidScheduleError{Spec: "", Reason: "schedule is empty"}
	default:
		return nil, &InvalidScheduleError{
			Spec:   fmt.Sprintf("%v", spec),
			Reason: fmt.Sprintf("unsupported schedule type %T", spec),
		}
	}
}

// parseCronString splits and validates a 5-field cron expression, assigning
// fields positionally: minute, hour, day-of-month, month, day-of-week.
func parseCronString(expr string) (*TriggerFields, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, &InvalidScheduleError{Spec: expr, Reason: "schedule is empty"}
	}

	fields := strings.Fields(trimmed)
	if len(fields) != 5 {
		return nil, &InvalidScheduleError{
			Spec:   expr,
			Reason: fmt.Sprintf("expected 5 cron fields, got %d", len(fields)),
		}
	}

	if _, err := fieldParser.Parse(trimmed); err != nil {
		return nil, &InvalidScheduleError{Spec: expr, Reason: "cron syntax", Err: err}
	}

	return &TriggerFields{
		Minute:    fields[0],
		Hour:      fields[1],
		Day:       fields[2],
		Month:     fields[3],
		DayOfWeek: fields[4],
	}, nil
}

// parseFieldMap reads named trigger keys. At least one recognized key must
// be present; unrecognized keys ride along in Extra.
func parseFieldMap(m map[string]any) (*TriggerFields, error) {
	tf := &TriggerFields{}
	found := false
	for key, raw := range m {
		val := formatValue(raw)
		if !recognized[key] {
			if tf.Extra == nil {
				tf.Extra = make(map[string]string)
			}
			tf.Extra[key] = val
			continue
		}
		found = true
		switch key {
		case "second":
			tf.Second = val
		case "minute":
			tf.Minute = val
		case "hour":
			tf.Hour = val
		case "day":
			tf.Day = val
		case "month":
			tf.Month = val
		case "day_of_week":
			tf.DayOfWeek = val
		case "week":
			tf.Week = val
		}
	}
	if !found {
		return nil, &InvalidScheduleError{
			Spec:   renderMap(m),
			Reason: "no recognized trigger keys (second, minute, hour, day, month, day_of_week, week)",
		}
	}
	return tf, nil
}

// CronExpr renders the fields as a cron expression suitable for the
// dispatcher. A leading seconds field is emitted only when Second is set.
// Week has no cron axis, so a week-bearing schedule is rejected here rather
// than silently dropped.
func (t *TriggerFields) CronExpr() (string, error) {
	if t.Week != "" {
		return "", &InvalidScheduleError{
			Spec:   t.pairs(),
			Reason: "week-of-year is not supported by the cron dispatcher",
		}
	}

	parts := []string{
		orStar(t.Minute),
		orStar(t.Hour),
		orStar(t.Day),
		orStar(t.Month),
		orStar(t.DayOfWeek),
	}
	if t.Second != "" {
		parts = append([]string{t.Second}, parts...)
	}
	return strings.Join(parts, " "), nil
}

// HasSeconds reports whether the schedule carries a seconds field.
func (t *TriggerFields) HasSeconds() bool {
	return t.Second != ""
}

// String renders a human-readable form for logs and listings.
func (t *TriggerFields) String() string {
	if expr, err := t.CronExpr(); err == nil && len(t.Extra) == 0 {
		return expr
	}
	return t.pairs()
}

// pairs renders the set fields as key=value tokens. It never consults
// CronExpr, so the CronExpr error path can use it for the spec text.
func (t *TriggerFields) pairs() string {
	pairs := make([]string, 0, 8)
	appendPair := func(k, v string) {
		if v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	appendPair("second", t.Second)
	appendPair("minute", t.Minute)
	appendPair("hour", t.Hour)
	appendPair("day", t.Day)
	appendPair("month", t.Month)
	appendPair("day_of_week", t.DayOfWeek)
	appendPair("week", t.Week)
	extras := make([]string, 0, len(t.Extra))
	for k, v := range t.Extra {
		extras = append(extras, k+"="+v)
	}
	sort.Strings(extras)
	pairs = append(pairs, extras...)
	return strings.Join(pairs, " ")
}

func orStar(v string) string {
	if v == "" {
		return "*"
	}
	return v
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%v", v)
	}
}

func renderMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(pairs, " ")
}
