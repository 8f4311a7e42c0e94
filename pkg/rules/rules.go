package rules

import (
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/pacemaker-scheduler/pkg/types"
)

// Context is the subject state a rule tree is evaluated against.
type Context struct {
	Now       time.Time
	NodeAttrs map[string]string
}

// maxLookahead bounds the brute-force date-spec boundary search so a
// never-matching spec can't hang a scheduling pass.
const maxLookahead = 2 * 366 * 24 * time.Hour

// stepGranularity is the finest resolution date-spec boundaries are
// searched at; Pacemaker's own date specs bottom out at minutes.
const stepGranularity = time.Minute

// Evaluate walks a location-rule expression tree and returns whether it
// currently passes, plus the earliest future time any leaf's value would
// flip (nil if none of the leaves are time-dependent or none flip within
// maxLookahead).
func Evaluate(e *types.LocationRuleExpr, ctx Context) (bool, *time.Time) {
	if e == nil {
		return true, nil
	}
	if e.BooleanOp == "" {
		return evaluateLeaf(e, ctx)
	}

	var next *time.Time
	result := e.BooleanOp == "and" // and starts true, or starts false
	for i, child := range e.Children {
		pass, childNext := Evaluate(child, ctx)
		if i == 0 {
			result = pass
		} else if e.BooleanOp == "and" {
			result = result && pass
		} else {
			result = result || pass
		}
		next = earliest(next, childNext)
	}
	return result, next
}

func evaluateLeaf(e *types.LocationRuleExpr, ctx Context) (bool, *time.Time) {
	switch {
	case e.DateSpec != nil:
		return evaluateDateSpec(e.DateSpec, ctx.Now)
	case e.Expression != nil:
		return evaluateAttrExpr(e.Expression, ctx)
	default:
		// An empty leaf (e.g. a bare score with no condition) always passes
		// and never changes.
		return true, nil
	}
}

func evaluateAttrExpr(expr *types.AttrExpr, ctx Context) (bool, *time.Time) {
	if expr.Range != nil {
		return evaluateDateRange(expr.Range, ctx.Now)
	}

	val, defined := ctx.NodeAttrs[expr.Attribute]
	switch expr.Operation {
	case "defined":
		return defined, nil
	case "not_defined":
		return !defined, nil
	}
	if !defined {
		return false, nil
	}

	cmp, ok := compareValues(val, expr.Value, expr.ValueType)
	if !ok {
		return false, nil
	}
	switch expr.Operation {
	case "eq":
		return cmp == 0, nil
	case "ne":
		return cmp != 0, nil
	case "lt":
		return cmp < 0, nil
	case "lte":
		return cmp <= 0, nil
	case "gt":
		return cmp > 0, nil
	case "gte":
		return cmp >= 0, nil
	default:
		return false, nil
	}
}

// compareValues compares according to the declared value type, defaulting
// to string comparison. Attribute expressions never carry a time
// component, so no next-change instant applies to them.
func compareValues(a, b, valueType string) (int, bool) {
	switch valueType {
	case "integer", "number":
		af, aerr := strconv.ParseFloat(a, 64)
		bf, berr := strconv.ParseFloat(b, 64)
		if aerr != nil || berr != nil {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	case "version":
		return compareVersions(a, b), true
	default:
		return strings.Compare(a, b), true
	}
}

func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func evaluateDateRange(r *types.DateRange, now time.Time) (bool, *time.Time) {
	switch r.Operation {
	case "gt":
		if !r.HasStart {
			return false, nil
		}
		if now.After(r.Start) {
			return true, nil
		}
		return false, &r.Start
	case "lt":
		if !r.HasEnd {
			return false, nil
		}
		if now.Before(r.End) {
			return true, &r.End
		}
		return false, nil
	case "in_range":
		afterStart := !r.HasStart || !now.Before(r.Start)
		beforeEnd := !r.HasEnd || now.Before(r.End)
		pass := afterStart && beforeEnd
		switch {
		case !afterStart:
			return false, &r.Start
		case pass && r.HasEnd:
			return true, &r.End
		default:
			return pass, nil
		}
	case "date_spec":
		if r.Spec == nil {
			return false, nil
		}
		return evaluateDateSpec(r.Spec, now)
	default:
		return false, nil
	}
}

// evaluateDateSpec matches the calendar fields against now and, when no
// field matches or some do, scans forward minute by minute (bounded by
// maxLookahead) for the next instant the match flips. This is a brute
// search rather than a closed-form boundary calculation: date specs combine
// independent fields (years, months, weekdays, hours, minutes) whose
// interaction makes a closed form error-prone, and a bounded per-minute
// scan is cheap enough for a single scheduling pass.
func evaluateDateSpec(spec *types.DateSpec, now time.Time) (bool, *time.Time) {
	current := matchesDateSpec(spec, now)

	cursor := now.Truncate(stepGranularity).Add(stepGranularity)
	deadline := now.Add(maxLookahead)
	for cursor.Before(deadline) {
		if matchesDateSpec(spec, cursor) != current {
			c := cursor
			return current, &c
		}
		cursor = cursor.Add(stepGranularity)
	}
	return current, nil
}

func matchesDateSpec(spec *types.DateSpec, t time.Time) bool {
	if spec.Years != "" && !fieldMatches(spec.Years, t.Year()) {
		return false
	}
	if spec.Months != "" && !fieldMatches(spec.Months, int(t.Month())) {
		return false
	}
	if spec.Weekdays != "" {
		// ISO weekday: Monday=1 .. Sunday=7.
		wd := int(t.Weekday())
		if wd == 0 {
			wd = 7
		}
		if !fieldMatches(spec.Weekdays, wd) {
			return false
		}
	}
	if spec.Yeardays != "" && !fieldMatches(spec.Yeardays, t.YearDay()) {
		return false
	}
	if spec.Hours != "" && !fieldMatches(spec.Hours, t.Hour()) {
		return false
	}
	if spec.Minutes != "" && !fieldMatches(spec.Minutes, t.Minute()) {
		return false
	}
	return true
}

// fieldMatches checks a comma-separated list of values/ranges
// ("1-3,5,9-10") against v.
func fieldMatches(field string, v int) bool {
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			lov, err1 := strconv.Atoi(strings.TrimSpace(lo))
			hiv, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 == nil && err2 == nil && v >= lov && v <= hiv {
				return true
			}
			continue
		}
		if n, err := strconv.Atoi(part); err == nil && n == v {
			return true
		}
	}
	return false
}

func earliest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Before(*b):
		return a
	default:
		return b
	}
}
