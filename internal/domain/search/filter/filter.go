package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxConditions is the maximum number of conditions per expression.
const MaxConditions = 32

// Expression is a conjunctive set of metadata predicates applied as a
// pre-filter on every backend. All conditions must hold.
type Expression struct {
	conditions []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(conditions []Condition) (Expression, error) {
	if len(conditions) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Expression{conditions: conditions}, nil
}

// Conditions returns the predicate list. Callers must not mutate it.
func (e Expression) Conditions() []Condition { return e.conditions }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }

// Canonical returns a stable textual form of the expression, independent of
// condition order. Used as cache-key material.
func (e Expression) Canonical() string {
	if e.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, len(e.conditions))
	for _, c := range e.conditions {
		parts = append(parts, c.canonical())
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

// Condition is a single predicate: either an exact tag match or a numeric range.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

func (c Condition) canonical() string {
	if c.IsMatch() {
		return c.key + "=" + c.match
	}
	return c.key + ":" + c.rangeExpr.canonical()
}

// Range is a numeric range with inclusive min/max boundaries.
type Range struct {
	min *float64
	max *float64
}

// NewRangeFilter validates and creates a Range. At least one boundary is required.
func NewRangeFilter(min, max *float64) (Range, error) {
	if min == nil && max == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if min != nil && max != nil && *min > *max {
		return Range{}, fmt.Errorf("range min %g exceeds max %g", *min, *max)
	}
	return Range{min: min, max: max}, nil
}

// Min returns the inclusive lower bound.
func (r Range) Min() *float64 { return r.min }

// Max returns the inclusive upper bound.
func (r Range) Max() *float64 { return r.max }

func (r Range) canonical() string {
	var b strings.Builder
	b.WriteByte('[')
	if r.min != nil {
		b.WriteString(strconv.FormatFloat(*r.min, 'g', -1, 64))
	}
	b.WriteByte(',')
	if r.max != nil {
		b.WriteString(strconv.FormatFloat(*r.max, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
