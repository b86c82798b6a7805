package filter

import (
	"strings"
	"testing"
)

func fptr(v float64) *float64 { return &v }

func TestNewExpression_TooManyConditions(t *testing.T) {
	conds := make([]Condition, MaxConditions+1)
	for i := range conds {
		c, err := NewMatch("k", "v")
		if err != nil {
			t.Fatalf("NewMatch: %v", err)
		}
		conds[i] = c
	}
	if _, err := NewExpression(conds); err == nil {
		t.Fatal("expected error for too many conditions")
	}
}

func TestNewMatch_Validation(t *testing.T) {
	if _, err := NewMatch("", "v"); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := NewMatch("k", ""); err == nil {
		t.Error("expected error for empty match value")
	}
}

func TestNewRangeFilter_Validation(t *testing.T) {
	if _, err := NewRangeFilter(nil, nil); err == nil {
		t.Error("expected error when no boundary given")
	}
	if _, err := NewRangeFilter(fptr(5), fptr(1)); err == nil {
		t.Error("expected error when min exceeds max")
	}
	r, err := NewRangeFilter(fptr(1), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Min() == nil || *r.Min() != 1 {
		t.Errorf("min = %v, want 1", r.Min())
	}
	if r.Max() != nil {
		t.Errorf("max = %v, want nil", r.Max())
	}
}

func TestCanonical_OrderIndependent(t *testing.T) {
	a, _ := NewMatch("category", "docs")
	r, _ := NewRangeFilter(fptr(1), fptr(10))
	b, _ := NewRange("price", r)

	e1, _ := NewExpression([]Condition{a, b})
	e2, _ := NewExpression([]Condition{b, a})

	if e1.Canonical() != e2.Canonical() {
		t.Errorf("canonical forms differ: %q vs %q", e1.Canonical(), e2.Canonical())
	}
	if !strings.Contains(e1.Canonical(), "category=docs") {
		t.Errorf("canonical %q missing match condition", e1.Canonical())
	}
}

func TestCanonical_Empty(t *testing.T) {
	var e Expression
	if !e.IsEmpty() {
		t.Fatal("zero expression should be empty")
	}
	if e.Canonical() != "" {
		t.Errorf("empty canonical = %q, want empty string", e.Canonical())
	}
}
