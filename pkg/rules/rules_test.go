package rules

import (
	"testing"
	"time"

	"github.com/cuemby/pacemaker-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateAttrExpr(t *testing.T) {
	tests := []struct {
		name     string
		expr     *types.AttrExpr
		attrs    map[string]string
		expected bool
	}{
		{
			name:     "eq match",
			expr:     &types.AttrExpr{Attribute: "role", Operation: "eq", Value: "db"},
			attrs:    map[string]string{"role": "db"},
			expected: true,
		},
		{
			name:     "eq mismatch",
			expr:     &types.AttrExpr{Attribute: "role", Operation: "eq", Value: "db"},
			attrs:    map[string]string{"role": "web"},
			expected: false,
		},
		{
			name:     "defined true",
			expr:     &types.AttrExpr{Attribute: "role", Operation: "defined"},
			attrs:    map[string]string{"role": "web"},
			expected: true,
		},
		{
			name:     "defined false",
			expr:     &types.AttrExpr{Attribute: "role", Operation: "defined"},
			attrs:    map[string]string{},
			expected: false,
		},
		{
			name:     "not_defined",
			expr:     &types.AttrExpr{Attribute: "role", Operation: "not_defined"},
			attrs:    map[string]string{},
			expected: true,
		},
		{
			name:     "integer gt",
			expr:     &types.AttrExpr{Attribute: "cpus", Operation: "gt", Value: "4", ValueType: "integer"},
			attrs:    map[string]string{"cpus": "8"},
			expected: true,
		},
		{
			name:     "integer gt false",
			expr:     &types.AttrExpr{Attribute: "cpus", Operation: "gt", Value: "4", ValueType: "integer"},
			attrs:    map[string]string{"cpus": "2"},
			expected: false,
		},
		{
			name:     "version lt",
			expr:     &types.AttrExpr{Attribute: "v", Operation: "lt", Value: "2.0", ValueType: "version"},
			attrs:    map[string]string{"v": "1.9"},
			expected: true,
		},
		{
			name:     "missing attribute fails comparison",
			expr:     &types.AttrExpr{Attribute: "missing", Operation: "eq", Value: "x"},
			attrs:    map[string]string{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaf := &types.LocationRuleExpr{Expression: tt.expr}
			pass, next := Evaluate(leaf, Context{Now: time.Now(), NodeAttrs: tt.attrs})
			assert.Equal(t, tt.expected, pass)
			assert.Nil(t, next)
		})
	}
}

func TestEvaluateBooleanCombination(t *testing.T) {
	attrs := map[string]string{"region": "us-east", "tier": "gold"}
	regionExpr := &types.LocationRuleExpr{Expression: &types.AttrExpr{Attribute: "region", Operation: "eq", Value: "us-east"}}
	tierExpr := &types.LocationRuleExpr{Expression: &types.AttrExpr{Attribute: "tier", Operation: "eq", Value: "gold"}}
	wrongTierExpr := &types.LocationRuleExpr{Expression: &types.AttrExpr{Attribute: "tier", Operation: "eq", Value: "silver"}}

	andNode := &types.LocationRuleExpr{BooleanOp: "and", Children: []*types.LocationRuleExpr{regionExpr, tierExpr}}
	pass, _ := Evaluate(andNode, Context{Now: time.Now(), NodeAttrs: attrs})
	assert.True(t, pass)

	andFail := &types.LocationRuleExpr{BooleanOp: "and", Children: []*types.LocationRuleExpr{regionExpr, wrongTierExpr}}
	pass, _ = Evaluate(andFail, Context{Now: time.Now(), NodeAttrs: attrs})
	assert.False(t, pass)

	orPass := &types.LocationRuleExpr{BooleanOp: "or", Children: []*types.LocationRuleExpr{wrongTierExpr, tierExpr}}
	pass, _ = Evaluate(orPass, Context{Now: time.Now(), NodeAttrs: attrs})
	assert.True(t, pass)
}

func TestEvaluateDateSpecHours(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	spec := &types.DateSpec{Hours: "9-17"}
	leaf := &types.LocationRuleExpr{DateSpec: spec}

	pass, next := Evaluate(leaf, Context{Now: now})
	assert.True(t, pass)
	if assert.NotNil(t, next) {
		assert.True(t, next.After(now))
		assert.Equal(t, 18, next.Hour())
	}
}

func TestEvaluateDateSpecOutsideWindow(t *testing.T) {
	now := time.Date(2026, 7, 30, 20, 0, 0, 0, time.UTC)
	spec := &types.DateSpec{Hours: "9-17"}
	leaf := &types.LocationRuleExpr{DateSpec: spec}

	pass, next := Evaluate(leaf, Context{Now: now})
	assert.False(t, pass)
	if assert.NotNil(t, next) {
		assert.Equal(t, 9, next.Hour())
	}
}

func TestEvaluateDateRangeGreaterThan(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	expr := &types.AttrExpr{Range: &types.DateRange{Operation: "gt", Start: start, HasStart: true}}
	leaf := &types.LocationRuleExpr{Expression: expr}

	pass, next := Evaluate(leaf, Context{Now: now})
	assert.False(t, pass)
	if assert.NotNil(t, next) {
		assert.Equal(t, start, *next)
	}
}

func TestRecheckIsStrictlyFuture(t *testing.T) {
	now := time.Date(2026, 7, 30, 23, 59, 0, 0, time.UTC)
	spec := &types.DateSpec{Minutes: "0-30"}
	leaf := &types.LocationRuleExpr{DateSpec: spec}

	_, next := Evaluate(leaf, Context{Now: now})
	if assert.NotNil(t, next) {
		assert.True(t, next.After(now))
	}
}
