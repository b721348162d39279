package core

import (
	"errors"
	"testing"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		expr string
		want Condition
	}{
		{"packages != ''", Condition{Field: "packages", Op: CondNotEq, Literal: ""}},
		{`target == "x86_64-unknown-linux-gnu"`, Condition{Field: "target", Op: CondEq, Literal: "x86_64-unknown-linux-gnu"}},
		{"toolchain == 'stable'", Condition{Field: "toolchain", Op: CondEq, Literal: "stable"}},
		{"packages", Condition{Field: "packages", Op: CondTruthy}},
		{"!build_only", Condition{Field: "build_only", Op: CondNotTruthy}},
		{"  build_only == true  ", Condition{Field: "build_only", Op: CondEq, Literal: "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseCondition(tt.expr)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.expr, err)
			}
			if *got != tt.want {
				t.Errorf("parse %q = %+v, want %+v", tt.expr, *got, tt.want)
			}
		})
	}
}

func TestParseConditionEmptyMeansAlwaysRun(t *testing.T) {
	c, err := ParseCondition("   ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c != nil {
		t.Errorf("expected nil condition for blank expression, got %+v", c)
	}
}

func TestParseConditionMalformed(t *testing.T) {
	for _, expr := range []string{"== 'x'", "!", "a b == 'x'", "!a b"} {
		if _, err := ParseCondition(expr); !errors.Is(err, ErrConfiguration) {
			t.Errorf("parse %q: expected configuration error, got %v", expr, err)
		}
	}
}

func TestConditionEval(t *testing.T) {
	fields := map[string]string{
		"packages":   "gcc-aarch64-linux-gnu",
		"build_only": "true",
		"target":     "",
		"count":      "0",
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"packages != ''", true},
		{"target != ''", false},
		{"build_only == 'true'", true},
		{"build_only == 'false'", false},
		{"packages", true},
		{"target", false},
		{"count", false}, // "0" is falsy
		{"!build_only", false},
		{"!target", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := ParseCondition(tt.expr)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.expr, err)
			}
			if got := c.Eval(fields); got != tt.want {
				t.Errorf("eval %q = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}
