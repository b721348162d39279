package core

import (
	"strings"
)

// CondOp enumerates the closed set of condition forms. The expression
// language is deliberately narrow: equality and inequality against a
// literal, and a field treated as a boolean, plain or negated.
type CondOp string

const (
	CondEq        CondOp = "eq"
	CondNotEq     CondOp = "ne"
	CondTruthy    CondOp = "truthy"
	CondNotTruthy CondOp = "not"
)

// Condition is a small boolean test over a job's resolved field map.
type Condition struct {
	Field   string `json:"field"`
	Op      CondOp `json:"op"`
	Literal string `json:"literal,omitempty"`
}

// ParseCondition parses a condition expression:
//
//	field == 'literal'
//	field != 'literal'
//	field
//	!field
//
// An empty expression parses to nil, meaning "always run".
func ParseCondition(expr string) (*Condition, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return nil, nil
	}
	if i := strings.Index(s, "!="); i >= 0 && !strings.HasPrefix(s, "!") {
		return literalCond(s[:i], CondNotEq, s[i+2:])
	}
	if i := strings.Index(s, "=="); i >= 0 {
		return literalCond(s[:i], CondEq, s[i+2:])
	}
	if rest, ok := strings.CutPrefix(s, "!"); ok {
		return fieldCond(rest, CondNotTruthy)
	}
	return fieldCond(s, CondTruthy)
}

func literalCond(field string, op CondOp, lit string) (*Condition, error) {
	c, err := fieldCond(field, op)
	if err != nil {
		return nil, err
	}
	lit = strings.TrimSpace(lit)
	lit = strings.Trim(lit, `'"`)
	c.Literal = lit
	return c, nil
}

func fieldCond(field string, op CondOp) (*Condition, error) {
	field = strings.TrimSpace(field)
	if field == "" || strings.ContainsAny(field, " \t'\"!=") {
		return nil, configErrorf("", field, "malformed condition field")
	}
	return &Condition{Field: field, Op: op}, nil
}

// Eval evaluates the condition against a resolved field map. It is pure:
// no side effects, no external state.
func (c *Condition) Eval(fields map[string]string) bool {
	v := fields[c.Field]
	switch c.Op {
	case CondEq:
		return v == c.Literal
	case CondNotEq:
		return v != c.Literal
	case CondTruthy:
		return truthy(v)
	case CondNotTruthy:
		return !truthy(v)
	}
	return false
}

// truthy treats "", "false" and "0" as false, everything else as true.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0":
		return false
	}
	return true
}
