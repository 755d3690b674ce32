// File: internal/waiter/conditions.go
package waiter

import (
	"fmt"
	"regexp"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

// exprEnv is the environment custom expressions evaluate against. The
// snapshot is bound as `node`; a nil snapshot (element gone) binds an empty
// one so expressions never dereference nil.
type exprEnv struct {
	Node *schemas.NodeSnapshot `expr:"node"`
}

// compiled is a WaitCondition prepared for repeated evaluation. Patterns and
// expressions compile once per wait call; the stable variant additionally
// keeps its sampling state here, scoped to the one wait that owns it.
type compiled struct {
	cond     schemas.WaitCondition
	pattern  *regexp.Regexp
	program  *vm.Program
	children []*compiled

	// stable state
	lastBox    *schemas.Rect
	lastSample time.Time
	streak     int
}

// compile validates a condition tree and prepares it for evaluation.
func compile(cond schemas.WaitCondition) (*compiled, error) {
	c := &compiled{cond: cond}

	switch cond.Kind {
	case schemas.CondVisible, schemas.CondHidden, schemas.CondEnabled, schemas.CondDisabled,
		schemas.CondHasAttribute:
		// No preparation needed.

	case schemas.CondHasText, schemas.CondHasValue:
		re, err := regexp.Compile(cond.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", cond.Pattern, err)
		}
		c.pattern = re

	case schemas.CondStable:
		if cond.Samples <= 0 {
			return nil, fmt.Errorf("stable condition requires a positive sample count, got %d", cond.Samples)
		}
		if cond.Threshold <= 0 {
			return nil, fmt.Errorf("stable condition requires a positive threshold, got %v", cond.Threshold)
		}

	case schemas.CondCustom:
		if cond.Predicate == nil {
			if cond.Expr == "" {
				return nil, fmt.Errorf("custom condition carries neither predicate nor expression")
			}
			prog, err := expr.Compile(cond.Expr, expr.Env(exprEnv{}), expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("compile expression %q: %w", cond.Expr, err)
			}
			c.program = prog
		}

	case schemas.CondNot:
		if len(cond.Children) != 1 {
			return nil, fmt.Errorf("not combinator requires exactly one child, got %d", len(cond.Children))
		}
		child, err := compile(cond.Children[0])
		if err != nil {
			return nil, err
		}
		c.children = []*compiled{child}

	case schemas.CondAllOf, schemas.CondAnyOf:
		if len(cond.Children) == 0 {
			return nil, fmt.Errorf("%s combinator requires at least one child", cond.Kind)
		}
		for _, ch := range cond.Children {
			cc, err := compile(ch)
			if err != nil {
				return nil, err
			}
			c.children = append(c.children, cc)
		}

	default:
		return nil, fmt.Errorf("unknown condition kind %q", cond.Kind)
	}
	return c, nil
}

// eval decides whether the condition holds for the given snapshot. snap is
// nil when the target no longer resolves. now is the poll instant, used by
// the stable variant for sample spacing.
func (c *compiled) eval(snap *schemas.NodeSnapshot, now time.Time) (bool, error) {
	switch c.cond.Kind {
	case schemas.CondVisible:
		return snap != nil && snap.Visible, nil
	case schemas.CondHidden:
		// A missing element counts as hidden.
		return snap == nil || !snap.Visible, nil
	case schemas.CondEnabled:
		return snap != nil && snap.Enabled, nil
	case schemas.CondDisabled:
		return snap != nil && !snap.Enabled, nil

	case schemas.CondHasText:
		return snap != nil && c.pattern.MatchString(snap.Text), nil
	case schemas.CondHasValue:
		return snap != nil && c.pattern.MatchString(snap.Value), nil

	case schemas.CondHasAttribute:
		if snap == nil {
			return false, nil
		}
		v, ok := snap.Attr(c.cond.Attribute)
		if !ok {
			return false, nil
		}
		if c.cond.Expected != nil {
			return v == *c.cond.Expected, nil
		}
		return true, nil

	case schemas.CondStable:
		return c.evalStable(snap, now), nil

	case schemas.CondCustom:
		if c.cond.Predicate != nil {
			return c.cond.Predicate(snap), nil
		}
		env := exprEnv{Node: snap}
		if env.Node == nil {
			env.Node = &schemas.NodeSnapshot{}
		}
		out, err := vm.Run(c.program, env)
		if err != nil {
			return false, fmt.Errorf("run expression %q: %w", c.cond.Expr, err)
		}
		b, ok := out.(bool)
		if !ok {
			return false, fmt.Errorf("expression %q did not yield a boolean", c.cond.Expr)
		}
		return b, nil

	case schemas.CondNot:
		ok, err := c.children[0].eval(snap, now)
		return !ok, err

	case schemas.CondAllOf:
		for _, ch := range c.children {
			ok, err := ch.eval(snap, now)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case schemas.CondAnyOf:
		for _, ch := range c.children {
			ok, err := ch.eval(snap, now)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown condition kind %q", c.cond.Kind)
}

// evalStable counts consecutive samples with an unchanged bounding box.
// Samples closer together than the threshold are ignored rather than
// counted, so the streak reflects genuinely spaced observations.
func (c *compiled) evalStable(snap *schemas.NodeSnapshot, now time.Time) bool {
	if snap == nil {
		c.lastBox = nil
		c.streak = 0
		return false
	}
	if c.lastBox == nil {
		box := snap.Box
		c.lastBox = &box
		c.lastSample = now
		c.streak = 1
		return c.streak >= c.cond.Samples
	}
	if now.Sub(c.lastSample) < c.cond.Threshold {
		return c.streak >= c.cond.Samples
	}
	if snap.Box == *c.lastBox {
		c.streak++
	} else {
		box := snap.Box
		c.lastBox = &box
		c.streak = 1
	}
	c.lastSample = now
	return c.streak >= c.cond.Samples
}

// pollSpacing returns the widest stable-threshold anywhere in the tree, so
// the wait loop can pace itself no faster than the stability check needs.
func (c *compiled) pollSpacing() time.Duration {
	var max time.Duration
	if c.cond.Kind == schemas.CondStable {
		max = c.cond.Threshold
	}
	for _, ch := range c.children {
		if d := ch.pollSpacing(); d > max {
			max = d
		}
	}
	return max
}
