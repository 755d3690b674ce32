package schemas

import "time"

// -- Wait Condition Schemas --

// ConditionKind tags the variant of a WaitCondition.
type ConditionKind string

const (
	CondVisible      ConditionKind = "visible"
	CondHidden       ConditionKind = "hidden"
	CondEnabled      ConditionKind = "enabled"
	CondDisabled     ConditionKind = "disabled"
	CondHasText      ConditionKind = "hasText"
	CondHasValue     ConditionKind = "hasValue"
	CondHasAttribute ConditionKind = "hasAttribute"
	CondStable       ConditionKind = "stable"
	CondCustom       ConditionKind = "custom"
	CondNot          ConditionKind = "not"
	CondAllOf        ConditionKind = "allOf"
	CondAnyOf        ConditionKind = "anyOf"
)

// WaitCondition is a tagged variant describing a state the wait evaluator
// polls for. Conditions are pure descriptions: evaluation happens against a
// NodeSnapshot and a condition carries no mutable state of its own.
//
// Only the fields relevant to the Kind are populated. Combinators (not,
// allOf, anyOf) nest child conditions; `not` uses exactly one child.
type WaitCondition struct {
	Kind ConditionKind `json:"kind"`

	// Pattern is a regular expression for hasText / hasValue.
	Pattern string `json:"pattern,omitempty"`

	// Attribute names the attribute for hasAttribute. Expected, when
	// non-nil, additionally requires an exact value match; a nil Expected
	// only requires presence.
	Attribute string  `json:"attribute,omitempty"`
	Expected  *string `json:"expected,omitempty"`

	// Threshold and Samples parameterise the stable check: Samples
	// consecutive polls spaced Threshold apart with no bounding-box change.
	Threshold time.Duration `json:"threshold,omitempty"`
	Samples   int           `json:"samples,omitempty"`

	// Expr is an expr-lang expression for custom conditions, evaluated with
	// the node snapshot bound as `node`. Predicate, when set, takes
	// precedence over Expr; it is not serialisable and exists for callers
	// constructing conditions in Go.
	Expr      string                  `json:"expr,omitempty"`
	Predicate func(*NodeSnapshot) bool `json:"-"`

	Children []WaitCondition `json:"children,omitempty"`
}

// Constructor helpers keep call sites terse.

func Visible() WaitCondition  { return WaitCondition{Kind: CondVisible} }
func Hidden() WaitCondition   { return WaitCondition{Kind: CondHidden} }
func Enabled() WaitCondition  { return WaitCondition{Kind: CondEnabled} }
func Disabled() WaitCondition { return WaitCondition{Kind: CondDisabled} }

func HasText(pattern string) WaitCondition {
	return WaitCondition{Kind: CondHasText, Pattern: pattern}
}

func HasValue(pattern string) WaitCondition {
	return WaitCondition{Kind: CondHasValue, Pattern: pattern}
}

// HasAttribute waits for an attribute to be present. Pass a non-nil expected
// value to also require equality.
func HasAttribute(name string, expected *string) WaitCondition {
	return WaitCondition{Kind: CondHasAttribute, Attribute: name, Expected: expected}
}

// Stable waits for `samples` consecutive polls spaced `threshold` apart with
// an unchanged bounding box.
func Stable(threshold time.Duration, samples int) WaitCondition {
	return WaitCondition{Kind: CondStable, Threshold: threshold, Samples: samples}
}

// Custom wraps a Go predicate over the node snapshot.
func Custom(pred func(*NodeSnapshot) bool) WaitCondition {
	return WaitCondition{Kind: CondCustom, Predicate: pred}
}

// CustomExpr compiles and evaluates an expr-lang expression with the snapshot
// bound as `node`.
func CustomExpr(source string) WaitCondition {
	return WaitCondition{Kind: CondCustom, Expr: source}
}

func Not(c WaitCondition) WaitCondition {
	return WaitCondition{Kind: CondNot, Children: []WaitCondition{c}}
}

func AllOf(cs ...WaitCondition) WaitCondition {
	return WaitCondition{Kind: CondAllOf, Children: cs}
}

func AnyOf(cs ...WaitCondition) WaitCondition {
	return WaitCondition{Kind: CondAnyOf, Children: cs}
}

// WaitResult is the outcome of one wait call. It is produced fresh per call
// and never mutated after return.
type WaitResult struct {
	// Success is true when the condition held before timeout/cancellation.
	Success bool
	// Node is the snapshot that satisfied the condition, when any.
	Node *NodeSnapshot
	// Polls is the number of condition evaluations performed. A condition
	// already true on entry yields Polls == 1.
	Polls int
	// Elapsed is the wall time spent polling.
	Elapsed time.Duration
	// Satisfied reports which condition index held, for any-of waits.
	// Zero for single-condition and all-of waits.
	Satisfied int
	// Err carries the timeout or cancellation error when Success is false
	// and the caller opted out of error returns.
	Err error
}
