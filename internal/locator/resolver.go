// File: internal/locator/resolver.go
package locator

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/config"
)

// Match is a successful resolution: the live node plus the strategy that
// found it.
type Match struct {
	Ref      *schemas.NodeRef
	Strategy schemas.StrategyName
}

// Resolver turns a recorded LocatorBundle into a live node by trying
// strategies in priority order. The order is the tie-break policy: the first
// strategy that matches wins and no cross-strategy scoring happens.
//
// A Resolver is stateless and safe to share across concurrent runs.
type Resolver struct {
	logger        *zap.Logger
	minTextLength int
}

// NewResolver creates a resolver. minTextLength gates the fuzzy free-text
// fallback; bundles with shorter recorded text never reach it.
func NewResolver(logger *zap.Logger, cfg config.LocatorConfig) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	minLen := cfg.MinTextLength
	if minLen <= 0 {
		minLen = 3
	}
	return &Resolver{
		logger:        logger.Named("locator"),
		minTextLength: minLen,
	}
}

// strategy is one algorithm for turning a bundle into a node. Strategies
// return (nil, nil) when they have nothing to offer for this bundle; errors
// are non-fatal and the chain moves on.
type strategy struct {
	name schemas.StrategyName
	run  func(ctx context.Context, b schemas.LocatorBundle, path string, view schemas.DocumentView) (*schemas.NodeRef, error)
}

// Resolve tries every strategy in order against the document view and
// returns the first match. Absence is not an error: the second return is
// false when no strategy produced a node.
func (r *Resolver) Resolve(ctx context.Context, bundle schemas.LocatorBundle, structuralPath string, view schemas.DocumentView) (*Match, bool) {
	var lastErr error
	for _, s := range r.chain() {
		if err := ctx.Err(); err != nil {
			return nil, false
		}
		ref, err := s.run(ctx, bundle, structuralPath, view)
		if err != nil {
			// Strategy errors are swallowed; only remembered for the log line.
			lastErr = err
			r.logger.Debug("locator strategy errored",
				zap.String("strategy", string(s.name)),
				zap.Error(err))
			continue
		}
		if ref != nil {
			return &Match{Ref: ref, Strategy: s.name}, true
		}
	}
	if lastErr != nil {
		r.logger.Debug("element not resolved", zap.Error(lastErr))
	}
	return nil, false
}

// chain builds the ordered strategy list. Kept as data so each strategy stays
// independently testable.
func (r *Resolver) chain() []strategy {
	return []strategy{
		{schemas.StrategyID, byID},
		{schemas.StrategyNameAttr, byName},
		{schemas.StrategyPath, byPath},
		{schemas.StrategyAriaLabel, byAriaLabel},
		{schemas.StrategyPlaceholder, byPlaceholder},
		{schemas.StrategyDataAttr, byDataAttribute},
		{schemas.StrategySelector, bySelector},
		{schemas.StrategyText, r.byText},
	}
}

func byID(ctx context.Context, b schemas.LocatorBundle, _ string, view schemas.DocumentView) (*schemas.NodeRef, error) {
	if b.ID == "" {
		return nil, nil
	}
	return view.QueryByID(ctx, b.ID)
}

func byName(ctx context.Context, b schemas.LocatorBundle, _ string, view schemas.DocumentView) (*schemas.NodeRef, error) {
	if b.Name == "" {
		return nil, nil
	}
	return view.QueryByAttribute(ctx, "name", b.Name)
}

// byPath re-derives the recorded structural path. The step-level path wins
// over the bundle copy when both are present.
func byPath(ctx context.Context, b schemas.LocatorBundle, path string, view schemas.DocumentView) (*schemas.NodeRef, error) {
	p := path
	if p == "" {
		p = b.Path
	}
	if p == "" {
		return nil, nil
	}
	return view.QueryByPath(ctx, p)
}

func byAriaLabel(ctx context.Context, b schemas.LocatorBundle, _ string, view schemas.DocumentView) (*schemas.NodeRef, error) {
	if b.AriaLabel == "" {
		return nil, nil
	}
	return view.QueryByAttribute(ctx, "aria-label", b.AriaLabel)
}

func byPlaceholder(ctx context.Context, b schemas.LocatorBundle, _ string, view schemas.DocumentView) (*schemas.NodeRef, error) {
	if b.Placeholder == "" {
		return nil, nil
	}
	return view.QueryByAttribute(ctx, "placeholder", b.Placeholder)
}

// byDataAttribute matches on the first populated custom data-attribute.
// Keys are visited in sorted order so resolution stays deterministic across
// calls against an unchanged document.
func byDataAttribute(ctx context.Context, b schemas.LocatorBundle, _ string, view schemas.DocumentView) (*schemas.NodeRef, error) {
	if len(b.DataAttrs) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(b.DataAttrs))
	for k := range b.DataAttrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if b.DataAttrs[k] == "" {
			continue
		}
		return view.QueryByAttribute(ctx, k, b.DataAttrs[k])
	}
	return nil, nil
}

// bySelector evaluates the recorded CSS-equivalent selector. Invalid
// selectors surface as errors, which the chain swallows.
func bySelector(ctx context.Context, b schemas.LocatorBundle, _ string, view schemas.DocumentView) (*schemas.NodeRef, error) {
	if b.Selector == "" {
		return nil, nil
	}
	return view.QueryBySelector(ctx, b.Selector)
}

// byText is the last-resort fuzzy fallback: a case-insensitive substring
// scan over elements of the recorded tag ("*" when none), in document order.
func (r *Resolver) byText(ctx context.Context, b schemas.LocatorBundle, _ string, view schemas.DocumentView) (*schemas.NodeRef, error) {
	if len(b.Text) < r.minTextLength {
		return nil, nil
	}
	tag := b.Tag
	if tag == "" {
		tag = "*"
	}
	return view.QueryByText(ctx, tag, b.Text)
}
