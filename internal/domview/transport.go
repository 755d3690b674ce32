// File: internal/domview/transport.go
package domview

import (
	"context"
	"fmt"
	"sync"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

// Dispatched records one action the dry-run transport accepted.
type Dispatched struct {
	Target schemas.NodeRef
	Action schemas.ActionDescriptor
}

// Transport applies actions directly to a snapshot view. Clicks and enters
// have no page to affect, so they simply succeed; inputs write the value
// through the view. Every dispatch is recorded, which makes the transport
// double as the assertion point in tests.
type Transport struct {
	mu   sync.Mutex
	view *View
	log  []Dispatched
	// Fail, when set, decides per action whether the dispatch reports
	// failure. Used to exercise failure paths in tests.
	Fail func(schemas.ActionDescriptor) bool
}

var _ schemas.Transport = (*Transport)(nil)

// NewTransport creates a dry-run transport over the given view.
func NewTransport(view *View) *Transport {
	return &Transport{view: view}
}

func (t *Transport) Send(ctx context.Context, target *schemas.NodeRef, action schemas.ActionDescriptor) (*schemas.ActionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("dispatch without a target node")
	}

	t.mu.Lock()
	t.log = append(t.log, Dispatched{Target: *target, Action: action})
	fail := t.Fail != nil && t.Fail(action)
	t.mu.Unlock()

	if fail {
		return &schemas.ActionResult{OK: false, Detail: "dispatch rejected"}, nil
	}

	if action.Kind == schemas.EventInput && t.view != nil {
		if err := t.view.SetValue(ctx, target, action.Value); err != nil {
			return &schemas.ActionResult{OK: false, Detail: err.Error()}, nil
		}
	}
	return &schemas.ActionResult{OK: true}, nil
}

// Log returns a copy of everything dispatched so far.
func (t *Transport) Log() []Dispatched {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Dispatched, len(t.log))
	copy(out, t.log)
	return out
}
