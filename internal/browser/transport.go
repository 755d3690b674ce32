// File: internal/browser/transport.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

// Transport dispatches replay actions into the live page over CDP. Targets
// are the structural-path handles the View produced; chromedp resolves them
// with XPath search.
type Transport struct {
	session *Session
	logger  *zap.Logger
}

var _ schemas.Transport = (*Transport)(nil)

func (t *Transport) Send(ctx context.Context, target *schemas.NodeRef, action schemas.ActionDescriptor) (*schemas.ActionResult, error) {
	if target == nil {
		return nil, fmt.Errorf("dispatch without a target node")
	}

	opCtx, cancel := context.WithTimeout(ctx, t.session.cfg.ActionTimeout)
	defer cancel()

	var err error
	switch action.Kind {
	case schemas.EventClick:
		err = t.click(opCtx, target)
	case schemas.EventInput:
		err = t.input(opCtx, target)
	case schemas.EventEnter:
		err = t.enter(opCtx, target, action.SubmitForm)
	case schemas.EventOpen:
		// Navigation is handled before the run; an open dispatch is a no-op.
	default:
		return nil, fmt.Errorf("unsupported action kind %q", action.Kind)
	}

	if err != nil {
		if opCtx.Err() == context.DeadlineExceeded {
			t.logger.Debug("action dispatch timed out",
				zap.String("kind", string(action.Kind)),
				zap.Duration("timeout", t.session.cfg.ActionTimeout))
			return &schemas.ActionResult{OK: false, Detail: "dispatch timed out"}, nil
		}
		return nil, err
	}
	return &schemas.ActionResult{OK: true}, nil
}

// click scrolls the element into view and sends the synthetic pointer
// sequence (pressed, released) through CDP.
func (t *Transport) click(ctx context.Context, target *schemas.NodeRef) error {
	return t.session.run(ctx,
		chromedp.ScrollIntoView(target.Handle, chromedp.BySearch),
		chromedp.Click(target.Handle, chromedp.BySearch),
	)
}

// input focuses the element. The value itself already landed through the
// View's native-setter bypass, which also fired the notifications; focusing
// afterwards keeps keyboard-driven frameworks in the state a real user
// interaction leaves behind.
func (t *Transport) input(ctx context.Context, target *schemas.NodeRef) error {
	return t.session.run(ctx,
		chromedp.Focus(target.Handle, chromedp.BySearch),
	)
}

// enter dispatches the key-down / key-press / key-up triple for the Enter
// key, then submits the enclosing form when asked to.
func (t *Transport) enter(ctx context.Context, target *schemas.NodeRef, submitForm bool) error {
	const enterKeyCode = 13

	keyDown := input.DispatchKeyEvent(input.KeyDown).
		WithKey("Enter").
		WithCode("Enter").
		WithWindowsVirtualKeyCode(enterKeyCode)
	keyChar := input.DispatchKeyEvent(input.KeyChar).
		WithKey("Enter").
		WithText("\r")
	keyUp := input.DispatchKeyEvent(input.KeyUp).
		WithKey("Enter").
		WithCode("Enter").
		WithWindowsVirtualKeyCode(enterKeyCode)

	err := t.session.run(ctx,
		chromedp.Focus(target.Handle, chromedp.BySearch),
		keyDown, keyChar, keyUp,
	)
	if err != nil {
		return err
	}

	if submitForm {
		script := fmt.Sprintf(`(function() {%s
			var el = lookup(%s);
			var form = el && el.closest('form');
			if (form) {
				if (typeof form.requestSubmit === 'function') { form.requestSubmit(); }
				else { form.submit(); }
				return true;
			}
			return false;
		})()`, jsLib, jsString(target.Handle))
		var submitted bool
		return t.session.run(ctx, chromedp.Evaluate(script, &submitted))
	}
	return nil
}
