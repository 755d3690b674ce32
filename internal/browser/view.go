// File: internal/browser/view.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsLib is prepended to every in-page script. xpathOf derives a structural
// path anchored on the nearest id, mirroring the path format the recording
// pipeline emits; lookup resolves such a path back to an element.
const jsLib = `
	function xpathOf(el) {
		if (!el || el.nodeType !== 1) return '';
		var parts = [];
		for (var n = el; n && n.nodeType === 1; n = n.parentNode) {
			var tag = n.nodeName.toLowerCase();
			if (n.id) { parts.push("//*[@id='" + n.id + "']"); break; }
			var idx = 1;
			for (var prev = n.previousElementSibling; prev; prev = prev.previousElementSibling) {
				if (prev.nodeName.toLowerCase() === tag) idx++;
			}
			parts.push(tag + '[' + idx + ']');
		}
		parts.reverse();
		var p = parts.join('/');
		if (p.indexOf("//*[@id=") !== 0) p = '/' + p;
		return p;
	}
	function lookup(path) {
		try {
			return document.evaluate(path, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		} catch (e) { return null; }
	}
	function refOf(el) {
		return el ? { handle: xpathOf(el), path: xpathOf(el), tag: el.nodeName.toLowerCase() } : null;
	}
`

// View implements schemas.DocumentView against the live page of a Session.
// Node handles are structural paths, so a ref survives DOM churn as long as
// the element keeps its position or id.
type View struct {
	session *Session
	logger  *zap.Logger
}

var _ schemas.DocumentView = (*View)(nil)

// jsString JSON-encodes a value for safe embedding in a script.
func jsString(v any) string {
	s, err := json.MarshalToString(v)
	if err != nil {
		return "null"
	}
	return s
}

// evalRef runs a script whose body must `return refOf(el)` and decodes the
// resulting node reference, nil when nothing matched.
func (v *View) evalRef(ctx context.Context, body string) (*schemas.NodeRef, error) {
	script := "(function() {" + jsLib + body + "})()"

	var raw []byte
	opCtx, cancel := context.WithTimeout(ctx, v.session.cfg.ActionTimeout)
	defer cancel()
	if err := v.session.run(opCtx, chromedp.Evaluate(script, &raw)); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var ref schemas.NodeRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("decode node ref: %w", err)
	}
	if ref.Handle == "" {
		return nil, nil
	}
	return &ref, nil
}

func (v *View) QueryByID(ctx context.Context, id string) (*schemas.NodeRef, error) {
	return v.evalRef(ctx, fmt.Sprintf(`return refOf(document.getElementById(%s));`, jsString(id)))
}

func (v *View) QueryByAttribute(ctx context.Context, name, value string) (*schemas.NodeRef, error) {
	body := fmt.Sprintf(`
		var name = %s, value = %s;
		var all = document.getElementsByTagName('*');
		for (var i = 0; i < all.length; i++) {
			if (all[i].getAttribute(name) === value) return refOf(all[i]);
		}
		return null;
	`, jsString(name), jsString(value))
	return v.evalRef(ctx, body)
}

func (v *View) QueryByPath(ctx context.Context, path string) (*schemas.NodeRef, error) {
	return v.evalRef(ctx, fmt.Sprintf(`return refOf(lookup(%s));`, jsString(path)))
}

// QueryBySelector surfaces invalid selectors as errors: querySelector throws
// a SyntaxError in the page and the evaluation fails.
func (v *View) QueryBySelector(ctx context.Context, selector string) (*schemas.NodeRef, error) {
	return v.evalRef(ctx, fmt.Sprintf(`return refOf(document.querySelector(%s));`, jsString(selector)))
}

func (v *View) QueryByText(ctx context.Context, tag, fragment string) (*schemas.NodeRef, error) {
	if tag == "" {
		tag = "*"
	}
	body := fmt.Sprintf(`
		var frag = %s.toLowerCase();
		var all = document.getElementsByTagName(%s);
		for (var i = 0; i < all.length; i++) {
			if ((all[i].textContent || '').toLowerCase().indexOf(frag) !== -1) return refOf(all[i]);
		}
		return null;
	`, jsString(fragment), jsString(tag))
	return v.evalRef(ctx, body)
}

func (v *View) Snapshot(ctx context.Context, ref *schemas.NodeRef) (*schemas.NodeSnapshot, error) {
	if ref == nil {
		return nil, nil
	}
	body := fmt.Sprintf(`
		var el = lookup(%s);
		if (!el) return null;
		var cs = window.getComputedStyle(el);
		var r = el.getBoundingClientRect();
		var attrs = {};
		for (var i = 0; i < el.attributes.length; i++) {
			attrs[el.attributes[i].name] = el.attributes[i].value;
		}
		return {
			tag: el.nodeName.toLowerCase(),
			text: (el.textContent || '').trim(),
			value: el.value !== undefined ? String(el.value) : (el.getAttribute('value') || ''),
			attrs: attrs,
			visible: r.width > 0 && r.height > 0 && cs.display !== 'none' &&
				cs.visibility !== 'hidden' && cs.opacity !== '0',
			enabled: !el.disabled,
			inForm: !!el.closest('form'),
			box: { x: r.left, y: r.top, width: r.width, height: r.height }
		};
	`, jsString(ref.Handle))

	script := "(function() {" + jsLib + body + "})()"
	var raw []byte
	opCtx, cancel := context.WithTimeout(ctx, v.session.cfg.ActionTimeout)
	defer cancel()
	if err := v.session.run(opCtx, chromedp.Evaluate(script, &raw)); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var snap schemas.NodeSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode node snapshot: %w", err)
	}
	return &snap, nil
}

// SetValue writes through the native value setter so framework-controlled
// inputs (React and friends intercept the instance property) observe the
// change, then fires the input/change notifications.
func (v *View) SetValue(ctx context.Context, ref *schemas.NodeRef, value string) error {
	if ref == nil {
		return fmt.Errorf("set value on nil node reference")
	}
	body := fmt.Sprintf(`
		var el = lookup(%s);
		if (!el) return false;
		var proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype
			: el instanceof HTMLSelectElement ? HTMLSelectElement.prototype
			: HTMLInputElement.prototype;
		var desc = Object.getOwnPropertyDescriptor(proto, 'value');
		if (desc && desc.set) { desc.set.call(el, %s); } else { el.value = %s; }
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	`, jsString(ref.Handle), jsString(value), jsString(value))
	return v.evalBool(ctx, body, "set value")
}

func (v *View) ForceVisible(ctx context.Context, ref *schemas.NodeRef) error {
	if ref == nil {
		return fmt.Errorf("force visibility on nil node reference")
	}
	body := fmt.Sprintf(`
		var el = lookup(%s);
		if (!el) return false;
		if (el.dataset.replayRestoreStyle === undefined) {
			el.dataset.replayRestoreStyle = el.style.cssText;
		}
		el.style.display = 'block';
		el.style.visibility = 'visible';
		el.style.opacity = '1';
		return true;
	`, jsString(ref.Handle))
	return v.evalBool(ctx, body, "force visible")
}

func (v *View) RestoreVisibility(ctx context.Context, ref *schemas.NodeRef) error {
	if ref == nil {
		return fmt.Errorf("restore visibility on nil node reference")
	}
	body := fmt.Sprintf(`
		var el = lookup(%s);
		if (!el) return false;
		if (el.dataset.replayRestoreStyle !== undefined) {
			el.style.cssText = el.dataset.replayRestoreStyle;
			delete el.dataset.replayRestoreStyle;
		}
		return true;
	`, jsString(ref.Handle))
	return v.evalBool(ctx, body, "restore visibility")
}

func (v *View) evalBool(ctx context.Context, body, op string) error {
	script := "(function() {" + jsLib + body + "})()"
	var ok bool
	opCtx, cancel := context.WithTimeout(ctx, v.session.cfg.ActionTimeout)
	defer cancel()
	if err := v.session.run(opCtx, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: node no longer resolves", op)
	}
	return nil
}
