// File: internal/domview/view.go
package domview

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

// View is a DocumentView over a parsed HTML snapshot. It backs dry runs and
// tests: lookups walk the in-memory tree, visibility derives from inline
// styles, and bounding boxes come from values installed with SetBox.
//
// A View is safe for concurrent use; handle registration and the mutation
// helpers share one lock.
type View struct {
	mu      sync.Mutex
	doc     *html.Node
	handles map[string]*html.Node
	boxes   map[*html.Node]schemas.Rect
	restore map[*html.Node]string
	nextID  int
}

var _ schemas.DocumentView = (*View)(nil)

// Parse builds a view from an HTML document stream.
func Parse(r io.Reader) (*View, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &View{
		doc:     doc,
		handles: make(map[string]*html.Node),
		boxes:   make(map[*html.Node]schemas.Rect),
		restore: make(map[*html.Node]string),
	}, nil
}

// FromString is a convenience wrapper around Parse.
func FromString(s string) (*View, error) {
	return Parse(strings.NewReader(s))
}

// MustParse panics on malformed HTML. Intended for tests.
func MustParse(s string) *View {
	v, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// walk visits element nodes in document order until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if n.Type == html.ElementNode {
		if !fn(n) {
			return false
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// ref registers a node and hands out its opaque reference.
func (v *View) ref(n *html.Node) *schemas.NodeRef {
	v.mu.Lock()
	defer v.mu.Unlock()
	for h, existing := range v.handles {
		if existing == n {
			return &schemas.NodeRef{Handle: h, Path: StructuralPath(n), Tag: n.Data}
		}
	}
	v.nextID++
	h := fmt.Sprintf("n%d", v.nextID)
	v.handles[h] = n
	return &schemas.NodeRef{Handle: h, Path: StructuralPath(n), Tag: n.Data}
}

func (v *View) node(ref *schemas.NodeRef) *html.Node {
	if ref == nil {
		return nil
	}
	v.mu.Lock()
	n := v.handles[ref.Handle]
	v.mu.Unlock()
	if n != nil {
		return n
	}
	// Fall back to the structural path recorded in the ref.
	if ref.Path != "" {
		if found, err := htmlquery.Query(v.doc, ref.Path); err == nil {
			return found
		}
	}
	return nil
}

// -- DocumentView lookups --

func (v *View) QueryByID(_ context.Context, id string) (*schemas.NodeRef, error) {
	var found *html.Node
	walk(v.doc, func(n *html.Node) bool {
		if val, ok := attr(n, "id"); ok && val == id {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil, nil
	}
	return v.ref(found), nil
}

func (v *View) QueryByAttribute(_ context.Context, name, value string) (*schemas.NodeRef, error) {
	var found *html.Node
	walk(v.doc, func(n *html.Node) bool {
		if val, ok := attr(n, name); ok && val == value {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil, nil
	}
	return v.ref(found), nil
}

func (v *View) QueryByPath(_ context.Context, path string) (*schemas.NodeRef, error) {
	n, err := htmlquery.Query(v.doc, path)
	if err != nil {
		return nil, fmt.Errorf("evaluate path %q: %w", path, err)
	}
	if n == nil || n.Type != html.ElementNode {
		return nil, nil
	}
	return v.ref(n), nil
}

func (v *View) QueryBySelector(_ context.Context, selector string) (*schemas.NodeRef, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	n := cascadia.Query(v.doc, sel)
	if n == nil {
		return nil, nil
	}
	return v.ref(n), nil
}

func (v *View) QueryByText(_ context.Context, tag, fragment string) (*schemas.NodeRef, error) {
	needle := strings.ToLower(fragment)
	anyTag := tag == "" || tag == "*"
	var found *html.Node
	walk(v.doc, func(n *html.Node) bool {
		if !anyTag && !strings.EqualFold(n.Data, tag) {
			return true
		}
		if strings.Contains(strings.ToLower(htmlquery.InnerText(n)), needle) {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil, nil
	}
	return v.ref(found), nil
}

// -- State --

func (v *View) Snapshot(_ context.Context, ref *schemas.NodeRef) (*schemas.NodeSnapshot, error) {
	n := v.node(ref)
	if n == nil {
		return nil, nil
	}

	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}

	_, disabled := attr(n, "disabled")
	value, _ := attr(n, "value")

	v.mu.Lock()
	box := v.boxes[n]
	v.mu.Unlock()

	return &schemas.NodeSnapshot{
		Tag:     n.Data,
		Text:    strings.TrimSpace(htmlquery.InnerText(n)),
		Value:   value,
		Attrs:   attrs,
		Visible: computedVisible(n),
		Enabled: !disabled,
		InForm:  inForm(n),
		Box:     box,
	}, nil
}

func (v *View) SetValue(_ context.Context, ref *schemas.NodeRef, value string) error {
	n := v.node(ref)
	if n == nil {
		return fmt.Errorf("stale node reference %q", refString(ref))
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	setAttr(n, "value", value)
	return nil
}

// ForceVisible strips hiding declarations from the inline style, keeping the
// original so RestoreVisibility can put it back.
func (v *View) ForceVisible(_ context.Context, ref *schemas.NodeRef) error {
	n := v.node(ref)
	if n == nil {
		return fmt.Errorf("stale node reference %q", refString(ref))
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	style, _ := attr(n, "style")
	if _, already := v.restore[n]; !already {
		v.restore[n] = style
	}
	setAttr(n, "style", revealStyle(style))
	return nil
}

func (v *View) RestoreVisibility(_ context.Context, ref *schemas.NodeRef) error {
	n := v.node(ref)
	if n == nil {
		return fmt.Errorf("stale node reference %q", refString(ref))
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	original, ok := v.restore[n]
	if !ok {
		return nil
	}
	delete(v.restore, n)
	setAttr(n, "style", original)
	return nil
}

// -- Test and dry-run helpers --

// SetBox installs a bounding box for a node, feeding stability checks.
func (v *View) SetBox(ref *schemas.NodeRef, box schemas.Rect) {
	if n := v.node(ref); n != nil {
		v.mu.Lock()
		v.boxes[n] = box
		v.mu.Unlock()
	}
}

// SetAttr overwrites (or adds) an attribute on a node.
func (v *View) SetAttr(ref *schemas.NodeRef, name, value string) {
	if n := v.node(ref); n != nil {
		v.mu.Lock()
		setAttr(n, name, value)
		v.mu.Unlock()
	}
}

// RemoveAttr drops an attribute from a node.
func (v *View) RemoveAttr(ref *schemas.NodeRef, name string) {
	n := v.node(ref)
	if n == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != name {
			out = append(out, a)
		}
	}
	n.Attr = out
}

func setAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func refString(ref *schemas.NodeRef) string {
	if ref == nil {
		return "<nil>"
	}
	return ref.Handle
}

func inForm(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && strings.EqualFold(p.Data, "form") {
			return true
		}
	}
	return false
}
