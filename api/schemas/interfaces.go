package schemas

import "context"

// -- Document Collaborator --

// NodeRef is an opaque handle to a live element inside a DocumentView. The
// view that produced a ref is the only one that can interpret it. Handle is
// view-internal; Path is the structural path the view derived for the node,
// kept so actions can be re-targeted after a DOM refresh.
type NodeRef struct {
	Handle string `json:"handle"`
	Path   string `json:"path"`
	Tag    string `json:"tag"`
}

// Rect is an element bounding box in page coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NodeSnapshot captures the observable state of a node at one poll instant.
// Wait conditions are pure predicates over this struct.
type NodeSnapshot struct {
	Tag     string            `json:"tag"`
	Text    string            `json:"text"`
	Value   string            `json:"value"`
	Attrs   map[string]string `json:"attrs"`
	Visible bool              `json:"visible"`
	Enabled bool              `json:"enabled"`
	InForm  bool              `json:"inForm"`
	Box     Rect              `json:"box"`
}

// Attr returns an attribute value and whether it is present.
func (s *NodeSnapshot) Attr(name string) (string, bool) {
	if s == nil || s.Attrs == nil {
		return "", false
	}
	v, ok := s.Attrs[name]
	return v, ok
}

// DocumentView is the document collaborator the resolver and wait evaluator
// run against. Implementations are stateless with respect to the engine and
// safe for reuse across runs; lookups that find nothing return (nil, nil),
// absence is not an error.
type DocumentView interface {
	// QueryByID finds the element with the exact id.
	QueryByID(ctx context.Context, id string) (*NodeRef, error)
	// QueryByAttribute finds the first element whose attribute equals value
	// exactly, in document order.
	QueryByAttribute(ctx context.Context, name, value string) (*NodeRef, error)
	// QueryByPath re-derives a recorded structural path.
	QueryByPath(ctx context.Context, path string) (*NodeRef, error)
	// QueryBySelector evaluates a CSS selector. A syntactically invalid
	// selector is an error; callers decide whether that is fatal.
	QueryBySelector(ctx context.Context, selector string) (*NodeRef, error)
	// QueryByText scans elements of the given tag ("*" for any) for a
	// case-insensitive substring match on text content, in document order.
	QueryByText(ctx context.Context, tag, fragment string) (*NodeRef, error)

	// Snapshot reads the node's current observable state. A ref that no
	// longer resolves returns (nil, nil).
	Snapshot(ctx context.Context, ref *NodeRef) (*NodeSnapshot, error)

	// SetValue writes an input value through the element's native setter,
	// bypassing framework-level interception, and fires input/change
	// notifications.
	SetValue(ctx context.Context, ref *NodeRef, value string) error

	// ForceVisible temporarily overrides hidden styling so events land on
	// the element; RestoreVisibility undoes it.
	ForceVisible(ctx context.Context, ref *NodeRef) error
	RestoreVisibility(ctx context.Context, ref *NodeRef) error
}

// -- Transport Collaborator --

// ActionDescriptor tells the transport what to do to a target element.
type ActionDescriptor struct {
	Kind EventType `json:"kind"`
	// Value is the text to enter for input/enter actions.
	Value string `json:"value,omitempty"`
	// SubmitForm requests a form submit after the Enter key sequence.
	SubmitForm bool `json:"submitForm,omitempty"`
}

// ActionResult is the structured reply from a transport dispatch.
type ActionResult struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Transport dispatches an action in the execution context that owns the
// element (another process, a browser tab). Implementations honour the
// context deadline supplied by the caller.
type Transport interface {
	Send(ctx context.Context, target *NodeRef, action ActionDescriptor) (*ActionResult, error)
}

// -- Data Collaborator --

// Row is one record of substitution data, keyed by column name.
type Row map[string]string

// FieldMappings routes CSV columns to step labels (csvColumn -> stepLabel).
type FieldMappings map[string]string

// -- Result Sink --

// ResultSink receives the structured export of a finished (or halted) run.
// The engine never persists results itself.
type ResultSink interface {
	Write(ctx context.Context, export *RunExport) error
}
