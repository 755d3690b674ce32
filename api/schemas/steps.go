package schemas

// -- Step Schemas --

// EventType identifies the kind of user interaction a recorded step replays.
type EventType string

const (
	EventClick EventType = "click"
	EventInput EventType = "input"
	EventEnter EventType = "enter"
	EventOpen  EventType = "open"
)

// Valid reports whether the event type is one the executor knows how to replay.
func (e EventType) Valid() bool {
	switch e {
	case EventClick, EventInput, EventEnter, EventOpen:
		return true
	}
	return false
}

// Step is one recorded user interaction. Steps are produced by the recording
// pipeline and are read-only inside the replay engine: value substitution
// happens at execution time and never mutates the step itself.
type Step struct {
	// Event is the interaction kind to replay.
	Event EventType `json:"event"`
	// Path is the structural (XPath-like) path recorded for the element.
	Path string `json:"path"`
	// Bundle is the multi-strategy locator descriptor for the element.
	Bundle LocatorBundle `json:"bundle"`
	// Value is the originally recorded value, if any (input/enter events).
	Value string `json:"value,omitempty"`
	// Label is the human-readable name shown in logs and used for direct
	// CSV column matching.
	Label string `json:"label,omitempty"`
	// X and Y are the recorded pointer coordinates. Informational only; the
	// replay engine never locates elements by coordinates.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
}

// LocatorBundle is the multi-attribute locator descriptor attached to a Step.
// Any field may be empty; the resolver degrades through its strategy chain
// down to fuzzy text containment. At least one field should be populated for
// the step to be locatable at all.
type LocatorBundle struct {
	Tag         string            `json:"tag,omitempty"`
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name,omitempty"`
	Placeholder string            `json:"placeholder,omitempty"`
	AriaLabel   string            `json:"ariaLabel,omitempty"`
	DataAttrs   map[string]string `json:"dataAttrs,omitempty"`
	Text        string            `json:"text,omitempty"`
	Path        string            `json:"path,omitempty"`
	Selector    string            `json:"selector,omitempty"`
}

// Empty reports whether no locator field carries any information.
func (b LocatorBundle) Empty() bool {
	return b.ID == "" && b.Name == "" && b.Placeholder == "" && b.AriaLabel == "" &&
		len(b.DataAttrs) == 0 && b.Text == "" && b.Path == "" && b.Selector == ""
}

// StrategyName identifies which locator strategy produced a match.
type StrategyName string

const (
	StrategyID          StrategyName = "id"
	StrategyNameAttr    StrategyName = "name"
	StrategyPath        StrategyName = "path"
	StrategyAriaLabel   StrategyName = "aria-label"
	StrategyPlaceholder StrategyName = "placeholder"
	StrategyDataAttr    StrategyName = "data-attribute"
	StrategySelector    StrategyName = "css"
	StrategyText        StrategyName = "text"
)
