// File: internal/domview/view_test.go
package domview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

const viewTestPage = `<html><body>
	<div id="wrapper" style="color:red">
		<p>First paragraph</p>
		<p>Second paragraph</p>
		<span id="inner">deep text</span>
	</div>
	<div id="shroud" style="display:none">
		<button id="cloaked">Hidden button</button>
	</div>
	<input id="field" value="initial" />
	<section hidden><em id="tucked">aside</em></section>
</body></html>`

func TestQueryByText_FirstHitInDocumentOrder(t *testing.T) {
	view := MustParse(viewTestPage)

	ref, err := view.QueryByText(context.Background(), "p", "paragraph")
	require.NoError(t, err)
	require.NotNil(t, ref)

	snap, err := view.Snapshot(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph", snap.Text)
}

func TestQueryByText_CaseInsensitiveAndTagWildcard(t *testing.T) {
	view := MustParse(viewTestPage)

	ref, err := view.QueryByText(context.Background(), "span", "DEEP TEXT")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "span", ref.Tag)

	// A wildcard tag matches the outermost element containing the fragment.
	ref, err = view.QueryByText(context.Background(), "*", "deep text")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "html", ref.Tag)
}

func TestQueries_AbsenceIsNilNotError(t *testing.T) {
	view := MustParse(viewTestPage)
	ctx := context.Background()

	for name, query := range map[string]func() (*schemas.NodeRef, error){
		"id":        func() (*schemas.NodeRef, error) { return view.QueryByID(ctx, "nope") },
		"attribute": func() (*schemas.NodeRef, error) { return view.QueryByAttribute(ctx, "name", "nope") },
		"path":      func() (*schemas.NodeRef, error) { return view.QueryByPath(ctx, "//article[1]") },
		"selector":  func() (*schemas.NodeRef, error) { return view.QueryBySelector(ctx, "article.none") },
		"text":      func() (*schemas.NodeRef, error) { return view.QueryByText(ctx, "p", "no such words") },
	} {
		t.Run(name, func(t *testing.T) {
			ref, err := query()
			assert.NoError(t, err)
			assert.Nil(t, ref)
		})
	}
}

func TestQueryBySelector_InvalidSelectorErrors(t *testing.T) {
	view := MustParse(viewTestPage)

	_, err := view.QueryBySelector(context.Background(), "div[unterminated")
	assert.Error(t, err)
}

func TestSnapshot_Visibility(t *testing.T) {
	view := MustParse(viewTestPage)
	ctx := context.Background()

	tests := []struct {
		id      string
		visible bool
	}{
		{"wrapper", true},
		{"shroud", false},
		{"cloaked", false}, // hidden through the ancestor
		{"tucked", false},  // hidden attribute on the ancestor
		{"field", true},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			ref, err := view.QueryByID(ctx, tc.id)
			require.NoError(t, err)
			require.NotNil(t, ref)
			snap, err := view.Snapshot(ctx, ref)
			require.NoError(t, err)
			assert.Equal(t, tc.visible, snap.Visible)
		})
	}
}

func TestSnapshot_CarriesAttributesValueAndBox(t *testing.T) {
	view := MustParse(viewTestPage)
	ctx := context.Background()

	ref, err := view.QueryByID(ctx, "field")
	require.NoError(t, err)
	view.SetBox(ref, schemas.Rect{X: 1, Y: 2, Width: 300, Height: 40})

	snap, err := view.Snapshot(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "input", snap.Tag)
	assert.Equal(t, "initial", snap.Value)
	assert.True(t, snap.Enabled)
	assert.False(t, snap.InForm)
	assert.Equal(t, schemas.Rect{X: 1, Y: 2, Width: 300, Height: 40}, snap.Box)

	id, ok := snap.Attr("id")
	assert.True(t, ok)
	assert.Equal(t, "field", id)
}

func TestSnapshot_StaleRefYieldsNil(t *testing.T) {
	view := MustParse(viewTestPage)

	snap, err := view.Snapshot(context.Background(), &schemas.NodeRef{Handle: "n999"})
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSetValue_RoundTrips(t *testing.T) {
	view := MustParse(viewTestPage)
	ctx := context.Background()

	ref, err := view.QueryByID(ctx, "field")
	require.NoError(t, err)
	require.NoError(t, view.SetValue(ctx, ref, "updated"))

	snap, err := view.Snapshot(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "updated", snap.Value)

	assert.Error(t, view.SetValue(ctx, &schemas.NodeRef{Handle: "n999"}, "x"))
}

func TestForceVisible_RestoresOriginalStyle(t *testing.T) {
	view := MustParse(viewTestPage)
	ctx := context.Background()

	ref, err := view.QueryByID(ctx, "shroud")
	require.NoError(t, err)

	require.NoError(t, view.ForceVisible(ctx, ref))
	snap, err := view.Snapshot(ctx, ref)
	require.NoError(t, err)
	assert.True(t, snap.Visible)

	// Forcing twice keeps the original, not the rewritten style.
	require.NoError(t, view.ForceVisible(ctx, ref))
	require.NoError(t, view.RestoreVisibility(ctx, ref))

	snap, err = view.Snapshot(ctx, ref)
	require.NoError(t, err)
	assert.False(t, snap.Visible)
	style, _ := snap.Attr("style")
	assert.Equal(t, "display:none", style)

	// Restoring without a prior force is a no-op.
	require.NoError(t, view.RestoreVisibility(ctx, ref))
}

func TestStructuralPath_AnchorsOnNearestID(t *testing.T) {
	view := MustParse(viewTestPage)
	ctx := context.Background()

	// Second <p> has no id, so its path descends from the parent anchor with
	// a 1-based same-tag sibling index.
	ref, err := view.QueryByText(ctx, "p", "Second")
	require.NoError(t, err)
	assert.Equal(t, `//*[@id='wrapper']/p[2]`, ref.Path)

	// Nodes with an id collapse to the bare anchor.
	ref, err = view.QueryByID(ctx, "inner")
	require.NoError(t, err)
	assert.Equal(t, `//*[@id='inner']`, ref.Path)

	// The derived path resolves back to the same node.
	again, err := view.QueryByPath(ctx, `//*[@id='wrapper']/p[2]`)
	require.NoError(t, err)
	require.NotNil(t, again)
	snap, err := view.Snapshot(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, "Second paragraph", snap.Text)
}

func TestStructuralPath_RootedWhenNoAnchorExists(t *testing.T) {
	view := MustParse(`<html><body><div><span>leaf</span></div></body></html>`)

	ref, err := view.QueryByText(context.Background(), "span", "leaf")
	require.NoError(t, err)
	assert.Equal(t, "/html[1]/body[1]/div[1]/span[1]", ref.Path)
}

func TestTransport_RecordsAndAppliesDispatches(t *testing.T) {
	view := MustParse(viewTestPage)
	transport := NewTransport(view)
	ctx := context.Background()

	ref, err := view.QueryByID(ctx, "field")
	require.NoError(t, err)

	res, err := transport.Send(ctx, ref, schemas.ActionDescriptor{Kind: schemas.EventInput, Value: "typed"})
	require.NoError(t, err)
	assert.True(t, res.OK)

	snap, err := view.Snapshot(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "typed", snap.Value)

	log := transport.Log()
	require.Len(t, log, 1)
	assert.Equal(t, schemas.EventInput, log[0].Action.Kind)
}

func TestTransport_FailureModes(t *testing.T) {
	view := MustParse(viewTestPage)
	transport := NewTransport(view)
	ctx := context.Background()

	_, err := transport.Send(ctx, nil, schemas.ActionDescriptor{Kind: schemas.EventClick})
	assert.Error(t, err, "a dispatch needs a target")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	ref, err := view.QueryByID(ctx, "field")
	require.NoError(t, err)
	_, err = transport.Send(cancelled, ref, schemas.ActionDescriptor{Kind: schemas.EventClick})
	assert.Error(t, err)

	transport.Fail = func(schemas.ActionDescriptor) bool { return true }
	res, err := transport.Send(ctx, ref, schemas.ActionDescriptor{Kind: schemas.EventClick})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Detail)
}
