// File: internal/domview/style.go
package domview

import (
	"strings"

	"golang.org/x/net/html"
)

// parseStyle splits an inline style attribute into declarations. Malformed
// fragments are dropped rather than reported; a style attribute is best
// effort by nature.
func parseStyle(style string) map[string]string {
	decls := make(map[string]string)
	for _, chunk := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(chunk, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(val, "!important")))
		if prop == "" || val == "" {
			continue
		}
		decls[prop] = val
	}
	return decls
}

// hiddenByStyle reports whether an inline style computes the element hidden:
// zero opacity, visibility:hidden, or display:none.
func hiddenByStyle(style string) bool {
	decls := parseStyle(style)
	if decls["display"] == "none" {
		return true
	}
	if decls["visibility"] == "hidden" {
		return true
	}
	switch decls["opacity"] {
	case "0", "0.0", "0%":
		return true
	}
	return false
}

// computedVisible approximates visibility for a snapshot document: the node
// and every ancestor must be free of hiding inline styles and the `hidden`
// attribute.
func computedVisible(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if _, ok := attr(cur, "hidden"); ok {
			return false
		}
		if style, ok := attr(cur, "style"); ok && hiddenByStyle(style) {
			return false
		}
	}
	return true
}

// revealStyle rewrites an inline style so the element paints: hiding
// declarations are removed and explicit visible ones appended.
func revealStyle(style string) string {
	var kept []string
	for _, chunk := range strings.Split(style, ";") {
		prop, _, ok := strings.Cut(chunk, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(prop)) {
		case "display", "visibility", "opacity":
			continue
		}
		kept = append(kept, strings.TrimSpace(chunk))
	}
	kept = append(kept, "display:block", "visibility:visible", "opacity:1")
	return strings.Join(kept, ";")
}
