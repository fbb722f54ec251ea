// Package dom defines the minimal element and page surface the scraping
// core works against. The live implementation wraps playwright handles in
// internal/browser; a read-only goquery implementation backs HTML-snapshot
// passes and tests.
package dom

import "errors"

// ErrNotInteractable is returned when an element cannot receive synthetic
// events, e.g. elements resolved from a static HTML snapshot.
var ErrNotInteractable = errors.New("element is not interactable")

// ErrSessionClosed is returned by every operation on a page whose owning
// browser session has been torn down. Unlike lookup failures, it is never
// swallowed: callers must surface it instead of falling back.
var ErrSessionClosed = errors.New("browser session closed")

// Element is one resolved DOM node.
type Element interface {
	// Text returns the node's visible text content.
	Text() (string, error)
	// Attribute returns the named attribute, empty when absent.
	Attribute(name string) (string, error)
	// Query resolves the first descendant matching selector, or nil when
	// no node matches.
	Query(selector string) (Element, error)
	// QueryAll resolves all descendants matching selector.
	QueryAll(selector string) ([]Element, error)
	// Visible reports whether the node is rendered.
	Visible() (bool, error)
	// Enabled reports whether the node accepts interaction.
	Enabled() (bool, error)
	// Click dispatches a synthetic click.
	Click() error
}

// Page is one rendered document.
type Page interface {
	// Navigate loads the given URL.
	Navigate(url string) error
	// URL returns the current location.
	URL() string
	// Content returns the serialized HTML of the current document.
	Content() (string, error)
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
}
