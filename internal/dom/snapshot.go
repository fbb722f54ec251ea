package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is a read-only Page over a captured HTML document. It supports
// querying but not navigation or clicks; callers use it for fallback passes
// over page.Content() where firing events is never needed.
type Snapshot struct {
	doc *goquery.Document
	url string
}

// FromHTML parses html into a Snapshot. The url is reported by URL() for
// diagnostics only.
func FromHTML(html, url string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html snapshot: %w", err)
	}
	return &Snapshot{doc: doc, url: url}, nil
}

func (s *Snapshot) Navigate(string) error { return ErrNotInteractable }

func (s *Snapshot) URL() string { return s.url }

func (s *Snapshot) Content() (string, error) {
	return s.doc.Html()
}

func (s *Snapshot) Query(selector string) (Element, error) {
	sel := s.doc.Find(selector)
	if sel.Length() == 0 {
		return nil, nil
	}
	return &snapshotElement{sel: sel.First()}, nil
}

func (s *Snapshot) QueryAll(selector string) ([]Element, error) {
	return queryAll(s.doc.Selection, selector), nil
}

type snapshotElement struct {
	sel *goquery.Selection
}

func (e *snapshotElement) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e *snapshotElement) Attribute(name string) (string, error) {
	val, _ := e.sel.Attr(name)
	return val, nil
}

func (e *snapshotElement) Query(selector string) (Element, error) {
	sel := e.sel.Find(selector)
	if sel.Length() == 0 {
		return nil, nil
	}
	return &snapshotElement{sel: sel.First()}, nil
}

func (e *snapshotElement) QueryAll(selector string) ([]Element, error) {
	return queryAll(e.sel, selector), nil
}

// Visible is always true for snapshot nodes: a static document carries no
// layout information, and extraction treats unknown visibility as visible.
func (e *snapshotElement) Visible() (bool, error) { return true, nil }

func (e *snapshotElement) Enabled() (bool, error) {
	if _, disabled := e.sel.Attr("disabled"); disabled {
		return false, nil
	}
	return true, nil
}

func (e *snapshotElement) Click() error { return ErrNotInteractable }

func queryAll(root *goquery.Selection, selector string) []Element {
	var elements []Element
	root.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		elements = append(elements, &snapshotElement{sel: sel})
	})
	return elements
}
