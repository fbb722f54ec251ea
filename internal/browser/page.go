package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/profitstory/amazon-review-scraper/internal/dom"
)

// sessionPage adapts a playwright page to dom.Page. Every operation checks
// the owning session first so a close mid-scrape fails with
// ErrSessionClosed instead of an opaque transport error.
type sessionPage struct {
	session *Session
	page    playwright.Page
}

func (p *sessionPage) Navigate(url string) error {
	if p.session.isClosed() {
		return ErrSessionClosed
	}

	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *sessionPage) URL() string {
	if p.session.isClosed() {
		return ""
	}
	return p.page.URL()
}

func (p *sessionPage) Content() (string, error) {
	if p.session.isClosed() {
		return "", ErrSessionClosed
	}
	return p.page.Content()
}

func (p *sessionPage) Query(selector string) (dom.Element, error) {
	if p.session.isClosed() {
		return nil, ErrSessionClosed
	}

	handle, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, nil
	}
	return &sessionElement{session: p.session, handle: handle}, nil
}

func (p *sessionPage) QueryAll(selector string) ([]dom.Element, error) {
	if p.session.isClosed() {
		return nil, ErrSessionClosed
	}

	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}

	elements := make([]dom.Element, 0, len(handles))
	for _, handle := range handles {
		elements = append(elements, &sessionElement{session: p.session, handle: handle})
	}
	return elements, nil
}

type sessionElement struct {
	session *Session
	handle  playwright.ElementHandle
}

func (e *sessionElement) Text() (string, error) {
	if e.session.isClosed() {
		return "", ErrSessionClosed
	}
	return e.handle.TextContent()
}

func (e *sessionElement) Attribute(name string) (string, error) {
	if e.session.isClosed() {
		return "", ErrSessionClosed
	}
	return e.handle.GetAttribute(name)
}

func (e *sessionElement) Query(selector string) (dom.Element, error) {
	if e.session.isClosed() {
		return nil, ErrSessionClosed
	}

	handle, err := e.handle.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, nil
	}
	return &sessionElement{session: e.session, handle: handle}, nil
}

func (e *sessionElement) QueryAll(selector string) ([]dom.Element, error) {
	if e.session.isClosed() {
		return nil, ErrSessionClosed
	}

	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}

	elements := make([]dom.Element, 0, len(handles))
	for _, handle := range handles {
		elements = append(elements, &sessionElement{session: e.session, handle: handle})
	}
	return elements, nil
}

func (e *sessionElement) Visible() (bool, error) {
	if e.session.isClosed() {
		return false, ErrSessionClosed
	}
	return e.handle.IsVisible()
}

func (e *sessionElement) Enabled() (bool, error) {
	if e.session.isClosed() {
		return false, ErrSessionClosed
	}
	return e.handle.IsEnabled()
}

func (e *sessionElement) Click() error {
	if e.session.isClosed() {
		return ErrSessionClosed
	}
	return e.handle.Click()
}
