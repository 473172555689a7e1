package dom

import (
	"html"
	"sort"
	"strings"
	"sync"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type element struct {
	html   string
	value  string
	styles map[string]string
	attrs  map[string]string
}

// Memory is an in-process Document. It backs the server-rendered page and tests.
type Memory struct {
	mu       sync.RWMutex
	elements map[string]*element
	scrolls  []string
}

// NewMemory creates a document holding empty elements for ids.
func NewMemory(ids ...string) *Memory {
	m := &Memory{elements: make(map[string]*element, len(ids))}
	for _, id := range ids {
		m.Add(id, "")
	}
	return m
}

// Add creates (or resets) an element with the given inner HTML.
func (m *Memory) Add(id, inner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elements[id] = &element{
		html:   inner,
		styles: map[string]string{},
		attrs:  map[string]string{},
	}
}

// Remove deletes an element.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	delete(m.elements, id)
	m.mu.Unlock()
}

// SetValue sets the form value of an element (e.g. the language selector).
func (m *Memory) SetValue(id, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.elements[id]
	if !ok {
		return false
	}
	el.value = value
	return true
}

// IDs lists the element ids in lexical order.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.elements))
	for id := range m.elements {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Scrolls returns the ids passed to ScrollIntoView, oldest first.
func (m *Memory) Scrolls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.scrolls...)
}

func (m *Memory) Exists(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.elements[id]
	return ok
}

func (m *Memory) HTML(id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	el, ok := m.elements[id]
	if !ok {
		return "", false
	}
	return el.html, true
}

func (m *Memory) SetHTML(id, inner string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.elements[id]
	if !ok {
		return false
	}
	el.html = inner
	return true
}

func (m *Memory) SetText(id, text string) bool {
	return m.SetHTML(id, html.EscapeString(text))
}

func (m *Memory) TextContent(id string) (string, bool) {
	inner, ok := m.HTML(id)
	if !ok {
		return "", false
	}
	nodes, err := parseFragment(inner)
	if err != nil {
		return "", true
	}
	var b strings.Builder
	for _, n := range nodes {
		collectText(n, &b)
	}
	return b.String(), true
}

func (m *Memory) HeadingText(id string) (string, bool) {
	inner, ok := m.HTML(id)
	if !ok {
		return "", false
	}
	nodes, err := parseFragment(inner)
	if err != nil {
		return "", true
	}
	for _, n := range nodes {
		if h := firstHeading(n); h != nil {
			var b strings.Builder
			collectText(h, &b)
			return b.String(), true
		}
	}
	return "", true
}

func (m *Memory) Style(id, prop string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	el, ok := m.elements[id]
	if !ok {
		return "", false
	}
	return el.styles[prop], true
}

func (m *Memory) SetStyle(id, prop, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.elements[id]
	if !ok {
		return false
	}
	el.styles[prop] = value
	return true
}

func (m *Memory) Attr(id, name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	el, ok := m.elements[id]
	if !ok {
		return "", false
	}
	v, ok := el.attrs[name]
	return v, ok
}

func (m *Memory) SetAttr(id, name, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.elements[id]
	if !ok {
		return false
	}
	el.attrs[name] = value
	return true
}

func (m *Memory) Value(id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	el, ok := m.elements[id]
	if !ok {
		return "", false
	}
	return el.value, true
}

func (m *Memory) ScrollIntoView(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.elements[id]; !ok {
		return false
	}
	m.scrolls = append(m.scrolls, id)
	return true
}

func parseFragment(inner string) ([]*xhtml.Node, error) {
	ctx := &xhtml.Node{Type: xhtml.ElementNode, Data: "div", DataAtom: atom.Div}
	return xhtml.ParseFragment(strings.NewReader(inner), ctx)
}

func collectText(n *xhtml.Node, b *strings.Builder) {
	if n.Type == xhtml.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func firstHeading(n *xhtml.Node) *xhtml.Node {
	if n.Type == xhtml.ElementNode {
		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if h := firstHeading(c); h != nil {
			return h
		}
	}
	return nil
}

var _ Document = (*Memory)(nil)
