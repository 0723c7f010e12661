// Package htmlpage is an in-memory core.Page backed by goquery. It serves
// static HTML per URL, runs scripted click handlers that mutate the DOM, and
// records navigations, clicks, fills and element inspections for assertions.
package htmlpage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gkmur/letterboxd-cli/internal/core"
)

const notFoundHTML = `<html><head><title>Not Found</title></head><body><h1>Sorry, we can't find the page you've requested.</h1></body></html>`

// Handler runs when an element matching its selector is clicked
type Handler func(p *Page, el *goquery.Selection)

type handler struct {
	selector string
	fn       Handler
}

// Site is a set of routes and click handlers shared by every page it opens.
// It doubles as a core.Session.
type Site struct {
	routes   map[string]string
	handlers []handler
	pages    []*Page
	closed   bool

	// Navigations lists every URL navigated to, across pages
	Navigations []string
}

// NewSite returns an empty site
func NewSite() *Site {
	return &Site{routes: make(map[string]string)}
}

// Route serves body at url, replacing any previous body
func (s *Site) Route(url, body string) *Site {
	s.routes[url] = body
	return s
}

// OnClick registers fn for clicks on elements matching selector
func (s *Site) OnClick(selector string, fn Handler) *Site {
	s.handlers = append(s.handlers, handler{selector: selector, fn: fn})
	return s
}

// NewPage opens a blank page
func (s *Site) NewPage(ctx context.Context) (core.Page, error) {
	return s.Open(ctx)
}

// Open is NewPage returning the concrete type
func (s *Site) Open(_ context.Context) (*Page, error) {
	if s.closed {
		return nil, core.ErrSessionClosed
	}
	p := &Page{site: s, inspected: make(map[*html.Node]int)}
	p.load("about:blank", "<html><body></body></html>")
	s.pages = append(s.pages, p)
	return p, nil
}

// Close closes the site and invalidates all of its pages
func (s *Site) Close(_ context.Context) error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called
func (s *Site) Closed() bool { return s.closed }

// Pages returns every page opened so far
func (s *Site) Pages() []*Page { return s.pages }

// Page is a goquery document behind the core.Page interface
type Page struct {
	site      *Site
	doc       *goquery.Document
	url       string
	closed    bool
	inspected map[*html.Node]int

	Navigations []string
	Clicks      []string
	Fills       map[string]string
	Scrolls     []int
}

// Load parses body as the new document at url without recording a navigation
func Load(url, body string) *Page {
	p := &Page{site: NewSite(), inspected: make(map[*html.Node]int)}
	p.load(url, body)
	return p
}

func (p *Page) load(url, body string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		panic(fmt.Sprintf("htmlpage: parse %s: %v", url, err))
	}
	p.doc = doc
	p.url = url
	p.inspected = make(map[*html.Node]int)
}

// Goto replaces the document with the route at url, as a redirect would
func (p *Page) Goto(url string) {
	body, ok := p.site.routes[url]
	if !ok {
		body = notFoundHTML
	}
	p.load(url, body)
}

// Doc exposes the live document for handlers
func (p *Page) Doc() *goquery.Document { return p.doc }

// Site returns the owning site
func (p *Page) Site() *Site { return p.site }

func (p *Page) usable() error {
	if p.site.closed {
		return core.ErrSessionClosed
	}
	if p.closed {
		return core.ErrPageClosed
	}
	return nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.usable(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.Navigations = append(p.Navigations, url)
	p.site.Navigations = append(p.site.Navigations, url)
	p.Goto(url)
	return nil
}

func (p *Page) URL(_ context.Context) (string, error) {
	if err := p.usable(); err != nil {
		return "", err
	}
	return p.url, nil
}

func (p *Page) WaitIdle(ctx context.Context, _ time.Duration) error {
	if err := p.usable(); err != nil {
		return err
	}
	return ctx.Err()
}

func (p *Page) Scroll(_ context.Context, distance int) error {
	if err := p.usable(); err != nil {
		return err
	}
	p.Scrolls = append(p.Scrolls, distance)
	return nil
}

func (p *Page) Close() error {
	p.closed = true
	return nil
}

// IsClosed reports whether the page was released
func (p *Page) IsClosed() bool { return p.closed }

func (p *Page) Elements(_ context.Context, selector string) ([]core.Element, error) {
	if err := p.usable(); err != nil {
		return nil, err
	}
	return p.wrap(p.doc.Find(selector)), nil
}

func (p *Page) wrap(sel *goquery.Selection) []core.Element {
	out := make([]core.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Element{page: p, sel: s})
	})
	return out
}

// InspectedCount sums the inspections of every element matching selector
func (p *Page) InspectedCount(selector string) int {
	total := 0
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		total += p.inspected[s.Nodes[0]]
		s.Find("*").Each(func(_ int, d *goquery.Selection) {
			total += p.inspected[d.Nodes[0]]
		})
	})
	return total
}

// Element is one node of a Page
type Element struct {
	page *Page
	sel  *goquery.Selection
}

// Selection exposes the underlying node
func (e *Element) Selection() *goquery.Selection { return e.sel }

func (e *Element) touch() error {
	if err := e.page.usable(); err != nil {
		return err
	}
	e.page.inspected[e.sel.Nodes[0]]++
	return nil
}

func (e *Element) Elements(_ context.Context, selector string) ([]core.Element, error) {
	if err := e.touch(); err != nil {
		return nil, err
	}
	return e.page.wrap(e.sel.Find(selector)), nil
}

func (e *Element) Text(_ context.Context) (string, error) {
	if err := e.touch(); err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

func (e *Element) Attribute(_ context.Context, name string) (string, bool, error) {
	if err := e.touch(); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

var displayNone = regexp.MustCompile(`display\s*:\s*none|visibility\s*:\s*hidden`)

func (e *Element) Visible(_ context.Context) (bool, error) {
	if err := e.touch(); err != nil {
		return false, err
	}
	if t, _ := e.sel.Attr("type"); t == "hidden" {
		return false, nil
	}
	for s := e.sel; s.Length() > 0; s = s.Parent() {
		if hiddenNode(s) {
			return false, nil
		}
	}
	return true, nil
}

func hiddenNode(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if style, ok := s.Attr("style"); ok && displayNone.MatchString(style) {
		return true
	}
	return s.HasClass("hidden")
}

func (e *Element) Checked(_ context.Context) (bool, error) {
	if err := e.touch(); err != nil {
		return false, err
	}
	_, ok := e.sel.Attr("checked")
	return ok, nil
}

// Click records the click, toggles native checkboxes, then runs matching handlers
func (e *Element) Click(_ context.Context) error {
	if err := e.page.usable(); err != nil {
		return err
	}
	e.page.Clicks = append(e.page.Clicks, Describe(e.sel))

	if e.sel.Is(`input[type="checkbox"]`) {
		if _, ok := e.sel.Attr("checked"); ok {
			e.sel.RemoveAttr("checked")
		} else {
			e.sel.SetAttr("checked", "checked")
		}
	}

	for _, h := range e.page.site.handlers {
		if e.sel.Is(h.selector) {
			h.fn(e.page, e.sel)
		}
	}
	return nil
}

func (e *Element) Fill(_ context.Context, text string) error {
	if err := e.page.usable(); err != nil {
		return err
	}
	e.sel.SetAttr("value", text)
	if goquery.NodeName(e.sel) == "textarea" {
		e.sel.SetText(text)
	}
	if e.page.Fills == nil {
		e.page.Fills = make(map[string]string)
	}
	e.page.Fills[Describe(e.sel)] = text
	return nil
}

// Describe renders a short identity for a node: tag#id[name].class
func Describe(s *goquery.Selection) string {
	var b strings.Builder
	b.WriteString(goquery.NodeName(s))
	if id, ok := s.Attr("id"); ok {
		b.WriteString("#" + id)
	}
	if name, ok := s.Attr("name"); ok {
		b.WriteString("[" + name + "]")
	}
	if class, ok := s.Attr("class"); ok && class != "" {
		b.WriteString("." + strings.Join(strings.Fields(class), "."))
	}
	return b.String()
}
