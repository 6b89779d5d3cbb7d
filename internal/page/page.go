// Package page turns fetched markup into a queryable document. Scorers
// depend only on the narrow Document interface, so the goquery backend can
// be swapped without touching scoring code.
package page

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Predicate filters nodes during a FindAll query. A nil predicate matches
// every node.
type Predicate func(Node) bool

// Node is one element of the parsed tree.
type Node interface {
	// Tag returns the element's lowercased tag name.
	Tag() string
	// Attr returns the named attribute and whether it is present.
	Attr(name string) (string, bool)
	// Text returns the node's rendered text content, trimmed.
	Text() string
	// FindAll returns the node's descendants with the given tag name that
	// satisfy pred.
	FindAll(tag string, pred Predicate) []Node
}

// Document is the queryable tree over one fetched page.
type Document interface {
	// FindAll returns every element with the given tag name that satisfies
	// pred, in document order.
	FindAll(tag string, pred Predicate) []Node
}

// Parse builds a Document from raw markup. The parse is lenient: any byte
// soup yields a best-effort tree, never an error.
func Parse(body []byte) Document {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		// html.Parse is tolerant enough that this only happens on reader
		// failures, which a bytes.Reader cannot produce. Fall back to an
		// empty tree so callers stay total.
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return &gqDocument{doc: doc}
}

type gqDocument struct {
	doc *goquery.Document
}

func (d *gqDocument) FindAll(tag string, pred Predicate) []Node {
	return collect(d.doc.Find(tag), pred)
}

type gqNode struct {
	sel *goquery.Selection
}

func (n *gqNode) Tag() string {
	return goquery.NodeName(n.sel)
}

func (n *gqNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n *gqNode) Text() string {
	return strings.TrimSpace(n.sel.Text())
}

func (n *gqNode) FindAll(tag string, pred Predicate) []Node {
	return collect(n.sel.Find(tag), pred)
}

func collect(sel *goquery.Selection, pred Predicate) []Node {
	out := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		node := &gqNode{sel: s}
		if pred == nil || pred(node) {
			out = append(out, node)
		}
	})
	return out
}

// Facts are the derived page basics reported on every audit.
type Facts struct {
	Title           string `json:"title"`
	ImageCount      int    `json:"image_count"`
	LinkCount       int    `json:"link_count"`
	MobileFriendly  bool   `json:"mobile_friendly"`
	DeclaredCharset string `json:"declared_charset,omitempty"`
}

// Extract derives the page facts from a parsed document.
func Extract(doc Document) Facts {
	facts := Facts{
		ImageCount: len(doc.FindAll("img", nil)),
		LinkCount:  len(doc.FindAll("a", nil)),
	}

	if titles := doc.FindAll("title", nil); len(titles) > 0 {
		facts.Title = titles[0].Text()
	}

	facts.MobileFriendly = len(doc.FindAll("meta", func(n Node) bool {
		name, _ := n.Attr("name")
		return strings.EqualFold(name, "viewport")
	})) > 0

	charsets := doc.FindAll("meta", func(n Node) bool {
		_, ok := n.Attr("charset")
		return ok
	})
	if len(charsets) > 0 {
		facts.DeclaredCharset, _ = charsets[0].Attr("charset")
	}

	return facts
}

// AttrOr returns the named attribute or def when absent.
func AttrOr(n Node, name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}
