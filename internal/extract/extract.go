// Package extract reads raw field text out of course detail pages.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/JakeFAU/syllabus-crawler/internal/course"
	"github.com/JakeFAU/syllabus-crawler/internal/markup"
)

// ErrMissingInfoTable reports a detail page without the course information
// table. Such a page cannot produce a course.
var ErrMissingInfoTable = errors.New("course information table not found")

// Layout names the row arrangement of an information table.
type Layout string

// Known layouts.
const (
	LayoutCurrent Layout = "current"
	LayoutLegacy  Layout = "legacy"
)

// Extractor returns the raw text of one field from an information table, or
// "" when the selector matches nothing.
type Extractor interface {
	Extract(section *html.Node, field markup.Field) string
	Layout() Layout
}

type positional struct {
	layout    Layout
	selectors map[markup.Field]*xpath.Expr
}

func (p positional) Layout() Layout { return p.layout }

func (p positional) Extract(section *html.Node, field markup.Field) string {
	expr, ok := p.selectors[field]
	if !ok || section == nil {
		return ""
	}
	node := htmlquery.QuerySelector(section, expr)
	if node == nil {
		return ""
	}
	return htmlquery.InnerText(node)
}

// ModalityProbe maps raw modality text to its code; course.Unspecified means
// the page has no modality row.
type ModalityProbe func(raw string) int

// FieldExtractor picks the current or legacy layout per page.
type FieldExtractor struct {
	current positional
	legacy  positional
	probe   ModalityProbe
	shifted map[markup.Field]bool
}

// NewFieldExtractor builds a FieldExtractor from a compiled selector table.
func NewFieldExtractor(detail markup.Detail, probe ModalityProbe) *FieldExtractor {
	legacy := make(map[markup.Field]*xpath.Expr, len(detail.Fields))
	for field, expr := range detail.Fields {
		legacy[field] = expr
	}
	shifted := make(map[markup.Field]bool, len(detail.LegacyFields))
	for field, expr := range detail.LegacyFields {
		legacy[field] = expr
		shifted[field] = true
	}
	return &FieldExtractor{
		current: positional{layout: LayoutCurrent, selectors: detail.Fields},
		legacy:  positional{layout: LayoutLegacy, selectors: legacy},
		probe:   probe,
		shifted: shifted,
	}
}

// Resolve probes section once and returns the extractor for its layout.
func (f *FieldExtractor) Resolve(section *html.Node) Extractor {
	if f.probe(f.current.Extract(section, markup.FieldModality)) == course.Unspecified {
		return f.legacy
	}
	return f.current
}

// Extract returns field from section. Fields whose row moved when the
// modality row was introduced are read from their legacy position when the
// page has no recognisable modality.
func (f *FieldExtractor) Extract(section *html.Node, field markup.Field) string {
	if !f.shifted[field] {
		return f.current.Extract(section, field)
	}
	return f.Resolve(section).Extract(section, field)
}

// Page is a parsed course detail page.
type Page struct {
	root   *html.Node
	doc    *goquery.Document
	detail markup.Detail
}

// ParsePage parses an HTML body.
func ParsePage(body []byte, detail markup.Detail) (*Page, error) {
	root, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}
	return &Page{
		root:   root,
		doc:    goquery.NewDocumentFromNode(root),
		detail: detail,
	}, nil
}

// InfoTable returns the course information table.
func (p *Page) InfoTable() (*html.Node, error) {
	node := htmlquery.QuerySelector(p.root, p.detail.InfoTable)
	if node == nil {
		return nil, ErrMissingInfoTable
	}
	return node, nil
}

// TextRow returns the content cell of the "Syllabus Information" row whose
// heading equals label.
func (p *Page) TextRow(label string) (*goquery.Selection, bool) {
	var found *goquery.Selection
	p.doc.FindMatcher(p.detail.TextRows).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		name := strings.TrimSpace(row.FindMatcher(p.detail.TextRowName).First().Text())
		if name != label {
			return true
		}
		content := row.FindMatcher(p.detail.TextRowContent).First()
		if content.Length() > 0 {
			found = content
		}
		return false
	})
	return found, found != nil
}

// TextValue returns the direct text of the labelled row, or "".
func (p *Page) TextValue(label string) string {
	content, ok := p.TextRow(label)
	if !ok {
		return ""
	}
	return ownText(content)
}

// EvalRow is one data row of the evaluation table, before normalization.
type EvalRow struct {
	Kind     string
	Percent  string
	Criteria string
}

// EvaluationRows returns the data rows of the "Evaluation" table. The first
// row is the header; a table with nothing else yields no rows.
func (p *Page) EvaluationRows() []EvalRow {
	content, ok := p.TextRow("Evaluation")
	if !ok {
		return nil
	}
	rows := content.FindMatcher(p.detail.TextNestedRows)
	if rows.Length() < 2 {
		return nil
	}
	out := make([]EvalRow, 0, rows.Length()-1)
	rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		cells := row.Children()
		out = append(out, EvalRow{
			Kind:     ownText(cells.Eq(0)),
			Percent:  ownText(cells.Eq(1)),
			Criteria: ownText(cells.Eq(2)),
		})
	})
	return out
}

// ownText is the first text child of the selection, matching XPath text().
func ownText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	for c := sel.Get(0).FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			return c.Data
		}
	}
	return ""
}
