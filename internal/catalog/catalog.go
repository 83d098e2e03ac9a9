// Package catalog knows the syllabus site's URLs, request headers and
// listing-page layout.
package catalog

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"

	"github.com/JakeFAU/syllabus-crawler/internal/markup"
)

// DefaultBaseURL is the syllabus site root.
const DefaultBaseURL = "https://www.wsl.waseda.jp/syllabus"

// PageSize is the number of courses requested per catalog page.
const PageSize = 100

// Language selects the detail page version.
type Language string

// Page languages.
const (
	English  Language = "en"
	Japanese Language = "jp"
)

// AcademicYear returns the catalog year in effect at now. The year turns over
// in March.
func AcademicYear(now time.Time) int {
	if now.Month() < time.March {
		return now.Year() - 1
	}
	return now.Year()
}

// URLBuilder renders catalog and detail URLs.
type URLBuilder struct {
	base string
}

// NewURLBuilder validates base and returns a builder.
func NewURLBuilder(base string) (*URLBuilder, error) {
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", base)
	}
	return &URLBuilder{base: strings.TrimRight(base, "/")}, nil
}

// CatalogPage returns the English listing URL for page (1-based).
func (b *URLBuilder) CatalogPage(school School, year, page int) string {
	q := url.Values{}
	q.Set("pYear", strconv.Itoa(year))
	q.Set("p_gakubu", school.Param)
	q.Set("p_page", strconv.Itoa(page))
	q.Set("p_number", strconv.Itoa(PageSize))
	q.Set("pLng", string(English))
	return b.base + "/JAA103.php?" + q.Encode()
}

// Detail returns the detail page URL for a course id.
func (b *URLBuilder) Detail(id string, lang Language) string {
	q := url.Values{}
	q.Set("pKey", id)
	q.Set("pLng", string(lang))
	return b.base + "/JAA104.php?" + q.Encode()
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 6.2; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/60.0.3112.90 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/78.0.3904.108 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 13_4_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/13.1 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_14_4) AppleWebKit/605.1.15 (KHTML, like Gecko)",
	"Mozilla/5.0 (iPad; CPU OS 9_3_5 like Mac OS X) AppleWebKit/601.1.46 (KHTML, like Gecko) Mobile/13G36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/84.0.4147.105 Safari/537.36",
	"Mozilla/5.0 (Windows NT 5.1; rv:36.0) Gecko/20100101 Firefox/36.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 12_4_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/12.1.2 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/79.0.3945.117 Safari/537.36 Edg/79.0.309.65",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/79.0.3945.117 Safari/537.36 Edg/79.0.309.65",
}

// UserAgents returns the rotation pool.
func UserAgents() []string {
	return append([]string(nil), userAgents...)
}

// Headers returns a browser-like header set with a User-Agent drawn from the
// pool.
func Headers() http.Header {
	h := http.Header{}
	h.Set("Connection", "keep-alive")
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Accept-Language", "en-US,en;q=0.9,ja-JP;q=0.8,ja;q=0.7")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	return h
}

// Parser reads listing pages.
type Parser struct {
	sel markup.Catalog
}

// NewParser builds a Parser from a compiled selector table.
func NewParser(table *markup.Table) *Parser {
	return &Parser{sel: table.Catalog}
}

// MaxPage returns the last numeric page link, or 1 when the listing has no
// pagination.
func (p *Parser) MaxPage(body []byte) (int, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("parse catalog page: %w", err)
	}
	last := 1
	for _, n := range htmlquery.QuerySelectorAll(doc, p.sel.PageNumbers) {
		if v, err := strconv.Atoi(strings.TrimSpace(htmlquery.InnerText(n))); err == nil && v > 0 {
			last = v
		}
	}
	return last, nil
}

// CourseIDs returns the course ids on a listing page in row order. The
// first row is the table header.
func (p *Parser) CourseIDs(body []byte) ([]string, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse catalog page: %w", err)
	}
	rows := htmlquery.QuerySelectorAll(doc, p.sel.CourseRows)
	if len(rows) <= 1 {
		return []string{}, nil
	}
	ids := make([]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		attr := htmlquery.QuerySelector(row, p.sel.CourseID)
		if attr == nil {
			return nil, fmt.Errorf("catalog row %d has no course link", i+1)
		}
		id := p.sel.CourseIDPattern.FindString(htmlquery.InnerText(attr))
		if id == "" {
			return nil, fmt.Errorf("catalog row %d: no course id in %q", i+1, htmlquery.InnerText(attr))
		}
		ids = append(ids, id)
	}
	return ids, nil
}
