// Package fixture renders syllabus pages and serves a fake catalog site for
// tests.
package fixture

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"text/template"
	"time"
)

var (
	//go:embed detail.html.tmpl
	detailTemplateText string
	//go:embed catalog.html.tmpl
	catalogTemplateText string

	detailTemplate  = template.Must(template.New("detail").Parse(detailTemplateText))
	catalogTemplate = template.Must(template.New("catalog").Parse(catalogTemplateText))
)

// Schedule joins a term and slot text with the site's double no-break space.
func Schedule(term, slots string) string {
	return term + "\u00a0\u00a0" + slots
}

// EvalRow is one evaluation table row.
type EvalRow struct {
	Kind     string
	Percent  string
	Criteria string
}

// Detail is the content of one language version of a detail page.
type Detail struct {
	Title      string
	Instructor string
	Schedule   string
	Category   string
	MinYear    string
	Credit     string
	Classroom  string
	Campus     string
	Key        string
	Language   string
	Modality   string
	// Legacy omits the modality row, shifting later rows up by one.
	Legacy   bool
	Code     string
	Level    string
	Type     string
	Subtitle string
	Eval     []EvalRow
}

type labels struct {
	Heading, Year, Title, Instructor, Schedule, Category, MinYear, Credit string
	Classroom, Campus, Key, ClassCode, Lang, Modality, Code, Discipline   string
	Level, Type                                                           string
}

var enLabels = labels{
	Heading: "Course Information", Year: "Year", Title: "Course Title", Instructor: "Instructor",
	Schedule: "Term/Day/Period", Category: "Category", MinYear: "Eligible Year", Credit: "Credits",
	Classroom: "Classroom", Campus: "Campus", Key: "Course Key", ClassCode: "Course Class Code",
	Lang: "Main Language", Modality: "Course Method", Code: "Course Code",
	Discipline: "Academic disciplines", Level: "Level", Type: "Types of lesson",
}

var jpLabels = labels{
	Heading: "授業情報", Year: "開講年度", Title: "科目名", Instructor: "担当教員",
	Schedule: "学期曜日時限", Category: "科目区分", MinYear: "配当年次", Credit: "単位数",
	Classroom: "使用教室", Campus: "キャンパス", Key: "科目キー", ClassCode: "科目クラスコード",
	Lang: "授業で使う言語", Modality: "授業方法区分", Code: "コース・コード",
	Discipline: "大分野名称", Level: "レベル", Type: "授業形態",
}

// DetailPage renders a detail page. lang is "en" or "jp".
func DetailPage(lang string, d Detail) []byte {
	l := enLabels
	if lang == "jp" {
		l = jpLabels
	}
	var buf bytes.Buffer
	err := detailTemplate.Execute(&buf, struct {
		Lang   string
		Year   int
		Labels labels
		D      Detail
	}{Lang: lang, Year: 2024, Labels: l, D: d})
	if err != nil {
		panic(fmt.Sprintf("render detail fixture: %v", err))
	}
	return buf.Bytes()
}

// CatalogPage renders one catalog listing page.
func CatalogPage(ids []string, page, pages int) []byte {
	links := make([]int, pages)
	for i := range links {
		links[i] = i + 1
	}
	var buf bytes.Buffer
	err := catalogTemplate.Execute(&buf, struct {
		IDs       []string
		Pages     int
		PageLinks []int
		Next      int
		Year      int
	}{IDs: ids, Pages: pages, PageLinks: links, Next: min(page+1, pages), Year: 2024})
	if err != nil {
		panic(fmt.Sprintf("render catalog fixture: %v", err))
	}
	return buf.Bytes()
}

// Course pairs the two language versions of one course.
type Course struct {
	EN Detail
	JP Detail
}

// CourseID builds a 28 character id token.
func CourseID(n int) string {
	return fmt.Sprintf("26%026d", n)
}

// SampleCourse returns a fully populated course whose values depend on n.
func SampleCourse(n int) Course {
	key := CourseID(n)
	return Course{
		EN: Detail{
			Title:      fmt.Sprintf("Linear Algebra %d", n),
			Instructor: "SUZUKI, Taro",
			Schedule:   Schedule("spring semester", "Mon.2"),
			Category:   "Major Subjects",
			MinYear:    "1 year or above",
			Credit:     "2",
			Classroom:  "52-102",
			Campus:     "Nishiwaseda",
			Key:        key,
			Language:   "English",
			Modality:   "Face-to-face",
			Code:       "MATA101L",
			Level:      "Beginner, initial or introductory",
			Type:       "Lecture",
			Subtitle:   "Vectors and matrices",
			Eval: []EvalRow{
				{Kind: "Exam:", Percent: "60%", Criteria: "Final examination."},
				{Kind: "Papers:", Percent: "40%", Criteria: "Weekly\nreports."},
			},
		},
		JP: Detail{
			Title:      fmt.Sprintf("線形代数　%d", n),
			Instructor: "鈴木　太郎",
			Schedule:   Schedule("春学期", "月2時限"),
			Category:   "専門科目",
			MinYear:    "1年以上",
			Credit:     "2",
			Classroom:  "52-102",
			Campus:     "西早稲田",
			Key:        key,
			Language:   "英語",
			Modality:   "対面",
			Code:       "MATA101L",
			Level:      "初級レベル（入門・導入）",
			Type:       "講義",
		},
	}
}

// Site serves catalog and detail pages under /syllabus/.
type Site struct {
	Year  int
	Param string
	// Pages lists course ids per catalog page, in order.
	Pages   [][]string
	Courses map[string]Course
	// Delay is applied to every response.
	Delay time.Duration
	// FailDetail makes detail requests for these ids answer with the status.
	FailDetail map[string]int
	// FailCatalogTimes answers the first n catalog requests with 503.
	FailCatalogTimes int32

	catalogFailures atomic.Int32
	inFlight        atomic.Int32
	maxInFlight     atomic.Int32
	mu              sync.Mutex
	hits            map[string]int
}

// NewSite builds a site whose pages hold the given number of sample courses.
func NewSite(year int, param string, perPage ...int) *Site {
	s := &Site{Year: year, Param: param, Courses: map[string]Course{}}
	n := 0
	for _, count := range perPage {
		var ids []string
		for range count {
			n++
			id := CourseID(n)
			ids = append(ids, id)
			s.Courses[id] = SampleCourse(n)
		}
		s.Pages = append(s.Pages, ids)
	}
	return s
}

// IDs returns every course id in page order.
func (s *Site) IDs() []string {
	var out []string
	for _, page := range s.Pages {
		out = append(out, page...)
	}
	return out
}

// MaxInFlight reports the highest number of concurrent requests observed.
func (s *Site) MaxInFlight() int {
	return int(s.maxInFlight.Load())
}

// Hits reports how many requests reached path+query.
func (s *Site) Hits(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

func (s *Site) record(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hits == nil {
		s.hits = map[string]int{}
	}
	s.hits[key]++
}

// ServeHTTP implements http.Handler.
func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	current := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.maxInFlight.Load()
		if current <= prev || s.maxInFlight.CompareAndSwap(prev, current) {
			break
		}
	}
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}

	q := r.URL.Query()
	switch r.URL.Path {
	case "/syllabus/JAA103.php":
		s.record("catalog:" + q.Get("p_page"))
		s.serveCatalog(w, q.Get("pYear"), q.Get("p_gakubu"), q.Get("p_page"))
	case "/syllabus/JAA104.php":
		s.record("detail:" + q.Get("pKey") + ":" + q.Get("pLng"))
		s.serveDetail(w, q.Get("pKey"), q.Get("pLng"))
	default:
		http.NotFound(w, r)
	}
}

func (s *Site) serveCatalog(w http.ResponseWriter, year, param, rawPage string) {
	if s.catalogFailures.Add(1) <= s.FailCatalogTimes {
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	if param != s.Param || year != strconv.Itoa(s.Year) {
		http.Error(w, "unknown catalog", http.StatusNotFound)
		return
	}
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 || page > max(len(s.Pages), 1) {
		http.Error(w, "bad page", http.StatusNotFound)
		return
	}
	var ids []string
	if len(s.Pages) > 0 {
		ids = s.Pages[page-1]
	}
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	_, _ = w.Write(CatalogPage(ids, page, len(s.Pages)))
}

func (s *Site) serveDetail(w http.ResponseWriter, id, lang string) {
	if status, ok := s.FailDetail[id]; ok {
		http.Error(w, http.StatusText(status), status)
		return
	}
	c, ok := s.Courses[id]
	if !ok {
		http.Error(w, "unknown course", http.StatusNotFound)
		return
	}
	d := c.EN
	if lang == "jp" {
		d = c.JP
	}
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	_, _ = w.Write(DetailPage(lang, d))
}
