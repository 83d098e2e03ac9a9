// Package course defines the bilingual course record published per department.
package course

// Unspecified is the enum sentinel for a missing or unrecognised label.
const Unspecified = -1

// Period sentinels.
const (
	PeriodUndecided = -1
	PeriodOnDemand  = 0
)

// LocationUndecided is the placeholder emitted for blank classroom cells.
const LocationUndecided = "undecided"

// Occurrence is one weekly meeting slot.
type Occurrence struct {
	Day      int    `json:"d"`
	Period   int    `json:"p"`
	Location string `json:"l,omitempty"`
}

// EvalCriterion is one row of the grading table.
type EvalCriterion struct {
	Type     int    `json:"t"`
	Percent  int    `json:"p"`
	Criteria string `json:"c"`
}

// Course is the assembled record for one course, combining the English and
// Japanese detail pages. Keys are single letters to keep artifacts small.
type Course struct {
	ID           string          `json:"a"`
	Title        string          `json:"b"`
	TitleJP      string          `json:"c"`
	Instructor   string          `json:"d"`
	InstructorJP string          `json:"e"`
	Lang         []int           `json:"f"`
	Type         int             `json:"g"`
	Term         string          `json:"h"`
	Occurrences  []Occurrence    `json:"i"`
	MinYear      int             `json:"j"`
	Category     string          `json:"k"`
	Credit       int             `json:"l"`
	Level        int             `json:"m"`
	EvalCriteria []EvalCriterion `json:"n"`
	Code         string          `json:"o"`
	Subtitle     string          `json:"p"`
	CategoryJP   string          `json:"q"`
	Modality     int             `json:"r"`
}
