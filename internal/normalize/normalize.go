// Package normalize converts raw catalog strings into the coded values stored
// on a course. Every operation is total: unrecognised input yields a sentinel
// and a warning instead of an error.
package normalize

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/JakeFAU/syllabus-crawler/internal/course"
)

const (
	// scheduleSeparator splits "term" from "day.period" in the schedule cell.
	scheduleSeparator = "\u00a0\u00a0"
	// locationSeparator splits per-period classroom entries.
	locationSeparator = "／"

	termUndecided = "undecided"
)

var (
	roomCodePattern     = regexp.MustCompile(`^\d+-[\dA-Z-]+$`)
	periodPattern       = regexp.MustCompile(`(Mon|Tues|Wed|Thur|Fri|Sat|Sun)\.(\d-\d|\d|On demand)`)
	indexedLocation     = regexp.MustCompile(`0(\d):(.*)`)
	formatCharsReplacer = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")
)

// Normalizer applies a Vocabulary to raw field text.
type Normalizer struct {
	vocab  Vocabulary
	logger *zap.Logger
}

// New validates vocab and returns a Normalizer that owns a private copy of it.
func New(vocab Vocabulary, logger *zap.Logger) (*Normalizer, error) {
	if err := vocab.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vocabulary: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{vocab: vocab.clone(), logger: logger}, nil
}

// ToHalfWidth folds full-width characters to their ASCII forms (NFKC).
func ToHalfWidth(s string) string {
	if s == "" {
		return ""
	}
	return norm.NFKC.String(s)
}

// ParseMinYear returns the leading digit of the eligible-year cell.
func ParseMinYear(s string) int {
	s = strings.TrimSpace(ToHalfWidth(s))
	if s == "" || s[0] < '0' || s[0] > '9' {
		return course.Unspecified
	}
	return int(s[0] - '0')
}

// ParseCredit parses a credit count made only of ASCII digits.
func ParseCredit(s string) int {
	s = strings.TrimSpace(ToHalfWidth(s))
	if s == "" {
		return course.Unspecified
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return course.Unspecified
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return course.Unspecified
	}
	return n
}

// LookupEnum resolves raw against table. The boolean is false when raw is a
// non-blank label missing from the table.
func LookupEnum(table map[string]int, raw string) (int, bool) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return course.Unspecified, true
	}
	code, ok := table[key]
	if !ok {
		return course.Unspecified, false
	}
	return code, true
}

func (n *Normalizer) enum(kind string, table map[string]int, raw string) int {
	if slices.Contains(n.vocab.Unspecified, strings.TrimSpace(raw)) {
		return course.Unspecified
	}
	code, ok := LookupEnum(table, raw)
	if !ok {
		n.logger.Warn("unmapped label", zap.String("kind", kind), zap.String("label", raw))
	}
	return code
}

// Type maps a lesson-type label.
func (n *Normalizer) Type(raw string) int { return n.enum("type", n.vocab.Types, raw) }

// Level maps a course-level label.
func (n *Normalizer) Level(raw string) int { return n.enum("level", n.vocab.Levels, raw) }

// Modality maps a delivery-modality label.
func (n *Normalizer) Modality(raw string) int { return n.enum("modality", n.vocab.Modalities, raw) }

// ProbeModality is Modality without logging. It is used to detect pages
// that predate the modality row.
func (n *Normalizer) ProbeModality(raw string) int {
	code, _ := LookupEnum(n.vocab.Modalities, raw)
	return code
}

// EvalKind maps an evaluation row heading such as "Exam:".
func (n *Normalizer) EvalKind(raw string) int { return n.enum("eval_kind", n.vocab.EvalKinds, raw) }

// Weekday maps an abbreviated day name.
func (n *Normalizer) Weekday(raw string) int { return n.enum("weekday", n.vocab.Weekdays, raw) }

// Languages maps a "/"-separated language list.
func (n *Normalizer) Languages(raw string) []int {
	raw = strings.TrimSpace(raw)
	if raw == "N/A" || raw == "" {
		return []int{course.Unspecified}
	}
	parts := strings.Split(raw, "/")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		out = append(out, n.enum("language", n.vocab.Languages, p))
	}
	return out
}

// Term encodes the term part of a schedule cell, which holds the term and the
// weekly slots separated by two no-break spaces. A cell without the separator
// yields "undecided"; an unknown term yields "".
func (n *Normalizer) Term(schedule string) string {
	term, _, ok := strings.Cut(schedule, scheduleSeparator)
	if !ok {
		n.logger.Warn("schedule has no term separator", zap.String("schedule", schedule))
		return termUndecided
	}
	code, found := n.vocab.Terms[strings.TrimSpace(term)]
	if !found {
		n.logger.Error("unknown term", zap.String("term", term))
		return ""
	}
	return code
}

// Periods extracts weekly slots from a schedule cell. "1-2" style ranges are
// encoded as 12; on-demand slots use period 0.
func (n *Normalizer) Periods(schedule string) []course.Occurrence {
	_, occ, ok := strings.Cut(schedule, scheduleSeparator)
	if !ok {
		n.logger.Warn("schedule has no period separator", zap.String("schedule", schedule))
		return []course.Occurrence{}
	}
	occ = strings.TrimSpace(occ)
	switch occ {
	case "othersothers":
		return []course.Occurrence{{Day: course.Unspecified, Period: course.PeriodUndecided}}
	case "othersOn demand":
		return []course.Occurrence{{Day: course.Unspecified, Period: course.PeriodOnDemand}}
	}

	matches := periodPattern.FindAllStringSubmatch(occ, -1)
	out := make([]course.Occurrence, 0, len(matches))
	for _, m := range matches {
		out = append(out, course.Occurrence{Day: n.Weekday(m[1]), Period: parsePeriod(m[2])})
	}
	return out
}

func parsePeriod(s string) int {
	switch {
	case s == "On demand":
		return course.PeriodOnDemand
	case len(s) == 1:
		return int(s[0] - '0')
	case len(s) == 3 && s[1] == '-':
		return int(s[0]-'0')*10 + int(s[2]-'0')
	}
	return course.PeriodUndecided
}

// Locations parses a classroom cell into room codes. A cell of the form
// "01:52-102／02:53-201" is expanded in period order.
func (n *Normalizer) Locations(raw string) []string {
	if isBlank(raw) {
		return []string{course.LocationUndecided}
	}
	if !strings.Contains(raw, locationSeparator) {
		return []string{n.RenameLocation(raw)}
	}

	var rooms [][]string
	for _, part := range strings.Split(raw, locationSeparator) {
		for _, m := range indexedLocation.FindAllStringSubmatch(part, -1) {
			idx := int(m[1][0]-'0') - 1
			room := n.RenameLocation(m[2])
			if idx < 0 || idx >= len(rooms) {
				rooms = append(rooms, []string{room})
				continue
			}
			rooms[idx] = append(rooms[idx], room)
		}
	}
	out := make([]string, 0, len(rooms))
	for _, group := range rooms {
		out = append(out, group...)
	}
	if len(out) == 0 {
		n.logger.Warn("unable to split classroom list", zap.String("classroom", raw))
		return []string{course.LocationUndecided}
	}
	return out
}

// RenameLocation canonicalises one classroom label. Room codes pass through,
// known labels are renamed and anything else is NFKC-folded with a warning.
func (n *Normalizer) RenameLocation(loc string) string {
	loc = strings.TrimSpace(loc)
	if roomCodePattern.MatchString(loc) {
		return loc
	}
	if renamed, ok := n.vocab.Locations[loc]; ok {
		return renamed
	}
	n.logger.Warn("unknown location", zap.String("location", loc))
	return ToHalfWidth(loc)
}

// EvalPercent parses a percentage cell such as "40%".
func (n *Normalizer) EvalPercent(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return course.Unspecified
	}
	_, size := utf8.DecodeLastRuneInString(s)
	s = s[:len(s)-size]
	if s == "" {
		return course.Unspecified
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		n.logger.Warn("unable to parse percent", zap.String("percent", raw))
		return course.Unspecified
	}
	return v
}

// CleanCriteria folds width and flattens line breaks and tabs to spaces.
func CleanCriteria(s string) string {
	return formatCharsReplacer.Replace(ToHalfWidth(s))
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
