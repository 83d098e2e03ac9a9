// Package assemble builds a course record from its English and Japanese
// detail pages.
package assemble

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/syllabus-crawler/internal/course"
	"github.com/JakeFAU/syllabus-crawler/internal/extract"
	"github.com/JakeFAU/syllabus-crawler/internal/markup"
	"github.com/JakeFAU/syllabus-crawler/internal/normalize"
)

// Assembler turns a pair of detail pages into a course.
type Assembler struct {
	detail     markup.Detail
	normalizer *normalize.Normalizer
	fields     *extract.FieldExtractor
	logger     *zap.Logger
}

// New builds an Assembler.
func New(table *markup.Table, normalizer *normalize.Normalizer, logger *zap.Logger) (*Assembler, error) {
	if table == nil {
		return nil, fmt.Errorf("selector table is required")
	}
	if normalizer == nil {
		return nil, fmt.Errorf("normalizer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		detail:     table.Detail,
		normalizer: normalizer,
		fields:     extract.NewFieldExtractor(table.Detail, normalizer.ProbeModality),
		logger:     logger,
	}, nil
}

// Assemble parses both pages and combines them. A page without an
// information table fails the course; missing fields only degrade it.
func (a *Assembler) Assemble(id string, enBody, jpBody []byte) (course.Course, error) {
	en, err := extract.ParsePage(enBody, a.detail)
	if err != nil {
		return course.Course{}, fmt.Errorf("english page: %w", err)
	}
	jp, err := extract.ParsePage(jpBody, a.detail)
	if err != nil {
		return course.Course{}, fmt.Errorf("japanese page: %w", err)
	}
	infoEN, err := en.InfoTable()
	if err != nil {
		return course.Course{}, fmt.Errorf("english page: %w", err)
	}
	infoJP, err := jp.InfoTable()
	if err != nil {
		return course.Course{}, fmt.Errorf("japanese page: %w", err)
	}

	n := a.normalizer
	log := a.logger.With(zap.String("course_id", id))
	exEN := a.fields.Resolve(infoEN)
	exJP := a.fields.Resolve(infoJP)
	modality := course.Unspecified
	if exJP.Layout() == extract.LayoutLegacy {
		log.Debug("japanese page has no modality row")
	} else {
		modality = n.Modality(exJP.Extract(infoJP, markup.FieldModality))
	}

	schedule := exEN.Extract(infoEN, markup.FieldOccurrence)
	periods := n.Periods(schedule)
	locations := n.Locations(exEN.Extract(infoEN, markup.FieldClassroom))
	occurrences, lossy := course.MergePeriodLocation(periods, locations)
	if lossy {
		log.Warn("ambiguous period and classroom pairing",
			zap.Int("periods", len(periods)),
			zap.Int("locations", len(locations)))
	}

	return course.Course{
		ID:           id,
		Title:        normalize.ToHalfWidth(exEN.Extract(infoEN, markup.FieldTitle)),
		TitleJP:      normalize.ToHalfWidth(exJP.Extract(infoJP, markup.FieldTitle)),
		Instructor:   normalize.ToHalfWidth(exEN.Extract(infoEN, markup.FieldInstructor)),
		InstructorJP: normalize.ToHalfWidth(exJP.Extract(infoJP, markup.FieldInstructor)),
		Lang:         n.Languages(exEN.Extract(infoEN, markup.FieldLang)),
		Type:         n.Type(exJP.Extract(infoJP, markup.FieldType)),
		Term:         n.Term(schedule),
		Occurrences:  occurrences,
		MinYear:      normalize.ParseMinYear(exEN.Extract(infoEN, markup.FieldMinYear)),
		Category:     normalize.ToHalfWidth(exEN.Extract(infoEN, markup.FieldCategory)),
		Credit:       normalize.ParseCredit(exEN.Extract(infoEN, markup.FieldCredit)),
		Level:        n.Level(exJP.Extract(infoJP, markup.FieldLevel)),
		EvalCriteria: a.evalCriteria(en),
		Code:         exJP.Extract(infoJP, markup.FieldCode),
		Subtitle:     normalize.ToHalfWidth(en.TextValue("Subtitle")),
		CategoryJP:   normalize.ToHalfWidth(exJP.Extract(infoJP, markup.FieldCategory)),
		Modality:     modality,
	}, nil
}

func (a *Assembler) evalCriteria(page *extract.Page) []course.EvalCriterion {
	rows := page.EvaluationRows()
	out := make([]course.EvalCriterion, 0, len(rows))
	for _, r := range rows {
		out = append(out, course.EvalCriterion{
			Type:     a.normalizer.EvalKind(r.Kind),
			Percent:  a.normalizer.EvalPercent(r.Percent),
			Criteria: normalize.CleanCriteria(r.Criteria),
		})
	}
	return out
}
