package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/syllabus-crawler/internal/fixture"
	"github.com/JakeFAU/syllabus-crawler/internal/markup"
	"github.com/JakeFAU/syllabus-crawler/internal/normalize"
)

func newExtractor(t *testing.T) (*FieldExtractor, markup.Detail) {
	t.Helper()
	table := markup.MustDefault()
	n, err := normalize.New(normalize.DefaultVocabulary(), nil)
	require.NoError(t, err)
	return NewFieldExtractor(table.Detail, n.ProbeModality), table.Detail
}

func parseInfo(t *testing.T, detail markup.Detail, lang string, d fixture.Detail) *Page {
	t.Helper()
	page, err := ParsePage(fixture.DetailPage(lang, d), detail)
	require.NoError(t, err)
	return page
}

func TestExtractCurrentLayout(t *testing.T) {
	t.Parallel()

	ex, detail := newExtractor(t)
	jp := fixture.SampleCourse(1).JP
	page := parseInfo(t, detail, "jp", jp)
	section, err := page.InfoTable()
	require.NoError(t, err)

	assert.Equal(t, LayoutCurrent, ex.Resolve(section).Layout())
	assert.Equal(t, jp.Title, ex.Extract(section, markup.FieldTitle))
	assert.Equal(t, jp.Instructor, ex.Extract(section, markup.FieldInstructor))
	assert.Equal(t, "対面", ex.Extract(section, markup.FieldModality))
	assert.Equal(t, "MATA101L", ex.Extract(section, markup.FieldCode))
	assert.Equal(t, jp.Level, ex.Extract(section, markup.FieldLevel))
	assert.Equal(t, jp.Type, ex.Extract(section, markup.FieldType))
}

func TestExtractLegacyLayoutUsesShiftedRows(t *testing.T) {
	t.Parallel()

	ex, detail := newExtractor(t)
	jp := fixture.SampleCourse(2).JP
	jp.Legacy = true
	jp.Code = "PSEC201L"
	page := parseInfo(t, detail, "jp", jp)
	section, err := page.InfoTable()
	require.NoError(t, err)

	assert.Equal(t, LayoutLegacy, ex.Resolve(section).Layout())
	// Row 9 now holds the course code, so modality is unrecognised.
	assert.Equal(t, "PSEC201L", ex.Extract(section, markup.FieldModality))
	assert.Equal(t, "PSEC201L", ex.Extract(section, markup.FieldCode))
	assert.Equal(t, jp.Level, ex.Extract(section, markup.FieldLevel))
	assert.Equal(t, jp.Type, ex.Extract(section, markup.FieldType))

	// Without the legacy override the current position lands on a discipline row.
	current := positional{layout: LayoutCurrent, selectors: detail.Fields}
	assert.Equal(t, "Mathematics", current.Extract(section, markup.FieldCode))
}

func TestExtractMissingField(t *testing.T) {
	t.Parallel()

	ex, detail := newExtractor(t)
	en := fixture.SampleCourse(3).EN
	en.Classroom = ""
	page := parseInfo(t, detail, "en", en)
	section, err := page.InfoTable()
	require.NoError(t, err)

	assert.Equal(t, "", ex.Extract(section, markup.FieldClassroom))
	assert.Equal(t, "", ex.Extract(section, markup.Field("nonexistent")))
	assert.Equal(t, "", ex.Extract(nil, markup.FieldTitle))
}

func TestInfoTableMissing(t *testing.T) {
	t.Parallel()

	_, detail := newExtractor(t)
	page, err := ParsePage([]byte("<html><body><p>Not found</p></body></html>"), detail)
	require.NoError(t, err)
	_, err = page.InfoTable()
	assert.ErrorIs(t, err, ErrMissingInfoTable)
}

func TestTextRowsAndEvaluation(t *testing.T) {
	t.Parallel()

	_, detail := newExtractor(t)
	en := fixture.SampleCourse(4).EN
	page := parseInfo(t, detail, "en", en)

	assert.Equal(t, "Vectors and matrices", page.TextValue("Subtitle"))
	assert.Equal(t, "", page.TextValue("Reference"))

	rows := page.EvaluationRows()
	require.Len(t, rows, 2)
	assert.Equal(t, EvalRow{Kind: "Exam:", Percent: "60%", Criteria: "Final examination."}, rows[0])
	assert.Equal(t, "Papers:", rows[1].Kind)
	assert.Equal(t, "Weekly\nreports.", rows[1].Criteria)
}

func TestEvaluationHeaderOnly(t *testing.T) {
	t.Parallel()

	_, detail := newExtractor(t)
	body := []byte(`<html><body><table class="ct-common ct-sirabasu"><tbody>
<tr><th>Evaluation</th><td><table><tbody><tr><th>Kind</th><th>Percentage</th><th>Criteria</th></tr></tbody></table></td></tr>
</tbody></table></body></html>`)
	page, err := ParsePage(body, detail)
	require.NoError(t, err)
	assert.Empty(t, page.EvaluationRows())

	en := fixture.SampleCourse(5).EN
	en.Eval = nil
	assert.Empty(t, parseInfo(t, detail, "en", en).EvaluationRows())
}
