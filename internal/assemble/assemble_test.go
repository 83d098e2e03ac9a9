package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/syllabus-crawler/internal/course"
	"github.com/JakeFAU/syllabus-crawler/internal/extract"
	"github.com/JakeFAU/syllabus-crawler/internal/fixture"
	"github.com/JakeFAU/syllabus-crawler/internal/markup"
	"github.com/JakeFAU/syllabus-crawler/internal/normalize"
)

func newAssembler(t *testing.T) (*Assembler, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)
	n, err := normalize.New(normalize.DefaultVocabulary(), logger)
	require.NoError(t, err)
	a, err := New(markup.MustDefault(), n, logger)
	require.NoError(t, err)
	return a, logs
}

func TestAssembleSampleCourse(t *testing.T) {
	t.Parallel()

	a, _ := newAssembler(t)
	c := fixture.SampleCourse(7)
	id := fixture.CourseID(7)

	got, err := a.Assemble(id, fixture.DetailPage("en", c.EN), fixture.DetailPage("jp", c.JP))
	require.NoError(t, err)

	want := course.Course{
		ID:           id,
		Title:        "Linear Algebra 7",
		TitleJP:      "線形代数 7",
		Instructor:   "SUZUKI, Taro",
		InstructorJP: "鈴木 太郎",
		Lang:         []int{1},
		Type:         0,
		Term:         "0s",
		Occurrences:  []course.Occurrence{{Day: 1, Period: 2, Location: "52-102"}},
		MinYear:      1,
		Category:     "Major Subjects",
		Credit:       2,
		Level:        0,
		EvalCriteria: []course.EvalCriterion{
			{Type: 0, Percent: 60, Criteria: "Final examination."},
			{Type: 1, Percent: 40, Criteria: "Weekly reports."},
		},
		Code:       "MATA101L",
		Subtitle:   "Vectors and matrices",
		CategoryJP: "専門科目",
		Modality:   0,
	}
	assert.Equal(t, want, got)
}

func TestAssembleLegacyJapanesePage(t *testing.T) {
	t.Parallel()

	a, logs := newAssembler(t)
	c := fixture.SampleCourse(8)
	c.JP.Legacy = true
	c.JP.Code = "PSEC201L"
	c.JP.Level = "中級レベル（発展・応用）"
	c.JP.Type = "演習／ゼミ"

	got, err := a.Assemble(fixture.CourseID(8), fixture.DetailPage("en", c.EN), fixture.DetailPage("jp", c.JP))
	require.NoError(t, err)
	assert.Equal(t, "PSEC201L", got.Code)
	assert.Equal(t, 1, got.Level)
	assert.Equal(t, 1, got.Type)
	assert.Equal(t, course.Unspecified, got.Modality)
	assert.Equal(t, 0, logs.Len())
}

func TestAssembleDegradedFields(t *testing.T) {
	t.Parallel()

	a, _ := newAssembler(t)
	c := fixture.SampleCourse(9)
	c.EN.Classroom = ""
	c.EN.Credit = "N/A"
	c.EN.Schedule = fixture.Schedule("full year", "Mon.2Wed.3")
	c.EN.Eval = nil
	c.EN.Subtitle = ""

	got, err := a.Assemble(fixture.CourseID(9), fixture.DetailPage("en", c.EN), fixture.DetailPage("jp", c.JP))
	require.NoError(t, err)
	assert.Equal(t, -1, got.Credit)
	assert.Equal(t, "f", got.Term)
	assert.Equal(t, []course.Occurrence{
		{Day: 1, Period: 2, Location: "undecided"},
		{Day: 3, Period: 3, Location: "undecided"},
	}, got.Occurrences)
	assert.NotNil(t, got.EvalCriteria)
	assert.Empty(t, got.EvalCriteria)
	assert.Equal(t, "", got.Subtitle)
}

func TestAssembleMissingInfoTable(t *testing.T) {
	t.Parallel()

	a, _ := newAssembler(t)
	c := fixture.SampleCourse(10)
	broken := []byte("<html><body><div id=\"cEdit\"></div></body></html>")

	_, err := a.Assemble(fixture.CourseID(10), fixture.DetailPage("en", c.EN), broken)
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrMissingInfoTable)

	_, err = a.Assemble(fixture.CourseID(10), broken, fixture.DetailPage("jp", c.JP))
	assert.ErrorIs(t, err, extract.ErrMissingInfoTable)
}

func TestNewValidatesArguments(t *testing.T) {
	t.Parallel()

	n, err := normalize.New(normalize.DefaultVocabulary(), nil)
	require.NoError(t, err)
	_, err = New(nil, n, nil)
	assert.Error(t, err)
	_, err = New(markup.MustDefault(), nil, nil)
	assert.Error(t, err)
}
