// Package markup loads the selector tables that locate fields in catalog and
// course detail pages.
package markup

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var defaultSelectors []byte

// Field names a value in the course information table.
type Field string

// Fields present in the information table.
const (
	FieldTitle      Field = "title"
	FieldInstructor Field = "instructor"
	FieldOccurrence Field = "occurrence"
	FieldCategory   Field = "category"
	FieldMinYear    Field = "min_year"
	FieldCredit     Field = "credit"
	FieldClassroom  Field = "classroom"
	FieldCampus     Field = "campus"
	FieldLang       Field = "lang"
	FieldModality   Field = "modality"
	FieldCode       Field = "code"
	FieldLevel      Field = "level"
	FieldType       Field = "type"
)

// Table is a compiled selector table.
type Table struct {
	Version string
	Catalog Catalog
	Detail  Detail
}

// Catalog locates course ids and pagination on a catalog listing page.
type Catalog struct {
	PageNumbers     *xpath.Expr
	CourseRows      *xpath.Expr
	CourseID        *xpath.Expr
	CourseIDPattern *regexp.Regexp
}

// Detail locates values on a course detail page.
type Detail struct {
	InfoTable *xpath.Expr
	// Fields are relative to the information table.
	Fields map[Field]*xpath.Expr
	// LegacyFields override Fields on pages without a modality row.
	LegacyFields   map[Field]*xpath.Expr
	TextRows       cascadia.Selector
	TextRowName    cascadia.Selector
	TextRowContent cascadia.Selector
	TextNestedRows cascadia.Selector
}

type rawTable struct {
	Version string `yaml:"version"`
	Catalog struct {
		PageNumbers     string `yaml:"page_numbers"`
		CourseRows      string `yaml:"course_rows"`
		CourseID        string `yaml:"course_id"`
		CourseIDPattern string `yaml:"course_id_pattern"`
	} `yaml:"catalog"`
	Detail struct {
		InfoTable      string            `yaml:"info_table"`
		Fields         map[string]string `yaml:"fields"`
		LegacyFields   map[string]string `yaml:"legacy_fields"`
		TextRows       string            `yaml:"text_rows"`
		TextRowName    string            `yaml:"text_row_name"`
		TextRowContent string            `yaml:"text_row_content"`
		TextNestedRows string            `yaml:"text_nested_rows"`
	} `yaml:"detail"`
}

// Default returns the table embedded in the binary.
func Default() (*Table, error) {
	return Parse(defaultSelectors)
}

// MustDefault is Default for package-level initialisation and tests.
func MustDefault() *Table {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Parse decodes and compiles a YAML selector table.
func Parse(data []byte) (*Table, error) {
	var raw rawTable
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode selector table: %w", err)
	}
	if raw.Version == "" {
		return nil, fmt.Errorf("selector table version is required")
	}

	c := compiler{}
	t := &Table{
		Version: raw.Version,
		Catalog: Catalog{
			PageNumbers:     c.xpath("catalog.page_numbers", raw.Catalog.PageNumbers),
			CourseRows:      c.xpath("catalog.course_rows", raw.Catalog.CourseRows),
			CourseID:        c.xpath("catalog.course_id", raw.Catalog.CourseID),
			CourseIDPattern: c.regexp("catalog.course_id_pattern", raw.Catalog.CourseIDPattern),
		},
		Detail: Detail{
			InfoTable:      c.xpath("detail.info_table", raw.Detail.InfoTable),
			Fields:         c.fields("detail.fields", raw.Detail.Fields),
			LegacyFields:   c.fields("detail.legacy_fields", raw.Detail.LegacyFields),
			TextRows:       c.css("detail.text_rows", raw.Detail.TextRows),
			TextRowName:    c.css("detail.text_row_name", raw.Detail.TextRowName),
			TextRowContent: c.css("detail.text_row_content", raw.Detail.TextRowContent),
			TextNestedRows: c.css("detail.text_nested_rows", raw.Detail.TextNestedRows),
		},
	}
	if c.err != nil {
		return nil, c.err
	}
	if _, ok := t.Detail.Fields[FieldModality]; !ok {
		return nil, fmt.Errorf("detail.fields.%s is required", FieldModality)
	}
	for field := range t.Detail.LegacyFields {
		if _, ok := t.Detail.Fields[field]; !ok {
			return nil, fmt.Errorf("detail.legacy_fields.%s has no current selector", field)
		}
	}
	return t, nil
}

// compiler records the first error and keeps going so Parse reads linearly.
type compiler struct {
	err error
}

func (c *compiler) xpath(key, expr string) *xpath.Expr {
	if c.err != nil {
		return nil
	}
	if expr == "" {
		c.err = fmt.Errorf("%s is required", key)
		return nil
	}
	compiled, err := xpath.Compile(expr)
	if err != nil {
		c.err = fmt.Errorf("compile %s: %w", key, err)
		return nil
	}
	return compiled
}

func (c *compiler) css(key, sel string) cascadia.Selector {
	if c.err != nil {
		return nil
	}
	compiled, err := cascadia.Compile(sel)
	if err != nil {
		c.err = fmt.Errorf("compile %s: %w", key, err)
		return nil
	}
	return compiled
}

func (c *compiler) regexp(key, expr string) *regexp.Regexp {
	if c.err != nil {
		return nil
	}
	compiled, err := regexp.Compile(expr)
	if err != nil {
		c.err = fmt.Errorf("compile %s: %w", key, err)
		return nil
	}
	return compiled
}

func (c *compiler) fields(key string, raw map[string]string) map[Field]*xpath.Expr {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(map[Field]*xpath.Expr, len(raw))
	for _, name := range names {
		out[Field(name)] = c.xpath(key+"."+name, raw[name])
	}
	return out
}
