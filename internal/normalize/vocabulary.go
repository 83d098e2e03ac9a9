package normalize

import (
	"fmt"
	"maps"
	"sort"
)

// Vocabulary holds the label tables used to turn catalog text into codes.
// A Vocabulary is treated as read-only once handed to New.
type Vocabulary struct {
	Terms      map[string]string
	Weekdays   map[string]int
	Languages  map[string]int
	Types      map[string]int
	Levels     map[string]int
	Modalities map[string]int
	EvalKinds  map[string]int
	// Locations maps free-text classroom labels to room codes.
	Locations map[string]string
	// Unspecified lists labels the site uses for "not set". They resolve to
	// the sentinel without a warning.
	Unspecified []string
}

// Validate reports tables that would let a real label collide with the
// unspecified sentinel.
func (v Vocabulary) Validate() error {
	tables := map[string]map[string]int{
		"weekdays":   v.Weekdays,
		"languages":  v.Languages,
		"types":      v.Types,
		"levels":     v.Levels,
		"modalities": v.Modalities,
		"eval_kinds": v.EvalKinds,
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for label, code := range tables[name] {
			if code < 0 {
				return fmt.Errorf("vocabulary %s: label %q maps to negative code %d", name, label, code)
			}
		}
	}
	return nil
}

func (v Vocabulary) clone() Vocabulary {
	return Vocabulary{
		Terms:       maps.Clone(v.Terms),
		Weekdays:    maps.Clone(v.Weekdays),
		Languages:   maps.Clone(v.Languages),
		Types:       maps.Clone(v.Types),
		Levels:      maps.Clone(v.Levels),
		Modalities:  maps.Clone(v.Modalities),
		EvalKinds:   maps.Clone(v.EvalKinds),
		Locations:   maps.Clone(v.Locations),
		Unspecified: append([]string(nil), v.Unspecified...),
	}
}

// DefaultVocabulary returns the tables for the current catalog site. Type and
// level accept both the English and Japanese labels.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Terms: map[string]string{
			"spring semester":                      "0s",
			"fall semester":                        "2s",
			"spring quarter":                       "0q",
			"summer quarter":                       "1q",
			"fall quarter":                         "2q",
			"winter quarter":                       "3q",
			"full year":                            "f",
			"spring":                               "0",
			"summer":                               "1",
			"fall":                                 "2",
			"winter":                               "3",
			"an intensive course(spring)":          "0i",
			"an intensive course(fall)":            "2i",
			"spring term":                          "0t",
			"summer term":                          "1t",
			"fall term":                            "2t",
			"winter term":                          "3t",
			"spring term／summer term":              "0t/1t",
			"spring semester／fall semester":        "0s/2s",
			"fall term／winter term":                "2t/3t",
			"summer and fall semester":             "1&2s",
			"spring semester and summer":           "0s&1",
			"full year／fall semester":              "f/2s",
			"an intensive course(spring and fall)": "0i&3i",
		},
		Weekdays: map[string]int{
			"Sun":  0,
			"Mon":  1,
			"Tues": 2,
			"Wed":  3,
			"Thur": 4,
			"Fri":  5,
			"Sat":  6,
		},
		Languages: map[string]int{
			"Japanese":        0,
			"English":         1,
			"German":          2,
			"French":          3,
			"Chinese":         4,
			"Spanish":         5,
			"Korean":          6,
			"Russian":         7,
			"Italian":         8,
			"other":           9,
			"Language Course": 9,
		},
		Types: map[string]int{
			"Lecture":           0,
			"Seminar":           1,
			"Work":              2,
			"Foreign Language":  3,
			"On-demand":         4,
			"Thesis":            5,
			"Graduate Research": 6,
			"Practice":          7,
			"Blended":           8,
			"講義":                0,
			"演習／ゼミ":             1,
			"実習／実験／実技":          2,
			"外国語":               3,
			"オンデマンド":            4,
			"論文":                5,
			"研究指導":              6,
			"実践／フィールドワーク／インターンシップ／ボランティア": 7,
			"対面／オンデマンド": 8,
		},
		Levels: map[string]int{
			"Beginner, initial or introductory":           0,
			"Intermediate, developmental and applicative": 1,
			"Advanced, practical and specialized":         2,
			"Final stage advanced-level undergraduate":    3,
			"Level of Master":                             4,
			"Level of Doctor":                             5,
			"初級レベル（入門・導入）":                                0,
			"中級レベル（発展・応用）":                                1,
			"上級レベル":                                       2,
			"総仕上げ":                                        3,
			"修士レベル":                                       4,
			"博士レベル":                                       5,
		},
		Modalities: map[string]int{
			"対面":   0,
			"フル対面": 0,
			"ハイブリッド（対面／オンライン併用）":          1,
			"複合（対面/オンデマンド/リアルタイム配信/課題提出）": 1,
			"フルオンデマンド（曜日時限なし）":            2,
			"フルオンデマンド（コロナ）":               2,
			"フルオンデマンド（既存）":                2,
			"オンデマンド（曜日時限あり）":              3,
			"オンデマンド":                      3,
			"リアルタイム配信":                    4,
		},
		EvalKinds: map[string]int{
			"Exam:":                0,
			"Papers:":              1,
			"Class Participation:": 2,
			"Others:":              3,
		},
		Locations: map[string]string{
			"61号館2階": "61-2F",
			"61号館BF": "61-BF",
			"Business Design & Management labo 61-2F": "61-2F Business Design & Management lab",
			"foyer 50-301":          "50-301",
			"Seminar room 3 50-304": "50-304",
			"255B教室":                "61-255B",
			"711教室":                 "51-711",
			"５８-３Ｆ　社工演習室":           "58-3F",
			"801教室":                 "51-801",
			"3-201(Center for Teaching,Learning, and Technology Active Learning)": "3-201",
			"3-202(Center for Teaching,Learning, and Technology Active Learning)": "3-202",
			"3-203(Center for Teaching,Learning, and Technology Active Learning)": "3-203",
			"806共同利用研究室7":                  "14-806",
			"504(コンピュータ教室)科学技術計算":          "14-504",
			"408(コンピュータ教室)":                "16-408",
			"6-318(博物館実習室)":                "6-318",
			"１４-Ｂ１０３教育学部図書館学実習室":           "14-B103",
			"14-810(院生指導室)":                "14-810",
			"６１-２５５Ｂ教室":                    "61-255B",
			"14-806共同利用研究室7":               "14-806",
			"14-805共同利用研究室6":               "14-805",
			"14-807共同利用研究室8":               "14-807",
			"14-507共同利用研究室2":               "14-507",
			"14-506共同利用研究室1":               "14-506",
			"５１-７１１教室":                     "51-711",
			"11-601　Computer Room 1":       "11-601",
			"11-602　Computer Room 2":       "11-602",
			"3-901 (SPSE PC Room)":         "3-901",
			"60-101(CSE Learning Commons)": "60-101",
			"５１-８０１教室":                     "51-801",
			"Seminar room 4 50-3011":       "50-3011",
			"Seminar room 5 50-3012":       "50-3012",
			"14-809(院生指導室)":                "14-809",
			"14-808(院生指導室)":                "14-808",
			"Seminar room 2 50-303":        "50-303",
		},
		Unspecified: []string{"N/A", "指定なし"},
	}
}
