package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownDepartment is returned for department codes missing from the
// school table.
var ErrUnknownDepartment = errors.New("unknown department")

// School describes one department in the catalog.
type School struct {
	Code   string
	NameJP string
	NameEN string
	// Param is the catalog's p_gakubu query value.
	Param string
}

var schools = map[string]School{
	"PSE":     {NameJP: "政経", NameEN: "Schl Political Sci/Econo", Param: "111973"},
	"LAW":     {NameJP: "法学", NameEN: "Schl Law", Param: "121973"},
	"EDU":     {NameJP: "教育", NameEN: "Schl Edu", Param: "151949"},
	"SOC":     {NameJP: "商学", NameEN: "Schl Commerce", Param: "161973"},
	"SSS":     {NameJP: "社学", NameEN: "Schl Social Sci", Param: "181966"},
	"HUM":     {NameJP: "人科", NameEN: "Schl Human Sci", Param: "192000"},
	"SPS":     {NameJP: "スポーツ", NameEN: "Schl Sport Sci", Param: "202003"},
	"SILS":    {NameJP: "国際教養", NameEN: "SILS", Param: "212004"},
	"CMS":     {NameJP: "文構", NameEN: "SCMS", Param: "232006"},
	"HSS":     {NameJP: "文", NameEN: "SHSS", Param: "242006"},
	"EHUM":    {NameJP: "人通", NameEN: "Schl Human Sci (CC)", Param: "252003"},
	"FSE":     {NameJP: "基幹", NameEN: "Schl of Fund Sci/Eng", Param: "262006"},
	"CSE":     {NameJP: "創造", NameEN: "Schl Cre Sci/Eng", Param: "272006"},
	"ASE":     {NameJP: "先進", NameEN: "Schl Adv Sci/Eng", Param: "282006"},
	"G_PS":    {NameJP: "政研", NameEN: "G.S. Political Sci", Param: "311951"},
	"G_E":     {NameJP: "経研", NameEN: "G.S. Econo", Param: "321951"},
	"G_LAW":   {NameJP: "法研", NameEN: "G.S. Law", Param: "331951"},
	"G_LAS":   {NameJP: "文研", NameEN: "G.S. Letters", Param: "342002"},
	"G_SC":    {NameJP: "商研", NameEN: "G.S. Commerce", Param: "351951"},
	"G_EDU":   {NameJP: "教研", NameEN: "G.S. Edu", Param: "371990"},
	"G_HUM":   {NameJP: "人研", NameEN: "G.S. Human Sci", Param: "381991"},
	"G_SSS":   {NameJP: "社学研", NameEN: "G.S. Social Sci", Param: "391994"},
	"G_SAPS":  {NameJP: "アジア研", NameEN: "GSAPS", Param: "402003"},
	"G_ITS":   {NameJP: "国情研", NameEN: "GITS", Param: "422000"},
	"G_SJAL":  {NameJP: "日研", NameEN: "GSJAL", Param: "432001"},
	"G_IPS":   {NameJP: "情シス研", NameEN: "IPS", Param: "442003"},
	"G_WOSPM": {NameJP: "公共研", NameEN: "WOSPM", Param: "452003"},
	"G_WLS":   {NameJP: "法務研", NameEN: "Law Schl", Param: "472004"},
	"G_SA":    {NameJP: "会計研", NameEN: "WGSA", Param: "482005"},
	"G_SPS":   {NameJP: "スポーツ研", NameEN: "G.S. Sport Sci", Param: "502005"},
	"G_FSE":   {NameJP: "基幹研", NameEN: "G.S. Fund Sci/Eng", Param: "512006"},
	"G_CSE":   {NameJP: "創造研", NameEN: "G.S. Cre Sci/Eng", Param: "522006"},
	"G_ASE":   {NameJP: "先進研", NameEN: "G.S. Adv Sci/Eng", Param: "532006"},
	"G_SEEE":  {NameJP: "環エネ研", NameEN: "G.S. EEE", Param: "542006"},
	"G_SICCS": {NameJP: "国際コミ研", NameEN: "GSICCS", Param: "562012"},
	"G_WBS":   {NameJP: "経管研", NameEN: "WBS", Param: "572015"},
	"ART":     {NameJP: "芸術", NameEN: "Art/Architecture Schl", Param: "712001"},
	"CJL":     {NameJP: "日本語", NameEN: "CJL", Param: "922006"},
	"CIE":     {NameJP: "留学", NameEN: "CIE", Param: "982007"},
	"GEC":     {NameJP: "グローバル", NameEN: "Global", Param: "9S2013"},
}

// LookupSchool returns the school for a department code.
func LookupSchool(code string) (School, error) {
	s, ok := schools[code]
	if !ok {
		return School{}, fmt.Errorf("%w: %q", ErrUnknownDepartment, code)
	}
	s.Code = code
	return s, nil
}

// Departments returns every known department code, sorted.
func Departments() []string {
	out := make([]string, 0, len(schools))
	for code := range schools {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
