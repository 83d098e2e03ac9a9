package course

import "strings"

// MergePeriodLocation combines parsed time slots with parsed classrooms.
//
// When the counts match and some location lists several rooms ("A/B"), each
// slot is duplicated once per room. Otherwise a single location applies to
// every slot. Any other shape pairs slots and locations by position up to the
// longer list, leaving missing days, periods and locations unset; the second
// return value reports whether that pairing dropped information.
func MergePeriodLocation(periods []Occurrence, locations []string) ([]Occurrence, bool) {
	if len(periods) == len(locations) && anyContains(locations, "/") {
		out := make([]Occurrence, 0, len(periods))
		for i, p := range periods {
			for _, loc := range strings.Split(locations[i], "/") {
				out = append(out, Occurrence{Day: p.Day, Period: p.Period, Location: strings.TrimSpace(loc)})
			}
		}
		return out, false
	}

	if len(locations) == 1 {
		out := make([]Occurrence, len(periods))
		for i, p := range periods {
			out[i] = Occurrence{Day: p.Day, Period: p.Period, Location: locations[0]}
		}
		return out, false
	}

	n := max(len(periods), len(locations))
	out := make([]Occurrence, n)
	for i := range out {
		occ := Occurrence{Day: Unspecified, Period: PeriodUndecided}
		if i < len(periods) {
			occ.Day = periods[i].Day
			occ.Period = periods[i].Period
		}
		if i < len(locations) {
			occ.Location = locations[i]
		}
		out[i] = occ
	}
	return out, len(periods) != len(locations)
}

func anyContains(values []string, sub string) bool {
	for _, v := range values {
		if strings.Contains(v, sub) {
			return true
		}
	}
	return false
}
