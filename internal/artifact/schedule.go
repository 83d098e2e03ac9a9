package artifact

import (
	"slices"
	"time"
)

// RefreshHour is the UTC hour at which scheduled crawls run.
const RefreshHour = 16

// Rule matches calendar days on which a crawl is scheduled.
type Rule struct {
	Name string
	// Months limits the rule; empty means every month.
	Months []time.Month
	Days   []int
}

func (r Rule) matches(month time.Month, day int) bool {
	if len(r.Months) > 0 && !slices.Contains(r.Months, month) {
		return false
	}
	return slices.Contains(r.Days, day)
}

// Schedule is the crawl calendar used to stamp artifact expiry.
type Schedule []Rule

// DefaultSchedule returns the registration-season refresh calendar.
func DefaultSchedule() Schedule {
	return Schedule{
		{Name: "regular", Days: []int{1}},
		{Name: "fall-pre", Months: []time.Month{time.July, time.August}, Days: []int{19, 21, 23}},
		{Name: "fall-reg1", Months: []time.Month{time.September}, Days: []int{4, 7, 10, 13, 15, 17}},
		{Name: "fall-reg2", Months: []time.Month{time.September}, Days: []int{20, 23, 25}},
		{Name: "fall-reg3", Months: []time.Month{time.September}, Days: []int{28, 30}},
		{Name: "fall-reg4", Months: []time.Month{time.October}, Days: []int{3, 5, 8}},
		{Name: "spring-pre", Months: []time.Month{time.February}, Days: []int{14, 24}},
		{Name: "spring-reg1", Months: []time.Month{time.March}, Days: []int{4, 7, 10, 13, 16, 18, 21, 24, 27}},
		{Name: "spring-reg2", Months: []time.Month{time.April}, Days: []int{3, 5, 8}},
		{Name: "spring-reg3", Months: []time.Month{time.April}, Days: []int{16, 20, 24, 26, 28}},
		{Name: "spring-reg4", Months: []time.Month{time.May}, Days: []int{9, 12, 14, 16}},
	}
}

// Scheduled reports whether a crawl runs on t's UTC calendar day.
func (s Schedule) Scheduled(t time.Time) bool {
	t = t.UTC()
	for _, r := range s {
		if r.matches(t.Month(), t.Day()) {
			return true
		}
	}
	return false
}

// NextAfter returns the first scheduled run on a calendar day after now's
// UTC date, at RefreshHour. An empty schedule yields the zero time.
func (s Schedule) NextAfter(now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), RefreshHour, 0, 0, 0, time.UTC)
	// Every rule recurs yearly, so one leap year of days covers all of them.
	for range 366 {
		day = day.AddDate(0, 0, 1)
		if s.Scheduled(day) {
			return day
		}
	}
	return time.Time{}
}
