package crawler

import "fmt"

// State is a crawl lifecycle stage.
type State int

// Crawl states in the order a successful run visits them.
const (
	StateInit State = iota
	StateDiscoveringPages
	StateFetchingCatalogPages
	StateFetchingCourseDetails
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateInit:                  "init",
	StateDiscoveringPages:      "discovering_pages",
	StateFetchingCatalogPages:  "fetching_catalog_pages",
	StateFetchingCourseDetails: "fetching_course_details",
	StateDone:                  "done",
	StateFailed:                "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

var transitions = map[State][]State{
	StateInit:                  {StateDiscoveringPages, StateFailed},
	StateDiscoveringPages:      {StateFetchingCatalogPages, StateFailed},
	StateFetchingCatalogPages:  {StateFetchingCourseDetails, StateFailed},
	StateFetchingCourseDetails: {StateDone, StateFailed},
}

// CanTransition reports whether from → to is a legal step.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
