package course

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePeriodLocation(t *testing.T) {
	t.Parallel()

	mon2 := Occurrence{Day: 1, Period: 2}
	wed3 := Occurrence{Day: 3, Period: 3}
	fri1 := Occurrence{Day: 5, Period: 1}

	tests := []struct {
		name      string
		periods   []Occurrence
		locations []string
		want      []Occurrence
		lossy     bool
	}{
		{
			name:      "single location broadcast",
			periods:   []Occurrence{mon2, wed3},
			locations: []string{"61-2F"},
			want: []Occurrence{
				{Day: 1, Period: 2, Location: "61-2F"},
				{Day: 3, Period: 3, Location: "61-2F"},
			},
		},
		{
			name:      "positional pairing",
			periods:   []Occurrence{mon2, wed3},
			locations: []string{"52-102", "53-201"},
			want: []Occurrence{
				{Day: 1, Period: 2, Location: "52-102"},
				{Day: 3, Period: 3, Location: "53-201"},
			},
		},
		{
			name:      "split rooms fan out",
			periods:   []Occurrence{{Day: 1, Period: 1}},
			locations: []string{"Room A/Room B"},
			want: []Occurrence{
				{Day: 1, Period: 1, Location: "Room A"},
				{Day: 1, Period: 1, Location: "Room B"},
			},
		},
		{
			name:      "split rooms aligned by position",
			periods:   []Occurrence{mon2, wed3},
			locations: []string{"52-102", "53-201/53-202"},
			want: []Occurrence{
				{Day: 1, Period: 2, Location: "52-102"},
				{Day: 3, Period: 3, Location: "53-201"},
				{Day: 3, Period: 3, Location: "53-202"},
			},
		},
		{
			name:      "more periods than locations",
			periods:   []Occurrence{mon2, wed3, fri1},
			locations: []string{"52-102", "53-201"},
			want: []Occurrence{
				{Day: 1, Period: 2, Location: "52-102"},
				{Day: 3, Period: 3, Location: "53-201"},
				{Day: 5, Period: 1},
			},
			lossy: true,
		},
		{
			name:      "more locations than periods",
			periods:   []Occurrence{mon2, wed3},
			locations: []string{"52-102", "53-201", "54-301"},
			want: []Occurrence{
				{Day: 1, Period: 2, Location: "52-102"},
				{Day: 3, Period: 3, Location: "53-201"},
				{Day: Unspecified, Period: PeriodUndecided, Location: "54-301"},
			},
			lossy: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, lossy := MergePeriodLocation(tc.periods, tc.locations)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.lossy, lossy)
		})
	}
}

func TestMergePeriodLocationLeavesInputsUntouched(t *testing.T) {
	t.Parallel()

	periods := []Occurrence{{Day: 1, Period: 2}}
	locations := []string{"61-2F"}
	_, _ = MergePeriodLocation(periods, locations)
	assert.Equal(t, []Occurrence{{Day: 1, Period: 2}}, periods)
}

func TestMergeCardinality(t *testing.T) {
	t.Parallel()

	slots := []Occurrence{{Day: 1, Period: 1}, {Day: 2, Period: 2}, {Day: 3, Period: 3}, {Day: 4, Period: 4}}
	rooms := []string{"a", "b", "c", "d"}
	for p := 0; p <= len(slots); p++ {
		for l := 1; l <= len(rooms); l++ {
			got, lossy := MergePeriodLocation(slots[:p], rooms[:l])
			if l == 1 {
				assert.Len(t, got, p, "periods=%d locations=%d", p, l)
				assert.False(t, lossy)
				continue
			}
			assert.Len(t, got, max(p, l), "periods=%d locations=%d", p, l)
			assert.Equal(t, p != l, lossy, "periods=%d locations=%d", p, l)
		}
	}
}

func TestCourseJSONKeys(t *testing.T) {
	t.Parallel()

	c := Course{
		ID:           "1200000008012022120000000812",
		Title:        "Linear Algebra",
		Lang:         []int{1},
		Type:         0,
		Term:         "0s",
		Occurrences:  []Occurrence{{Day: 1, Period: 2, Location: "52-102"}, {Day: 3, Period: 0}},
		EvalCriteria: []EvalCriterion{{Type: 0, Percent: 60, Criteria: "final"}},
		Modality:     Unspecified,
	}
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o", "p", "q", "r"} {
		assert.Contains(t, raw, key)
	}
	assert.Len(t, raw, 18)

	occs := raw["i"].([]any)
	assert.Equal(t, map[string]any{"d": 1.0, "p": 2.0, "l": "52-102"}, occs[0])
	assert.Equal(t, map[string]any{"d": 3.0, "p": 0.0}, occs[1])
	assert.Equal(t, map[string]any{"t": 0.0, "p": 60.0, "c": "final"}, raw["n"].([]any)[0])
}
