package system_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/syllabus-crawler/internal/artifact"
	"github.com/JakeFAU/syllabus-crawler/internal/clock/system"
	"github.com/JakeFAU/syllabus-crawler/internal/crawler"
)

var (
	_ crawler.Clock  = system.Clock{}
	_ artifact.Clock = system.Fixed{}
)

func TestClockReportsUTC(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	got := system.New().Now()
	assert.Equal(t, time.UTC, got.Location())
	assert.WithinRange(t, got, before, time.Now().Add(time.Second))
}

func TestFixedClock(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.April, 3, 16, 0, 0, 0, time.UTC)
	clk := system.Fixed{T: at}
	require.True(t, clk.Now().Equal(at))
	assert.Equal(t, clk.Now(), clk.Now())
}
