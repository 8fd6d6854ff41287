package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTodayUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC on Jan 31 is already Feb 1 in IST.
	fixed := time.Date(2024, time.January, 31, 20, 0, 0, 0, time.UTC)
	c := WithNow(loc, func() time.Time { return fixed })

	today := c.Today()
	assert.Equal(t, 2024, today.Year())
	assert.Equal(t, time.February, today.Month())
	assert.Equal(t, 1, today.Day())
	assert.Equal(t, loc, today.Location())
}

func TestWithNowDefaults(t *testing.T) {
	c := WithNow(nil, nil)
	assert.Equal(t, time.UTC, c.Location())
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
}
