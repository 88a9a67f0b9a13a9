package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClockIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	c := NewFixed(time.Date(2030, 1, 1, 12, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), c.Now())
	assert.Equal(t, c.Now(), c.Now())
}

func TestSystemClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystem().Now().Location())
}
