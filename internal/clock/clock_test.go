package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_FiresInDeadlineOrder(t *testing.T) {
	c := NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	var fired []string

	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() {
		fired = append(fired, "a")
		c.AfterFunc(500*time.Millisecond, func() { fired = append(fired, "a2") })
	})
	stopped := c.AfterFunc(1500*time.Millisecond, func() { fired = append(fired, "never") })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	c.Advance(3 * time.Second)

	assert.Equal(t, []string{"a", "a2", "b"}, fired)
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 3, 0, time.UTC), c.Now())
}
