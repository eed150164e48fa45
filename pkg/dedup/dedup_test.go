package dedup

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestShouldProcess(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	d := New(time.Minute, 10).WithClock(clk.Now)

	assert.True(t, d.ShouldProcess("a"))
	assert.False(t, d.ShouldProcess("a"))
	assert.True(t, d.ShouldProcess("b"))

	clk.Advance(61 * time.Second)
	assert.True(t, d.ShouldProcess("a"), "expired ids are processed again")
}

func TestShouldProcess_EmptyID(t *testing.T) {
	d := New(time.Minute, 10)
	assert.True(t, d.ShouldProcess(""))
	assert.True(t, d.ShouldProcess(""))
	assert.Zero(t, d.Len())
}

func TestShouldProcess_Capacity(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	d := New(time.Hour, 3).WithClock(clk.Now)

	for i := 0; i < 5; i++ {
		clk.Advance(time.Second)
		assert.True(t, d.ShouldProcess(fmt.Sprintf("id-%d", i)))
	}
	assert.Equal(t, 3, d.Len())
	// the newest entries survive eviction
	assert.False(t, d.ShouldProcess("id-4"))
}

func TestKey(t *testing.T) {
	a := Key([]byte(`{"soil_moisture":2548}`))
	b := Key([]byte(`{"soil_moisture":2548}`))
	c := Key([]byte(`{"soil_moisture":2549}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
