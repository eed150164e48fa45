package fallback

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	live := Live(42)
	assert.False(t, live.IsDegraded())
	assert.Equal(t, SourceLive, live.Source)
	assert.NoError(t, live.Err)

	boom := errors.New("boom")
	fb := Degraded(7, boom)
	assert.True(t, fb.IsDegraded())
	assert.Equal(t, 7, fb.Value)
	assert.ErrorIs(t, fb.Err, boom)
}
