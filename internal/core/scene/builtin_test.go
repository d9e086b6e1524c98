package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupine-engine/lupine/internal/core/vars"
)

func TestTimerOneShotFiresOnce(t *testing.T) {
	timer := NewTimer()
	require.NoError(t, timer.Vars().Set("duration", vars.Float(0.5)))

	fired := 0
	timer.OnTimeout = func() { fired++ }

	timer.Start()
	timer.OnUpdate(0.3)
	assert.Zero(t, fired)
	assert.True(t, timer.Running())

	timer.OnUpdate(0.3)
	assert.Equal(t, 1, fired)
	assert.False(t, timer.Running())

	timer.OnUpdate(1)
	assert.Equal(t, 1, fired)
}

func TestTimerRepeats(t *testing.T) {
	timer := NewTimer()
	require.NoError(t, timer.Vars().Set("duration", vars.Float(0.5)))
	require.NoError(t, timer.Vars().Set("one_shot", vars.Bool(false)))

	fired := 0
	timer.OnTimeout = func() { fired++ }

	timer.Start()
	for i := 0; i < 6; i++ {
		timer.OnUpdate(0.25)
	}
	assert.Equal(t, 3, fired)
	assert.True(t, timer.Running())
}

func TestTimerAutostart(t *testing.T) {
	timer := NewTimer()
	require.NoError(t, timer.Vars().Set("autostart", vars.Bool(true)))

	timer.OnReady()
	assert.True(t, timer.Running())

	timer.Stop()
	assert.False(t, timer.Running())
}

func TestTimerStartResetsElapsed(t *testing.T) {
	timer := NewTimer()
	timer.Start()
	timer.OnUpdate(0.4)
	assert.InDelta(t, 0.4, timer.Elapsed(), 1e-9)

	timer.Start()
	assert.Zero(t, timer.Elapsed())
}

func TestRegistryBuildsRegisteredTypes(t *testing.T) {
	RegisterBuiltins()

	c, ok := NewComponent("Timer")
	require.True(t, ok)
	assert.Equal(t, "Timer", c.TypeTag())

	cat, ok := ComponentCategory("Timer")
	require.True(t, ok)
	assert.Equal(t, "Utility", cat)

	_, ok = NewComponent("NoSuchThing")
	assert.False(t, ok)

	assert.Contains(t, RegisteredComponents(), "Timer")
}
