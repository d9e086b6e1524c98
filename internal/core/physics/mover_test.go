package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/mathx"
	"github.com/lupine-engine/lupine/internal/core/scene"
	"github.com/lupine-engine/lupine/internal/core/vars"
)

func testLogger() log.Log {
	return log.New(log.LevelError)
}

func TestKinematicBody3DSlidesAlongFloor(t *testing.T) {
	br := NewBridge(testLogger())
	s := scene.New("world", testLogger())

	floor := scene.NewNode3D("Floor")
	floor.SetPosition(mathx.V3(0, -0.5, 0))
	fb := NewStaticBody3D(br)
	require.NoError(t, fb.Vars().Set("size", vars.Vec3(mathx.V3(20, 1, 20))))
	require.NoError(t, floor.AddComponent(fb))
	require.NoError(t, s.Root().AddChild(floor))

	player := scene.NewNode3D("Player")
	player.SetPosition(mathx.V3(0, 1, 0))
	kb := NewKinematicBody3D(br)
	require.NoError(t, kb.Vars().Set("size", vars.Vec3(mathx.V3(1, 2, 1))))
	require.NoError(t, player.AddComponent(kb))
	require.NoError(t, s.Root().AddChild(player))

	s.Activate()
	require.NotNil(t, kb.Body())

	// One 100ms frame of falling while walking: the vertical part is
	// absorbed by the floor, the horizontal part slides.
	collided := kb.MoveAndSlide(mathx.V3(2, -5, 0), 0.1)

	assert.True(t, collided)
	assert.True(t, kb.IsOnFloor())
	assert.False(t, kb.IsOnWall())
	assert.False(t, kb.IsOnCeiling())
	assert.Equal(t, mathx.V3(0, 1, 0), kb.LastNormal())

	pos := player.Position()
	assert.InDelta(t, 0.2, pos.X, 1e-9)
	assert.InDelta(t, 1.0, pos.Y, 1e-9)
}

func TestKinematicBody2DSlidesAlongWall(t *testing.T) {
	br := NewBridge(testLogger())
	s := scene.New("world", testLogger())

	wall := scene.NewNode2D("Wall")
	wall.SetPosition(mathx.V2(1.5, 0))
	wb := NewStaticBody2D(br)
	require.NoError(t, wb.Vars().Set("size", vars.Vec2(mathx.V2(1, 4))))
	require.NoError(t, wall.AddComponent(wb))
	require.NoError(t, s.Root().AddChild(wall))

	mover := scene.NewNode2D("Mover")
	kb := NewKinematicBody2D(br)
	require.NoError(t, mover.AddComponent(kb))
	require.NoError(t, s.Root().AddChild(mover))

	s.Activate()
	require.NotNil(t, kb.Body())

	collided := kb.MoveAndSlide(mathx.V2(1, 1), 1)

	assert.True(t, collided)
	assert.True(t, kb.IsOnWall())
	assert.False(t, kb.IsOnFloor())

	// Stops a margin short of the wall face, the rest slides upward.
	pos := mover.Position()
	assert.InDelta(t, 0.5, pos.X, 0.01)
	assert.InDelta(t, 1.0, pos.Y, 0.01)
	assert.Less(t, pos.X+0.5, 1.0)
}

func TestMoveAndSlideBelowThresholdIsNoOp(t *testing.T) {
	br := NewBridge(testLogger())
	s := scene.New("world", testLogger())

	mover := scene.NewNode2D("Mover")
	mover.SetPosition(mathx.V2(3, 4))
	kb := NewKinematicBody2D(br)
	require.NoError(t, mover.AddComponent(kb))
	require.NoError(t, s.Root().AddChild(mover))
	s.Activate()

	collided := kb.MoveAndSlide(mathx.V2(0.01, 0), 0.01)
	assert.False(t, collided)
	assert.Equal(t, mathx.V2(3, 4), mover.Position())
}

func TestMoveAndCollideStopsWithoutSliding(t *testing.T) {
	br := NewBridge(testLogger())
	s := scene.New("world", testLogger())

	wall := scene.NewNode2D("Wall")
	wall.SetPosition(mathx.V2(2, 0))
	wb := NewStaticBody2D(br)
	require.NoError(t, wb.Vars().Set("size", vars.Vec2(mathx.V2(1, 4))))
	require.NoError(t, wall.AddComponent(wb))
	require.NoError(t, s.Root().AddChild(wall))

	mover := scene.NewNode2D("Mover")
	kb := NewKinematicBody2D(br)
	require.NoError(t, mover.AddComponent(kb))
	require.NoError(t, s.Root().AddChild(mover))
	s.Activate()

	var events []CollisionEvent2D
	kb.Body().SetCallback(func(ev CollisionEvent2D) { events = append(events, ev) })

	hit, blocked := kb.MoveAndCollide(mathx.V2(2, 1), 1)
	assert.True(t, blocked)
	assert.Same(t, wb.Body(), hit.Body)

	// No slide: both axes stop at the hit fraction.
	pos := mover.Position()
	assert.InDelta(t, 1.0, pos.X, 0.01)
	assert.InDelta(t, 0.5, pos.Y, 0.01)

	require.Len(t, events, 1)
	assert.True(t, events[0].Entered)
	assert.Equal(t, wall.UUID(), events[0].Other.UUID())
}

func TestMoveAndCollideClearPathCommitsFully(t *testing.T) {
	br := NewBridge(testLogger())
	s := scene.New("world", testLogger())

	mover := scene.NewNode2D("Mover")
	kb := NewKinematicBody2D(br)
	require.NoError(t, mover.AddComponent(kb))
	require.NoError(t, s.Root().AddChild(mover))
	s.Activate()

	// Half a second at (10, -6)/s lands exactly at (5, -3).
	_, blocked := kb.MoveAndCollide(mathx.V2(10, -6), 0.5)
	assert.False(t, blocked)
	assert.Equal(t, mathx.V2(5, -3), mover.Position())
}

func TestSafeFraction(t *testing.T) {
	assert.Equal(t, 0.0, safeFraction(0, 1))
	assert.Equal(t, 0.0, safeFraction(0.0005, 1))
	assert.InDelta(t, 0.499, safeFraction(0.5, 1), 1e-6)
	assert.InDelta(t, 0.4995, safeFraction(0.5, 2), 1e-6)
}
