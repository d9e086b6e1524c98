package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupine-engine/lupine/internal/core/mathx"
	"github.com/lupine-engine/lupine/internal/core/scene"
)

func staticBox2D(br *Bridge, name string, pos, size mathx.Vec2) *Body2D {
	n := scene.NewNode2D(name)
	n.SetPosition(pos)
	return br.CreateBody2D(n, BodyStatic, Shape2DBox, size, DefaultMaterial(), mathx.Vec2{})
}

func TestRaycast2DReturnsClosestHit(t *testing.T) {
	br := NewBridge(testLogger())
	near := staticBox2D(br, "near", mathx.V2(5, 0), mathx.V2(2, 2))
	staticBox2D(br, "far", mathx.V2(8, 0), mathx.V2(2, 2))

	hit, ok := br.Raycast2D(mathx.V2(0, 0), mathx.V2(10, 0), 0xFFFFFFFF)
	require.True(t, ok)
	assert.Same(t, near, hit.Body)
	assert.InDelta(t, 0.4, hit.Fraction, 1e-9)
	assert.InDelta(t, 4.0, hit.Point.X, 1e-9)
	assert.Equal(t, mathx.V2(-1, 0), hit.Normal)
}

func TestRaycast2DMaskFiltersByLayer(t *testing.T) {
	br := NewBridge(testLogger())
	near := staticBox2D(br, "near", mathx.V2(5, 0), mathx.V2(2, 2))
	far := staticBox2D(br, "far", mathx.V2(8, 0), mathx.V2(2, 2))
	near.SetFilter(2, 0xFFFFFFFF)
	far.SetFilter(0, 0xFFFFFFFF)

	// Mask without bit 2 skips the nearer body.
	hit, ok := br.Raycast2D(mathx.V2(0, 0), mathx.V2(10, 0), 1<<0)
	require.True(t, ok)
	assert.Same(t, far, hit.Body)

	_, ok = br.Raycast2D(mathx.V2(0, 0), mathx.V2(10, 0), 1<<5)
	assert.False(t, ok)
}

func TestRaycast3DBasic(t *testing.T) {
	br := NewBridge(testLogger())
	n := scene.NewNode3D("box")
	n.SetPosition(mathx.V3(0, 0, -5))
	body := br.CreateBody3D(n, BodyStatic, Shape3DBox, mathx.V3(2, 2, 2), DefaultMaterial(), nil)

	hit, ok := br.Raycast3D(mathx.V3(0, 0, 0), mathx.V3(0, 0, -10), 0xFFFFFFFF)
	require.True(t, ok)
	assert.Same(t, body, hit.Body)
	assert.InDelta(t, 0.4, hit.Fraction, 1e-9)
	assert.Equal(t, mathx.V3(0, 0, 1), hit.Normal)
}

func TestOverlapArea2DInsertionOrder(t *testing.T) {
	br := NewBridge(testLogger())
	a := staticBox2D(br, "a", mathx.V2(0, 0), mathx.V2(1, 1))
	b := staticBox2D(br, "b", mathx.V2(1, 0), mathx.V2(1, 1))
	b.SetFilter(3, 0xFFFFFFFF)
	b.SetSensor(true)
	staticBox2D(br, "outside", mathx.V2(10, 0), mathx.V2(1, 1))

	got := br.OverlapArea2D(mathx.V2(0.5, 0), mathx.V2(2, 2), 0xFFFFFFFF)
	require.Len(t, got, 2)
	assert.Same(t, a, got[0].Body)
	assert.Same(t, b, got[1].Body)
	assert.Equal(t, "b", got[1].Node.Name())
	assert.Equal(t, uint8(3), got[1].Layer)
	assert.False(t, got[0].Sensor)
	assert.True(t, got[1].Sensor)
}

func TestShapeCast2DSkipsSensorsAndSelf(t *testing.T) {
	br := NewBridge(testLogger())
	caster := staticBox2D(br, "caster", mathx.V2(0, 0), mathx.V2(1, 1))

	trigger := staticBox2D(br, "trigger", mathx.V2(3, 0), mathx.V2(1, 1))
	trigger.SetSensor(true)
	wall := staticBox2D(br, "wall", mathx.V2(6, 0), mathx.V2(1, 1))

	hit, ok := br.ShapeCast2D(caster, mathx.V2(0, 0), mathx.V2(10, 0))
	require.True(t, ok)
	assert.Same(t, wall, hit.Body)
}

func TestShapeCast2DHonorsFilter(t *testing.T) {
	br := NewBridge(testLogger())
	caster := staticBox2D(br, "caster", mathx.V2(0, 0), mathx.V2(1, 1))
	wall := staticBox2D(br, "wall", mathx.V2(4, 0), mathx.V2(1, 1))

	caster.SetFilter(0, 1<<1)
	wall.SetFilter(2, 0xFFFFFFFF)
	_, ok := br.ShapeCast2D(caster, mathx.V2(0, 0), mathx.V2(10, 0))
	assert.False(t, ok)

	wall.SetFilter(1, 0xFFFFFFFF)
	_, ok = br.ShapeCast2D(caster, mathx.V2(0, 0), mathx.V2(10, 0))
	assert.True(t, ok)
}

func TestConvexSweepTest3DReportsFractionAndNormal(t *testing.T) {
	br := NewBridge(testLogger())
	cn := scene.NewNode3D("caster")
	caster := br.CreateBody3D(cn, BodyKinematic, Shape3DBox, mathx.V3(1, 1, 1), DefaultMaterial(), nil)

	wn := scene.NewNode3D("wall")
	wn.SetPosition(mathx.V3(5, 0, 0))
	br.CreateBody3D(wn, BodyStatic, Shape3DBox, mathx.V3(1, 1, 1), DefaultMaterial(), nil)

	hit, ok := br.ConvexSweepTest3D(caster, mathx.V3(0, 0, 0), mathx.V3(10, 0, 0))
	require.True(t, ok)
	assert.InDelta(t, 0.4, hit.Fraction, 1e-9)
	assert.Equal(t, mathx.V3(-1, 0, 0), hit.Normal)
}

func TestTestBodyOverlapIgnoresFilters(t *testing.T) {
	br := NewBridge(testLogger())
	a := staticBox2D(br, "a", mathx.V2(0, 0), mathx.V2(2, 2))
	b := staticBox2D(br, "b", mathx.V2(1, 0), mathx.V2(2, 2))
	a.SetFilter(1, 0)
	b.SetFilter(2, 0)

	assert.True(t, br.TestBodyOverlap2D(a, b))

	br.DestroyBody2D(b)
	assert.False(t, br.TestBodyOverlap2D(a, b))
}
