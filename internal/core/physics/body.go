package physics

import (
	"github.com/lupine-engine/lupine/internal/core/mathx"
	"github.com/lupine-engine/lupine/internal/core/scene"
)

// Body2D is an opaque handle into the 2D world. The owning node outlives
// the handle; the bridge invalidates it on destruction.
type Body2D struct {
	world *world2D
	node  scene.Node // user-data slot

	kind     BodyKind
	shape    ShapeType2D
	size     mathx.Vec2 // full extents (diameter for circles)
	offset   mathx.Vec2
	material Material

	layer  uint8
	mask   uint32
	sensor bool

	position     mathx.Vec2
	rotation     float64
	linearVel    mathx.Vec2
	angularVel   float64
	gravityScale float64
	mass         float64

	callback Callback2D
	valid    bool
}

func (b *Body2D) Valid() bool      { return b.valid }
func (b *Body2D) Node() scene.Node { return b.node }
func (b *Body2D) Kind() BodyKind   { return b.kind }

func (b *Body2D) Position() mathx.Vec2     { return b.position }
func (b *Body2D) SetPosition(p mathx.Vec2) { b.position = p }
func (b *Body2D) Rotation() float64        { return b.rotation }
func (b *Body2D) SetRotation(r float64)    { b.rotation = r }

func (b *Body2D) LinearVelocity() mathx.Vec2     { return b.linearVel }
func (b *Body2D) SetLinearVelocity(v mathx.Vec2) { b.linearVel = v }
func (b *Body2D) AngularVelocity() float64       { return b.angularVel }
func (b *Body2D) SetAngularVelocity(v float64)   { b.angularVel = v }

func (b *Body2D) GravityScale() float64     { return b.gravityScale }
func (b *Body2D) SetGravityScale(s float64) { b.gravityScale = s }
func (b *Body2D) Mass() float64             { return b.mass }

func (b *Body2D) Sensor() bool      { return b.sensor }
func (b *Body2D) SetSensor(v bool)  { b.sensor = v }
func (b *Body2D) Layer() uint8      { return b.layer }
func (b *Body2D) Mask() uint32      { return b.mask }

// SetFilter assigns the collision layer (0-31) and the 32-bit mask.
func (b *Body2D) SetFilter(layer uint8, mask uint32) {
	if layer > 31 {
		layer = 31
	}
	b.layer = layer
	b.mask = mask
}

// SetCallback registers the collision handler invoked after each step.
func (b *Body2D) SetCallback(cb Callback2D) { b.callback = cb }

// aabb is the body's world bounds. Every 2D shape is conservatively
// bounded by its size box; circles and capsules use their diameters.
func (b *Body2D) aabb() aabb2D {
	half := b.size.Scale(0.5)
	center := b.position.Add(b.offset)
	return aabb2D{
		Min: center.Sub(half),
		Max: center.Add(half),
	}
}

// Body3D is an opaque handle into the 3D world.
type Body3D struct {
	world *world3D
	node  scene.Node

	kind     BodyKind
	shape    ShapeType3D
	size     mathx.Vec3
	material Material

	// Hull or mesh vertex data, owned by the bridge and released on
	// destruction.
	meshVertices []mathx.Vec3

	layer  uint8
	mask   uint32
	sensor bool

	position     mathx.Vec3
	rotation     mathx.Quat
	linearVel    mathx.Vec3
	angularVel   mathx.Vec3
	gravityScale float64
	mass         float64

	callback Callback3D
	valid    bool
}

func (b *Body3D) Valid() bool      { return b.valid }
func (b *Body3D) Node() scene.Node { return b.node }
func (b *Body3D) Kind() BodyKind   { return b.kind }

func (b *Body3D) Position() mathx.Vec3     { return b.position }
func (b *Body3D) SetPosition(p mathx.Vec3) { b.position = p }
func (b *Body3D) Rotation() mathx.Quat     { return b.rotation }
func (b *Body3D) SetRotation(q mathx.Quat) { b.rotation = q }

func (b *Body3D) LinearVelocity() mathx.Vec3      { return b.linearVel }
func (b *Body3D) SetLinearVelocity(v mathx.Vec3)  { b.linearVel = v }
func (b *Body3D) AngularVelocity() mathx.Vec3     { return b.angularVel }
func (b *Body3D) SetAngularVelocity(v mathx.Vec3) { b.angularVel = v }

func (b *Body3D) GravityScale() float64     { return b.gravityScale }
func (b *Body3D) SetGravityScale(s float64) { b.gravityScale = s }
func (b *Body3D) Mass() float64             { return b.mass }

func (b *Body3D) Sensor() bool     { return b.sensor }
func (b *Body3D) SetSensor(v bool) { b.sensor = v }
func (b *Body3D) Layer() uint8     { return b.layer }
func (b *Body3D) Mask() uint32     { return b.mask }

func (b *Body3D) SetFilter(layer uint8, mask uint32) {
	if layer > 31 {
		layer = 31
	}
	b.layer = layer
	b.mask = mask
}

func (b *Body3D) SetCallback(cb Callback3D) { b.callback = cb }

func (b *Body3D) aabb() mathx.AABB {
	half := b.size.Scale(0.5)
	return mathx.AABB{
		Min: b.position.Sub(half),
		Max: b.position.Add(half),
	}
}
