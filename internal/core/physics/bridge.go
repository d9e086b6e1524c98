package physics

import (
	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/mathx"
	"github.com/lupine-engine/lupine/internal/core/scene"
)

const (
	// DefaultFixedStep is the simulation timestep both worlds advance by.
	DefaultFixedStep = 1.0 / 60.0

	minFixedStep = 1.0 / 240.0
	maxFixedStep = 1.0 / 30.0

	// maxAccumulated bounds catch-up work after a stall; excess frame time
	// is dropped.
	maxAccumulated = 0.25
)

// Bridge owns both simulation worlds and every body in them. Nodes and
// components hold handles, never simulation objects. The bridge is
// single-threaded from the engine's point of view: Update runs on the tick
// thread and collision callbacks run inside it.
type Bridge struct {
	logger log.Log

	w2 *world2D
	w3 *world3D

	fixedStep   float64
	accumulator float64

	stepping bool
	deferred []func()
}

func NewBridge(logger log.Log) *Bridge {
	if logger == nil {
		logger = log.Provide()
	}
	return &Bridge{
		logger:    logger,
		w2:        newWorld2D(),
		w3:        newWorld3D(),
		fixedStep: DefaultFixedStep,
	}
}

// FixedStep reports the current simulation timestep.
func (br *Bridge) FixedStep() float64 { return br.fixedStep }

// SetFixedStep overrides the timestep, clamped to a small positive range
// to prevent runaway catch-up.
func (br *Bridge) SetFixedStep(step float64) {
	if step < minFixedStep {
		step = minFixedStep
	}
	if step > maxFixedStep {
		step = maxFixedStep
	}
	br.fixedStep = step
}

func (br *Bridge) SetGravity2D(g mathx.Vec2) { br.w2.gravity = g }
func (br *Bridge) SetGravity3D(g mathx.Vec3) { br.w3.gravity = g }

// Defer queues a mutation for the top of the next Update. Collision
// callbacks use it for anything that would touch body lifetime.
func (br *Bridge) Defer(fn func()) {
	br.deferred = append(br.deferred, fn)
}

// Update adds the frame delta to the accumulator and steps both worlds by
// the fixed step while it lasts; the remainder carries to the next frame.
// Kinematic bodies are fed node transforms before each step, dynamic
// bodies write theirs back after, then the contact queues drain into
// callbacks.
func (br *Bridge) Update(frameDt float64) {
	br.applyDeferred()

	br.accumulator += frameDt
	if br.accumulator > maxAccumulated {
		br.logger.Warn("physics accumulator clamped",
			log.Float64("dropped", br.accumulator-maxAccumulated))
		br.accumulator = maxAccumulated
	}

	for br.accumulator >= br.fixedStep {
		br.syncKinematic()

		br.stepping = true
		br.w2.step(br.fixedStep)
		br.w3.step(br.fixedStep)
		br.stepping = false

		br.syncDynamic()
		br.dispatch()

		br.accumulator -= br.fixedStep
	}
}

func (br *Bridge) applyDeferred() {
	pending := br.deferred
	br.deferred = nil
	for _, fn := range pending {
		fn()
	}
}

// syncKinematic reads node transforms into kinematic bodies before a step.
func (br *Bridge) syncKinematic() {
	for _, b := range br.w2.bodies {
		if b.kind != BodyKinematic || b.node == nil {
			continue
		}
		if n2, ok := b.node.(*scene.Node2D); ok {
			b.position = n2.GlobalTransform().Position
		}
	}
	for _, b := range br.w3.bodies {
		if b.kind != BodyKinematic || b.node == nil {
			continue
		}
		if n3, ok := b.node.(*scene.Node3D); ok {
			b.position = n3.GlobalTransform().Position
		}
	}
}

// syncDynamic writes simulated transforms back to owning nodes after a
// step.
func (br *Bridge) syncDynamic() {
	for _, b := range br.w2.bodies {
		if b.kind != BodyDynamic || b.node == nil {
			continue
		}
		if n2, ok := b.node.(*scene.Node2D); ok {
			n2.SetGlobalPosition(b.position)
			n2.SetRotation(b.rotation)
		}
	}
	for _, b := range br.w3.bodies {
		if b.kind != BodyDynamic || b.node == nil {
			continue
		}
		if n3, ok := b.node.(*scene.Node3D); ok {
			n3.SetGlobalPosition(b.position)
			n3.SetRotation(b.rotation)
		}
	}
}

// dispatch drains the begin and end contact queues into per-body
// callbacks. For sensor pairs the exit event carries the reversed normal;
// callers distinguish enter from exit by that sentinel (and by Entered).
func (br *Bridge) dispatch() {
	begin2 := br.w2.begin
	end2 := br.w2.end
	br.w2.begin, br.w2.end = nil, nil
	for _, c := range begin2 {
		br.deliver2D(c, true)
	}
	for _, c := range end2 {
		br.deliver2D(c, false)
	}

	begin3 := br.w3.begin
	end3 := br.w3.end
	br.w3.begin, br.w3.end = nil, nil
	for _, c := range begin3 {
		br.deliver3D(c, true)
	}
	for _, c := range end3 {
		br.deliver3D(c, false)
	}
}

func (br *Bridge) deliver2D(c contact2D, entered bool) {
	normalA := c.normal
	if !entered && c.sensor {
		normalA = normalA.Scale(-1)
	}
	if c.bodyA.callback != nil && c.bodyA.node != nil && c.bodyB.node != nil {
		c.bodyA.callback(CollisionEvent2D{
			Self:    c.bodyA.node,
			Other:   c.bodyB.node,
			Contact: c.point,
			Normal:  normalA,
			Entered: entered,
		})
	}
	if c.bodyB.callback != nil && c.bodyA.node != nil && c.bodyB.node != nil {
		c.bodyB.callback(CollisionEvent2D{
			Self:    c.bodyB.node,
			Other:   c.bodyA.node,
			Contact: c.point,
			Normal:  normalA.Scale(-1),
			Entered: entered,
		})
	}
}

func (br *Bridge) deliver3D(c contact3D, entered bool) {
	normalA := c.normal
	if !entered && c.sensor {
		normalA = normalA.Scale(-1)
	}
	if c.bodyA.callback != nil && c.bodyA.node != nil && c.bodyB.node != nil {
		c.bodyA.callback(CollisionEvent3D{
			Self:    c.bodyA.node,
			Other:   c.bodyB.node,
			Contact: c.point,
			Normal:  normalA,
			Entered: entered,
		})
	}
	if c.bodyB.callback != nil && c.bodyA.node != nil && c.bodyB.node != nil {
		c.bodyB.callback(CollisionEvent3D{
			Self:    c.bodyB.node,
			Other:   c.bodyA.node,
			Contact: c.point,
			Normal:  normalA.Scale(-1),
			Entered: entered,
		})
	}
}

// CreateBody2D adds a body to the 2D world, initialized at the node's
// current world transform with the node stored in the user-data slot.
// Creation during a step is deferred to the next tick boundary.
func (br *Bridge) CreateBody2D(node scene.Node, kind BodyKind, shape ShapeType2D, size mathx.Vec2, mat Material, offset mathx.Vec2) *Body2D {
	b := &Body2D{
		world:        br.w2,
		node:         node,
		kind:         kind,
		shape:        shape,
		size:         size,
		offset:       offset,
		material:     mat,
		mask:         0xFFFFFFFF,
		gravityScale: 1,
		mass:         mat.Density * size.X * size.Y,
		valid:        true,
	}
	if n2, ok := node.(*scene.Node2D); ok {
		t := n2.GlobalTransform()
		b.position = t.Position
		b.rotation = t.Rotation
	}
	if br.stepping {
		br.Defer(func() { br.w2.add(b) })
	} else {
		br.w2.add(b)
	}
	return b
}

// CreateBody3D adds a body to the 3D world. For convex hulls and triangle
// meshes the vertex data is owned by the bridge and released on
// destruction.
func (br *Bridge) CreateBody3D(node scene.Node, kind BodyKind, shape ShapeType3D, size mathx.Vec3, mat Material, mesh []mathx.Vec3) *Body3D {
	if len(mesh) > 0 {
		size = meshExtents(mesh)
	}
	b := &Body3D{
		world:        br.w3,
		node:         node,
		kind:         kind,
		shape:        shape,
		size:         size,
		meshVertices: mesh,
		material:     mat,
		rotation:     mathx.QuatIdentity(),
		mask:         0xFFFFFFFF,
		gravityScale: 1,
		mass:         mat.Density * size.X * size.Y * size.Z,
		valid:        true,
	}
	if n3, ok := node.(*scene.Node3D); ok {
		t := n3.GlobalTransform()
		b.position = t.Position
		b.rotation = t.Rotation
	}
	if br.stepping {
		br.Defer(func() { br.w3.add(b) })
	} else {
		br.w3.add(b)
	}
	return b
}

// DestroyBody2D removes the body from the world and invalidates the
// handle. A double destroy is a programmer error: logged, then ignored.
func (br *Bridge) DestroyBody2D(b *Body2D) {
	if b == nil {
		return
	}
	if !b.valid {
		br.logger.Error("double destroy of 2d body")
		return
	}
	b.valid = false
	destroy := func() {
		br.w2.remove(b)
		b.node = nil
		b.callback = nil
	}
	if br.stepping {
		br.Defer(destroy)
	} else {
		destroy()
	}
}

// DestroyBody3D releases the body and any shape resources the bridge owns
// (hull and mesh vertices).
func (br *Bridge) DestroyBody3D(b *Body3D) {
	if b == nil {
		return
	}
	if !b.valid {
		br.logger.Error("double destroy of 3d body")
		return
	}
	b.valid = false
	destroy := func() {
		br.w3.remove(b)
		b.node = nil
		b.callback = nil
		b.meshVertices = nil
	}
	if br.stepping {
		br.Defer(destroy)
	} else {
		destroy()
	}
}

func meshExtents(mesh []mathx.Vec3) mathx.Vec3 {
	if len(mesh) == 0 {
		return mathx.Vec3{}
	}
	min, max := mesh[0], mesh[0]
	for _, v := range mesh[1:] {
		if v.X < min.X {
			min.X = v.X
		}
		if v.Y < min.Y {
			min.Y = v.Y
		}
		if v.Z < min.Z {
			min.Z = v.Z
		}
		if v.X > max.X {
			max.X = v.X
		}
		if v.Y > max.Y {
			max.Y = v.Y
		}
		if v.Z > max.Z {
			max.Z = v.Z
		}
	}
	return max.Sub(min)
}
