package physics

import (
	"math"

	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/mathx"
	"github.com/lupine-engine/lupine/internal/core/scene"
	"github.com/lupine-engine/lupine/internal/core/vars"
)

const (
	// slideMargin keeps the mover a hair away from surfaces so repeated
	// casts never start embedded.
	slideMargin = 1e-3

	// minMovement is the magnitude under which a move is a no-op.
	minMovement = 1e-3

	// floorDot classifies a contact normal: above it the surface is a
	// floor, below its negation a ceiling, anything between a wall.
	floorDot = 0.7
)

// KinematicBody2D moves its owning Node2D with collide-and-slide
// semantics. The body never responds to forces; movement comes only from
// MoveAndSlide and MoveAndCollide calls.
type KinematicBody2D struct {
	scene.BaseComponent
	bridge *Bridge
	body   *Body2D

	onFloor   bool
	onWall    bool
	onCeiling bool
	lastHit   mathx.Vec2
}

func NewKinematicBody2D(bridge *Bridge) *KinematicBody2D {
	k := &KinematicBody2D{
		BaseComponent: scene.NewBase("KinematicBody2D", "Physics"),
		bridge:        bridge,
	}
	v := k.Vars()
	v.Declare("size", "Collision box extents", vars.Vec2(mathx.V2(1, 1)))
	v.Declare("offset", "Shape offset from the node origin", vars.Vec2(mathx.Vec2{}))
	v.Declare("collision_layer", "Layer bit this body occupies (0-31)", vars.Int(0))
	v.Declare("collision_mask", "Layers this body collides with", vars.Int(-1))
	return k
}

func (k *KinematicBody2D) OnReady() {
	if _, ok := k.Owner().(*scene.Node2D); !ok {
		log.Provide().Error("KinematicBody2D requires a Node2D owner",
			log.String("owner", k.Owner().Name()))
		return
	}
	size := varVec2(k.Vars(), "size")
	offset := varVec2(k.Vars(), "offset")
	k.body = k.bridge.CreateBody2D(k.Owner(), BodyKinematic, Shape2DBox, size, DefaultMaterial(), offset)
	k.body.SetFilter(uint8(varInt(k.Vars(), "collision_layer")), uint32(varInt(k.Vars(), "collision_mask")))
}

func (k *KinematicBody2D) OnDestroy() {
	if k.body != nil {
		k.bridge.DestroyBody2D(k.body)
		k.body = nil
	}
}

func (k *KinematicBody2D) Body() *Body2D { return k.body }

func (k *KinematicBody2D) IsOnFloor() bool   { return k.onFloor }
func (k *KinematicBody2D) IsOnWall() bool    { return k.onWall }
func (k *KinematicBody2D) IsOnCeiling() bool { return k.onCeiling }

// LastNormal is the surface normal of the most recent blocking contact.
func (k *KinematicBody2D) LastNormal() mathx.Vec2 { return k.lastHit }

// MoveAndSlide sweeps the body along velocity scaled by the frame delta,
// stops short of the first blocking contact by a margin, projects the
// remainder onto the contact plane and commits the slide if a second sweep
// finds it clear. Returns whether a contact occurred. A resulting movement
// below the minimum threshold does nothing and reports no contact.
func (k *KinematicBody2D) MoveAndSlide(velocity mathx.Vec2, dt float64) bool {
	k.onFloor, k.onWall, k.onCeiling = false, false, false
	owner, ok := k.Owner().(*scene.Node2D)
	if k.body == nil || !ok {
		return false
	}
	movement := velocity.Scale(dt)
	length := movement.Length()
	if length < minMovement {
		return false
	}

	from := owner.GlobalTransform().Position
	to := from.Add(movement)
	hit, blocked := k.bridge.ShapeCast2D(k.body, from, to)
	if !blocked {
		k.commit(owner, to)
		return false
	}

	safe := safeFraction(hit.Fraction, length)
	committed := from.Add(movement.Scale(safe))
	k.classify(hit.Normal)
	k.lastHit = hit.Normal

	remaining := movement.Scale(1 - safe)
	slide := remaining.Sub(hit.Normal.Scale(remaining.Dot(hit.Normal)))
	if slide.Length() >= minMovement {
		if _, blocked := k.bridge.ShapeCast2D(k.body, committed, committed.Add(slide)); !blocked {
			committed = committed.Add(slide)
		}
	}
	k.commit(owner, committed)
	return true
}

// MoveAndCollide sweeps velocity scaled by the frame delta and stops at
// the first contact without sliding. The body's collision callback fires
// for the contact.
func (k *KinematicBody2D) MoveAndCollide(velocity mathx.Vec2, dt float64) (Hit2D, bool) {
	k.onFloor, k.onWall, k.onCeiling = false, false, false
	owner, ok := k.Owner().(*scene.Node2D)
	if k.body == nil || !ok {
		return Hit2D{}, false
	}
	movement := velocity.Scale(dt)
	length := movement.Length()
	if length < minMovement {
		return Hit2D{}, false
	}

	from := owner.GlobalTransform().Position
	to := from.Add(movement)
	hit, blocked := k.bridge.ShapeCast2D(k.body, from, to)
	if !blocked {
		k.commit(owner, to)
		return Hit2D{}, false
	}

	safe := safeFraction(hit.Fraction, length)
	k.commit(owner, from.Add(movement.Scale(safe)))
	k.classify(hit.Normal)
	k.lastHit = hit.Normal
	if cb := k.body.callback; cb != nil && hit.Node != nil {
		cb(CollisionEvent2D{
			Self:    k.Owner(),
			Other:   hit.Node,
			Contact: hit.Point,
			Normal:  hit.Normal,
			Entered: true,
		})
	}
	return hit, true
}

func (k *KinematicBody2D) commit(owner *scene.Node2D, pos mathx.Vec2) {
	owner.SetGlobalPosition(pos)
	k.body.SetPosition(pos)
}

func (k *KinematicBody2D) classify(normal mathx.Vec2) {
	switch {
	case normal.Y > floorDot:
		k.onFloor = true
	case normal.Y < -floorDot:
		k.onCeiling = true
	default:
		k.onWall = true
	}
}

// KinematicBody3D is the 3D counterpart of KinematicBody2D, with the same
// collide-and-slide contract over convex sweeps.
type KinematicBody3D struct {
	scene.BaseComponent
	bridge *Bridge
	body   *Body3D

	onFloor   bool
	onWall    bool
	onCeiling bool
	lastHit   mathx.Vec3
}

func NewKinematicBody3D(bridge *Bridge) *KinematicBody3D {
	k := &KinematicBody3D{
		BaseComponent: scene.NewBase("KinematicBody3D", "Physics"),
		bridge:        bridge,
	}
	v := k.Vars()
	v.Declare("size", "Collision box extents", vars.Vec3(mathx.V3(1, 1, 1)))
	v.Declare("collision_layer", "Layer bit this body occupies (0-31)", vars.Int(0))
	v.Declare("collision_mask", "Layers this body collides with", vars.Int(-1))
	return k
}

func (k *KinematicBody3D) OnReady() {
	if _, ok := k.Owner().(*scene.Node3D); !ok {
		log.Provide().Error("KinematicBody3D requires a Node3D owner",
			log.String("owner", k.Owner().Name()))
		return
	}
	size := varVec3(k.Vars(), "size")
	k.body = k.bridge.CreateBody3D(k.Owner(), BodyKinematic, Shape3DBox, size, DefaultMaterial(), nil)
	k.body.SetFilter(uint8(varInt(k.Vars(), "collision_layer")), uint32(varInt(k.Vars(), "collision_mask")))
}

func (k *KinematicBody3D) OnDestroy() {
	if k.body != nil {
		k.bridge.DestroyBody3D(k.body)
		k.body = nil
	}
}

func (k *KinematicBody3D) Body() *Body3D { return k.body }

func (k *KinematicBody3D) IsOnFloor() bool        { return k.onFloor }
func (k *KinematicBody3D) IsOnWall() bool         { return k.onWall }
func (k *KinematicBody3D) IsOnCeiling() bool      { return k.onCeiling }
func (k *KinematicBody3D) LastNormal() mathx.Vec3 { return k.lastHit }

func (k *KinematicBody3D) MoveAndSlide(velocity mathx.Vec3, dt float64) bool {
	k.onFloor, k.onWall, k.onCeiling = false, false, false
	owner, ok := k.Owner().(*scene.Node3D)
	if k.body == nil || !ok {
		return false
	}
	movement := velocity.Scale(dt)
	length := movement.Length()
	if length < minMovement {
		return false
	}

	from := owner.GlobalTransform().Position
	to := from.Add(movement)
	hit, blocked := k.bridge.ConvexSweepTest3D(k.body, from, to)
	if !blocked {
		k.commit(owner, to)
		return false
	}

	safe := safeFraction(hit.Fraction, length)
	committed := from.Add(movement.Scale(safe))
	k.classify(hit.Normal)
	k.lastHit = hit.Normal

	remaining := movement.Scale(1 - safe)
	slide := remaining.Sub(hit.Normal.Scale(remaining.Dot(hit.Normal)))
	if slide.Length() >= minMovement {
		if _, blocked := k.bridge.ConvexSweepTest3D(k.body, committed, committed.Add(slide)); !blocked {
			committed = committed.Add(slide)
		}
	}
	k.commit(owner, committed)
	return true
}

func (k *KinematicBody3D) MoveAndCollide(velocity mathx.Vec3, dt float64) (Hit3D, bool) {
	k.onFloor, k.onWall, k.onCeiling = false, false, false
	owner, ok := k.Owner().(*scene.Node3D)
	if k.body == nil || !ok {
		return Hit3D{}, false
	}
	movement := velocity.Scale(dt)
	length := movement.Length()
	if length < minMovement {
		return Hit3D{}, false
	}

	from := owner.GlobalTransform().Position
	to := from.Add(movement)
	hit, blocked := k.bridge.ConvexSweepTest3D(k.body, from, to)
	if !blocked {
		k.commit(owner, to)
		return Hit3D{}, false
	}

	safe := safeFraction(hit.Fraction, length)
	k.commit(owner, from.Add(movement.Scale(safe)))
	k.classify(hit.Normal)
	k.lastHit = hit.Normal
	if cb := k.body.callback; cb != nil && hit.Node != nil {
		cb(CollisionEvent3D{
			Self:    k.Owner(),
			Other:   hit.Node,
			Contact: hit.Point,
			Normal:  hit.Normal,
			Entered: true,
		})
	}
	return hit, true
}

func (k *KinematicBody3D) commit(owner *scene.Node3D, pos mathx.Vec3) {
	owner.SetGlobalPosition(pos)
	k.body.SetPosition(pos)
}

func (k *KinematicBody3D) classify(normal mathx.Vec3) {
	switch {
	case normal.Y > floorDot:
		k.onFloor = true
	case normal.Y < -floorDot:
		k.onCeiling = true
	default:
		k.onWall = true
	}
}

// safeFraction backs the hit fraction off by the slide margin so the next
// cast starts clear of the surface. Hits at the very start of the sweep
// commit nothing.
func safeFraction(fraction, length float64) float64 {
	if fraction <= slideMargin {
		return 0
	}
	return math.Max(0, fraction-slideMargin/length)
}

func varVec2(s *vars.Set, name string) mathx.Vec2 {
	if v, ok := s.Get(name); ok {
		return v.V2
	}
	return mathx.Vec2{}
}

func varVec3(s *vars.Set, name string) mathx.Vec3 {
	if v, ok := s.Get(name); ok {
		return v.V3
	}
	return mathx.Vec3{}
}

func varInt(s *vars.Set, name string) int32 {
	if v, ok := s.Get(name); ok {
		return v.Int
	}
	return 0
}

func varFloat(s *vars.Set, name string) float32 {
	if v, ok := s.Get(name); ok {
		return v.Float
	}
	return 0
}
