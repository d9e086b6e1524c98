package physics

import (
	"github.com/lupine-engine/lupine/internal/core/mathx"
	"github.com/lupine-engine/lupine/internal/core/scene"
	"github.com/lupine-engine/lupine/internal/core/vars"
)

// StaticBody2D is a non-moving solid. The body is created at the owner's
// transform and never resynced; move the node before activation, not
// after.
type StaticBody2D struct {
	scene.BaseComponent
	bridge *Bridge
	body   *Body2D
}

func NewStaticBody2D(bridge *Bridge) *StaticBody2D {
	s := &StaticBody2D{
		BaseComponent: scene.NewBase("StaticBody2D", "Physics"),
		bridge:        bridge,
	}
	declareBodyVars2D(s.Vars())
	return s
}

func (s *StaticBody2D) OnReady() {
	s.body = createFromVars2D(s.bridge, s.Owner(), BodyStatic, s.Vars())
}

func (s *StaticBody2D) OnDestroy() {
	if s.body != nil {
		s.bridge.DestroyBody2D(s.body)
		s.body = nil
	}
}

func (s *StaticBody2D) Body() *Body2D { return s.body }

// RigidBody2D is a fully simulated dynamic body. The bridge writes the
// simulated transform back to the owning node after every step.
type RigidBody2D struct {
	scene.BaseComponent
	bridge *Bridge
	body   *Body2D

	// OnCollision, when set, receives begin and end contact events.
	OnCollision Callback2D
}

func NewRigidBody2D(bridge *Bridge) *RigidBody2D {
	r := &RigidBody2D{
		BaseComponent: scene.NewBase("RigidBody2D", "Physics"),
		bridge:        bridge,
	}
	declareBodyVars2D(r.Vars())
	r.Vars().Declare("gravity_scale", "Multiplier on world gravity", vars.Float(1))
	return r
}

func (r *RigidBody2D) OnReady() {
	r.body = createFromVars2D(r.bridge, r.Owner(), BodyDynamic, r.Vars())
	r.body.SetGravityScale(float64(varFloat(r.Vars(), "gravity_scale")))
	r.body.SetCallback(func(ev CollisionEvent2D) {
		if r.OnCollision != nil {
			r.OnCollision(ev)
		}
	})
}

func (r *RigidBody2D) OnDestroy() {
	if r.body != nil {
		r.bridge.DestroyBody2D(r.body)
		r.body = nil
	}
}

func (r *RigidBody2D) Body() *Body2D { return r.body }

// ApplyImpulse changes linear velocity instantaneously by impulse/mass.
func (r *RigidBody2D) ApplyImpulse(impulse mathx.Vec2) {
	if r.body == nil || r.body.mass == 0 {
		return
	}
	r.body.linearVel = r.body.linearVel.Add(impulse.Scale(1 / r.body.mass))
}

// Area2D is a sensor region. It reports overlaps through OnEnter and
// OnExit without affecting motion.
type Area2D struct {
	scene.BaseComponent
	bridge *Bridge
	body   *Body2D

	OnEnter func(other scene.Node)
	OnExit  func(other scene.Node)
}

func NewArea2D(bridge *Bridge) *Area2D {
	a := &Area2D{
		BaseComponent: scene.NewBase("Area2D", "Physics"),
		bridge:        bridge,
	}
	declareBodyVars2D(a.Vars())
	return a
}

func (a *Area2D) OnReady() {
	a.body = createFromVars2D(a.bridge, a.Owner(), BodyStatic, a.Vars())
	a.body.SetSensor(true)
	a.body.SetCallback(func(ev CollisionEvent2D) {
		if ev.Entered {
			if a.OnEnter != nil {
				a.OnEnter(ev.Other)
			}
		} else if a.OnExit != nil {
			a.OnExit(ev.Other)
		}
	})
}

func (a *Area2D) OnDestroy() {
	if a.body != nil {
		a.bridge.DestroyBody2D(a.body)
		a.body = nil
	}
}

func (a *Area2D) Body() *Body2D { return a.body }

// StaticBody3D mirrors StaticBody2D in the 3D world.
type StaticBody3D struct {
	scene.BaseComponent
	bridge *Bridge
	body   *Body3D
}

func NewStaticBody3D(bridge *Bridge) *StaticBody3D {
	s := &StaticBody3D{
		BaseComponent: scene.NewBase("StaticBody3D", "Physics"),
		bridge:        bridge,
	}
	declareBodyVars3D(s.Vars())
	return s
}

func (s *StaticBody3D) OnReady() {
	s.body = createFromVars3D(s.bridge, s.Owner(), BodyStatic, s.Vars())
}

func (s *StaticBody3D) OnDestroy() {
	if s.body != nil {
		s.bridge.DestroyBody3D(s.body)
		s.body = nil
	}
}

func (s *StaticBody3D) Body() *Body3D { return s.body }

// RigidBody3D mirrors RigidBody2D in the 3D world.
type RigidBody3D struct {
	scene.BaseComponent
	bridge *Bridge
	body   *Body3D

	OnCollision Callback3D
}

func NewRigidBody3D(bridge *Bridge) *RigidBody3D {
	r := &RigidBody3D{
		BaseComponent: scene.NewBase("RigidBody3D", "Physics"),
		bridge:        bridge,
	}
	declareBodyVars3D(r.Vars())
	r.Vars().Declare("gravity_scale", "Multiplier on world gravity", vars.Float(1))
	return r
}

func (r *RigidBody3D) OnReady() {
	r.body = createFromVars3D(r.bridge, r.Owner(), BodyDynamic, r.Vars())
	r.body.SetGravityScale(float64(varFloat(r.Vars(), "gravity_scale")))
	r.body.SetCallback(func(ev CollisionEvent3D) {
		if r.OnCollision != nil {
			r.OnCollision(ev)
		}
	})
}

func (r *RigidBody3D) OnDestroy() {
	if r.body != nil {
		r.bridge.DestroyBody3D(r.body)
		r.body = nil
	}
}

func (r *RigidBody3D) Body() *Body3D { return r.body }

func (r *RigidBody3D) ApplyImpulse(impulse mathx.Vec3) {
	if r.body == nil || r.body.mass == 0 {
		return
	}
	r.body.linearVel = r.body.linearVel.Add(impulse.Scale(1 / r.body.mass))
}

// Area3D mirrors Area2D in the 3D world.
type Area3D struct {
	scene.BaseComponent
	bridge *Bridge
	body   *Body3D

	OnEnter func(other scene.Node)
	OnExit  func(other scene.Node)
}

func NewArea3D(bridge *Bridge) *Area3D {
	a := &Area3D{
		BaseComponent: scene.NewBase("Area3D", "Physics"),
		bridge:        bridge,
	}
	declareBodyVars3D(a.Vars())
	return a
}

func (a *Area3D) OnReady() {
	a.body = createFromVars3D(a.bridge, a.Owner(), BodyStatic, a.Vars())
	a.body.SetSensor(true)
	a.body.SetCallback(func(ev CollisionEvent3D) {
		if ev.Entered {
			if a.OnEnter != nil {
				a.OnEnter(ev.Other)
			}
		} else if a.OnExit != nil {
			a.OnExit(ev.Other)
		}
	})
}

func (a *Area3D) OnDestroy() {
	if a.body != nil {
		a.bridge.DestroyBody3D(a.body)
		a.body = nil
	}
}

func (a *Area3D) Body() *Body3D { return a.body }

func declareBodyVars2D(v *vars.Set) {
	v.Declare("size", "Collision box extents", vars.Vec2(mathx.V2(1, 1)))
	v.Declare("offset", "Shape offset from the node origin", vars.Vec2(mathx.Vec2{}))
	v.Declare("collision_layer", "Layer bit this body occupies (0-31)", vars.Int(0))
	v.Declare("collision_mask", "Layers this body collides with", vars.Int(-1))
	v.Declare("friction", "Surface friction coefficient", vars.Float(0.5))
	v.Declare("restitution", "Bounciness in [0,1]", vars.Float(0))
	v.Declare("density", "Mass per unit area", vars.Float(1))
}

func declareBodyVars3D(v *vars.Set) {
	v.Declare("size", "Collision box extents", vars.Vec3(mathx.V3(1, 1, 1)))
	v.Declare("collision_layer", "Layer bit this body occupies (0-31)", vars.Int(0))
	v.Declare("collision_mask", "Layers this body collides with", vars.Int(-1))
	v.Declare("friction", "Surface friction coefficient", vars.Float(0.5))
	v.Declare("restitution", "Bounciness in [0,1]", vars.Float(0))
	v.Declare("density", "Mass per unit volume", vars.Float(1))
}

func materialFromVars(v *vars.Set) Material {
	m := DefaultMaterial()
	m.Friction = float64(varFloat(v, "friction"))
	m.Restitution = float64(varFloat(v, "restitution"))
	m.Density = float64(varFloat(v, "density"))
	return m
}

func createFromVars2D(br *Bridge, owner scene.Node, kind BodyKind, v *vars.Set) *Body2D {
	b := br.CreateBody2D(owner, kind, Shape2DBox, varVec2(v, "size"), materialFromVars(v), varVec2(v, "offset"))
	b.SetFilter(uint8(varInt(v, "collision_layer")), uint32(varInt(v, "collision_mask")))
	return b
}

func createFromVars3D(br *Bridge, owner scene.Node, kind BodyKind, v *vars.Set) *Body3D {
	b := br.CreateBody3D(owner, kind, Shape3DBox, varVec3(v, "size"), materialFromVars(v), nil)
	b.SetFilter(uint8(varInt(v, "collision_layer")), uint32(varInt(v, "collision_mask")))
	return b
}

// RegisterComponents wires the physics component factories into the scene
// registry, bound to the given bridge.
func RegisterComponents(br *Bridge) {
	scene.RegisterComponent("StaticBody2D", "Physics", func() scene.Component { return NewStaticBody2D(br) })
	scene.RegisterComponent("RigidBody2D", "Physics", func() scene.Component { return NewRigidBody2D(br) })
	scene.RegisterComponent("KinematicBody2D", "Physics", func() scene.Component { return NewKinematicBody2D(br) })
	scene.RegisterComponent("Area2D", "Physics", func() scene.Component { return NewArea2D(br) })
	scene.RegisterComponent("StaticBody3D", "Physics", func() scene.Component { return NewStaticBody3D(br) })
	scene.RegisterComponent("RigidBody3D", "Physics", func() scene.Component { return NewRigidBody3D(br) })
	scene.RegisterComponent("KinematicBody3D", "Physics", func() scene.Component { return NewKinematicBody3D(br) })
	scene.RegisterComponent("Area3D", "Physics", func() scene.Component { return NewArea3D(br) })
}
