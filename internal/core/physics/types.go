// Package physics implements the simulation bridge: two independent worlds
// (2D and 3D) stepped on a fixed timestep, body/node synchronization,
// collision dispatch and the swept queries the kinematic movers build on.
package physics

import (
	"github.com/lupine-engine/lupine/internal/core/mathx"
	"github.com/lupine-engine/lupine/internal/core/scene"
)

// BodyKind selects how the simulation treats a body.
type BodyKind uint8

const (
	// BodyStatic never moves and never integrates.
	BodyStatic BodyKind = iota
	// BodyKinematic is driven by explicit transforms; collided against but
	// not integrated.
	BodyKinematic
	// BodyDynamic integrates under gravity and impulses.
	BodyDynamic
)

func (k BodyKind) String() string {
	switch k {
	case BodyStatic:
		return "static"
	case BodyKinematic:
		return "kinematic"
	case BodyDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// ShapeType2D enumerates the 2D collision shapes.
type ShapeType2D uint8

const (
	Shape2DBox ShapeType2D = iota
	Shape2DCircle
	Shape2DCapsule
	Shape2DPolygon
	Shape2DEdge
)

// ShapeType3D enumerates the 3D collision shapes.
type ShapeType3D uint8

const (
	Shape3DBox ShapeType3D = iota
	Shape3DSphere
	Shape3DCapsule
	Shape3DCylinder
	Shape3DConvexHull
	Shape3DTriangleMesh
)

// Material bundles the surface and damping parameters applied at body
// creation.
type Material struct {
	Density        float64
	Friction       float64
	Restitution    float64
	LinearDamping  float64
	AngularDamping float64
}

// DefaultMaterial matches a unit-density, moderately frictive surface.
func DefaultMaterial() Material {
	return Material{Density: 1, Friction: 0.5}
}

// Layer/mask semantics: a pair of bodies interacts iff each body's layer
// bit is present in the other's mask.
func filterMatch(layerA uint8, maskA uint32, layerB uint8, maskB uint32) bool {
	return maskB&(1<<uint32(layerA)) != 0 && maskA&(1<<uint32(layerB)) != 0
}

// CollisionEvent2D is delivered to registered callbacks after a step.
// Normal points from the other body toward the callback's own body. For
// sensor pairs the exit event carries the negated normal (legacy sentinel);
// Entered carries the same information explicitly.
type CollisionEvent2D struct {
	Self    scene.Node
	Other   scene.Node
	Contact mathx.Vec2
	Normal  mathx.Vec2
	Entered bool
}

// CollisionEvent3D is the 3D counterpart of CollisionEvent2D.
type CollisionEvent3D struct {
	Self    scene.Node
	Other   scene.Node
	Contact mathx.Vec3
	Normal  mathx.Vec3
	Entered bool
}

// Callback2D and Callback3D receive collision events. Handlers must not
// create or destroy bodies; they queue follow-up work through the bridge's
// Defer.
type Callback2D func(ev CollisionEvent2D)
type Callback3D func(ev CollisionEvent3D)

// Hit2D is the result of a 2D query.
type Hit2D struct {
	Body     *Body2D
	Node     scene.Node
	Point    mathx.Vec2
	Normal   mathx.Vec2
	Fraction float64
}

// Overlap2D describes one body found inside a queried area.
type Overlap2D struct {
	Body   *Body2D
	Node   scene.Node
	Layer  uint8
	Sensor bool
}

// Hit3D is the result of a 3D query.
type Hit3D struct {
	Body     *Body3D
	Node     scene.Node
	Point    mathx.Vec3
	Normal   mathx.Vec3
	Fraction float64
}
