package mathx

import "math"

// Quat is a rotation quaternion (w + xi + yj + zk).
type Quat struct {
	W, X, Y, Z float64
}

// QuatIdentity is the no-rotation quaternion.
func QuatIdentity() Quat { return Quat{W: 1} }

// QuatFromAxisAngle builds a rotation of angle radians around a unit
// axis.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	sin, cos := math.Sincos(angle / 2)
	return Quat{W: cos, X: axis.X * sin, Y: axis.Y * sin, Z: axis.Z * sin}
}

func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

// Rotate applies the rotation to a vector.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	s := q.W
	return u.Scale(2 * u.Dot(v)).
		Add(v.Scale(s*s - u.Dot(u))).
		Add(u.Cross(v).Scale(2 * s))
}

// Transform2D composes position, rotation (radians) and scale.
type Transform2D struct {
	Position Vec2
	Rotation float64
	Scale    Vec2
}

func Transform2DIdentity() Transform2D {
	return Transform2D{Scale: Vec2{1, 1}}
}

// Compose applies the parent transform to a local transform. Rotation adds,
// scale multiplies componentwise, position is rotated and scaled into the
// parent space.
func (t Transform2D) Compose(local Transform2D) Transform2D {
	sin, cos := math.Sincos(t.Rotation)
	p := Vec2{
		X: local.Position.X*t.Scale.X*cos - local.Position.Y*t.Scale.Y*sin,
		Y: local.Position.X*t.Scale.X*sin + local.Position.Y*t.Scale.Y*cos,
	}
	return Transform2D{
		Position: t.Position.Add(p),
		Rotation: t.Rotation + local.Rotation,
		Scale:    Vec2{t.Scale.X * local.Scale.X, t.Scale.Y * local.Scale.Y},
	}
}

// Transform3D composes position, rotation quaternion and scale.
type Transform3D struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
}

func Transform3DIdentity() Transform3D {
	return Transform3D{Rotation: QuatIdentity(), Scale: Vec3{1, 1, 1}}
}

func (t Transform3D) Compose(local Transform3D) Transform3D {
	return Transform3D{
		Position: t.Position.Add(t.Rotation.Rotate(local.Position.Mul(t.Scale))),
		Rotation: t.Rotation.Mul(local.Rotation),
		Scale:    t.Scale.Mul(local.Scale),
	}
}

// Rect is an axis-aligned rectangle used by UI controls.
type Rect struct {
	Position Vec2
	Size     Vec2
}

func (r Rect) Min() Vec2 { return r.Position }
func (r Rect) Max() Vec2 { return r.Position.Add(r.Size) }

// AABB is an axis-aligned bounding box in 3D.
type AABB struct {
	Min, Max Vec3
}

func (b AABB) Overlaps(o AABB) bool {
	return b.Max.X >= o.Min.X && b.Min.X <= o.Max.X &&
		b.Max.Y >= o.Min.Y && b.Min.Y <= o.Max.Y &&
		b.Max.Z >= o.Min.Z && b.Min.Z <= o.Max.Z
}

// Expand grows the box by half extents in every direction.
func (b AABB) Expand(half Vec3) AABB {
	return AABB{Min: b.Min.Sub(half), Max: b.Max.Add(half)}
}

func (b AABB) Center() Vec3 { return b.Min.Add(b.Max).Scale(0.5) }
