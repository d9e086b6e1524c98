package physics

import (
	"math"

	"github.com/lupine-engine/lupine/internal/core/mathx"
)

// Raycast2D returns the closest body whose layer is in mask along the
// segment from..to. Sensors are hit like solid bodies; filtering is the
// caller's mask against the body's layer only.
func (br *Bridge) Raycast2D(from, to mathx.Vec2, mask uint32) (Hit2D, bool) {
	best := Hit2D{Fraction: math.Inf(1)}
	found := false
	for _, b := range br.w2.bodies {
		if !b.valid || mask&(1<<b.layer) == 0 {
			continue
		}
		t, n, ok := rayAABB2D(from, to, b.aabb())
		if !ok || t >= best.Fraction {
			continue
		}
		best = Hit2D{
			Body:     b,
			Node:     b.node,
			Point:    from.Add(to.Sub(from).Scale(t)),
			Normal:   n,
			Fraction: t,
		}
		found = true
	}
	return best, found
}

func (br *Bridge) Raycast3D(from, to mathx.Vec3, mask uint32) (Hit3D, bool) {
	best := Hit3D{Fraction: math.Inf(1)}
	found := false
	for _, b := range br.w3.bodies {
		if !b.valid || mask&(1<<b.layer) == 0 {
			continue
		}
		t, n, ok := rayAABB3D(from, to, b.aabb())
		if !ok || t >= best.Fraction {
			continue
		}
		best = Hit3D{
			Body:     b,
			Node:     b.node,
			Point:    from.Add(to.Sub(from).Scale(t)),
			Normal:   n,
			Fraction: t,
		}
		found = true
	}
	return best, found
}

// OverlapArea2D collects every body whose bounds intersect the box
// centered at center, in insertion order. Each record carries the body's
// node, layer and sensor flag so callers can classify hits without
// touching the body again.
func (br *Bridge) OverlapArea2D(center, size mathx.Vec2, mask uint32) []Overlap2D {
	half := size.Scale(0.5)
	box := aabb2D{Min: center.Sub(half), Max: center.Add(half)}
	var out []Overlap2D
	for _, b := range br.w2.bodies {
		if !b.valid || mask&(1<<b.layer) == 0 {
			continue
		}
		if box.overlaps(b.aabb()) {
			out = append(out, Overlap2D{Body: b, Node: b.node, Layer: b.layer, Sensor: b.sensor})
		}
	}
	return out
}

// ShapeCast2D sweeps the body's shape from from to to and reports the
// first blocking hit. The cast body itself and sensors are skipped, and
// only bodies the caster interacts with under the mutual layer/mask rule
// count.
func (br *Bridge) ShapeCast2D(caster *Body2D, from, to mathx.Vec2) (Hit2D, bool) {
	half := caster.size.Scale(0.5)
	start := aabb2D{
		Min: from.Add(caster.offset).Sub(half),
		Max: from.Add(caster.offset).Add(half),
	}
	delta := to.Sub(from)

	best := Hit2D{Fraction: math.Inf(1)}
	found := false
	for _, b := range br.w2.bodies {
		if !b.valid || b == caster || b.sensor {
			continue
		}
		if !filterMatch(caster.layer, caster.mask, b.layer, b.mask) {
			continue
		}
		r := sweepAABB2D(start, delta, b.aabb())
		if !r.hit || r.fraction >= best.Fraction {
			continue
		}
		best = Hit2D{
			Body:     b,
			Node:     b.node,
			Point:    from.Add(delta.Scale(r.fraction)),
			Normal:   mathx.V2(r.normalX, r.normalY),
			Fraction: r.fraction,
		}
		found = true
	}
	return best, found
}

// ConvexSweepTest3D is the 3D counterpart of ShapeCast2D.
func (br *Bridge) ConvexSweepTest3D(caster *Body3D, from, to mathx.Vec3) (Hit3D, bool) {
	half := caster.size.Scale(0.5)
	start := mathx.AABB{Min: from.Sub(half), Max: from.Add(half)}
	delta := to.Sub(from)

	best := Hit3D{Fraction: math.Inf(1)}
	found := false
	for _, b := range br.w3.bodies {
		if !b.valid || b == caster || b.sensor {
			continue
		}
		if !filterMatch(caster.layer, caster.mask, b.layer, b.mask) {
			continue
		}
		r := sweepAABB3D(start, delta, b.aabb())
		if !r.hit || r.fraction >= best.Fraction {
			continue
		}
		best = Hit3D{
			Body:     b,
			Node:     b.node,
			Point:    from.Add(delta.Scale(r.fraction)),
			Normal:   mathx.V3(r.normalX, r.normalY, r.normalZ),
			Fraction: r.fraction,
		}
		found = true
	}
	return best, found
}

// TestBodyOverlap2D reports whether two bodies currently intersect,
// ignoring filters.
func (br *Bridge) TestBodyOverlap2D(a, b *Body2D) bool {
	if a == nil || b == nil || !a.valid || !b.valid {
		return false
	}
	return a.aabb().overlaps(b.aabb())
}

func (br *Bridge) TestBodyOverlap3D(a, b *Body3D) bool {
	if a == nil || b == nil || !a.valid || !b.valid {
		return false
	}
	return a.aabb().Overlaps(b.aabb())
}
