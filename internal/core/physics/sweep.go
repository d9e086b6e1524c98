package physics

import (
	"math"

	"github.com/lupine-engine/lupine/internal/core/mathx"
)

// Swept-AABB narrowphase. This is the canonical collision path of the
// bridge: it scans candidate bodies and reports the earliest hit along the
// motion, with a canonical axis-aligned normal chosen by smallest overlap
// on ties.

type aabb2D struct {
	Min, Max mathx.Vec2
}

func (b aabb2D) overlaps(o aabb2D) bool {
	return b.Max.X >= o.Min.X && b.Min.X <= o.Max.X &&
		b.Max.Y >= o.Min.Y && b.Min.Y <= o.Max.Y
}

func (b aabb2D) center() mathx.Vec2 { return b.Min.Add(b.Max).Scale(0.5) }

// penetrates is the strict variant: boxes that merely touch on a face do
// not count. The sweep uses it so a box resting on a surface can still be
// swept along that surface.
func (b aabb2D) penetrates(o aabb2D) bool {
	return b.Max.X > o.Min.X && b.Min.X < o.Max.X &&
		b.Max.Y > o.Min.Y && b.Min.Y < o.Max.Y
}

func penetrates3D(a, b mathx.AABB) bool {
	return a.Max.X > b.Min.X && a.Min.X < b.Max.X &&
		a.Max.Y > b.Min.Y && a.Min.Y < b.Max.Y &&
		a.Max.Z > b.Min.Z && a.Min.Z < b.Max.Z
}

// sweepResult carries the first-contact fraction and normal of a swept
// test. Normal points against the motion, from the obstacle toward the
// moving box.
type sweepResult struct {
	hit      bool
	fraction float64
	normalX  float64
	normalY  float64
	normalZ  float64
}

// sweepAABB2D moves box `a` by `delta` and finds the earliest time of
// impact with `b` using the slab method. An initial overlap reports
// fraction 0 with the smallest-overlap axis normal.
func sweepAABB2D(a aabb2D, delta mathx.Vec2, b aabb2D) sweepResult {
	if a.penetrates(b) {
		nx, ny := overlapNormal2D(a, b)
		return sweepResult{hit: true, fraction: 0, normalX: nx, normalY: ny}
	}

	entryX, exitX := axisTimes(a.Min.X, a.Max.X, b.Min.X, b.Max.X, delta.X)
	entryY, exitY := axisTimes(a.Min.Y, a.Max.Y, b.Min.Y, b.Max.Y, delta.Y)

	entry := math.Max(entryX, entryY)
	exit := math.Min(exitX, exitY)
	if entry > exit || entry < 0 || entry > 1 {
		return sweepResult{}
	}

	res := sweepResult{hit: true, fraction: entry}
	if entryX > entryY {
		if delta.X > 0 {
			res.normalX = -1
		} else {
			res.normalX = 1
		}
	} else {
		if delta.Y > 0 {
			res.normalY = -1
		} else {
			res.normalY = 1
		}
	}
	return res
}

// sweepAABB3D is the 3D slab sweep.
func sweepAABB3D(a mathx.AABB, delta mathx.Vec3, b mathx.AABB) sweepResult {
	if penetrates3D(a, b) {
		nx, ny, nz := overlapNormal3D(a, b)
		return sweepResult{hit: true, fraction: 0, normalX: nx, normalY: ny, normalZ: nz}
	}

	entryX, exitX := axisTimes(a.Min.X, a.Max.X, b.Min.X, b.Max.X, delta.X)
	entryY, exitY := axisTimes(a.Min.Y, a.Max.Y, b.Min.Y, b.Max.Y, delta.Y)
	entryZ, exitZ := axisTimes(a.Min.Z, a.Max.Z, b.Min.Z, b.Max.Z, delta.Z)

	entry := math.Max(entryX, math.Max(entryY, entryZ))
	exit := math.Min(exitX, math.Min(exitY, exitZ))
	if entry > exit || entry < 0 || entry > 1 {
		return sweepResult{}
	}

	res := sweepResult{hit: true, fraction: entry}
	switch {
	case entry == entryX:
		if delta.X > 0 {
			res.normalX = -1
		} else {
			res.normalX = 1
		}
	case entry == entryY:
		if delta.Y > 0 {
			res.normalY = -1
		} else {
			res.normalY = 1
		}
	default:
		if delta.Z > 0 {
			res.normalZ = -1
		} else {
			res.normalZ = 1
		}
	}
	return res
}

// axisTimes returns entry and exit times of a moving interval against a
// static one. A zero delta on a non-overlapping axis yields an impossible
// window so the sweep misses.
func axisTimes(aMin, aMax, bMin, bMax, delta float64) (entry, exit float64) {
	if delta > 0 {
		return (bMin - aMax) / delta, (bMax - aMin) / delta
	}
	if delta < 0 {
		return (bMax - aMin) / delta, (bMin - aMax) / delta
	}
	if aMax >= bMin && aMin <= bMax {
		return math.Inf(-1), math.Inf(1)
	}
	return math.Inf(1), math.Inf(-1)
}

// overlapNormal2D picks the separation axis with the smallest overlap,
// giving a canonical ±X/±Y normal for already-overlapping boxes. Normal
// points from b toward a.
func overlapNormal2D(a, b aabb2D) (nx, ny float64) {
	overlapX := math.Min(a.Max.X, b.Max.X) - math.Max(a.Min.X, b.Min.X)
	overlapY := math.Min(a.Max.Y, b.Max.Y) - math.Max(a.Min.Y, b.Min.Y)
	if overlapX < overlapY {
		if a.center().X >= b.center().X {
			return 1, 0
		}
		return -1, 0
	}
	if a.center().Y >= b.center().Y {
		return 0, 1
	}
	return 0, -1
}

func overlapNormal3D(a, b mathx.AABB) (nx, ny, nz float64) {
	overlapX := math.Min(a.Max.X, b.Max.X) - math.Max(a.Min.X, b.Min.X)
	overlapY := math.Min(a.Max.Y, b.Max.Y) - math.Max(a.Min.Y, b.Min.Y)
	overlapZ := math.Min(a.Max.Z, b.Max.Z) - math.Max(a.Min.Z, b.Min.Z)
	switch {
	case overlapX <= overlapY && overlapX <= overlapZ:
		if a.Center().X >= b.Center().X {
			return 1, 0, 0
		}
		return -1, 0, 0
	case overlapY <= overlapZ:
		if a.Center().Y >= b.Center().Y {
			return 0, 1, 0
		}
		return 0, -1, 0
	default:
		if a.Center().Z >= b.Center().Z {
			return 0, 0, 1
		}
		return 0, 0, -1
	}
}

// rayAABB2D intersects a segment with a box, returning the hit fraction
// and axis normal.
func rayAABB2D(from, to mathx.Vec2, b aabb2D) (float64, mathx.Vec2, bool) {
	point := aabb2D{Min: from, Max: from}
	res := sweepAABB2D(point, to.Sub(from), b)
	if !res.hit {
		return 0, mathx.Vec2{}, false
	}
	return res.fraction, mathx.V2(res.normalX, res.normalY), true
}

func rayAABB3D(from, to mathx.Vec3, b mathx.AABB) (float64, mathx.Vec3, bool) {
	point := mathx.AABB{Min: from, Max: from}
	res := sweepAABB3D(point, to.Sub(from), b)
	if !res.hit {
		return 0, mathx.Vec3{}, false
	}
	return res.fraction, mathx.V3(res.normalX, res.normalY, res.normalZ), true
}
