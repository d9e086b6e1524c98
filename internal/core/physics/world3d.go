package physics

import (
	"math"

	"github.com/lupine-engine/lupine/internal/core/mathx"
)

// world3D mirrors world2D over 3D bodies. Hulls, meshes and the other
// non-box shapes are simulated through their bounding boxes; the broadphase
// and the contact bookkeeping are shared with the 2D side in structure.
type world3D struct {
	gravity mathx.Vec3
	bodies  []*Body3D
	nextID  uint64
	ids     map[*Body3D]uint64

	prevPairs map[pairKey]contact3D
	prevOrder []pairKey

	begin []contact3D
	end   []contact3D
}

type contact3D struct {
	bodyA, bodyB *Body3D
	point        mathx.Vec3
	// normal points from bodyB toward bodyA
	normal mathx.Vec3
	sensor bool
}

func newWorld3D() *world3D {
	return &world3D{
		gravity:   mathx.V3(0, -9.8, 0),
		ids:       make(map[*Body3D]uint64),
		prevPairs: make(map[pairKey]contact3D),
	}
}

func (w *world3D) add(b *Body3D) {
	w.nextID++
	w.ids[b] = w.nextID
	w.bodies = append(w.bodies, b)
}

func (w *world3D) remove(b *Body3D) {
	for i, other := range w.bodies {
		if other == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}
	delete(w.ids, b)
}

func (w *world3D) key(a, b *Body3D) pairKey {
	ia, ib := w.ids[a], w.ids[b]
	if ia > ib {
		ia, ib = ib, ia
	}
	return pairKey{a: ia, b: ib}
}

func (w *world3D) step(dt float64) {
	for _, b := range w.bodies {
		if b.kind != BodyDynamic {
			continue
		}
		b.linearVel = b.linearVel.Add(w.gravity.Scale(b.gravityScale * dt))
		b.linearVel = b.linearVel.Scale(1 / (1 + b.material.LinearDamping*dt))
		b.angularVel = b.angularVel.Scale(1 / (1 + b.material.AngularDamping*dt))
		b.position = b.position.Add(b.linearVel.Scale(dt))
	}

	for _, b := range w.bodies {
		if b.kind != BodyDynamic {
			continue
		}
		w.separate(b, dt)
	}

	w.collectContacts()
}

func (w *world3D) separate(b *Body3D, dt float64) {
	for _, other := range w.bodies {
		if other == b {
			continue
		}
		if !filterMatch(b.layer, b.mask, other.layer, other.mask) {
			continue
		}
		if b.sensor || other.sensor {
			continue
		}
		ba, oa := b.aabb(), other.aabb()
		if !ba.Overlaps(oa) {
			continue
		}
		nx, ny, nz := overlapNormal3D(ba, oa)
		normal := mathx.V3(nx, ny, nz)
		depth := overlapDepth3D(ba, oa, normal)

		if other.kind == BodyDynamic {
			half := normal.Scale(depth / 2)
			b.position = b.position.Add(half)
			other.position = other.position.Sub(half)
		} else {
			b.position = b.position.Add(normal.Scale(depth))
		}

		restitution := math.Max(b.material.Restitution, other.material.Restitution)
		friction := math.Sqrt(b.material.Friction * other.material.Friction)

		vn := b.linearVel.Dot(normal)
		if vn < 0 {
			b.linearVel = b.linearVel.Sub(normal.Scale((1 + restitution) * vn))
		}
		tangentVel := b.linearVel.Sub(normal.Scale(b.linearVel.Dot(normal)))
		b.linearVel = b.linearVel.Sub(tangentVel.Scale(math.Min(1, friction*dt*10)))
	}
}

func overlapDepth3D(a, b mathx.AABB, normal mathx.Vec3) float64 {
	switch {
	case normal.X != 0:
		return math.Min(a.Max.X, b.Max.X) - math.Max(a.Min.X, b.Min.X)
	case normal.Y != 0:
		return math.Min(a.Max.Y, b.Max.Y) - math.Max(a.Min.Y, b.Min.Y)
	default:
		return math.Min(a.Max.Z, b.Max.Z) - math.Max(a.Min.Z, b.Min.Z)
	}
}

func (w *world3D) collectContacts() {
	current := make(map[pairKey]contact3D, len(w.prevPairs))
	var order []pairKey

	for i, a := range w.bodies {
		for _, b := range w.bodies[i+1:] {
			if !filterMatch(a.layer, a.mask, b.layer, b.mask) {
				continue
			}
			aa, bb := a.aabb(), b.aabb()
			if !aa.Overlaps(bb) {
				continue
			}
			nx, ny, nz := overlapNormal3D(aa, bb)
			c := contact3D{
				bodyA:  a,
				bodyB:  b,
				point:  overlapCenter3D(aa, bb),
				normal: mathx.V3(nx, ny, nz),
				sensor: a.sensor || b.sensor,
			}
			k := w.key(a, b)
			current[k] = c
			order = append(order, k)
			if _, was := w.prevPairs[k]; !was {
				w.begin = append(w.begin, c)
			}
		}
	}

	for _, k := range w.prevOrder {
		if _, still := current[k]; !still {
			c := w.prevPairs[k]
			if c.bodyA.valid && c.bodyB.valid {
				w.end = append(w.end, c)
			}
		}
	}

	w.prevPairs = current
	w.prevOrder = order
}

func overlapCenter3D(a, b mathx.AABB) mathx.Vec3 {
	return mathx.V3(
		(math.Max(a.Min.X, b.Min.X)+math.Min(a.Max.X, b.Max.X))/2,
		(math.Max(a.Min.Y, b.Min.Y)+math.Min(a.Max.Y, b.Max.Y))/2,
		(math.Max(a.Min.Z, b.Min.Z)+math.Min(a.Max.Z, b.Max.Z))/2,
	)
}
