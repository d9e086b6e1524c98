package physics

import (
	"math"

	"github.com/lupine-engine/lupine/internal/core/mathx"
)

// world2D is the impulse-lite 2D simulation. Bodies are integrated,
// separated along the smallest-overlap axis and tracked pairwise for
// begin/end contact events. Iteration follows body insertion order, which
// keeps stepping deterministic for a given call sequence.
type world2D struct {
	gravity mathx.Vec2
	bodies  []*Body2D
	nextID  uint64
	ids     map[*Body2D]uint64

	prevPairs map[pairKey]contact2D
	prevOrder []pairKey

	begin []contact2D
	end   []contact2D
}

type pairKey struct {
	a, b uint64
}

type contact2D struct {
	bodyA, bodyB *Body2D
	point        mathx.Vec2
	// normal points from bodyB toward bodyA
	normal mathx.Vec2
	sensor bool
}

func newWorld2D() *world2D {
	return &world2D{
		gravity:   mathx.V2(0, -9.8),
		ids:       make(map[*Body2D]uint64),
		prevPairs: make(map[pairKey]contact2D),
	}
}

func (w *world2D) add(b *Body2D) {
	w.nextID++
	w.ids[b] = w.nextID
	w.bodies = append(w.bodies, b)
}

func (w *world2D) remove(b *Body2D) {
	for i, other := range w.bodies {
		if other == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}
	delete(w.ids, b)
}

func (w *world2D) key(a, b *Body2D) pairKey {
	ia, ib := w.ids[a], w.ids[b]
	if ia > ib {
		ia, ib = ib, ia
	}
	return pairKey{a: ia, b: ib}
}

// step advances the world by the fixed timestep: integrate dynamics,
// separate solid overlaps, then refresh the contact pair set.
func (w *world2D) step(dt float64) {
	for _, b := range w.bodies {
		if b.kind != BodyDynamic {
			continue
		}
		b.linearVel = b.linearVel.Add(w.gravity.Scale(b.gravityScale * dt))
		b.linearVel = b.linearVel.Scale(1 / (1 + b.material.LinearDamping*dt))
		b.angularVel /= 1 + b.material.AngularDamping*dt
		b.position = b.position.Add(b.linearVel.Scale(dt))
		b.rotation += b.angularVel * dt
	}

	for _, b := range w.bodies {
		if b.kind != BodyDynamic {
			continue
		}
		w.separate(b, dt)
	}

	w.collectContacts()
}

// separate pushes a dynamic body out of every solid interacting overlap
// along the smallest-overlap axis and applies the velocity response.
func (w *world2D) separate(b *Body2D, dt float64) {
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
		if !ba.overlaps(oa) {
			continue
		}
		nx, ny := overlapNormal2D(ba, oa)
		normal := mathx.V2(nx, ny)
		depth := overlapDepth2D(ba, oa, normal)

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
		tangent := mathx.V2(-normal.Y, normal.X)
		vt := b.linearVel.Dot(tangent)
		b.linearVel = b.linearVel.Sub(tangent.Scale(vt * math.Min(1, friction*dt*10)))
	}
}

func overlapDepth2D(a, b aabb2D, normal mathx.Vec2) float64 {
	if normal.X != 0 {
		return math.Min(a.Max.X, b.Max.X) - math.Max(a.Min.X, b.Min.X)
	}
	return math.Min(a.Max.Y, b.Max.Y) - math.Max(a.Min.Y, b.Min.Y)
}

// collectContacts rebuilds the overlapping pair set and diffs it against
// the previous step, queueing begin and end events.
func (w *world2D) collectContacts() {
	current := make(map[pairKey]contact2D, len(w.prevPairs))
	var order []pairKey

	for i, a := range w.bodies {
		for _, b := range w.bodies[i+1:] {
			if !filterMatch(a.layer, a.mask, b.layer, b.mask) {
				continue
			}
			aa, bb := a.aabb(), b.aabb()
			if !aa.overlaps(bb) {
				continue
			}
			nx, ny := overlapNormal2D(aa, bb)
			c := contact2D{
				bodyA:  a,
				bodyB:  b,
				point:  overlapCenter2D(aa, bb),
				normal: mathx.V2(nx, ny),
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

func overlapCenter2D(a, b aabb2D) mathx.Vec2 {
	return mathx.V2(
		(math.Max(a.Min.X, b.Min.X)+math.Min(a.Max.X, b.Max.X))/2,
		(math.Max(a.Min.Y, b.Min.Y)+math.Min(a.Max.Y, b.Max.Y))/2,
	)
}
