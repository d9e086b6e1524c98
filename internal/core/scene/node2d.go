package scene

import (
	"math"

	"github.com/lupine-engine/lupine/internal/core/mathx"
)

// Node2D is a node with a 2D local transform. The global transform is the
// composition of every 2D ancestor's local transform with this one,
// computed on read.
type Node2D struct {
	BaseNode
	local mathx.Transform2D
}

func NewNode2D(name string) *Node2D {
	n := &Node2D{
		BaseNode: *NewNode(name),
		local:    mathx.Transform2DIdentity(),
	}
	n.self = n
	return n
}

func (n *Node2D) TypeName() string { return "Node2D" }

func (n *Node2D) Position() mathx.Vec2     { return n.local.Position }
func (n *Node2D) SetPosition(p mathx.Vec2) { n.local.Position = p }
func (n *Node2D) Rotation() float64        { return n.local.Rotation }
func (n *Node2D) SetRotation(r float64)    { n.local.Rotation = r }
func (n *Node2D) Scale() mathx.Vec2        { return n.local.Scale }
func (n *Node2D) SetScale(s mathx.Vec2)    { n.local.Scale = s }

func (n *Node2D) LocalTransform() mathx.Transform2D { return n.local }

// GlobalTransform composes the nearest 2D ancestor's global transform with
// the local one. Non-2D ancestors are skipped, matching the variant rules
// of the tree.
func (n *Node2D) GlobalTransform() mathx.Transform2D {
	if p := n.parent2D(); p != nil {
		return p.GlobalTransform().Compose(n.local)
	}
	return n.local
}

// SetGlobalPosition writes a world-space position back through the parent
// chain. Used by the physics bridge when syncing simulated bodies.
func (n *Node2D) SetGlobalPosition(p mathx.Vec2) {
	parent := n.parent2D()
	if parent == nil {
		n.local.Position = p
		return
	}
	g := parent.GlobalTransform()
	d := p.Sub(g.Position)
	sin, cos := math.Sincos(g.Rotation)
	local := mathx.V2(d.X*cos+d.Y*sin, -d.X*sin+d.Y*cos)
	if g.Scale.X != 0 {
		local.X /= g.Scale.X
	}
	if g.Scale.Y != 0 {
		local.Y /= g.Scale.Y
	}
	n.local.Position = local
}

func (n *Node2D) parent2D() *Node2D {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p2, ok := p.(*Node2D); ok {
			return p2
		}
	}
	return nil
}
