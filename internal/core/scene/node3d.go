package scene

import "github.com/lupine-engine/lupine/internal/core/mathx"

// Node3D is a node with a 3D local transform (position, quaternion
// rotation, scale).
type Node3D struct {
	BaseNode
	local mathx.Transform3D
}

func NewNode3D(name string) *Node3D {
	n := &Node3D{
		BaseNode: *NewNode(name),
		local:    mathx.Transform3DIdentity(),
	}
	n.self = n
	return n
}

func (n *Node3D) TypeName() string { return "Node3D" }

func (n *Node3D) Position() mathx.Vec3     { return n.local.Position }
func (n *Node3D) SetPosition(p mathx.Vec3) { n.local.Position = p }
func (n *Node3D) Rotation() mathx.Quat     { return n.local.Rotation }
func (n *Node3D) SetRotation(q mathx.Quat) { n.local.Rotation = q }
func (n *Node3D) Scale() mathx.Vec3        { return n.local.Scale }
func (n *Node3D) SetScale(s mathx.Vec3)    { n.local.Scale = s }

func (n *Node3D) LocalTransform() mathx.Transform3D { return n.local }

func (n *Node3D) GlobalTransform() mathx.Transform3D {
	if p := n.parent3D(); p != nil {
		return p.GlobalTransform().Compose(n.local)
	}
	return n.local
}

// SetGlobalPosition writes a world-space position back through the parent
// chain. Scale and rotation of ancestors are inverted for the position
// component only.
func (n *Node3D) SetGlobalPosition(p mathx.Vec3) {
	parent := n.parent3D()
	if parent == nil {
		n.local.Position = p
		return
	}
	g := parent.GlobalTransform()
	d := p.Sub(g.Position)
	inv := mathx.Quat{W: g.Rotation.W, X: -g.Rotation.X, Y: -g.Rotation.Y, Z: -g.Rotation.Z}
	local := inv.Rotate(d)
	if g.Scale.X != 0 {
		local.X /= g.Scale.X
	}
	if g.Scale.Y != 0 {
		local.Y /= g.Scale.Y
	}
	if g.Scale.Z != 0 {
		local.Z /= g.Scale.Z
	}
	n.local.Position = local
}

func (n *Node3D) parent3D() *Node3D {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p3, ok := p.(*Node3D); ok {
			return p3
		}
	}
	return nil
}
