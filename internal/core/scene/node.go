// Package scene implements the node tree, the component model and the scene
// lifecycle: the object model every other engine system hangs off.
package scene

import (
	"errors"
	"fmt"

	"github.com/lupine-engine/lupine/internal/core/identity"
)

var (
	// ErrCycle is returned when attaching a child would create a cycle.
	ErrCycle = errors.New("scene: attach would create a cycle")
	// ErrOwned is returned when attaching a node that already has a parent.
	ErrOwned = errors.New("scene: node already has a parent")
	// ErrNotFound is returned by removal operations on absent ids.
	ErrNotFound = errors.New("scene: not found")
)

// Node is an element of the scene tree. It owns its children and its
// components; the parent and scene links are weak back-references kept
// valid by the tree invariants.
type Node interface {
	UUID() identity.UUID
	SetUUID(identity.UUID)
	Name() string
	SetName(string)
	Active() bool
	SetActive(bool)
	TypeName() string

	Parent() Node
	Children() []Node
	AddChild(Node) error
	RemoveChild(identity.UUID) (Node, error)
	FindChild(id identity.UUID, recursive bool) Node
	FindChildByName(name string) Node

	Components() []Component
	AddComponent(Component) error
	RemoveComponent(identity.UUID) error
	Component(typeTag string) (Component, bool)

	Scene() *Scene

	base() *BaseNode
}

// BaseNode is the concrete state shared by every node variant.
type BaseNode struct {
	id         identity.UUID
	name       string
	active     bool
	parent     Node
	children   []Node
	components []Component
	scene      *Scene
	self       Node

	// extra holds key/value pairs found on load that the runtime does not
	// understand; they are re-emitted on save so tool additions survive.
	extra []extraKV
}

// NewNode creates a generic node.
func NewNode(name string) *BaseNode {
	n := &BaseNode{
		id:     identity.Generate(),
		name:   name,
		active: true,
	}
	n.self = n
	return n
}

func (n *BaseNode) UUID() identity.UUID      { return n.id }
func (n *BaseNode) SetUUID(id identity.UUID) { n.id = id }
func (n *BaseNode) Name() string             { return n.name }
func (n *BaseNode) SetName(name string)      { n.name = name }
func (n *BaseNode) Active() bool             { return n.active }
func (n *BaseNode) SetActive(v bool)         { n.active = v }
func (n *BaseNode) TypeName() string         { return "Node" }
func (n *BaseNode) Parent() Node             { return n.parent }
func (n *BaseNode) Scene() *Scene            { return n.scene }
func (n *BaseNode) base() *BaseNode          { return n }

func (n *BaseNode) Children() []Node {
	out := make([]Node, len(n.children))
	copy(out, n.children)
	return out
}

// AddChild takes ownership of the child. The child must be parentless and
// must not be an ancestor of the receiver.
func (n *BaseNode) AddChild(child Node) error {
	if child == nil {
		return fmt.Errorf("scene: nil child")
	}
	cb := child.base()
	if cb.parent != nil {
		return ErrOwned
	}
	for anc := n.self; anc != nil; anc = anc.Parent() {
		if anc.UUID() == child.UUID() {
			return ErrCycle
		}
	}
	cb.parent = n.self
	n.children = append(n.children, child)
	setSceneDeep(child, n.scene)
	return nil
}

// RemoveChild detaches a child by id and returns ownership to the caller.
func (n *BaseNode) RemoveChild(id identity.UUID) (Node, error) {
	for i, c := range n.children {
		if c.UUID() == id {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.base().parent = nil
			setSceneDeep(c, nil)
			return c, nil
		}
	}
	return nil, ErrNotFound
}

// FindChild searches children by id, optionally across the whole subtree.
// The walk is depth-first, O(n) over the subtree.
func (n *BaseNode) FindChild(id identity.UUID, recursive bool) Node {
	for _, c := range n.children {
		if c.UUID() == id {
			return c
		}
	}
	if recursive {
		for _, c := range n.children {
			if found := c.FindChild(id, true); found != nil {
				return found
			}
		}
	}
	return nil
}

// FindChildByName returns the first depth-first match.
func (n *BaseNode) FindChildByName(name string) Node {
	for _, c := range n.children {
		if c.Name() == name {
			return c
		}
	}
	for _, c := range n.children {
		if found := c.FindChildByName(name); found != nil {
			return found
		}
	}
	return nil
}

func (n *BaseNode) Components() []Component {
	out := make([]Component, len(n.components))
	copy(out, n.components)
	return out
}

// AddComponent attaches a component. If the owning scene is already active
// the component becomes ready on the next tick.
func (n *BaseNode) AddComponent(c Component) error {
	if c == nil {
		return fmt.Errorf("scene: nil component")
	}
	if c.Owner() != nil {
		return fmt.Errorf("scene: component %s already owned", c.UUID())
	}
	c.bind(n.self)
	n.components = append(n.components, c)
	return nil
}

// RemoveComponent destroys a component: its OnDestroy runs before it is
// dropped from the owner.
func (n *BaseNode) RemoveComponent(id identity.UUID) error {
	for i, c := range n.components {
		if c.UUID() == id {
			destroyComponent(n.scene, c)
			n.components = append(n.components[:i], n.components[i+1:]...)
			c.bind(nil)
			return nil
		}
	}
	return ErrNotFound
}

// Component returns the first component with the given type tag.
func (n *BaseNode) Component(typeTag string) (Component, bool) {
	for _, c := range n.components {
		if c.TypeTag() == typeTag {
			return c, true
		}
	}
	return nil, false
}

func setSceneDeep(n Node, s *Scene) {
	n.base().scene = s
	for _, c := range n.base().children {
		setSceneDeep(c, s)
	}
}
