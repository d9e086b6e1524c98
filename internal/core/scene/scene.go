package scene

import (
	"github.com/lupine-engine/lupine/internal/core/identity"
	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/mathx"
)

// Scene owns a node tree rooted at a parentless node, ticks active
// components and mediates the lifecycle contract.
type Scene struct {
	id       identity.UUID
	name     string
	path     string
	root     Node
	active   bool
	paused   bool
	viewport mathx.Vec2
	logger   log.Log
}

func New(name string, logger log.Log) *Scene {
	if logger == nil {
		logger = log.Provide()
	}
	s := &Scene{
		id:     identity.Generate(),
		name:   name,
		logger: logger,
	}
	s.SetRoot(NewNode(name))
	return s
}

func (s *Scene) UUID() identity.UUID      { return s.id }
func (s *Scene) SetUUID(id identity.UUID) { s.id = id }
func (s *Scene) Name() string             { return s.name }
func (s *Scene) SetName(name string)      { s.name = name }
func (s *Scene) Path() string             { return s.path }
func (s *Scene) SetPath(p string)         { s.path = p }
func (s *Scene) Root() Node               { return s.root }

func (s *Scene) Active() bool     { return s.active }
func (s *Scene) Paused() bool     { return s.paused }
func (s *Scene) SetPaused(v bool) { s.paused = v }

// SetRoot replaces the root node. The root's parent stays nil; every node
// reachable by descent belongs to this scene.
func (s *Scene) SetRoot(root Node) {
	if s.root != nil {
		setSceneDeep(s.root, nil)
	}
	s.root = root
	if root != nil {
		setSceneDeep(root, s)
	}
}

// ViewportSize is the current render target size, pushed by the renderer
// collaborator. Root controls resolve their rectangle against it.
func (s *Scene) ViewportSize() mathx.Vec2     { return s.viewport }
func (s *Scene) SetViewportSize(v mathx.Vec2) { s.viewport = v }

// Activate marks the scene live and readies every component in the tree,
// top-down in depth-first order.
func (s *Scene) Activate() {
	s.active = true
	s.flushReady()
}

// Deactivate runs OnDestroy depth-first post-order over the whole tree.
// Used on scene switch: the outgoing scene deactivates before the next
// scene readies.
func (s *Scene) Deactivate() {
	if s.root != nil {
		s.destroyTree(s.root)
	}
	s.active = false
}

// FindNode searches the whole tree by UUID, root included.
func (s *Scene) FindNode(id identity.UUID) Node {
	if s.root == nil {
		return nil
	}
	if s.root.UUID() == id {
		return s.root
	}
	return s.root.FindChild(id, true)
}

// FindNodeByName returns the first depth-first name match, root included.
func (s *Scene) FindNodeByName(name string) Node {
	if s.root == nil {
		return nil
	}
	if s.root.Name() == name {
		return s.root
	}
	return s.root.FindChildByName(name)
}

// DispatchInput delivers one queued input event to every active, readied
// component of every active node. Components attached between ticks see
// their first event only after the next update has run their OnReady.
func (s *Scene) DispatchInput(ev InputEvent) {
	if !s.active || s.paused {
		return
	}
	s.walkActive(s.root, func(c Component) {
		if c.lifecycle().ready {
			s.safely(c, "OnInput", func() { c.OnInput(ev) })
		}
	})
}

// Update readies newly attached components and ticks the tree. dt is the
// wall-clock frame delta in seconds, unrelated to the physics fixed step.
func (s *Scene) Update(dt float64) {
	if !s.active || s.paused {
		return
	}
	s.flushReady()
	s.walkActive(s.root, func(c Component) {
		if c.lifecycle().ready {
			s.safely(c, "OnUpdate", func() { c.OnUpdate(dt) })
		}
	})
}

// flushReady calls OnReady exactly once, top-down depth-first, for every
// component that has not seen it yet. Fields are populated by then; body
// creation and node reference resolution are legal inside OnReady.
func (s *Scene) flushReady() {
	if s.root == nil {
		return
	}
	s.readyTree(s.root)
}

func (s *Scene) readyTree(n Node) {
	if !n.Active() {
		return
	}
	for _, c := range n.Components() {
		st := c.lifecycle()
		// Inactive components stay unready; the first tick that sees them
		// active runs their OnReady before any OnUpdate.
		if !st.ready && c.Active() {
			st.ready = true
			s.safely(c, "OnReady", func() { c.OnReady() })
		}
	}
	for _, child := range n.Children() {
		s.readyTree(child)
	}
}

func (s *Scene) destroyTree(n Node) {
	for _, child := range n.Children() {
		s.destroyTree(child)
	}
	for _, c := range n.Components() {
		destroyComponent(s, c)
	}
}

func (s *Scene) walkActive(n Node, fn func(Component)) {
	if n == nil || !n.Active() {
		return
	}
	for _, c := range n.Components() {
		if c.Active() {
			fn(c)
		}
	}
	for _, child := range n.Children() {
		s.walkActive(child, fn)
	}
}

// safely shields the tick from panicking lifecycle methods: the error is
// logged and the component is skipped for this tick.
func (s *Scene) safely(c Component, phase string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("component lifecycle panic",
				log.String("component", c.TypeTag()),
				log.String("phase", phase),
				log.Any("panic", r),
			)
		}
	}()
	fn()
}

// destroyComponent runs OnDestroy exactly once.
func destroyComponent(s *Scene, c Component) {
	st := c.lifecycle()
	if st.destroyed {
		if s != nil {
			s.logger.Error("double destroy of component",
				log.String("component", c.TypeTag()),
				log.String("uuid", c.UUID().String()),
			)
		}
		return
	}
	st.destroyed = true
	if s != nil {
		s.safely(c, "OnDestroy", func() { c.OnDestroy() })
	} else {
		c.OnDestroy()
	}
}
