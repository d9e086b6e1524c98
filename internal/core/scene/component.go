package scene

import (
	"github.com/lupine-engine/lupine/internal/core/identity"
	"github.com/lupine-engine/lupine/internal/core/vars"
)

// InputEvent is one queued input sample delivered to components before
// their update.
type InputEvent struct {
	Device   string
	Code     int
	Pressed  bool
	Position struct{ X, Y float64 }
}

// Component is a behavior attached to a node. Lifecycle contract: exactly
// one OnReady before any OnUpdate, OnInput for queued events before each
// OnUpdate, exactly one OnDestroy on removal or scene shutdown. Lifecycle
// methods must not panic out; the scene recovers, logs and skips the
// component for the tick.
type Component interface {
	UUID() identity.UUID
	SetUUID(identity.UUID)
	TypeTag() string
	Category() string
	Owner() Node
	Active() bool
	SetActive(bool)
	Vars() *vars.Set

	OnReady()
	OnInput(ev InputEvent)
	OnUpdate(dt float64)
	OnDestroy()

	bind(owner Node)
	lifecycle() *lifecycleState
}

type lifecycleState struct {
	ready     bool
	destroyed bool
}

// BaseComponent carries the state every component shares. Concrete
// components embed it and override the lifecycle methods they need.
type BaseComponent struct {
	id       identity.UUID
	typeTag  string
	category string
	owner    Node
	active   bool
	vars     *vars.Set
	state    lifecycleState

	// Unknown keys preserved across load/save round-trips.
	extra     []extraKV
	extraVars []extraKV
}

// NewBase initializes the embedded part of a component. Typically called
// from a factory registered with the component registry.
func NewBase(typeTag, category string) BaseComponent {
	return BaseComponent{
		id:       identity.Generate(),
		typeTag:  typeTag,
		category: category,
		active:   true,
		vars:     vars.NewSet(),
	}
}

func (c *BaseComponent) UUID() identity.UUID      { return c.id }
func (c *BaseComponent) SetUUID(id identity.UUID) { c.id = id }
func (c *BaseComponent) TypeTag() string          { return c.typeTag }
func (c *BaseComponent) Category() string         { return c.category }
func (c *BaseComponent) Owner() Node              { return c.owner }
func (c *BaseComponent) Active() bool             { return c.active }
func (c *BaseComponent) SetActive(v bool)         { c.active = v }
func (c *BaseComponent) Vars() *vars.Set          { return c.vars }

func (c *BaseComponent) OnReady()           {}
func (c *BaseComponent) OnInput(InputEvent) {}
func (c *BaseComponent) OnUpdate(float64)   {}
func (c *BaseComponent) OnDestroy()         {}

func (c *BaseComponent) bind(owner Node)               { c.owner = owner }
func (c *BaseComponent) lifecycle() *lifecycleState    { return &c.state }
func (c *BaseComponent) componentBase() *BaseComponent { return c }

// PlaceholderComponent stands in for an unknown type tag found during scene
// load. It is inactive, keeps the raw field map it was loaded with, and
// round-trips losslessly on save.
type PlaceholderComponent struct {
	BaseComponent
	RawVars map[string]any

	// SavedActive is the active flag as loaded; the placeholder itself
	// never runs, but the flag must survive a save.
	SavedActive bool
}

func NewPlaceholder(typeTag string, raw map[string]any) *PlaceholderComponent {
	p := &PlaceholderComponent{
		BaseComponent: NewBase(typeTag, "Unknown"),
		RawVars:       raw,
		SavedActive:   true,
	}
	p.SetActive(false)
	return p
}
