package scene

import "github.com/lupine-engine/lupine/internal/core/mathx"

// Anchors are the fractional attachment points of a control's four sides
// inside its parent rectangle, each in [0,1].
type Anchors struct {
	Left, Top, Right, Bottom float64
}

// Margins are pixel offsets applied after anchoring.
type Margins struct {
	Left, Top, Right, Bottom float64
}

// Control is the UI node variant. Its rectangle derives from the parent
// control's rectangle via anchors plus margins; the root control's
// rectangle is the render target supplied by the renderer collaborator
// through the scene viewport.
type Control struct {
	BaseNode
	anchors Anchors
	margins Margins
	size    mathx.Vec2
}

func NewControl(name string) *Control {
	n := &Control{
		BaseNode: *NewNode(name),
	}
	n.self = n
	return n
}

func (n *Control) TypeName() string { return "Control" }

func (n *Control) Anchors() Anchors      { return n.anchors }
func (n *Control) SetAnchors(a Anchors)  { n.anchors = a }
func (n *Control) Margins() Margins      { return n.margins }
func (n *Control) SetMargins(m Margins)  { n.margins = m }
func (n *Control) Size() mathx.Vec2      { return n.size }
func (n *Control) SetSize(s mathx.Vec2)  { n.size = s }

// Rect resolves the control's rectangle. When anchors collapse a side pair
// (left == right or top == bottom) the explicit size is used from the
// anchored edge instead.
func (n *Control) Rect() mathx.Rect {
	parent := n.parentRect()
	left := parent.Position.X + parent.Size.X*n.anchors.Left + n.margins.Left
	top := parent.Position.Y + parent.Size.Y*n.anchors.Top + n.margins.Top
	right := parent.Position.X + parent.Size.X*n.anchors.Right + n.margins.Right
	bottom := parent.Position.Y + parent.Size.Y*n.anchors.Bottom + n.margins.Bottom
	if n.anchors.Left == n.anchors.Right {
		right = left + n.size.X
	}
	if n.anchors.Top == n.anchors.Bottom {
		bottom = top + n.size.Y
	}
	return mathx.Rect{
		Position: mathx.V2(left, top),
		Size:     mathx.V2(right-left, bottom-top),
	}
}

func (n *Control) parentRect() mathx.Rect {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if pc, ok := p.(*Control); ok {
			return pc.Rect()
		}
	}
	if s := n.Scene(); s != nil {
		return mathx.Rect{Size: s.ViewportSize()}
	}
	return mathx.Rect{}
}
