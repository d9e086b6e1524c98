package scene

import (
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lupine-engine/lupine/internal/core/identity"
	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/mathx"
	"github.com/lupine-engine/lupine/internal/core/vars"
)

// Scenes serialize to an indented key/value tree (YAML). The emitted key
// order is fixed, every UUID and field name is stable across saves, and
// unknown keys found on load are carried back out on save.

// extraKV is one preserved unknown key/value pair.
type extraKV struct {
	key   *yaml.Node
	value *yaml.Node
}

// Save renders the scene to its canonical textual form.
func Save(s *Scene) ([]byte, error) {
	if s.Root() == nil {
		return nil, fmt.Errorf("scene: no root to save")
	}
	sceneMap := newMapNode()
	appendKV(sceneMap, "name", strNode(s.Name()))
	appendKV(sceneMap, "uuid", strNode(s.UUID().String()))
	appendKV(sceneMap, "root", saveNode(s.Root()))

	doc := newMapNode()
	appendKV(doc, "scene", sceneMap)
	return yaml.Marshal(doc)
}

func saveNode(n Node) *yaml.Node {
	m := newMapNode()
	appendKV(m, "type", strNode(n.TypeName()))
	appendKV(m, "name", strNode(n.Name()))
	appendKV(m, "uuid", strNode(n.UUID().String()))
	appendKV(m, "active", boolNode(n.Active()))

	switch v := n.(type) {
	case *Node2D:
		appendKV(m, "position", vecNode(v.Position().X, v.Position().Y))
		appendKV(m, "rotation", floatNode(v.Rotation()))
		appendKV(m, "scale", vecNode(v.Scale().X, v.Scale().Y))
	case *Node3D:
		p, q, s := v.Position(), v.Rotation(), v.Scale()
		appendKV(m, "position", vecNode(p.X, p.Y, p.Z))
		appendKV(m, "rotation", vecNode(q.W, q.X, q.Y, q.Z))
		appendKV(m, "scale", vecNode(s.X, s.Y, s.Z))
	case *Control:
		a, mg, sz := v.Anchors(), v.Margins(), v.Size()
		appendKV(m, "anchors", vecNode(a.Left, a.Top, a.Right, a.Bottom))
		appendKV(m, "margins", vecNode(mg.Left, mg.Top, mg.Right, mg.Bottom))
		appendKV(m, "size", vecNode(sz.X, sz.Y))
	}

	if comps := n.Components(); len(comps) > 0 {
		seq := newSeqNode()
		for _, c := range comps {
			seq.Content = append(seq.Content, saveComponent(c))
		}
		appendKV(m, "components", seq)
	}
	if children := n.Children(); len(children) > 0 {
		seq := newSeqNode()
		for _, c := range children {
			seq.Content = append(seq.Content, saveNode(c))
		}
		appendKV(m, "children", seq)
	}
	for _, kv := range n.base().extra {
		m.Content = append(m.Content, kv.key, kv.value)
	}
	return m
}

func saveComponent(c Component) *yaml.Node {
	m := newMapNode()
	appendKV(m, "type", strNode(c.TypeTag()))
	appendKV(m, "uuid", strNode(c.UUID().String()))
	if ph, ok := c.(*PlaceholderComponent); ok {
		appendKV(m, "active", boolNode(ph.SavedActive))
	} else {
		appendKV(m, "active", boolNode(c.Active()))
	}

	varsMap := newMapNode()
	if ph, ok := c.(*PlaceholderComponent); ok {
		for _, name := range sortedKeys(ph.RawVars) {
			appendKV(varsMap, name, wireNode(ph.RawVars[name]))
		}
	} else {
		c.Vars().Each(func(v *vars.Variable) {
			appendKV(varsMap, v.Name, wireNode(v.Value.Wire()))
		})
	}
	if base := baseOf(c); base != nil {
		for _, kv := range base.extraVars {
			varsMap.Content = append(varsMap.Content, kv.key, kv.value)
		}
	}
	if len(varsMap.Content) > 0 {
		appendKV(m, "vars", varsMap)
	}
	if base := baseOf(c); base != nil {
		for _, kv := range base.extra {
			m.Content = append(m.Content, kv.key, kv.value)
		}
	}
	return m
}

// Load parses a scene document and builds the tree bottom-up: children are
// fully constructed before attach so the tree invariants hold at every
// step. OnReady is not called here; Activate does that top-down once the
// whole tree exists.
func Load(data []byte, logger log.Log) (*Scene, error) {
	if logger == nil {
		logger = log.Provide()
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("scene: parse: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("scene: empty document")
	}
	top := doc.Content[0]
	sceneNode := childValue(top, "scene")
	if sceneNode == nil {
		return nil, fmt.Errorf("scene: missing top-level scene key")
	}

	s := New("", logger)
	var root Node
	err := eachKV(sceneNode, func(key string, value *yaml.Node, raw *yaml.Node) error {
		switch key {
		case "name":
			s.SetName(value.Value)
		case "uuid":
			s.SetUUID(identity.Parse(value.Value))
		case "root":
			var err error
			root, err = loadNode(value, logger)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("scene: missing root node")
	}
	s.SetRoot(root)
	return s, nil
}

func loadNode(m *yaml.Node, logger log.Log) (Node, error) {
	typeName := scalarChild(m, "type")
	var n Node
	switch typeName {
	case "Node2D":
		n = NewNode2D("")
	case "Node3D":
		n = NewNode3D("")
	case "Control":
		n = NewControl("")
	default:
		n = NewNode("")
	}

	var children []Node
	err := eachKV(m, func(key string, value *yaml.Node, rawKey *yaml.Node) error {
		switch key {
		case "type":
		case "name":
			n.SetName(value.Value)
		case "uuid":
			n.SetUUID(identity.Parse(value.Value))
		case "active":
			n.SetActive(value.Value == "true")
		case "position", "rotation", "scale", "anchors", "margins", "size":
			applySpatial(n, key, value)
		case "components":
			for _, cm := range value.Content {
				c, err := loadComponent(cm, logger)
				if err != nil {
					return err
				}
				if err := n.AddComponent(c); err != nil {
					return err
				}
			}
		case "children":
			for _, childMap := range value.Content {
				child, err := loadNode(childMap, logger)
				if err != nil {
					return err
				}
				children = append(children, child)
			}
		default:
			n.base().extra = append(n.base().extra, extraKV{key: rawKey, value: value})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if err := n.AddChild(child); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func applySpatial(n Node, key string, value *yaml.Node) {
	f := floatSeq(value)
	switch v := n.(type) {
	case *Node2D:
		switch key {
		case "position":
			if len(f) == 2 {
				v.SetPosition(mathx.V2(f[0], f[1]))
			}
		case "rotation":
			if r, err := strconv.ParseFloat(value.Value, 64); err == nil {
				v.SetRotation(r)
			}
		case "scale":
			if len(f) == 2 {
				v.SetScale(mathx.V2(f[0], f[1]))
			}
		}
	case *Node3D:
		switch key {
		case "position":
			if len(f) == 3 {
				v.SetPosition(mathx.V3(f[0], f[1], f[2]))
			}
		case "rotation":
			if len(f) == 4 {
				v.SetRotation(mathx.Quat{W: f[0], X: f[1], Y: f[2], Z: f[3]})
			}
		case "scale":
			if len(f) == 3 {
				v.SetScale(mathx.V3(f[0], f[1], f[2]))
			}
		}
	case *Control:
		switch key {
		case "anchors":
			if len(f) == 4 {
				v.SetAnchors(Anchors{f[0], f[1], f[2], f[3]})
			}
		case "margins":
			if len(f) == 4 {
				v.SetMargins(Margins{f[0], f[1], f[2], f[3]})
			}
		case "size":
			if len(f) == 2 {
				v.SetSize(mathx.V2(f[0], f[1]))
			}
		}
	}
}

func loadComponent(m *yaml.Node, logger log.Log) (Component, error) {
	typeTag := scalarChild(m, "type")

	c, known := NewComponent(typeTag)
	var placeholder *PlaceholderComponent
	if !known {
		// Unknown tags keep their raw field map so round-trips are
		// lossless; the placeholder stays inactive.
		placeholder = NewPlaceholder(typeTag, map[string]any{})
		c = placeholder
		logger.Warn("unknown component tag, keeping placeholder",
			log.String("type", typeTag))
	}

	err := eachKV(m, func(key string, value *yaml.Node, rawKey *yaml.Node) error {
		switch key {
		case "type":
		case "uuid":
			c.SetUUID(identity.Parse(value.Value))
		case "active":
			if placeholder != nil {
				placeholder.SavedActive = value.Value == "true"
			} else {
				c.SetActive(value.Value == "true")
			}
		case "vars":
			return loadVars(c, placeholder, value, logger)
		default:
			if base := baseOf(c); base != nil {
				base.extra = append(base.extra, extraKV{key: rawKey, value: value})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func loadVars(c Component, placeholder *PlaceholderComponent, m *yaml.Node, logger log.Log) error {
	return eachKV(m, func(name string, value *yaml.Node, rawKey *yaml.Node) error {
		if placeholder != nil {
			var raw any
			if err := value.Decode(&raw); err != nil {
				return err
			}
			placeholder.RawVars[name] = raw
			return nil
		}
		decl, ok := c.Vars().Lookup(name)
		if !ok {
			if base := baseOf(c); base != nil {
				base.extraVars = append(base.extraVars, extraKV{key: rawKey, value: value})
			}
			return nil
		}
		var raw any
		if err := value.Decode(&raw); err != nil {
			return err
		}
		v, err := vars.FromWire(decl.Kind, raw)
		if err != nil {
			logger.Warn("field value rejected",
				log.String("component", c.TypeTag()),
				log.String("field", name),
				log.Error(err))
			return nil
		}
		return c.Vars().Set(name, v)
	})
}

func baseOf(c Component) *BaseComponent {
	type hasBase interface{ componentBase() *BaseComponent }
	if b, ok := c.(hasBase); ok {
		return b.componentBase()
	}
	return nil
}

// --- yaml.Node helpers ---

func newMapNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func newSeqNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func boolNode(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

func floatNode(f float64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(f)}
}

func intNode(n int64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(n, 10)}
}

// vecNode renders a vector as a bracketed, comma-separated flow sequence.
func vecNode(fs ...float64) *yaml.Node {
	seq := newSeqNode()
	seq.Style = yaml.FlowStyle
	for _, f := range fs {
		seq.Content = append(seq.Content, floatNode(f))
	}
	return seq
}

// formatFloat keeps at least float32 round-trip precision.
func formatFloat(f float64) string {
	return strconv.FormatFloat(float64(float32(f)), 'g', -1, 32)
}

func wireNode(raw any) *yaml.Node {
	switch v := raw.(type) {
	case bool:
		return boolNode(v)
	case int32:
		return intNode(int64(v))
	case int64:
		return intNode(v)
	case int:
		return intNode(int64(v))
	case float32:
		return floatNode(float64(v))
	case float64:
		return floatNode(v)
	case string:
		return strNode(v)
	case []float32:
		fs := make([]float64, len(v))
		for i, f := range v {
			fs[i] = float64(f)
		}
		return vecNode(fs...)
	case []float64:
		return vecNode(v...)
	case []any:
		seq := newSeqNode()
		seq.Style = yaml.FlowStyle
		for _, e := range v {
			seq.Content = append(seq.Content, wireNode(e))
		}
		return seq
	default:
		n := &yaml.Node{}
		_ = n.Encode(raw)
		return n
	}
}

func appendKV(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, strNode(key), value)
}

func childValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func scalarChild(m *yaml.Node, key string) string {
	if v := childValue(m, key); v != nil {
		return v.Value
	}
	return ""
}

func eachKV(m *yaml.Node, fn func(key string, value *yaml.Node, rawKey *yaml.Node) error) error {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if err := fn(m.Content[i].Value, m.Content[i+1], m.Content[i]); err != nil {
			return err
		}
	}
	return nil
}

func floatSeq(n *yaml.Node) []float64 {
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]float64, 0, len(n.Content))
	for _, e := range n.Content {
		f, err := strconv.ParseFloat(e.Value, 64)
		if err != nil {
			return nil
		}
		out = append(out, f)
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
