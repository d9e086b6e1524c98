// Package vars implements the designer-editable variables components expose
// to the editor: typed, named values with defaults, descriptions and enum
// label sets.
package vars

import (
	"fmt"

	"github.com/lupine-engine/lupine/internal/core/identity"
	"github.com/lupine-engine/lupine/internal/core/mathx"
)

// Kind tags the value union.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	KindVec2
	KindVec3
	KindVec4
	KindEnum
	KindFilePath
	KindNodeRef
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindVec2:
		return "vec2"
	case KindVec3:
		return "vec3"
	case KindVec4:
		return "vec4"
	case KindEnum:
		return "enum"
	case KindFilePath:
		return "file_path"
	case KindNodeRef:
		return "node_ref"
	default:
		return "unknown"
	}
}

// KindFromString is the inverse of Kind.String. Unknown names report false.
func KindFromString(s string) (Kind, bool) {
	for k := KindBool; k <= KindNodeRef; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Value is the tagged union variable values live in. Exactly the member
// selected by Kind is meaningful.
type Value struct {
	Kind Kind

	Bool  bool
	Int   int32
	Float float32
	Str   string
	V2    mathx.Vec2
	V3    mathx.Vec3
	V4    mathx.Vec4
	Ref   identity.UUID
}

func Bool(v bool) Value            { return Value{Kind: KindBool, Bool: v} }
func Int(v int32) Value            { return Value{Kind: KindInt, Int: v} }
func Float(v float32) Value        { return Value{Kind: KindFloat, Float: v} }
func String(v string) Value        { return Value{Kind: KindString, Str: v} }
func Vec2(v mathx.Vec2) Value      { return Value{Kind: KindVec2, V2: v} }
func Vec3(v mathx.Vec3) Value      { return Value{Kind: KindVec3, V3: v} }
func Vec4(v mathx.Vec4) Value      { return Value{Kind: KindVec4, V4: v} }
func Enum(v int32) Value           { return Value{Kind: KindEnum, Int: v} }
func FilePath(v string) Value      { return Value{Kind: KindFilePath, Str: v} }
func NodeRef(v identity.UUID) Value { return Value{Kind: KindNodeRef, Ref: v} }

// Wire converts the value to the plain structure serializers emit. Vectors
// become float32 slices so both JSON and YAML print them as bracketed,
// comma-separated lists with 32-bit round-trip precision.
func (v Value) Wire() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt, KindEnum:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString, KindFilePath:
		return v.Str
	case KindVec2:
		return []float32{float32(v.V2.X), float32(v.V2.Y)}
	case KindVec3:
		return []float32{float32(v.V3.X), float32(v.V3.Y), float32(v.V3.Z)}
	case KindVec4:
		return []float32{float32(v.V4.X), float32(v.V4.Y), float32(v.V4.Z), float32(v.V4.W)}
	case KindNodeRef:
		return v.Ref.String()
	default:
		return nil
	}
}

// FromWire rebuilds a value of the given kind from a deserialized wire
// shape. Numbers arrive as any of the int/float types the decoder chose.
func FromWire(kind Kind, raw any) (Value, error) {
	switch kind {
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("vars: %v is not a bool", raw)
		}
		return Bool(b), nil
	case KindInt, KindEnum:
		n, ok := toInt64(raw)
		if !ok {
			return Value{}, fmt.Errorf("vars: %v is not an int", raw)
		}
		return Value{Kind: kind, Int: int32(n)}, nil
	case KindFloat:
		f, ok := toFloat64(raw)
		if !ok {
			return Value{}, fmt.Errorf("vars: %v is not a float", raw)
		}
		return Float(float32(f)), nil
	case KindString, KindFilePath:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("vars: %v is not a string", raw)
		}
		return Value{Kind: kind, Str: s}, nil
	case KindVec2:
		f, err := toFloats(raw, 2)
		if err != nil {
			return Value{}, err
		}
		return Vec2(mathx.V2(f[0], f[1])), nil
	case KindVec3:
		f, err := toFloats(raw, 3)
		if err != nil {
			return Value{}, err
		}
		return Vec3(mathx.V3(f[0], f[1], f[2])), nil
	case KindVec4:
		f, err := toFloats(raw, 4)
		if err != nil {
			return Value{}, err
		}
		return Vec4(mathx.V4(f[0], f[1], f[2], f[3])), nil
	case KindNodeRef:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("vars: %v is not a node reference", raw)
		}
		return NodeRef(identity.Parse(s)), nil
	default:
		return Value{}, fmt.Errorf("vars: unknown kind %d", kind)
	}
}

func toInt64(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toFloats(raw any, want int) ([]float64, error) {
	var out []float64
	switch seq := raw.(type) {
	case []float32:
		for _, f := range seq {
			out = append(out, float64(f))
		}
	case []float64:
		out = seq
	case []any:
		for _, e := range seq {
			f, ok := toFloat64(e)
			if !ok {
				return nil, fmt.Errorf("vars: %v is not a number", e)
			}
			out = append(out, f)
		}
	default:
		return nil, fmt.Errorf("vars: %v is not a vector", raw)
	}
	if len(out) != want {
		return nil, fmt.Errorf("vars: vector has %d components, want %d", len(out), want)
	}
	return out, nil
}
