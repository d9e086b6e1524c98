package vars

import "fmt"

// Variable is the declared metadata plus the current value of one
// designer-editable field.
type Variable struct {
	Name        string
	Description string
	Kind        Kind
	Default     Value
	Value       Value
	EnumLabels  []string
}

// Set holds a component's variables in declaration order. Declarations are
// additive: re-declaring a name replaces metadata but keeps the current
// value. A Set is not safe for concurrent mutation; the engine tick owns it.
type Set struct {
	order []string
	vars  map[string]*Variable
}

func NewSet() *Set {
	return &Set{vars: make(map[string]*Variable)}
}

// Declare registers a variable with a default value. The value kind must
// match the declared kind.
func (s *Set) Declare(name, description string, def Value) {
	s.declare(name, description, def, nil)
}

// DeclareEnum registers an int-backed enum variable with its ordered label
// set.
func (s *Set) DeclareEnum(name, description string, def int32, labels []string) {
	s.declare(name, description, Enum(def), labels)
}

func (s *Set) declare(name, description string, def Value, labels []string) {
	if existing, ok := s.vars[name]; ok {
		existing.Description = description
		existing.Kind = def.Kind
		existing.Default = def
		existing.EnumLabels = labels
		return
	}
	s.order = append(s.order, name)
	s.vars[name] = &Variable{
		Name:        name,
		Description: description,
		Kind:        def.Kind,
		Default:     def,
		Value:       def,
		EnumLabels:  labels,
	}
}

// Get returns the current value of a variable.
func (s *Set) Get(name string) (Value, bool) {
	v, ok := s.vars[name]
	if !ok {
		return Value{}, false
	}
	return v.Value, true
}

// Set assigns a new value. On a kind mismatch or unknown name the call fails
// and the stored value is unchanged.
func (s *Set) Set(name string, value Value) error {
	v, ok := s.vars[name]
	if !ok {
		return fmt.Errorf("vars: no variable %q", name)
	}
	if v.Kind != value.Kind {
		return fmt.Errorf("vars: %q holds %s, got %s", name, v.Kind, value.Kind)
	}
	v.Value = value
	return nil
}

// Reset restores a variable to its default.
func (s *Set) Reset(name string) error {
	v, ok := s.vars[name]
	if !ok {
		return fmt.Errorf("vars: no variable %q", name)
	}
	v.Value = v.Default
	return nil
}

// Names returns variable names in declaration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Lookup returns the full variable record.
func (s *Set) Lookup(name string) (*Variable, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Each visits variables in declaration order.
func (s *Set) Each(fn func(*Variable)) {
	for _, name := range s.order {
		fn(s.vars[name])
	}
}

func (s *Set) Len() int { return len(s.order) }
