package change_detection

import "fmt"

// Locals are the template variables visible to a view, chained to the
// variables of the enclosing views.
type Locals struct {
	Parent  *Locals
	Current map[string]any
}

// NewLocals creates a scope on top of parent; parent may be nil.
func NewLocals(parent *Locals, current map[string]any) *Locals {
	if current == nil {
		current = map[string]any{}
	}
	return &Locals{Parent: parent, Current: current}
}

// Contains reports whether name is declared in this scope or a parent.
func (l *Locals) Contains(name string) bool {
	for s := l; s != nil; s = s.Parent {
		if _, ok := s.Current[name]; ok {
			return true
		}
	}
	return false
}

// Get returns the value of name from the nearest scope declaring it.
func (l *Locals) Get(name string) (any, error) {
	for s := l; s != nil; s = s.Parent {
		if v, ok := s.Current[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("Cannot find '%s'", name)
}

// Set updates a variable of this scope. New names cannot be added after
// construction.
func (l *Locals) Set(name string, value any) error {
	if _, ok := l.Current[name]; !ok {
		return fmt.Errorf("Setting of new keys post-construction is not supported. Key: %s.", name)
	}
	l.Current[name] = value
	return nil
}

// ClearValues resets every variable of this scope to nil.
func (l *Locals) ClearValues() {
	for k := range l.Current {
		l.Current[k] = nil
	}
}
