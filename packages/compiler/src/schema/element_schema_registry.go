package schema

// ElementSchemaRegistry answers which native properties an element has.
// The template parser consults it read-only when validating element
// property bindings.
type ElementSchemaRegistry interface {
	// HasProperty reports whether tagName has a native property propName.
	HasProperty(tagName, propName string) bool

	// GetMappedPropName maps an attribute name to its property name,
	// e.g. "class" to "className".
	GetMappedPropName(attrName string) string
}

// MockSchemaRegistry answers from fixed tables. Properties missing from
// existingProperties are assumed to exist.
type MockSchemaRegistry struct {
	existingProperties map[string]bool
	attrPropMapping    map[string]string
}

var _ ElementSchemaRegistry = (*MockSchemaRegistry)(nil)

// NewMockSchemaRegistry creates a new MockSchemaRegistry
func NewMockSchemaRegistry(existingProperties map[string]bool, attrPropMapping map[string]string) *MockSchemaRegistry {
	return &MockSchemaRegistry{existingProperties: existingProperties, attrPropMapping: attrPropMapping}
}

func (r *MockSchemaRegistry) HasProperty(tagName, propName string) bool {
	if exists, ok := r.existingProperties[propName]; ok {
		return exists
	}
	return true
}

func (r *MockSchemaRegistry) GetMappedPropName(attrName string) string {
	if mapped, ok := r.attrPropMapping[attrName]; ok {
		return mapped
	}
	return attrName
}
