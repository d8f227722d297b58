package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ng2c-go/packages/compiler/src/schema"
)

func TestDomElementSchemaRegistry(t *testing.T) {
	registry := schema.NewDomElementSchemaRegistry()

	t.Run("should detect properties on regular elements", func(t *testing.T) {
		assert.True(t, registry.HasProperty("div", "id"))
		assert.True(t, registry.HasProperty("div", "title"))
		assert.True(t, registry.HasProperty("input", "value"))
		assert.True(t, registry.HasProperty("INPUT", "value"))
		assert.False(t, registry.HasProperty("div", "unknown"))
		assert.False(t, registry.HasProperty("div", "value"))
	})

	t.Run("should treat property names case sensitive", func(t *testing.T) {
		assert.True(t, registry.HasProperty("input", "readOnly"))
		assert.False(t, registry.HasProperty("input", "readonly"))
	})

	t.Run("should return true for custom-like elements", func(t *testing.T) {
		assert.True(t, registry.HasProperty("custom-like", "unknown"))
	})

	t.Run("should return true for foreign elements", func(t *testing.T) {
		assert.True(t, registry.HasProperty("@svg:circle", "cx"))
	})

	t.Run("should only allow global properties on unknown elements", func(t *testing.T) {
		assert.True(t, registry.HasProperty("foo", "id"))
		assert.False(t, registry.HasProperty("foo", "value"))
	})

	t.Run("should re-map property names that are specified in DOM facade", func(t *testing.T) {
		assert.Equal(t, "className", registry.GetMappedPropName("class"))
		assert.Equal(t, "htmlFor", registry.GetMappedPropName("for"))
		assert.Equal(t, "innerHTML", registry.GetMappedPropName("innerHtml"))
		assert.Equal(t, "readOnly", registry.GetMappedPropName("readonly"))
		assert.Equal(t, "tabIndex", registry.GetMappedPropName("tabindex"))
	})

	t.Run("should not re-map property names that are not specified in DOM facade", func(t *testing.T) {
		assert.Equal(t, "title", registry.GetMappedPropName("title"))
		assert.Equal(t, "exotic-unknown", registry.GetMappedPropName("exotic-unknown"))
	})
}

func TestMockSchemaRegistry(t *testing.T) {
	registry := schema.NewMockSchemaRegistry(map[string]bool{"invalidProp": false}, map[string]string{"mappedAttr": "mappedProp"})

	assert.False(t, registry.HasProperty("div", "invalidProp"))
	assert.True(t, registry.HasProperty("div", "anything"))
	assert.Equal(t, "mappedProp", registry.GetMappedPropName("mappedAttr"))
	assert.Equal(t, "other", registry.GetMappedPropName("other"))
}
