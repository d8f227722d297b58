package schema

import (
	"fmt"
	"strings"

	"golang.org/x/net/html/atom"

	"ng2c-go/packages/compiler/src/ml_parser"
)

var attrToPropMap = map[string]string{
	"class":     "className",
	"for":       "htmlFor",
	"innerHtml": "innerHTML",
	"readonly":  "readOnly",
	"tabindex":  "tabIndex",
}

// Properties every HTML element exposes.
var globalProperties = []string{
	"id", "className", "classList", "title", "lang", "dir", "hidden",
	"tabIndex", "accessKey", "draggable", "spellcheck", "translate",
	"contentEditable", "style", "innerHTML", "outerHTML", "innerText",
	"textContent", "scrollTop", "scrollLeft",
}

var elementProperties = map[string][]string{
	"a":          {"href", "target", "rel", "download", "hreflang", "type", "ping"},
	"area":       {"href", "alt", "shape", "coords", "target", "download", "rel"},
	"audio":      {"src", "autoplay", "controls", "loop", "muted", "preload", "currentTime", "volume", "crossOrigin"},
	"base":       {"href", "target"},
	"blockquote": {"cite"},
	"button":     {"disabled", "type", "name", "value", "autofocus", "formAction", "formMethod"},
	"canvas":     {"width", "height"},
	"col":        {"span"},
	"colgroup":   {"span"},
	"del":        {"cite", "dateTime"},
	"details":    {"open"},
	"embed":      {"src", "type", "width", "height"},
	"fieldset":   {"disabled", "name"},
	"form":       {"action", "method", "target", "noValidate", "enctype", "name", "acceptCharset", "autocomplete"},
	"iframe":     {"src", "srcdoc", "name", "width", "height", "sandbox", "allowFullscreen"},
	"img":        {"src", "alt", "width", "height", "srcset", "sizes", "useMap", "isMap", "crossOrigin"},
	"input": {
		"value", "checked", "disabled", "type", "name", "placeholder", "readOnly",
		"required", "min", "max", "step", "pattern", "multiple", "size", "maxLength",
		"autofocus", "src", "alt", "accept", "autocomplete", "defaultValue",
		"defaultChecked", "indeterminate", "list", "width", "height", "formAction",
	},
	"ins":      {"cite", "dateTime"},
	"label":    {"htmlFor"},
	"li":       {"value"},
	"link":     {"href", "rel", "type", "media", "hreflang", "sizes", "crossOrigin"},
	"meta":     {"name", "content", "httpEquiv"},
	"meter":    {"value", "min", "max", "low", "high", "optimum"},
	"object":   {"data", "type", "name", "width", "height", "useMap"},
	"ol":       {"start", "reversed", "type"},
	"optgroup": {"disabled", "label"},
	"option":   {"value", "selected", "disabled", "label", "text", "defaultSelected"},
	"output":   {"htmlFor", "name", "value"},
	"param":    {"name", "value"},
	"progress": {"value", "max"},
	"q":        {"cite"},
	"script":   {"src", "type", "async", "defer", "text", "crossOrigin"},
	"select":   {"value", "disabled", "multiple", "name", "required", "size", "selectedIndex", "autofocus"},
	"source":   {"src", "type", "media", "srcset", "sizes"},
	"style":    {"media", "type"},
	"table":    {"border", "caption", "tHead", "tFoot"},
	"td":       {"colSpan", "rowSpan", "headers"},
	"textarea": {"value", "disabled", "readOnly", "rows", "cols", "name", "placeholder", "required", "maxLength", "wrap", "autofocus", "defaultValue"},
	"th":       {"colSpan", "rowSpan", "headers", "scope", "abbr"},
	"time":     {"dateTime"},
	"track":    {"src", "kind", "label", "srclang", "default"},
	"video":    {"src", "autoplay", "controls", "loop", "muted", "preload", "currentTime", "volume", "poster", "width", "height", "crossOrigin"},
}

// DomElementSchemaRegistry knows the native properties of the HTML
// elements. Custom elements (names containing "-") and foreign elements
// accept any property.
type DomElementSchemaRegistry struct {
	global    map[string]bool
	byElement map[atom.Atom]map[string]bool
}

var _ ElementSchemaRegistry = (*DomElementSchemaRegistry)(nil)

// NewDomElementSchemaRegistry creates a new DomElementSchemaRegistry
func NewDomElementSchemaRegistry() *DomElementSchemaRegistry {
	r := &DomElementSchemaRegistry{
		global:    make(map[string]bool, len(globalProperties)),
		byElement: make(map[atom.Atom]map[string]bool, len(elementProperties)),
	}
	for _, p := range globalProperties {
		r.global[p] = true
	}
	for tag, props := range elementProperties {
		a := atom.Lookup([]byte(tag))
		if a == 0 {
			panic(fmt.Sprintf("schema: %q is not an HTML element", tag))
		}
		set := make(map[string]bool, len(props))
		for _, p := range props {
			set[p] = true
		}
		r.byElement[a] = set
	}
	return r
}

func (r *DomElementSchemaRegistry) HasProperty(tagName, propName string) bool {
	if strings.Contains(tagName, "-") {
		return true
	}
	if ml_parser.GetNsPrefix(tagName) != "" {
		return true
	}
	if r.global[propName] {
		return true
	}
	a := atom.Lookup([]byte(strings.ToLower(tagName)))
	if a == 0 {
		return false
	}
	return r.byElement[a][propName]
}

func (r *DomElementSchemaRegistry) GetMappedPropName(attrName string) string {
	if mapped, ok := attrToPropMap[attrName]; ok {
		return mapped
	}
	return attrName
}
