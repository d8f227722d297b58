package ml_parser

import (
	"regexp"
	"strings"
)

// TagContentType describes how the body of an element is tokenized.
type TagContentType int

const (
	TagContentTypeRawText TagContentType = iota
	TagContentTypeEscapableRawText
	TagContentTypeParsableData
)

// TagDefinition describes the parsing rules of one element name.
type TagDefinition interface {
	ClosedByParent() bool
	RequireExtraParent(currentParent string) bool
	ParentToAdd() string
	ImplicitNamespacePrefix() string
	ContentType() TagContentType
	IsVoid() bool
	IgnoreFirstLf() bool
	IsClosedByChild(name string) bool
}

var nsPrefixRegexp = regexp.MustCompile(`^@([^:]+):(.+)`)

// SplitNsName splits "@ns:name" into its namespace and local name. Names
// without a namespace return an empty prefix.
func SplitNsName(elementName string) (string, string) {
	if !strings.HasPrefix(elementName, "@") {
		return "", elementName
	}
	match := nsPrefixRegexp.FindStringSubmatch(elementName)
	if match == nil {
		return "", elementName
	}
	return match[1], match[2]
}

// GetNsPrefix returns the namespace of a full element name, or "".
func GetNsPrefix(elementName string) string {
	prefix, _ := SplitNsName(elementName)
	return prefix
}

// MergeNsAndName builds "@prefix:name", or just name for an empty prefix.
func MergeNsAndName(prefix, localName string) string {
	if prefix == "" {
		return localName
	}
	return "@" + prefix + ":" + localName
}

// IsNgContent reports whether the element is an <ng-content> slot.
func IsNgContent(tagName string) bool {
	_, name := SplitNsName(tagName)
	return name == "ng-content"
}

// IsTemplateElement reports whether the element is a <template>.
func IsTemplateElement(tagName string) bool {
	_, name := SplitNsName(tagName)
	return strings.EqualFold(name, "template")
}
