package template_parser

import (
	"strings"

	"ng2c-go/packages/compiler/src/ml_parser"
)

const (
	ngContentSelectAttr = "select"
	ngContentElement    = "ng-content"
	linkElement         = "link"
	linkStyleRelAttr    = "rel"
	linkStyleHrefAttr   = "href"
	linkStyleRelValue   = "stylesheet"
	styleElement        = "style"
	scriptElement       = "script"
	ngNonBindableAttr   = "ngNonBindable"
	ngProjectAsAttr     = "ngProjectAs"
)

// PreparsedElementType classifies an element before binding resolution.
type PreparsedElementType int

const (
	PreparsedElementNgContent PreparsedElementType = iota
	PreparsedElementStyle
	PreparsedElementStylesheet
	PreparsedElementScript
	PreparsedElementOther
)

// PreparsedElement is what the template parser needs to know about an
// element before looking at its bindings.
type PreparsedElement struct {
	Type        PreparsedElementType
	SelectAttr  string
	HrefAttr    string
	NonBindable bool
	ProjectAs   string
}

// PreparseElement classifies element. Attribute names other than
// ngNonBindable and ngProjectAs compare case-insensitively.
func PreparseElement(element *ml_parser.Element) *PreparsedElement {
	var selectAttr, hrefAttr, relAttr, projectAs string
	nonBindable := false
	for _, attr := range element.Attrs {
		switch lc := strings.ToLower(attr.Name); {
		case lc == ngContentSelectAttr:
			selectAttr = attr.Value
		case lc == linkStyleHrefAttr:
			hrefAttr = attr.Value
		case lc == linkStyleRelAttr:
			relAttr = attr.Value
		case attr.Name == ngNonBindableAttr:
			nonBindable = true
		case attr.Name == ngProjectAsAttr:
			projectAs = attr.Value
		}
	}
	if selectAttr == "" {
		selectAttr = "*"
	}

	nodeName := strings.ToLower(element.Name)
	elementType := PreparsedElementOther
	_, localName := ml_parser.SplitNsName(nodeName)
	switch {
	case localName == ngContentElement:
		elementType = PreparsedElementNgContent
	case nodeName == styleElement:
		elementType = PreparsedElementStyle
	case nodeName == scriptElement:
		elementType = PreparsedElementScript
	case nodeName == linkElement && relAttr == linkStyleRelValue:
		elementType = PreparsedElementStylesheet
	}
	return &PreparsedElement{
		Type:        elementType,
		SelectAttr:  selectAttr,
		HrefAttr:    hrefAttr,
		NonBindable: nonBindable,
		ProjectAs:   projectAs,
	}
}
