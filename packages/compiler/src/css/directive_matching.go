package css

import (
	"fmt"
	"regexp"
	"strings"

	"ng2c-go/packages/compiler/src/ml_parser"
)

// selectorRegexp groups:
//
//	1 ":not("  2 tag  3 ".class"  4 attribute name
//	5/6/7 attribute value (double quoted, single quoted, bare)
//	8 ")"  9 ","
var selectorRegexp = regexp.MustCompile(
	`(\:not\()|` +
		`([-\w]+)|` +
		`(?:\.([-\w]+))|` +
		`(?:\[([-\w*]+)(?:=(?:"([^"]*)"|'([^']*)'|([^\]]*)))?\])|` +
		`(\))|` +
		`(\s*,\s*)`,
)

const (
	groupNot = iota + 1
	groupTag
	groupClass
	groupAttrName
	groupAttrValueDouble
	groupAttrValueSingle
	groupAttrValueBare
	groupNotEnd
	groupSeparator
)

// CssSelector is one simple selector: an optional element name, class
// names, attribute name/value pairs and :not() exclusions.
type CssSelector struct {
	Element      string
	ClassNames   []string
	Attrs        []string // name, value, name, value, ...
	NotSelectors []*CssSelector
}

// NewCssSelector creates an empty selector.
func NewCssSelector() *CssSelector {
	return &CssSelector{}
}

// ParseCssSelector parses a comma separated selector list.
func ParseCssSelector(selector string) ([]*CssSelector, error) {
	var results []*CssSelector
	addResult := func(sel *CssSelector) {
		if len(sel.NotSelectors) > 0 && sel.Element == "" && len(sel.ClassNames) == 0 && len(sel.Attrs) == 0 {
			sel.Element = "*"
		}
		results = append(results, sel)
	}

	cssSel := NewCssSelector()
	current := cssSel
	inNot := false
	for _, m := range selectorRegexp.FindAllStringSubmatch(selector, -1) {
		if m[groupNot] != "" {
			if inNot {
				return nil, fmt.Errorf("Nesting :not is not allowed in a selector")
			}
			inNot = true
			current = NewCssSelector()
			cssSel.NotSelectors = append(cssSel.NotSelectors, current)
		}
		if m[groupTag] != "" {
			current.SetElement(m[groupTag])
		}
		if m[groupClass] != "" {
			current.AddClassName(m[groupClass])
		}
		if m[groupAttrName] != "" {
			value := m[groupAttrValueDouble] + m[groupAttrValueSingle] + m[groupAttrValueBare]
			current.AddAttribute(m[groupAttrName], value)
		}
		if m[groupNotEnd] != "" {
			inNot = false
			current = cssSel
		}
		if m[groupSeparator] != "" {
			if inNot {
				return nil, fmt.Errorf("Multiple selectors in :not are not supported")
			}
			addResult(cssSel)
			cssSel = NewCssSelector()
			current = cssSel
		}
	}
	addResult(cssSel)
	return results, nil
}

// MustParseCssSelector is ParseCssSelector for selectors known to be valid.
func MustParseCssSelector(selector string) []*CssSelector {
	sels, err := ParseCssSelector(selector)
	if err != nil {
		panic(err)
	}
	return sels
}

// CreateElementCssSelector builds the selector an element presents to the
// matcher. attrs holds name/value pairs; namespaces are stripped and the
// class attribute contributes class names as well.
func CreateElementCssSelector(elementName string, attrs []string) *CssSelector {
	sel := NewCssSelector()
	_, name := ml_parser.SplitNsName(elementName)
	sel.SetElement(name)
	for i := 0; i+1 < len(attrs); i += 2 {
		_, attrName := ml_parser.SplitNsName(attrs[i])
		sel.AddAttribute(attrName, attrs[i+1])
		if strings.ToLower(attrs[i]) == "class" {
			for _, className := range strings.Fields(attrs[i+1]) {
				sel.AddClassName(className)
			}
		}
	}
	return sel
}

// IsElementSelector reports whether the selector is a bare element name.
func (s *CssSelector) IsElementSelector() bool {
	return s.Element != "" && len(s.ClassNames) == 0 && len(s.Attrs) == 0 && len(s.NotSelectors) == 0
}

func (s *CssSelector) SetElement(element string) {
	s.Element = element
}

// AddAttribute records an attribute; values compare case-insensitively.
func (s *CssSelector) AddAttribute(name, value string) {
	s.Attrs = append(s.Attrs, name, strings.ToLower(value))
}

func (s *CssSelector) AddClassName(name string) {
	s.ClassNames = append(s.ClassNames, strings.ToLower(name))
}

// GetAttrs returns the attribute pairs with the class list folded in
// as a class attribute.
func (s *CssSelector) GetAttrs() []string {
	var out []string
	if len(s.ClassNames) > 0 {
		out = append(out, "class", strings.Join(s.ClassNames, " "))
	}
	return append(out, s.Attrs...)
}

func (s *CssSelector) String() string {
	var b strings.Builder
	b.WriteString(s.Element)
	for _, c := range s.ClassNames {
		b.WriteString("." + c)
	}
	for i := 0; i+1 < len(s.Attrs); i += 2 {
		if s.Attrs[i+1] != "" {
			fmt.Fprintf(&b, "[%s=%s]", s.Attrs[i], s.Attrs[i+1])
		} else {
			fmt.Fprintf(&b, "[%s]", s.Attrs[i])
		}
	}
	for _, not := range s.NotSelectors {
		fmt.Fprintf(&b, ":not(%s)", not)
	}
	return b.String()
}

// MatchCallback receives each selector that matched along with the
// context it was registered with.
type MatchCallback[T any] func(selector *CssSelector, ctx T)

// SelectorMatcher indexes selectors so that an element selector can be
// matched against all of them at once.
type SelectorMatcher[T any] struct {
	elementMap          map[string][]*selectorContext[T]
	elementPartialMap   map[string]*SelectorMatcher[T]
	classMap            map[string][]*selectorContext[T]
	classPartialMap     map[string]*SelectorMatcher[T]
	attrValueMap        map[string]map[string][]*selectorContext[T]
	attrValuePartialMap map[string]map[string]*SelectorMatcher[T]
	listContexts        []*selectorListContext
}

// NewSelectorMatcher creates an empty matcher.
func NewSelectorMatcher[T any]() *SelectorMatcher[T] {
	return &SelectorMatcher[T]{
		elementMap:          map[string][]*selectorContext[T]{},
		elementPartialMap:   map[string]*SelectorMatcher[T]{},
		classMap:            map[string][]*selectorContext[T]{},
		classPartialMap:     map[string]*SelectorMatcher[T]{},
		attrValueMap:        map[string]map[string][]*selectorContext[T]{},
		attrValuePartialMap: map[string]map[string]*SelectorMatcher[T]{},
	}
}

// AddSelectables registers a selector list. A list reports at most one
// match per Match call.
func (m *SelectorMatcher[T]) AddSelectables(selectors []*CssSelector, ctx T) {
	var list *selectorListContext
	if len(selectors) > 1 {
		list = &selectorListContext{selectors: selectors}
		m.listContexts = append(m.listContexts, list)
	}
	for _, sel := range selectors {
		m.addSelectable(sel, ctx, list)
	}
}

func (m *SelectorMatcher[T]) addSelectable(sel *CssSelector, ctx T, list *selectorListContext) {
	matcher := m
	selectable := &selectorContext[T]{selector: sel, ctx: ctx, list: list}

	if sel.Element != "" {
		if len(sel.Attrs) == 0 && len(sel.ClassNames) == 0 {
			addTerminal(matcher.elementMap, sel.Element, selectable)
		} else {
			matcher = addPartial(matcher.elementPartialMap, sel.Element)
		}
	}

	for i, className := range sel.ClassNames {
		if len(sel.Attrs) == 0 && i == len(sel.ClassNames)-1 {
			addTerminal(matcher.classMap, className, selectable)
		} else {
			matcher = addPartial(matcher.classPartialMap, className)
		}
	}

	for i := 0; i+1 < len(sel.Attrs); i += 2 {
		name, value := sel.Attrs[i], sel.Attrs[i+1]
		if i == len(sel.Attrs)-2 {
			values, ok := matcher.attrValueMap[name]
			if !ok {
				values = map[string][]*selectorContext[T]{}
				matcher.attrValueMap[name] = values
			}
			addTerminal(values, value, selectable)
		} else {
			values, ok := matcher.attrValuePartialMap[name]
			if !ok {
				values = map[string]*SelectorMatcher[T]{}
				matcher.attrValuePartialMap[name] = values
			}
			matcher = addPartial(values, value)
		}
	}
}

func addTerminal[T any](m map[string][]*selectorContext[T], name string, selectable *selectorContext[T]) {
	m[name] = append(m[name], selectable)
}

func addPartial[T any](m map[string]*SelectorMatcher[T], name string) *SelectorMatcher[T] {
	matcher, ok := m[name]
	if !ok {
		matcher = NewSelectorMatcher[T]()
		m[name] = matcher
	}
	return matcher
}

// Match finds every registered selector that matches sel and calls cb
// (which may be nil) for each. It reports whether anything matched.
func (m *SelectorMatcher[T]) Match(sel *CssSelector, cb MatchCallback[T]) bool {
	result := false
	for _, list := range m.listContexts {
		list.alreadyMatched = false
	}

	result = m.matchTerminal(m.elementMap, sel.Element, sel, cb) || result
	result = m.matchPartial(m.elementPartialMap, sel.Element, sel, cb) || result

	for _, className := range sel.ClassNames {
		result = m.matchTerminal(m.classMap, className, sel, cb) || result
		result = m.matchPartial(m.classPartialMap, className, sel, cb) || result
	}

	for i := 0; i+1 < len(sel.Attrs); i += 2 {
		name, value := sel.Attrs[i], sel.Attrs[i+1]

		if terminal, ok := m.attrValueMap[name]; ok {
			if value != "" {
				result = m.matchTerminal(terminal, "", sel, cb) || result
			}
			result = m.matchTerminal(terminal, value, sel, cb) || result
		}
		if partial, ok := m.attrValuePartialMap[name]; ok {
			if value != "" {
				result = m.matchPartial(partial, "", sel, cb) || result
			}
			result = m.matchPartial(partial, value, sel, cb) || result
		}
	}
	return result
}

func (m *SelectorMatcher[T]) matchTerminal(terminals map[string][]*selectorContext[T], name string, sel *CssSelector, cb MatchCallback[T]) bool {
	selectables := append([]*selectorContext[T](nil), terminals[name]...)
	if name != "*" {
		selectables = append(selectables, terminals["*"]...)
	}
	result := false
	for _, s := range selectables {
		result = s.finalize(sel, cb) || result
	}
	return result
}

func (m *SelectorMatcher[T]) matchPartial(partials map[string]*SelectorMatcher[T], name string, sel *CssSelector, cb MatchCallback[T]) bool {
	nested, ok := partials[name]
	if !ok {
		return false
	}
	return nested.Match(sel, cb)
}

type selectorListContext struct {
	alreadyMatched bool
	selectors      []*CssSelector
}

type selectorContext[T any] struct {
	selector *CssSelector
	ctx      T
	list     *selectorListContext
}

func (c *selectorContext[T]) finalize(sel *CssSelector, cb MatchCallback[T]) bool {
	result := true
	listDone := c.list != nil && c.list.alreadyMatched
	if len(c.selector.NotSelectors) > 0 && !listDone {
		notMatcher := NewSelectorMatcher[struct{}]()
		notMatcher.AddSelectables(c.selector.NotSelectors, struct{}{})
		result = !notMatcher.Match(sel, nil)
	}
	if result && cb != nil && !listDone {
		if c.list != nil {
			c.list.alreadyMatched = true
		}
		cb(c.selector, c.ctx)
	}
	return result
}
