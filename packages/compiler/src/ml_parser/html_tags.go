package ml_parser

import "strings"

// HtmlTagDefinition implements TagDefinition for HTML elements.
type HtmlTagDefinition struct {
	closedByChildren        map[string]bool
	requiredParents         map[string]bool
	parentToAdd             string
	closedByParent          bool
	implicitNamespacePrefix string
	contentType             TagContentType
	isVoid                  bool
	ignoreFirstLf           bool
}

// HtmlTagDefinitionOptions are options for creating an HtmlTagDefinition
type HtmlTagDefinitionOptions struct {
	ClosedByChildren []string
	// RequiredParents lists acceptable parents; the first one is inserted
	// when the element appears anywhere else.
	RequiredParents         []string
	ClosedByParent          bool
	ImplicitNamespacePrefix string
	ContentType             *TagContentType
	IsVoid                  bool
	IgnoreFirstLf           bool
}

// NewHtmlTagDefinition creates a new HtmlTagDefinition
func NewHtmlTagDefinition(opts HtmlTagDefinitionOptions) *HtmlTagDefinition {
	def := &HtmlTagDefinition{
		closedByChildren:        make(map[string]bool, len(opts.ClosedByChildren)),
		closedByParent:          opts.ClosedByParent || opts.IsVoid,
		implicitNamespacePrefix: opts.ImplicitNamespacePrefix,
		contentType:             TagContentTypeParsableData,
		isVoid:                  opts.IsVoid,
		ignoreFirstLf:           opts.IgnoreFirstLf,
	}
	for _, tagName := range opts.ClosedByChildren {
		def.closedByChildren[tagName] = true
	}
	if len(opts.RequiredParents) > 0 {
		def.requiredParents = make(map[string]bool, len(opts.RequiredParents))
		def.parentToAdd = opts.RequiredParents[0]
		for _, tagName := range opts.RequiredParents {
			def.requiredParents[tagName] = true
		}
	}
	if opts.ContentType != nil {
		def.contentType = *opts.ContentType
	}
	return def
}

func (h *HtmlTagDefinition) ClosedByParent() bool            { return h.closedByParent }
func (h *HtmlTagDefinition) ParentToAdd() string             { return h.parentToAdd }
func (h *HtmlTagDefinition) ImplicitNamespacePrefix() string { return h.implicitNamespacePrefix }
func (h *HtmlTagDefinition) ContentType() TagContentType     { return h.contentType }
func (h *HtmlTagDefinition) IsVoid() bool                    { return h.isVoid }
func (h *HtmlTagDefinition) IgnoreFirstLf() bool             { return h.ignoreFirstLf }

// RequireExtraParent reports whether an implicit parent has to be inserted
// above this element. A template parent never gets one.
func (h *HtmlTagDefinition) RequireExtraParent(currentParent string) bool {
	if h.requiredParents == nil {
		return false
	}
	if currentParent == "" {
		return true
	}
	lcParent := strings.ToLower(currentParent)
	return !h.requiredParents[lcParent] && lcParent != "template"
}

// IsClosedByChild reports whether opening name implicitly closes this element.
func (h *HtmlTagDefinition) IsClosedByChild(name string) bool {
	return h.isVoid || h.closedByChildren[strings.ToLower(name)]
}

var (
	defaultTagDefinition = NewHtmlTagDefinition(HtmlTagDefinitionOptions{})
	tagDefinitions       = buildHtmlTagDefinitions()
)

// GetHtmlTagDefinition returns the definition for tagName, falling back to a
// permissive default for unknown elements.
func GetHtmlTagDefinition(tagName string) TagDefinition {
	if def, ok := tagDefinitions[strings.ToLower(tagName)]; ok {
		return def
	}
	return defaultTagDefinition
}

func buildHtmlTagDefinitions() map[string]*HtmlTagDefinition {
	rawText := TagContentTypeRawText
	escapable := TagContentTypeEscapableRawText

	defs := map[string]*HtmlTagDefinition{
		"p": NewHtmlTagDefinition(HtmlTagDefinitionOptions{
			ClosedByChildren: []string{
				"address", "article", "aside", "blockquote", "div", "dl", "fieldset",
				"footer", "form", "h1", "h2", "h3", "h4", "h5", "h6", "header",
				"hgroup", "hr", "main", "nav", "ol", "p", "pre", "section", "table", "ul",
			},
			ClosedByParent: true,
		}),
		"thead": NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"tbody", "tfoot"}}),
		"tbody": NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"tbody", "tfoot"}, ClosedByParent: true}),
		"tfoot": NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"tbody"}, ClosedByParent: true}),
		"tr": NewHtmlTagDefinition(HtmlTagDefinitionOptions{
			ClosedByChildren: []string{"tr"},
			RequiredParents:  []string{"tbody", "tfoot", "thead"},
			ClosedByParent:   true,
		}),
		"td":       NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"td", "th"}, ClosedByParent: true}),
		"th":       NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"td", "th"}, ClosedByParent: true}),
		"col":      NewHtmlTagDefinition(HtmlTagDefinitionOptions{RequiredParents: []string{"colgroup"}, IsVoid: true}),
		"svg":      NewHtmlTagDefinition(HtmlTagDefinitionOptions{ImplicitNamespacePrefix: "svg"}),
		"math":     NewHtmlTagDefinition(HtmlTagDefinitionOptions{ImplicitNamespacePrefix: "math"}),
		"li":       NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"li"}, ClosedByParent: true}),
		"dt":       NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"dt", "dd"}}),
		"dd":       NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"dt", "dd"}, ClosedByParent: true}),
		"rb":       NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"rb", "rt", "rtc", "rp"}, ClosedByParent: true}),
		"rt":       NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"rb", "rt", "rtc", "rp"}, ClosedByParent: true}),
		"rtc":      NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"rb", "rtc", "rp"}, ClosedByParent: true}),
		"rp":       NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"rb", "rt", "rtc", "rp"}, ClosedByParent: true}),
		"optgroup": NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"optgroup"}, ClosedByParent: true}),
		"option":   NewHtmlTagDefinition(HtmlTagDefinitionOptions{ClosedByChildren: []string{"option", "optgroup"}, ClosedByParent: true}),
		"pre":      NewHtmlTagDefinition(HtmlTagDefinitionOptions{IgnoreFirstLf: true}),
		"listing":  NewHtmlTagDefinition(HtmlTagDefinitionOptions{IgnoreFirstLf: true}),
		"style":    NewHtmlTagDefinition(HtmlTagDefinitionOptions{ContentType: &rawText}),
		"script":   NewHtmlTagDefinition(HtmlTagDefinitionOptions{ContentType: &rawText}),
		"title":    NewHtmlTagDefinition(HtmlTagDefinitionOptions{ContentType: &escapable}),
		"textarea": NewHtmlTagDefinition(HtmlTagDefinitionOptions{ContentType: &escapable, IgnoreFirstLf: true}),
	}

	for _, tag := range []string{
		"base", "meta", "area", "embed", "link", "img", "input", "param",
		"hr", "br", "source", "track", "wbr",
	} {
		defs[tag] = NewHtmlTagDefinition(HtmlTagDefinitionOptions{IsVoid: true})
	}
	return defs
}
