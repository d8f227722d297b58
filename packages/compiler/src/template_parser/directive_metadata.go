package template_parser

import (
	"regexp"
	"sort"

	"ng2c-go/packages/compiler/src/change_detection"
	"ng2c-go/packages/compiler/src/util"
)

// hostRegexp groups: 1 [property]  2 (event)
var hostRegexp = regexp.MustCompile(`^(?:(?:\[([^\]]+)\])|(?:\(([^\)]+)\)))$`)

// CompileTypeMetadata identifies a directive, component or pipe class.
type CompileTypeMetadata struct {
	Name      string
	ModuleURL string
	IsHost    bool
}

// CompileTemplateMetadata is the part of a component's template the
// template parser needs.
type CompileTemplateMetadata struct {
	Template           string
	TemplateURL        string
	Styles             []string
	StyleURLs          []string
	NgContentSelectors []string
}

// BindingAlias maps a directive property to the name it is bound through
// in templates, e.g. inputs: ["dirProp: elProp"].
type BindingAlias struct {
	DirectiveProp string
	TemplateName  string
}

// HostBinding is one entry of a directive's host map.
type HostBinding struct {
	Name  string
	Value string
}

// CompileDirectiveMetadata describes a directive or component as far as
// template compilation is concerned.
type CompileDirectiveMetadata struct {
	Type            *CompileTypeMetadata
	IsComponent     bool
	Selector        string
	ExportAs        string
	ChangeDetection change_detection.ChangeDetectionStrategy
	Inputs          []BindingAlias
	Outputs         []BindingAlias
	HostListeners   []HostBinding
	HostProperties  []HostBinding
	HostAttributes  []HostBinding
	LifecycleHooks  []change_detection.LifecycleHook
	Template        *CompileTemplateMetadata
}

// DirectiveOptions is the unnormalized form accepted by
// CreateDirectiveMetadata.
type DirectiveOptions struct {
	Type            *CompileTypeMetadata
	IsComponent     bool
	Selector        string
	ExportAs        string
	ChangeDetection change_detection.ChangeDetectionStrategy
	// Inputs and Outputs hold "prop" or "prop: alias" entries.
	Inputs  []string
	Outputs []string
	// Host maps "[prop]" to an expression, "(event)" to a handler and any
	// other key to a static attribute value.
	Host           map[string]string
	LifecycleHooks []change_detection.LifecycleHook
	Template       *CompileTemplateMetadata
}

// CreateDirectiveMetadata normalizes opts: input and output aliases are
// split and the host map is sorted into properties, listeners and
// attributes. Host entries are ordered by key.
func CreateDirectiveMetadata(opts DirectiveOptions) *CompileDirectiveMetadata {
	m := &CompileDirectiveMetadata{
		Type:            opts.Type,
		IsComponent:     opts.IsComponent,
		Selector:        opts.Selector,
		ExportAs:        opts.ExportAs,
		ChangeDetection: opts.ChangeDetection,
		Inputs:          parseAliases(opts.Inputs),
		Outputs:         parseAliases(opts.Outputs),
		LifecycleHooks:  opts.LifecycleHooks,
		Template:        opts.Template,
	}
	if m.Type == nil {
		m.Type = &CompileTypeMetadata{}
	}

	keys := make([]string, 0, len(opts.Host))
	for k := range opts.Host {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := opts.Host[key]
		match := hostRegexp.FindStringSubmatch(key)
		switch {
		case match == nil:
			m.HostAttributes = append(m.HostAttributes, HostBinding{Name: key, Value: value})
		case match[1] != "":
			m.HostProperties = append(m.HostProperties, HostBinding{Name: match[1], Value: value})
		default:
			m.HostListeners = append(m.HostListeners, HostBinding{Name: match[2], Value: value})
		}
	}
	return m
}

func parseAliases(configs []string) []BindingAlias {
	if len(configs) == 0 {
		return nil
	}
	out := make([]BindingAlias, 0, len(configs))
	for _, config := range configs {
		parts := util.SplitAtColon(config, []string{config, config})
		out = append(out, BindingAlias{DirectiveProp: parts[0], TemplateName: parts[1]})
	}
	return out
}

// HasLifecycleHook reports whether the directive implements hook.
func (m *CompileDirectiveMetadata) HasLifecycleHook(hook change_detection.LifecycleHook) bool {
	for _, h := range m.LifecycleHooks {
		if h == hook {
			return true
		}
	}
	return false
}

// NgContentSelectors returns the projection selectors of a component.
func (m *CompileDirectiveMetadata) NgContentSelectors() []string {
	if m.Template == nil {
		return nil
	}
	return m.Template.NgContentSelectors
}

func (m *CompileDirectiveMetadata) String() string {
	return m.Type.Name
}

// CompilePipeMetadata describes a pipe available to a template.
type CompilePipeMetadata struct {
	Type *CompileTypeMetadata
	Name string
	Pure bool
}
