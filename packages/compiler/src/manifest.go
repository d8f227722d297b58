package compiler

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	cd "ng2c-go/packages/compiler/src/change_detection"
	"ng2c-go/packages/compiler/src/errors"
	tp "ng2c-go/packages/compiler/src/template_parser"
)

// ManifestSuffixes are the file name endings of component manifests.
var ManifestSuffixes = []string{".component.yaml", ".component.yml"}

// ComponentSource describes one component: its template and the
// directives and pipes the template may use. It is read from a YAML
// component manifest.
type ComponentSource struct {
	Name            string            `yaml:"name"`
	Selector        string            `yaml:"selector"`
	ChangeDetection string            `yaml:"changeDetection"`
	Template        string            `yaml:"template"`
	TemplateURL     string            `yaml:"templateUrl"`
	Directives      []DirectiveSource `yaml:"directives"`
	Pipes           []PipeSource      `yaml:"pipes"`
	// Context is the component state the detect command binds against.
	Context map[string]any `yaml:"context"`

	// Path is the manifest file, empty for sources built in code.
	Path string `yaml:"-"`
}

// DirectiveSource is a directive entry of a manifest.
type DirectiveSource struct {
	Name               string            `yaml:"name"`
	Selector           string            `yaml:"selector"`
	IsComponent        bool              `yaml:"isComponent"`
	ExportAs           string            `yaml:"exportAs"`
	ChangeDetection    string            `yaml:"changeDetection"`
	Inputs             []string          `yaml:"inputs"`
	Outputs            []string          `yaml:"outputs"`
	Host               map[string]string `yaml:"host"`
	LifecycleHooks     []string          `yaml:"lifecycleHooks"`
	NgContentSelectors []string          `yaml:"ngContentSelectors"`
}

// PipeSource is a pipe entry of a manifest. Pure defaults to true.
type PipeSource struct {
	Name string `yaml:"name"`
	Pure *bool  `yaml:"pure"`
}

// LoadComponentManifest reads a manifest. A templateUrl is resolved
// relative to the manifest and read into Template.
func LoadComponentManifest(path string) (*ComponentSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "MANIFEST_READ", "failed to read manifest").
			WithLocation(path, 0, 0)
	}

	var src ComponentSource
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&src); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "MANIFEST_PARSE", "invalid manifest").
			WithLocation(path, 0, 0)
	}
	src.Path = path

	if src.Name == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "MANIFEST_NAME", "manifest has no name").
			WithLocation(path, 0, 0)
	}
	if src.TemplateURL != "" {
		if src.Template != "" {
			return nil, errors.New(errors.ErrorTypeConfig, "MANIFEST_TEMPLATE",
				"template and templateUrl are mutually exclusive").WithComponent(src.Name).WithLocation(path, 0, 0)
		}
		templatePath := filepath.Join(filepath.Dir(path), src.TemplateURL)
		content, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "TEMPLATE_READ", "failed to read template").
				WithComponent(src.Name).WithLocation(templatePath, 0, 0)
		}
		src.Template = string(content)
	}
	return &src, nil
}

// TemplateURL names the template in diagnostics.
func (s *ComponentSource) templateURL() string {
	switch {
	case s.TemplateURL != "" && s.Path != "":
		return filepath.Join(filepath.Dir(s.Path), s.TemplateURL)
	case s.Path != "":
		return s.Path
	}
	return s.Name
}

// Strategy is the component's change detection strategy, Default when
// unset.
func (s *ComponentSource) Strategy() (cd.ChangeDetectionStrategy, error) {
	return parseStrategy(s.ChangeDetection)
}

// Metadata converts the directive and pipe entries.
func (s *ComponentSource) Metadata() ([]*tp.CompileDirectiveMetadata, []*tp.CompilePipeMetadata, error) {
	directives := make([]*tp.CompileDirectiveMetadata, 0, len(s.Directives))
	for _, d := range s.Directives {
		meta, err := d.metadata()
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrorTypeConfig, "MANIFEST_DIRECTIVE",
				"invalid directive "+d.Name).WithComponent(s.Name)
		}
		directives = append(directives, meta)
	}
	pipes := make([]*tp.CompilePipeMetadata, 0, len(s.Pipes))
	for _, p := range s.Pipes {
		pure := p.Pure == nil || *p.Pure
		pipes = append(pipes, &tp.CompilePipeMetadata{Type: &tp.CompileTypeMetadata{Name: p.Name}, Name: p.Name, Pure: pure})
	}
	return directives, pipes, nil
}

func (d DirectiveSource) metadata() (*tp.CompileDirectiveMetadata, error) {
	strategy, err := parseStrategy(d.ChangeDetection)
	if err != nil {
		return nil, err
	}
	hooks := make([]cd.LifecycleHook, 0, len(d.LifecycleHooks))
	for _, name := range d.LifecycleHooks {
		hook, ok := cd.ParseLifecycleHook(strings.TrimPrefix(name, "ng"))
		if !ok {
			return nil, fmt.Errorf("unknown lifecycle hook %q", name)
		}
		hooks = append(hooks, hook)
	}
	opts := tp.DirectiveOptions{
		Type:            &tp.CompileTypeMetadata{Name: d.Name},
		IsComponent:     d.IsComponent,
		Selector:        d.Selector,
		ExportAs:        d.ExportAs,
		ChangeDetection: strategy,
		Inputs:          d.Inputs,
		Outputs:         d.Outputs,
		Host:            d.Host,
		LifecycleHooks:  hooks,
	}
	if d.IsComponent {
		opts.Template = &tp.CompileTemplateMetadata{NgContentSelectors: d.NgContentSelectors}
	}
	return tp.CreateDirectiveMetadata(opts), nil
}

func parseStrategy(name string) (cd.ChangeDetectionStrategy, error) {
	if name == "" {
		return cd.Default, nil
	}
	strategy, ok := cd.ParseChangeDetectionStrategy(name)
	if !ok || (strategy != cd.Default && strategy != cd.OnPush) {
		return cd.Default, fmt.Errorf("unknown change detection strategy %q", name)
	}
	return strategy, nil
}

// IsManifest reports whether path names a component manifest.
func IsManifest(path string) bool {
	return slices.ContainsFunc(ManifestSuffixes, func(suffix string) bool {
		return strings.HasSuffix(path, suffix)
	})
}

// DiscoverManifests finds the component manifests under root, skipping
// directories and files whose base name matches one of exclude.
func DiscoverManifests(root string, exclude []string) ([]string, error) {
	var manifests []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && excluded(d.Name(), exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsManifest(path) {
			manifests = append(manifests, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "DISCOVER", "failed to scan for manifests").
			WithLocation(root, 0, 0)
	}
	return manifests, nil
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
