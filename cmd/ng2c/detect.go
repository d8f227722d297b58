package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ng2c-go/packages/common/pipes"
	cd "ng2c-go/packages/compiler/src/change_detection"
	"ng2c-go/packages/compiler/src/logging"
)

type detectPass struct {
	Pass    int      `yaml:"pass"`
	Updates []string `yaml:"updates"`
}

func newDetectCmd(a *app) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "detect <manifest>",
		Short: "Run change detection over a component view",
		Long: `Compile a component, hydrate its view detector with the manifest's
context and run change detection, printing every binding update. Each
--set name=value changes the context and runs one more pass, so only the
bindings depending on it are updated. In dev mode every pass is followed
by a checkNoChanges pass.`,
		Example: `  ng2c detect hero.component.yaml --set hero.name=Magneta`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := parseSets(sets)
			if err != nil {
				return err
			}
			passes, err := a.detect(cmd.Context(), args[0], updates)
			if err != nil {
				return err
			}
			return a.printYAML(passes)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "context change applied before an extra pass, as path=value")
	return cmd
}

type contextUpdate struct {
	path  []string
	value any
}

// parseSets reads name=value pairs. Values are YAML scalars, so numbers
// and booleans keep their type.
func parseSets(sets []string) ([]contextUpdate, error) {
	updates := make([]contextUpdate, 0, len(sets))
	for _, set := range sets {
		name, raw, ok := strings.Cut(set, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, want path=value", set)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid value in --set %q: %w", set, err)
		}
		updates = append(updates, contextUpdate{path: strings.Split(name, "."), value: value})
	}
	return updates, nil
}

func (a *app) detect(ctx context.Context, manifest string, updates []contextUpdate) ([]detectPass, error) {
	compiled, err := a.compileManifest(ctx, manifest)
	if err != nil {
		a.reportError(err)
		return nil, fmt.Errorf("failed to compile %s", manifest)
	}

	state := maps.Clone(compiled.Component.Context)
	if state == nil {
		state = map[string]any{}
	}
	dispatcher := &printingDispatcher{
		ctx:        ctx,
		logger:     a.logger.WithComponent("dispatcher"),
		directives: map[cd.DirectiveIndex]map[string]any{},
	}
	detector := compiled.Protos[0].Instantiate(a.compiler.NewArena())
	detector.Hydrate(state, nil, dispatcher, pipes.Registry())
	defer detector.Dehydrate()

	run := func(pass int) (detectPass, error) {
		if err := detector.DetectChanges(); err != nil {
			return detectPass{}, err
		}
		if a.compiler.Config().DevMode {
			if err := detector.CheckNoChanges(); err != nil {
				return detectPass{}, err
			}
		}
		return detectPass{Pass: pass, Updates: dispatcher.flush()}, nil
	}

	first, err := run(1)
	if err != nil {
		return nil, err
	}
	passes := []detectPass{first}
	for i, update := range updates {
		if err := setPath(state, update.path, update.value); err != nil {
			return nil, err
		}
		next, err := run(i + 2)
		if err != nil {
			return nil, err
		}
		passes = append(passes, next)
	}
	return passes, nil
}

// setPath assigns value at path, replacing nested maps on the way rather
// than mutating them, so reference checks see the change.
func setPath(state map[string]any, path []string, value any) error {
	if len(path) == 1 {
		state[path[0]] = value
		return nil
	}
	child, _ := state[path[0]].(map[string]any)
	if child == nil {
		if _, exists := state[path[0]]; exists {
			return fmt.Errorf("cannot set %s: %s is not an object", strings.Join(path, "."), path[0])
		}
	}
	child = maps.Clone(child)
	if child == nil {
		child = map[string]any{}
	}
	if err := setPath(child, path[1:], value); err != nil {
		return err
	}
	state[path[0]] = child
	return nil
}

// printingDispatcher records binding updates as "mode element name = value".
// Directives are stood in for by maps collecting the inputs set in a pass.
type printingDispatcher struct {
	ctx        context.Context
	logger     logging.Logger
	updates    []string
	directives map[cd.DirectiveIndex]map[string]any
}

// flush returns the updates of the pass, directive inputs last, and
// resets them.
func (d *printingDispatcher) flush() []string {
	updates := d.updates
	indexes := slices.SortedFunc(maps.Keys(d.directives), func(a, b cd.DirectiveIndex) int {
		if a.ElementIndex != b.ElementIndex {
			return a.ElementIndex - b.ElementIndex
		}
		return a.DirectiveIndex - b.DirectiveIndex
	})
	for _, index := range indexes {
		inputs := d.directives[index]
		for _, name := range slices.Sorted(maps.Keys(inputs)) {
			updates = append(updates, fmt.Sprintf("%s %d.%d %s = %v",
				cd.TargetDirectiveProperty, index.ElementIndex, index.DirectiveIndex, name, inputs[name]))
		}
		clear(inputs)
	}
	d.updates = nil
	return updates
}

var _ cd.ChangeDispatcher = (*printingDispatcher)(nil)

func (d *printingDispatcher) NotifyOnBinding(target *cd.BindingTarget, value any) {
	name := target.Name
	if target.Unit != "" {
		name += "." + target.Unit
	}
	d.updates = append(d.updates, fmt.Sprintf("%s %d %s = %v", target.Mode, target.ElementIndex, name, value))
}

func (d *printingDispatcher) LogBindingUpdate(target *cd.BindingTarget, value any) {
	d.logger.Debug(d.ctx, "binding updated", "mode", string(target.Mode), "element", target.ElementIndex,
		"name", target.Name, "value", fmt.Sprint(value))
}

func (d *printingDispatcher) NotifyAfterContentChecked() {}
func (d *printingDispatcher) NotifyAfterViewChecked()    {}
func (d *printingDispatcher) NotifyOnDestroy()           {}
func (d *printingDispatcher) GetDebugContext(int, *cd.DirectiveIndex) (*cd.DebugContext, error) {
	return nil, nil
}
func (d *printingDispatcher) GetDirectiveFor(index cd.DirectiveIndex) any {
	inputs, ok := d.directives[index]
	if !ok {
		inputs = map[string]any{}
		d.directives[index] = inputs
	}
	return inputs
}
func (d *printingDispatcher) GetDetectorFor(cd.DirectiveIndex) *cd.ChangeDetector { return nil }
