package main

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	compiler "ng2c-go/packages/compiler/src"
	"ng2c-go/packages/compiler/src/errors"
	tp "ng2c-go/packages/compiler/src/template_parser"
)

type compileOutput struct {
	Component   string              `yaml:"component"`
	Strategy    string              `yaml:"strategy"`
	Definitions []string            `yaml:"definitions"`
	Template    []*compiler.Outline `yaml:"template,omitempty"`
}

func newCompileCmd(a *app) *cobra.Command {
	var showAst bool
	cmd := &cobra.Command{
		Use:   "compile [manifest...]",
		Short: "Compile component templates",
		Long: `Compile the templates of the given component manifests, or of every
manifest under the configured scan paths when none are given. Prints the
change detector definitions of each component and, with --ast, its
template tree.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifests, err := a.manifests(args)
			if err != nil {
				return err
			}
			return a.compileAll(cmd.Context(), manifests, showAst)
		},
	}
	cmd.Flags().BoolVar(&showAst, "ast", false, "print the template tree")
	return cmd
}

// manifests returns args, or the manifests found under the scan paths.
func (a *app) manifests(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var found []string
	for _, root := range a.file.Components.ScanPaths {
		paths, err := compiler.DiscoverManifests(root, a.file.Components.ExcludePatterns)
		if err != nil {
			return nil, err
		}
		found = append(found, paths...)
	}
	if len(found) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "NO_MANIFESTS", "no component manifests found")
	}
	return found, nil
}

// compileAll compiles every manifest, reporting failures as it goes, and
// fails when any of them did.
func (a *app) compileAll(ctx context.Context, manifests []string, showAst bool) error {
	var failed int
	for _, path := range manifests {
		compiled, err := a.compileManifest(ctx, path)
		if err != nil {
			failed++
			a.reportError(err)
			continue
		}
		if err := a.printYAML(describeCompiled(compiled, showAst)); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d components failed to compile", failed, len(manifests))
	}
	return nil
}

func (a *app) compileManifest(ctx context.Context, path string) (*compiler.CompiledTemplate, error) {
	src, err := compiler.LoadComponentManifest(path)
	if err != nil {
		return nil, err
	}
	return a.compiler.CompileTemplate(ctx, src)
}

func describeCompiled(compiled *compiler.CompiledTemplate, showAst bool) *compileOutput {
	out := &compileOutput{Component: compiled.Component.Name, Strategy: compiled.Strategy.String()}
	for _, def := range compiled.Definitions {
		out.Definitions = append(out.Definitions, fmt.Sprintf("%s: %d bindings, %d events, %d directives",
			def.ID, len(def.BindingRecords), len(def.EventRecords), len(def.DirectiveRecords)))
	}
	if showAst {
		out.Template = compiler.OutlineTemplate(compiled.Template)
	}
	return out
}

// reportError prints err, one line per template error when it carries
// several.
func (a *app) reportError(err error) {
	var parseErr *tp.TemplateParseError
	if !stderrors.As(err, &parseErr) {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	var ce *errors.CompilerError
	if stderrors.As(err, &ce) && ce.Component != "" {
		fmt.Fprintf(a.out, "%s: template parse errors\n", ce.Component)
	}
	for _, pe := range parseErr.Errors {
		fmt.Fprintf(a.out, "  %v\n", errors.FromParseError(pe, errors.ErrorTypeTemplate, "TEMPLATE_PARSE"))
	}
}
