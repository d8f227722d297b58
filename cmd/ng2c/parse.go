package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	compiler "ng2c-go/packages/compiler/src"
	"ng2c-go/packages/compiler/src/ml_parser"
)

type parseOutput struct {
	URL    string              `yaml:"url"`
	Nodes  []*compiler.Outline `yaml:"nodes"`
	Errors []string            `yaml:"errors,omitempty"`
}

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file.html>",
		Short: "Parse markup and print its node tree as YAML",
		Long: `Parse an HTML template without resolving bindings and print the
element, attribute and text tree. Markup errors are listed after the tree
and make the command fail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			result := a.compiler.ParseHtml(cmd.Context(), string(source), path)
			if err := a.printYAML(outlineParse(path, result)); err != nil {
				return err
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%s: %d markup errors", path, len(result.Errors))
			}
			return nil
		},
	}
}

func outlineParse(url string, result *ml_parser.ParseTreeResult) *parseOutput {
	out := &parseOutput{URL: url, Nodes: compiler.OutlineHtml(result.RootNodes)}
	for _, pe := range result.ParseErrors() {
		out.Errors = append(out.Errors, pe.String())
	}
	return out
}
