package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const heroManifest = `
name: HeroComp
template: |-
  <span [title]="hero.name">{{hero.name}} {{count}}</span><p *ngIf="count > 1">many</p>
directives:
  - name: NgIf
    selector: "[ngIf]"
    inputs: [ngIf]
context:
  count: 1
  hero:
    name: Windstorm
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func inTempDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	t.Chdir(dir)
	return dir
}

func TestVersionCommand(t *testing.T) {
	inTempDir(t, nil)
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ng2c 2.0.0-beta.17\n", out)
}

func TestParseCommand(t *testing.T) {
	inTempDir(t, map[string]string{
		"ok.html":     `<ul><li>one</li></ul>`,
		"broken.html": `<div></p>`,
	})

	t.Run("should print the node tree", func(t *testing.T) {
		out, err := run(t, "parse", "ok.html")
		require.NoError(t, err)
		var got parseOutput
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.Equal(t, "ok.html", got.URL)
		require.Len(t, got.Nodes, 1)
		assert.Equal(t, "ul", got.Nodes[0].Name)
		assert.Equal(t, "li", got.Nodes[0].Children[0].Name)
		assert.Empty(t, got.Errors)
	})

	t.Run("should fail on markup errors", func(t *testing.T) {
		out, err := run(t, "parse", "broken.html")
		require.Error(t, err)
		var got parseOutput
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		require.NotEmpty(t, got.Errors)
		assert.Contains(t, got.Errors[0], `Unexpected closing tag "p"`)
	})
}

func TestCompileCommand(t *testing.T) {
	inTempDir(t, map[string]string{
		"app/hero.component.yaml":         heroManifest,
		"node_modules/x/x.component.yaml": "name: Ignored\n",
	})

	t.Run("should compile discovered manifests", func(t *testing.T) {
		out, err := run(t, "compile")
		require.NoError(t, err)
		var got compileOutput
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.Equal(t, "HeroComp", got.Component)
		assert.Equal(t, "Default", got.Strategy)
		assert.Equal(t, []string{
			"HeroComp_0: 3 bindings, 0 events, 1 directives",
			"HeroComp_1: 0 bindings, 0 events, 0 directives",
		}, got.Definitions)
		assert.Empty(t, got.Template)
	})

	t.Run("should print the template tree", func(t *testing.T) {
		out, err := run(t, "compile", "--ast", "app/hero.component.yaml")
		require.NoError(t, err)
		var got compileOutput
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		require.Len(t, got.Template, 2)
		assert.Equal(t, "Element", got.Template[0].Kind)
		assert.Equal(t, "EmbeddedTemplate", got.Template[1].Kind)
	})
}

func TestCompileCommandMetrics(t *testing.T) {
	inTempDir(t, map[string]string{"hero.component.yaml": heroManifest})

	var out, errOut bytes.Buffer
	a := newApp(&out)
	cmd := a.command(&errOut)
	cmd.SetArgs([]string{"detect", "hero.component.yaml"})
	require.NoError(t, cmd.Execute())

	t.Run("should record compilations and detection passes", func(t *testing.T) {
		count, err := testutil.GatherAndCount(a.registry, "ng2c_templates_compiled_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		count, err = testutil.GatherAndCount(a.registry, "ng2c_detection_passes_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("should serve the metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.metricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `ng2c_templates_compiled_total{status="success"} 1`)
	})
}

func TestCompileCommandErrors(t *testing.T) {
	inTempDir(t, map[string]string{
		"bad.component.yaml": "name: Bad\ntemplate: \"<p>{{a | nope}}</p>\"\n",
	})
	out, err := run(t, "compile", "bad.component.yaml")
	require.Error(t, err)
	assert.Contains(t, out, "Bad: template parse errors")
	assert.Contains(t, out, "[TEMPLATE_PARSE] bad.component.yaml:1:4 The pipe 'nope' could not be found")
}

func TestDetectCommand(t *testing.T) {
	inTempDir(t, map[string]string{"hero.component.yaml": heroManifest})

	out, err := run(t, "detect", "hero.component.yaml", "--dev", "--set", "hero.name=Magneta", "--set", "count=2")
	require.NoError(t, err)

	var got []detectPass
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	want := []detectPass{
		{Pass: 1, Updates: []string{
			"elementProperty 0 title = Windstorm",
			"textNode 0  = Windstorm 1",
			"directive 1.0 ngIf = false",
		}},
		{Pass: 2, Updates: []string{
			"elementProperty 0 title = Magneta",
			"textNode 0  = Magneta 1",
		}},
		{Pass: 3, Updates: []string{
			"textNode 0  = Magneta 2",
			"directive 1.0 ngIf = true",
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("passes mismatch (-want +got):\n%s", diff)
	}
}

func TestSetPath(t *testing.T) {
	hero := map[string]any{"name": "Windstorm"}
	state := map[string]any{"hero": hero, "count": 1}

	updates, err := parseSets([]string{"hero.name=Magneta", "count=3", "flag=true"})
	require.NoError(t, err)
	for _, u := range updates {
		require.NoError(t, setPath(state, u.path, u.value))
	}

	assert.Equal(t, map[string]any{
		"hero":  map[string]any{"name": "Magneta"},
		"count": 3,
		"flag":  true,
	}, state)
	assert.Equal(t, "Windstorm", hero["name"], "nested maps are replaced, not mutated")

	assert.Error(t, setPath(state, []string{"count", "x"}, 1))
	_, err = parseSets([]string{"novalue"})
	assert.Error(t, err)
}
