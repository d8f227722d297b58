package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cd "ng2c-go/packages/compiler/src/change_detection"
	ep "ng2c-go/packages/compiler/src/expression_parser"
	"ng2c-go/packages/compiler/src/metrics"
)

func newCollector(t *testing.T) (*metrics.Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return metrics.NewCollector(metrics.WithRegistry(reg)), reg
}

func TestCollector(t *testing.T) {
	t.Run("should count compilations by status", func(t *testing.T) {
		c, reg := newCollector(t)
		c.ObserveCompile(time.Millisecond, 0, nil)
		c.ObserveCompile(time.Millisecond, 3, errors.New("parse"))

		count, err := testutil.GatherAndCount(reg, "ng2c_templates_compiled_total")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		families, err := reg.Gather()
		require.NoError(t, err)
		values := map[string]float64{}
		for _, family := range families {
			for _, m := range family.GetMetric() {
				if m.GetCounter() != nil {
					key := family.GetName()
					for _, label := range m.GetLabel() {
						key += "/" + label.GetValue()
					}
					values[key] = m.GetCounter().GetValue()
				}
			}
		}
		assert.Equal(t, 1.0, values["ng2c_templates_compiled_total/success"])
		assert.Equal(t, 1.0, values["ng2c_templates_compiled_total/error"])
		assert.Equal(t, 3.0, values["ng2c_template_parse_errors_total"])
	})

	t.Run("should observe detection passes of an arena", func(t *testing.T) {
		c, reg := newCollector(t)
		parser := ep.NewParser(ep.NewLexer())
		ast, err := parser.ParseBinding("a", "location")
		require.NoError(t, err)
		proto, err := cd.NewProtoChangeDetector(&cd.ChangeDetectorDefinition{
			ID:             "Comp_0",
			Strategy:       cd.Default,
			BindingRecords: []*cd.BindingRecord{cd.CreateForElementProperty(ast, 0, "title")},
		})
		require.NoError(t, err)

		arena := cd.NewArena(cd.WithObserver(c), cd.WithDevMode(true))
		detector := proto.Instantiate(arena)
		detector.Hydrate(map[string]any{"a": 1}, nil, nil, nil)
		require.NoError(t, detector.DetectChanges())
		require.NoError(t, detector.CheckNoChanges())

		count, err := testutil.GatherAndCount(reg, "ng2c_detection_passes_total")
		require.NoError(t, err)
		assert.Equal(t, 2, count, "one series per pass kind")

		count, err = testutil.GatherAndCount(reg, "ng2c_bindings_dispatched_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		count, err = testutil.GatherAndCount(reg, "ng2c_detection_errors_total")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("should count failed passes", func(t *testing.T) {
		c, reg := newCollector(t)
		c.ObserveDetection("Comp_0", false, time.Millisecond, errors.New("boom"))
		count, err := testutil.GatherAndCount(reg, "ng2c_detection_errors_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("should honor the namespace option", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := metrics.NewCollector(metrics.WithRegistry(reg), metrics.WithNamespace("app"))
		c.ObserveBinding("x", &cd.BindingTarget{Mode: cd.TargetTextNode})
		count, err := testutil.GatherAndCount(reg, "app_bindings_dispatched_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
