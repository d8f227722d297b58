// Package compiler ties the template pipeline together: markup parsing,
// template parsing against a component's directives and pipes, and the
// change detector definitions of the result.
package compiler

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	cd "ng2c-go/packages/compiler/src/change_detection"
	"ng2c-go/packages/compiler/src/config"
	"ng2c-go/packages/compiler/src/errors"
	"ng2c-go/packages/compiler/src/expression_parser"
	"ng2c-go/packages/compiler/src/logging"
	"ng2c-go/packages/compiler/src/metrics"
	"ng2c-go/packages/compiler/src/ml_parser"
	"ng2c-go/packages/compiler/src/schema"
	tp "ng2c-go/packages/compiler/src/template_parser"
	"ng2c-go/packages/compiler/src/view_compiler"
)

const tracerName = "ng2c"

// Compiler compiles component templates.
type Compiler struct {
	config         *config.CompilerConfig
	logger         logging.Logger
	metrics        *metrics.Collector
	tracer         trace.Tracer
	htmlParser     *ml_parser.HtmlParser
	templateParser *tp.TemplateParser
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger logging.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithMetrics records compilations and the detection passes of arenas
// made by NewArena.
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Compiler) {
		c.metrics = collector
	}
}

// WithTracer sets the tracer. The default is the global tracer "ng2c".
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Compiler) {
		c.tracer = tracer
	}
}

// CompiledTemplate is the result of compiling one component.
type CompiledTemplate struct {
	Component   *ComponentSource
	Strategy    cd.ChangeDetectionStrategy
	Template    []tp.TemplateAst
	Definitions []*cd.ChangeDetectorDefinition
	// Protos holds one proto detector per definition, in the same order.
	Protos []*cd.ProtoChangeDetector
}

// NewCompiler creates a compiler. A nil cfg means the defaults. Without
// SchemaStrict unknown elements and properties are accepted.
func NewCompiler(cfg *config.CompilerConfig, opts ...Option) *Compiler {
	if cfg == nil {
		cfg = config.NewCompilerConfig()
	}
	c := &Compiler{
		config:     cfg,
		logger:     logging.NopLogger{},
		htmlParser: ml_parser.NewHtmlParser(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}

	var registry schema.ElementSchemaRegistry = schema.NewMockSchemaRegistry(nil, nil)
	if cfg.SchemaStrict {
		registry = schema.NewDomElementSchemaRegistry()
	}
	c.templateParser = tp.NewTemplateParser(
		expression_parser.NewParser(expression_parser.NewLexer()),
		registry,
		c.htmlParser,
	)
	c.logger = c.logger.WithComponent("compiler")
	return c
}

// Config returns the compiler configuration.
func (c *Compiler) Config() *config.CompilerConfig { return c.config }

// ParseHtml parses markup only. Markup errors are returned in the result,
// not as an error.
func (c *Compiler) ParseHtml(ctx context.Context, source, url string) *ml_parser.ParseTreeResult {
	_, span := c.tracer.Start(ctx, "ng2c.ParseHtml", trace.WithAttributes(attribute.String("ng2c.url", url)))
	defer span.End()

	result := c.htmlParser.Parse(source, url)
	span.SetAttributes(attribute.Int("ng2c.errors", len(result.Errors)))
	if len(result.Errors) > 0 {
		span.SetStatus(codes.Error, "markup errors")
	}
	c.logger.Debug(ctx, "parsed markup", "url", url, "nodes", len(result.RootNodes), "errors", len(result.Errors))
	return result
}

// CompileTemplate parses the component template and creates its change
// detector definitions. Template errors are returned as a template
// CompilerError wrapping the *tp.TemplateParseError.
func (c *Compiler) CompileTemplate(ctx context.Context, src *ComponentSource) (*CompiledTemplate, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "ng2c.CompileTemplate",
		trace.WithAttributes(attribute.String("ng2c.component", src.Name)))
	defer span.End()

	compiled, parseErrors, err := c.compile(ctx, src)
	if c.metrics != nil {
		c.metrics.ObserveCompile(time.Since(start), parseErrors, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error(ctx, err, "compile failed", "component", src.Name, "parse_errors", parseErrors)
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	c.logger.Info(ctx, "compiled template",
		"component", src.Name,
		"definitions", len(compiled.Definitions),
		"duration", time.Since(start))
	return compiled, nil
}

func (c *Compiler) compile(ctx context.Context, src *ComponentSource) (*CompiledTemplate, int, error) {
	strategy, err := src.Strategy()
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrorTypeConfig, "STRATEGY", "invalid changeDetection").
			WithComponent(src.Name)
	}
	directives, pipes, err := src.Metadata()
	if err != nil {
		return nil, 0, err
	}

	url := src.templateURL()
	_, parseSpan := c.tracer.Start(ctx, "ng2c.ParseTemplate")
	asts, err := c.templateParser.ParseTree(c.htmlParser.Parse(src.Template, url), directives, pipes)
	parseSpan.End()
	if err != nil {
		var parseErr *tp.TemplateParseError
		if !stderrors.As(err, &parseErr) || len(parseErr.Errors) == 0 {
			return nil, 0, errors.Wrap(err, errors.ErrorTypeTemplate, "TEMPLATE_PARSE", "template parse failed").
				WithComponent(src.Name)
		}
		first := errors.FromParseError(parseErr.Errors[0], errors.ErrorTypeTemplate, "TEMPLATE_PARSE")
		return nil, len(parseErr.Errors), errors.Wrap(err, errors.ErrorTypeTemplate, "TEMPLATE_PARSE", "template parse failed").
			WithComponent(src.Name).
			WithLocation(first.FilePath, first.Line, first.Column)
	}

	_, defSpan := c.tracer.Start(ctx, "ng2c.CreateDefinitions")
	defer defSpan.End()
	componentType := &tp.CompileTypeMetadata{Name: src.Name}
	defs := view_compiler.CreateChangeDetectorDefinitions(componentType, strategy, c.config.GenConfig(), asts)
	protos := make([]*cd.ProtoChangeDetector, 0, len(defs))
	for _, def := range defs {
		proto, err := cd.NewProtoChangeDetector(def)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrorTypeRuntime, "DEFINITION", "invalid detector definition "+def.ID).
				WithComponent(src.Name)
		}
		protos = append(protos, proto)
	}
	defSpan.SetAttributes(attribute.Int("ng2c.definitions", len(defs)))

	return &CompiledTemplate{
		Component:   src,
		Strategy:    strategy,
		Template:    asts,
		Definitions: defs,
		Protos:      protos,
	}, 0, nil
}

// NewArena creates an arena for detectors of compiled templates, in dev
// mode when the configuration says so and observed by the metrics
// collector when there is one.
func (c *Compiler) NewArena() *cd.Arena {
	opts := c.config.ArenaOptions()
	if c.metrics != nil {
		opts = append(opts, cd.WithObserver(c.metrics))
	}
	return cd.NewArena(opts...)
}
