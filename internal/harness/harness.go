package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/querydoc"
	"github.com/roach88/shapeq/internal/resource"
	"github.com/roach88/shapeq/internal/schema"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/sparql"
	"github.com/roach88/shapeq/internal/value"
)

// Error codes recorded in traces for failures that carry no fault code.
const (
	CodeNotFound = "NOT_FOUND"
	CodeError    = "ERROR"
)

// Harness executes the steps of one scenario against a fresh engine.
type Harness struct {
	scenario *Scenario
	arena    *shape.Arena
	engine   *resource.Memory
	compiler *sparql.Compiler
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory engine. The returned error
// reports problems with the scenario itself (shapes fail to load, setup
// fails); expectation and assertion failures are recorded in the result.
//
// Execution flow:
// 1. Load and compile the shapes
// 2. Create the setup resources
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions against the trace and the engine
func Run(scenario *Scenario) (*Result, error) {
	loaded, errs := schema.LoadDir(scenario.Shapes, schema.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load shapes: %w", errs[0])
	}

	membership := shape.Forward(value.LDPContains)
	if scenario.Membership != "" {
		membership = shape.Forward(value.ExpandCURIE(scenario.Membership))
	}

	h := &Harness{
		scenario: scenario,
		arena:    loaded.Arena,
		engine:   resource.NewMemory(membership),
		compiler: sparql.NewCompiler(sparql.Options{Membership: membership}),
	}

	ctx := context.Background()

	for i, step := range scenario.Setup {
		if err := h.create(ctx, step); err != nil {
			return nil, fmt.Errorf("failed to execute setup step %d: %w", i, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		event := h.execute(ctx, i+1, step)
		result.Trace = append(result.Trace, event)
		for _, msg := range checkExpect(event, step.Expect) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Op, msg))
		}
	}

	actx := &AssertionContext{
		Ctx:       ctx,
		Engine:    h.engine,
		Arena:     h.arena,
		Container: scenario.Container,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	slog.Debug("scenario executed", "scenario", scenario.Name, "steps", len(result.Trace), "pass", result.Pass)
	return result, nil
}

// execute runs one flow step and records it as a trace event.
func (h *Harness) execute(ctx context.Context, n int, step FlowStep) TraceEvent {
	event := TraceEvent{Step: n, Op: step.Op, Target: step.Resource}

	var err error
	switch step.Op {
	case OpCreate:
		err = h.create(ctx, step.ResourceStep)
	case OpUpdate:
		err = h.update(ctx, step.ResourceStep)
	case OpRetrieve:
		event.Triples, err = h.retrieve(ctx, step.Resource, step.Shape)
	case OpDelete:
		err = h.delete(ctx, step.Resource, step.Shape)
	case OpCompile:
		event.Target, event.Text, err = h.compile(step.Query)
	case OpDescribe:
		event.Text, err = h.describe(step.Resource, step.Shape)
	default:
		err = fault.Malformed("unknown op %q", step.Op)
	}
	if err != nil {
		event.Error = codeOf(err)
	}
	return event
}

func (h *Harness) create(ctx context.Context, step ResourceStep) error {
	d, _, err := h.build(step)
	if err != nil {
		return err
	}
	container := step.Container
	if container == "" {
		container = h.scenario.Container
	}
	return h.engine.Create(ctx, value.IRI(container), d)
}

func (h *Harness) update(ctx context.Context, step ResourceStep) error {
	d, s, err := h.build(step)
	if err != nil {
		return err
	}
	return h.engine.Update(ctx, d, s)
}

func (h *Harness) retrieve(ctx context.Context, id, name string) ([]string, error) {
	s, err := h.arena.Lookup(name)
	if err != nil {
		return nil, err
	}
	d, err := h.engine.Retrieve(ctx, value.IRI(id), s)
	if err != nil {
		return nil, err
	}
	return triples(d), nil
}

func (h *Harness) delete(ctx context.Context, id, name string) error {
	s, err := h.arena.Lookup(name)
	if err != nil {
		return err
	}
	return h.engine.Delete(ctx, value.IRI(id), s)
}

func (h *Harness) compile(node yaml.Node) (string, string, error) {
	data, err := yaml.Marshal(&node)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode query document: %w", err)
	}
	doc, err := querydoc.Parse(data)
	if err != nil {
		return "", "", fault.Malformed("%v", err)
	}
	q, err := doc.Build()
	if err != nil {
		return doc.Container, "", err
	}
	s, err := h.arena.Lookup(doc.Shape)
	if err != nil {
		return doc.Container, "", err
	}
	stmt, err := h.compiler.Compile(doc.Container, s, q)
	if err != nil {
		return doc.Container, "", err
	}
	return doc.Container, stmt.Text, nil
}

func (h *Harness) describe(id, name string) (string, error) {
	s, err := h.arena.Lookup(name)
	if err != nil {
		return "", err
	}
	return h.compiler.Describe(id, s)
}

// build converts a resource step into a description of its shape.
func (h *Harness) build(step ResourceStep) (*resource.Description, *shape.Shape, error) {
	s, err := h.arena.Lookup(step.Shape)
	if err != nil {
		return nil, nil, err
	}
	d := resource.New(value.IRI(step.Resource))
	for label, raw := range step.Properties {
		prop, ok := s.Lookup(label)
		if !ok {
			return nil, nil, fault.Malformed("unknown property label %q", label)
		}
		values, err := convertValues(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("property %s: %w", label, err)
		}
		d.Add(prop.Predicate, values...)
	}
	return d, s, nil
}

// convertValues converts a YAML scalar or list into values.
func convertValues(raw any) ([]value.Value, error) {
	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}
	out := make([]value.Value, 0, len(items))
	for _, item := range items {
		v, err := convertValue(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func convertValue(raw any) (value.Value, error) {
	if s, ok := raw.(string); ok && (strings.HasPrefix(s, "<") || strings.HasPrefix(s, "_:") || strings.HasPrefix(s, `"`)) {
		return value.ParseTerm(s)
	}
	return value.Of(raw)
}

// triples renders a description one triple per entry.
func triples(d *resource.Description) []string {
	text := strings.TrimSuffix(d.String(), "\n")
	if text == "" {
		return []string{}
	}
	return strings.Split(text, "\n")
}

// codeOf maps an error to the code recorded in traces.
func codeOf(err error) string {
	if code := fault.CodeOf(err); code != "" {
		return string(code)
	}
	if errors.Is(err, resource.ErrNotFound) {
		return CodeNotFound
	}
	return CodeError
}

// checkExpect compares an event against the expected outcome.
func checkExpect(event TraceEvent, expect *ExpectClause) []string {
	var msgs []string
	want := ""
	if expect != nil {
		want = expect.Error
	}
	if event.Error != want {
		if want == "" {
			msgs = append(msgs, fmt.Sprintf("unexpected error %s", event.Error))
		} else {
			msgs = append(msgs, fmt.Sprintf("expected error %s, got %q", want, event.Error))
		}
	}
	if expect == nil {
		return msgs
	}
	haystack := event.Text + strings.Join(event.Triples, "\n")
	for _, fragment := range expect.Contains {
		if !strings.Contains(haystack, fragment) {
			msgs = append(msgs, fmt.Sprintf("output does not contain %q", fragment))
		}
	}
	return msgs
}
