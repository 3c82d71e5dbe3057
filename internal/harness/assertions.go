package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/shapeq/internal/resource"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		status := "ok"
		if event.Error != "" {
			status = event.Error
		}
		fmt.Fprintf(&buf, "  [%d] %s %s %s\n", event.Step, event.Op, event.Target, status)
	}

	return buf.String()
}

// AssertionContext provides the final state for assertions.
type AssertionContext struct {
	Ctx       context.Context
	Engine    *resource.Memory
	Arena     *shape.Arena
	Container string // default container of the scenario
}

// EvaluateAssertions evaluates all assertions and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertStatementContains:
		return assertStatementContains(result, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertMemberCount:
		return assertMemberCount(result.Trace, a, actx)
	case AssertDescriptionContains:
		return assertDescriptionContains(result.Trace, a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertStatementContains checks the text produced by one flow step.
func assertStatementContains(result *Result, a Assertion) error {
	event, ok := result.Event(a.Step)
	if !ok {
		return &AssertionError{
			Type:     AssertStatementContains,
			Expected: fmt.Sprintf("flow step %d", a.Step),
			Actual:   fmt.Sprintf("%d step(s) executed", len(result.Trace)),
			Trace:    result.Trace,
		}
	}
	for _, fragment := range a.Contains {
		if !strings.Contains(event.Text, fragment) {
			return &AssertionError{
				Type:     AssertStatementContains,
				Expected: fmt.Sprintf("step %d text containing %q", a.Step, fragment),
				Actual:   event.Text,
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the operation appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == a.Op {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertMemberCount checks the number of members of a container.
func assertMemberCount(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	container := a.Container
	if container == "" {
		container = actx.Container
	}
	members := actx.Engine.Members(value.IRI(container))
	if len(members) != a.Count {
		return &AssertionError{
			Type:     AssertMemberCount,
			Expected: fmt.Sprintf("%d member(s) of %s", a.Count, container),
			Actual:   fmt.Sprintf("%d member(s): %v", len(members), members),
			Trace:    trace,
		}
	}
	return nil
}

// assertDescriptionContains retrieves a resource and checks its triples.
func assertDescriptionContains(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	s, err := actx.Arena.Lookup(a.Shape)
	if err != nil {
		return err
	}
	d, err := actx.Engine.Retrieve(actx.Ctx, value.IRI(a.Resource), s)
	if err != nil {
		return &AssertionError{
			Type:     AssertDescriptionContains,
			Expected: fmt.Sprintf("stored resource %s", a.Resource),
			Actual:   err.Error(),
			Trace:    trace,
		}
	}
	have := triples(d)
	for _, want := range a.Contains {
		found := false
		for _, t := range have {
			if t == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertDescriptionContains,
				Expected: want,
				Actual:   strings.Join(have, "\n"),
				Trace:    trace,
			}
		}
	}
	return nil
}
