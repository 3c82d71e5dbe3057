package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Shapes is the directory of CUE shape files, relative to the scenario file.
	Shapes string `yaml:"shapes"`

	// Container is the default container for create steps and assertions.
	Container string `yaml:"container,omitempty"`

	// Membership overrides the membership predicate (default ldp:contains).
	Membership string `yaml:"membership,omitempty"`

	// Setup resources are created before the flow and must succeed.
	Setup []ResourceStep `yaml:"setup,omitempty"`

	// Flow is the sequence of operations under test.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the trace and the final engine state.
	Assertions []Assertion `yaml:"assertions"`
}

// ResourceStep describes a resource to store.
type ResourceStep struct {
	Resource  string `yaml:"resource"`
	Shape     string `yaml:"shape"`
	Container string `yaml:"container,omitempty"`

	// Properties maps property labels to a value or a list of values.
	// Strings in term syntax (<iri>, _:b, "literal"^^<type>) are parsed as terms.
	Properties map[string]any `yaml:"properties,omitempty"`
}

// FlowStep is one operation of the flow.
type FlowStep struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	ResourceStep `yaml:",inline"`

	// Query is an inline query document, used by compile.
	Query yaml.Node `yaml:"query,omitempty"`

	// Expect specifies the expected outcome. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a flow step.
type ExpectClause struct {
	// Error is the expected error code (see codeOf). Empty means success.
	Error string `yaml:"error,omitempty"`

	// Contains lists fragments the statement text or triples must contain.
	Contains []string `yaml:"contains,omitempty"`
}

// Flow operations.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpRetrieve = "retrieve"
	OpDelete   = "delete"
	OpCompile  = "compile"
	OpDescribe = "describe"
)

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "statement_contains": flow step Step produced text containing Contains
	// - "trace_count": operation Op appears exactly Count times
	// - "member_count": Container has exactly Count members
	// - "description_contains": Resource under Shape carries every triple of Contains
	Type string `yaml:"type"`

	Step      int      `yaml:"step,omitempty"` // 1-based flow index
	Op        string   `yaml:"op,omitempty"`
	Resource  string   `yaml:"resource,omitempty"`
	Shape     string   `yaml:"shape,omitempty"`
	Container string   `yaml:"container,omitempty"`
	Contains  []string `yaml:"contains,omitempty"`
	Count     int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStatementContains   = "statement_contains"
	AssertTraceCount          = "trace_count"
	AssertMemberCount         = "member_count"
	AssertDescriptionContains = "description_contains"
)

// LoadScenario reads and parses a scenario YAML file. The shapes directory
// is resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Shapes != "" && !filepath.IsAbs(scenario.Shapes) {
		scenario.Shapes = filepath.Join(filepath.Dir(path), scenario.Shapes)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Shapes == "" {
		return fmt.Errorf("shapes directory is required")
	}
	if _, err := os.Stat(s.Shapes); os.IsNotExist(err) {
		return fmt.Errorf("shapes directory not found: %s", s.Shapes)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateResource(fmt.Sprintf("setup[%d]", i), s, step); err != nil {
			return err
		}
	}

	for i, step := range s.Flow {
		where := fmt.Sprintf("flow[%d]", i)
		switch step.Op {
		case OpCreate:
			if err := validateResource(where, s, step.ResourceStep); err != nil {
				return err
			}
		case OpUpdate, OpRetrieve, OpDelete, OpDescribe:
			if step.Resource == "" || step.Shape == "" {
				return fmt.Errorf("%s: resource and shape are required for %s", where, step.Op)
			}
		case OpCompile:
			if step.Query.Kind != yaml.MappingNode {
				return fmt.Errorf("%s: query document is required for compile", where)
			}
		case "":
			return fmt.Errorf("%s: op is required", where)
		default:
			return fmt.Errorf("%s: unknown op %q", where, step.Op)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, s, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateResource(where string, s *Scenario, r ResourceStep) error {
	if r.Resource == "" {
		return fmt.Errorf("%s: resource is required", where)
	}
	if r.Shape == "" {
		return fmt.Errorf("%s: shape is required", where)
	}
	if r.Container == "" && s.Container == "" {
		return fmt.Errorf("%s: container is required (set it on the step or the scenario)", where)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, s *Scenario, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertStatementContains:
		if a.Step < 1 || a.Step > len(s.Flow) {
			return fmt.Errorf("assertions[%d]: step must be between 1 and %d", index, len(s.Flow))
		}
		if len(a.Contains) == 0 {
			return fmt.Errorf("assertions[%d]: contains is required for statement_contains", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertMemberCount:
		if a.Container == "" && s.Container == "" {
			return fmt.Errorf("assertions[%d]: container is required for member_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for member_count", index)
		}
	case AssertDescriptionContains:
		if a.Resource == "" || a.Shape == "" {
			return fmt.Errorf("assertions[%d]: resource and shape are required for description_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
