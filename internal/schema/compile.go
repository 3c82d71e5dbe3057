package schema

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/value"
)

// Compile parses the shapes declared under the top-level "shape" field of v
// into a new arena:
//
//	shape: Person: {
//		type: "https://schema.org/Person"
//		property: {
//			name: {predicate: "https://schema.org/name", datatype: "xsd:string", maxCount: 1}
//			knows: {predicate: "https://schema.org/knows", shape: "Person"}
//			memberOf: {predicate: "https://schema.org/member", reverse: true}
//		}
//	}
//
// If mode is LoadModeFailFast, returns on first error.
func Compile(v cue.Value, mode LoadMode) (*shape.Arena, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	shapesVal := v.LookupPath(cue.ParsePath("shape"))
	if !shapesVal.Exists() {
		return nil, []error{&CompileError{Field: "shape", Message: "no shapes declared", Pos: v.Pos()}}
	}
	iter, err := shapesVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var errs []error
	arena := shape.NewArena()
	for iter.Next() {
		name := iter.Label()
		s, err := CompileShape(arena, iter.Value())
		if err == nil {
			err = arena.Define(name, s)
			if err != nil {
				err = &CompileError{Field: "define", Message: err.Error(), Pos: iter.Value().Pos(), Err: err}
			}
		}
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return arena, errs
			}
		}
	}
	if len(errs) > 0 {
		return arena, errs
	}

	errs = Check(arena)
	if len(errs) > 0 && mode == LoadModeFailFast {
		errs = errs[:1]
	}
	return arena, errs
}

// CompileShape parses one shape body. Named references resolve against arena.
func CompileShape(arena *shape.Arena, v cue.Value) (*shape.Shape, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	parts, err := compileFields(arena, v, nil)
	if err != nil {
		return nil, err
	}
	s, err := shape.Merge(parts...)
	if err != nil {
		return nil, &CompileError{Field: "merge", Message: err.Error(), Pos: v.Pos(), Err: err}
	}
	return s, nil
}

// propertyFields are handled by compileProperty rather than compileFields.
var propertyFields = map[string]bool{"predicate": true, "reverse": true, "shape": true}

func compileFields(arena *shape.Arena, v cue.Value, skip map[string]bool) ([]*shape.Shape, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var parts []*shape.Shape
	for iter.Next() {
		label := iter.Label()
		if skip[label] {
			continue
		}
		fv := iter.Value()
		part, err := compileField(arena, label, fv)
		if err != nil {
			return nil, err
		}
		if part != nil {
			parts = append(parts, part)
		}
	}
	return parts, nil
}

func compileField(arena *shape.Arena, label string, v cue.Value) (*shape.Shape, error) {
	switch label {
	case "datatype":
		s, err := str(label, v)
		if err != nil {
			return nil, err
		}
		return shape.Datatype(value.ExpandCURIE(s)), nil

	case "type":
		types, err := strs(label, v)
		if err != nil {
			return nil, err
		}
		return shape.Type(types...), nil

	case "minCount", "maxCount", "minLength", "maxLength":
		n, err := count(label, v)
		if err != nil {
			return nil, err
		}
		return map[string]func(int) *shape.Shape{
			"minCount":  shape.MinCount,
			"maxCount":  shape.MaxCount,
			"minLength": shape.MinLength,
			"maxLength": shape.MaxLength,
		}[label](n), nil

	case "minInclusive", "maxInclusive", "minExclusive", "maxExclusive":
		val, err := scalar(label, v)
		if err != nil {
			return nil, err
		}
		return map[string]func(value.Value) *shape.Shape{
			"minInclusive": shape.MinInclusive,
			"maxInclusive": shape.MaxInclusive,
			"minExclusive": shape.MinExclusive,
			"maxExclusive": shape.MaxExclusive,
		}[label](val), nil

	case "pattern":
		p, err := str(label, v)
		if err != nil {
			return nil, err
		}
		s, err := shape.Pattern(p)
		if err != nil {
			return nil, &CompileError{Field: label, Message: err.Error(), Pos: v.Pos(), Err: err}
		}
		return s, nil

	case "in", "hasValue":
		values, err := scalars(label, v)
		if err != nil {
			return nil, err
		}
		if label == "in" {
			return shape.In(values...), nil
		}
		return shape.HasValue(values...), nil

	case "required", "virtual", "composite":
		on, err := v.Bool()
		if err != nil {
			return nil, invalid(label, v, "must be a boolean")
		}
		if !on {
			return nil, nil
		}
		switch label {
		case "required":
			return shape.Required(), nil
		case "virtual":
			return shape.Virtual(), nil
		default:
			return shape.Composite(), nil
		}

	case "property":
		return compileProperties(arena, v)

	default:
		return nil, &CompileError{Field: "unknown", Message: fmt.Sprintf("unknown field %q", label), Pos: v.Pos()}
	}
}

func compileProperties(arena *shape.Arena, v cue.Value) (*shape.Shape, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, invalid("property", v, "must be a struct of properties")
	}
	var parts []*shape.Shape
	for iter.Next() {
		p, err := compileProperty(arena, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	s, err := shape.Merge(parts...)
	if err != nil {
		return nil, &CompileError{Field: "merge", Message: err.Error(), Pos: v.Pos(), Err: err}
	}
	return s, nil
}

func compileProperty(arena *shape.Arena, label string, v cue.Value) (*shape.Shape, error) {
	predVal := v.LookupPath(cue.ParsePath("predicate"))
	if !predVal.Exists() {
		return nil, &CompileError{
			Field:   "predicate",
			Message: fmt.Sprintf("property %q requires a predicate", label),
			Pos:     v.Pos(),
		}
	}
	iri, err := str("predicate", predVal)
	if err != nil {
		return nil, err
	}
	pred := shape.Forward(value.ExpandCURIE(iri))

	if rv := v.LookupPath(cue.ParsePath("reverse")); rv.Exists() {
		reverse, err := rv.Bool()
		if err != nil {
			return nil, invalid("reverse", rv, "must be a boolean")
		}
		if reverse {
			pred = pred.Inverse()
		}
	}

	var ref shape.Ref
	if sv := v.LookupPath(cue.ParsePath("shape")); sv.Exists() {
		name, err := str("shape", sv)
		if err != nil {
			return nil, err
		}
		ref = arena.Ref(name)
	}

	parts, err := compileFields(arena, v, propertyFields)
	if err != nil {
		return nil, err
	}
	if len(parts) > 0 {
		inline, err := shape.Merge(parts...)
		if err != nil {
			return nil, &CompileError{Field: "merge", Message: err.Error(), Pos: v.Pos(), Err: err}
		}
		ref = shape.Join(ref, shape.Fixed(inline))
	}
	return shape.Property(label, pred, ref), nil
}

// Check resolves every shape reachable from the arena's named shapes,
// reporting undefined references and merge conflicts.
func Check(arena *shape.Arena) []error {
	var (
		errs []error
		seen = make(map[string]bool)
	)
	var walk func(path string, s *shape.Shape)
	walk = func(path string, s *shape.Shape) {
		for _, p := range s.Properties() {
			key := p.Ref().Key()
			if key != "" && seen[key] {
				continue
			}
			seen[key] = true
			nested, err := p.Shape()
			if err != nil {
				errs = append(errs, &CompileError{Field: refField(err), Message: fmt.Sprintf("%s.%s: %v", path, p.Label, err), Err: err})
				continue
			}
			walk(path+"."+p.Label, nested)
		}
	}
	for _, name := range arena.Names() {
		s, err := arena.Lookup(name)
		if err != nil {
			errs = append(errs, &CompileError{Field: refField(err), Message: fmt.Sprintf("%s: %v", name, err), Err: err})
			continue
		}
		seen[arena.Ref(name).Key()] = true
		walk(name, s)
	}
	return errs
}

func refField(err error) string {
	if fault.IsConflict(err) {
		return "merge"
	}
	return "ref"
}

func invalid(field string, v cue.Value, msg string) *CompileError {
	return &CompileError{Field: field, Message: field + " " + msg, Pos: v.Pos()}
}

func str(field string, v cue.Value) (string, error) {
	s, err := v.String()
	if err != nil {
		return "", invalid(field, v, "must be a string")
	}
	if s == "" {
		return "", invalid(field, v, "must not be empty")
	}
	return s, nil
}

// strs accepts a single string or a list of strings.
func strs(field string, v cue.Value) ([]string, error) {
	if v.Kind() == cue.StringKind {
		s, err := str(field, v)
		if err != nil {
			return nil, err
		}
		return []string{value.ExpandCURIE(s)}, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, invalid(field, v, "must be a string or a list of strings")
	}
	var out []string
	for iter.Next() {
		s, err := str(field, iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, value.ExpandCURIE(s))
	}
	return out, nil
}

func count(field string, v cue.Value) (int, error) {
	n, err := v.Int64()
	if err != nil || n < 0 {
		return 0, invalid(field, v, "must be a non-negative integer")
	}
	return int(n), nil
}

// scalar converts a concrete CUE scalar. Strings starting with "<", "_:" or
// a double quote use the term syntax; other strings are plain literals.
func scalar(field string, v cue.Value) (value.Value, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, _ := v.String()
		if strings.HasPrefix(s, "<") || strings.HasPrefix(s, "_:") || strings.HasPrefix(s, `"`) {
			val, err := value.ParseTerm(s)
			if err != nil {
				return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos(), Err: err}
			}
			return val, nil
		}
		return value.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, invalid(field, v, "integer out of range")
		}
		return value.Int(n), nil
	case cue.FloatKind:
		text, err := v.MarshalJSON()
		if err != nil {
			return nil, formatCUEError(err)
		}
		d, err := value.NewDecimal(string(text))
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos(), Err: err}
		}
		return d, nil
	case cue.BoolKind:
		b, _ := v.Bool()
		return value.Bool(b), nil
	default:
		return nil, invalid(field, v, "must be a concrete scalar")
	}
}

func scalars(field string, v cue.Value) ([]value.Value, error) {
	iter, err := v.List()
	if err != nil {
		return nil, invalid(field, v, "must be a list")
	}
	var out []value.Value
	for iter.Next() {
		val, err := scalar(field, iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}
