package flow

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"skyplan/internal/ai"
)

// FieldType is the primitive shape of a contract field.
type FieldType string

const (
	String  FieldType = "string"
	Number  FieldType = "number"
	Integer FieldType = "integer"
	Boolean FieldType = "boolean"
	Array   FieldType = "array"
	Object  FieldType = "object"
)

// Field declares one named value of a request or response.
type Field struct {
	Name        string    `yaml:"name"`
	Type        FieldType `yaml:"type"`
	Required    bool      `yaml:"required,omitempty"`
	MinLength   int       `yaml:"minLength,omitempty"`
	Description string    `yaml:"description,omitempty"`

	// Fields declares the members of an object field. Empty means any object.
	Fields Contract `yaml:"fields,omitempty"`

	// Items declares the element shape of an array field. Nil means any element.
	Items *Field `yaml:"items,omitempty"`
}

// Contract is the ordered set of fields a flow accepts or produces.
type Contract []Field

// FieldError reports the first field that failed a contract check.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + " " + e.Reason
}

type checkMode int

const (
	// strict rejects anything that is not already of the declared shape.
	strict checkMode = iota
	// lenient converts obviously equivalent values, e.g. "2" for an integer.
	lenient
)

// Validate checks caller input against the contract. It returns a copy holding
// only declared fields; absent optional fields, nulls and blank optional
// strings are left out so templates can test for presence.
func (c Contract) Validate(in map[string]any) (map[string]any, error) {
	return c.check(in, "", strict)
}

// Coerce checks a model response against the contract, converting values of
// an equivalent shape. The result never carries undeclared fields.
func (c Contract) Coerce(in map[string]any) (map[string]any, error) {
	return c.check(in, "", lenient)
}

func (c Contract) check(in map[string]any, prefix string, mode checkMode) (map[string]any, error) {
	out := make(map[string]any, len(c))
	for _, f := range c {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}

		raw, ok := in[f.Name]
		if !ok || raw == nil {
			if f.Required {
				return nil, &FieldError{Field: path, Reason: "is required"}
			}
			continue
		}

		v, keep, err := f.check(raw, path, mode)
		if err != nil {
			return nil, err
		}
		if keep {
			out[f.Name] = v
		}
	}
	return out, nil
}

func (f Field) check(raw any, path string, mode checkMode) (any, bool, error) {
	switch f.Type {
	case String:
		s, ok := raw.(string)
		if !ok && mode == lenient {
			switch v := raw.(type) {
			case float64, int, int64, bool:
				s, ok = fmt.Sprint(v), true
			}
		}
		if !ok {
			return nil, false, &FieldError{Field: path, Reason: "must be a string"}
		}
		trimmed := strings.TrimSpace(s)
		if trimmed == "" && !f.Required {
			return nil, false, nil
		}
		if f.MinLength > 0 && len([]rune(trimmed)) < f.MinLength {
			if f.MinLength == 1 {
				return nil, false, &FieldError{Field: path, Reason: "must not be empty"}
			}
			return nil, false, &FieldError{Field: path, Reason: fmt.Sprintf("must be at least %d characters", f.MinLength)}
		}
		return s, true, nil

	case Number:
		n, ok := toFloat(raw, mode)
		if !ok {
			return nil, false, &FieldError{Field: path, Reason: "must be a number"}
		}
		return n, true, nil

	case Integer:
		n, ok := toFloat(raw, mode)
		if !ok || n != math.Trunc(n) {
			return nil, false, &FieldError{Field: path, Reason: "must be an integer"}
		}
		return int(n), true, nil

	case Boolean:
		b, ok := raw.(bool)
		if !ok && mode == lenient {
			if s, isStr := raw.(string); isStr {
				parsed, err := strconv.ParseBool(strings.TrimSpace(s))
				b, ok = parsed, err == nil
			}
		}
		if !ok {
			return nil, false, &FieldError{Field: path, Reason: "must be a boolean"}
		}
		return b, true, nil

	case Array:
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false, &FieldError{Field: path, Reason: "must be an array"}
		}
		if rv.Len() < f.MinLength {
			return nil, false, &FieldError{Field: path, Reason: fmt.Sprintf("must hold at least %d items", f.MinLength)}
		}
		items := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i).Interface()
			if f.Items != nil {
				v, keep, err := f.Items.check(item, fmt.Sprintf("%s[%d]", path, i), mode)
				if err != nil {
					return nil, false, err
				}
				if !keep {
					continue
				}
				item = v
			}
			items = append(items, item)
		}
		return items, true, nil

	case Object:
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, false, &FieldError{Field: path, Reason: "must be an object"}
		}
		if len(f.Fields) == 0 {
			return obj, true, nil
		}
		v, err := f.Fields.check(obj, path, mode)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	return nil, false, &FieldError{Field: path, Reason: fmt.Sprintf("has unknown type %q", f.Type)}
}

func toFloat(raw any, mode checkMode) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		if mode != lenient {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// Schema converts the contract into the provider-neutral output description
// handed to the model adapter.
func (c Contract) Schema() *ai.Schema {
	root := &ai.Schema{Type: ai.TypeObject, Required: true}
	for _, f := range c {
		root.Properties = append(root.Properties, f.schema())
	}
	return root
}

func (f Field) schema() *ai.Schema {
	s := &ai.Schema{
		Name:        f.Name,
		Type:        ai.SchemaType(f.Type),
		Description: f.Description,
		Required:    f.Required,
	}
	for _, child := range f.Fields {
		s.Properties = append(s.Properties, child.schema())
	}
	if f.Items != nil {
		s.Items = f.Items.schema()
	}
	return s
}

// verify reports declaration mistakes: unnamed, duplicated or untyped fields.
func (c Contract) verify(prefix string) error {
	seen := make(map[string]bool, len(c))
	for _, f := range c {
		path := prefix + f.Name
		if f.Name == "" {
			return fmt.Errorf("field under %q has no name", prefix)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %q declared twice", path)
		}
		seen[f.Name] = true
		if err := f.verify(path); err != nil {
			return err
		}
	}
	return nil
}

func (f Field) verify(path string) error {
	switch f.Type {
	case String, Number, Integer, Boolean:
	case Array:
		if f.Items != nil {
			return f.Items.verify(path + "[]")
		}
	case Object:
		return f.Fields.verify(path + ".")
	default:
		return fmt.Errorf("field %q has unknown type %q", path, f.Type)
	}
	return nil
}

func (c Contract) clone() Contract {
	if c == nil {
		return nil
	}
	out := make(Contract, len(c))
	for i, f := range c {
		out[i] = f
		out[i].Fields = f.Fields.clone()
		if f.Items != nil {
			items := *f.Items
			items.Fields = f.Items.Fields.clone()
			out[i].Items = &items
		}
	}
	return out
}
