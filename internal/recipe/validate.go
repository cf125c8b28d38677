package recipe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
)

const dateLayout = "2006-01-02"

// ValidateParams coerces raw parameters against the recipe's schema. A recipe
// without a schema passes parameters through unchanged. Failures accumulate
// into a single *domain.ValidationError keyed by field path, so callers can
// render per-field messages. After successful validation the authenticated
// requester's email is appended to the schema's email_to list, if one is
// declared and the email is not already present.
func ValidateParams(meta Meta, raw domain.Params, requesterEmail string) (domain.Params, error) {
	if meta.Schema == nil {
		return raw.Clone(), nil
	}

	fields := map[string]string{}
	final := domain.Params{}

	for _, name := range meta.Schema.FieldNames() {
		spec := meta.Schema[name]
		value, present := raw[name]
		if !present {
			if spec.Default != nil {
				// Defaults go through the same coercion as caller input, so a
				// YAML list default lands as []string, not []any.
				coerced, err := coerce(spec.Type, spec.Default)
				if err != nil {
					fields[name] = fmt.Sprintf("invalid default: %v", err)
					continue
				}
				final[name] = coerced
				continue
			}
			if spec.Required {
				fields[name] = "field required"
			}
			continue
		}
		coerced, err := coerce(spec.Type, value)
		if err != nil {
			fields[name] = err.Error()
			continue
		}
		final[name] = coerced
	}

	for name := range raw {
		if _, declared := meta.Schema[name]; !declared {
			fields[name] = "unknown parameter"
		}
	}

	if len(fields) > 0 {
		return nil, &domain.ValidationError{
			Recipe: meta.Name,
			Fields: fields,
			Schema: meta.Schema.Describe(),
		}
	}

	enrichEmailList(meta.Schema, final, requesterEmail)
	return final, nil
}

// enrichEmailList idempotently appends the requester to the notification
// list field.
func enrichEmailList(schema Schema, params domain.Params, requesterEmail string) {
	if requesterEmail == "" {
		return
	}
	field, ok := schema.emailField()
	if !ok {
		return
	}
	list, _ := params[field].([]string)
	for _, existing := range list {
		if existing == requesterEmail {
			return
		}
	}
	params[field] = append(list, requesterEmail)
}

func coerce(t FieldType, value any) (any, error) {
	switch t {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", value)
		}
		return s, nil

	case TypeInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("expected an integer, got %v", v)
			}
			return int(v), nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("expected an integer, got %q", v)
			}
			return n, nil
		}
		return nil, fmt.Errorf("expected an integer, got %T", value)

	case TypeFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("expected a number, got %q", v)
			}
			return f, nil
		}
		return nil, fmt.Errorf("expected a number, got %T", value)

	case TypeBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("expected a boolean, got %q", v)
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected a boolean, got %T", value)

	case TypeDate:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected a %s date string, got %T", dateLayout, value)
		}
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("expected a %s date, got %q", dateLayout, s)
		}
		return parsed.Format(dateLayout), nil

	case TypeList:
		switch v := value.(type) {
		case []string:
			return v, nil
		case []any:
			out := make([]string, 0, len(v))
			for i, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("list item %d: expected a string, got %T", i, item)
				}
				out = append(out, s)
			}
			return out, nil
		case string:
			// Single value promoted to a one-element list.
			return []string{v}, nil
		}
		return nil, fmt.Errorf("expected a list of strings, got %T", value)
	}
	return nil, fmt.Errorf("unknown field type %q", t)
}
