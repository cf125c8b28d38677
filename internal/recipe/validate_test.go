package recipe

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
)

func newsQueryMeta() Meta {
	return Meta{
		Name:        "online-news-query",
		Description: "Query online news collections",
		Schema: Schema{
			"QUERY":    {Type: TypeString, Title: "Search query", Required: true},
			"START":    {Type: TypeDate, Title: "Start date", Required: true},
			"LIMIT":    {Type: TypeInt, Title: "Row limit", Default: 100},
			"EMAIL_TO": {Type: TypeList, Title: "Email notification list"},
		},
	}
}

func TestValidateParamsNoSchemaPassesThrough(t *testing.T) {
	meta := Meta{Name: "freeform"}
	raw := domain.Params{"anything": "goes", "n": 3}

	got, err := ValidateParams(meta, raw, "user@example.com")
	if err != nil {
		t.Fatalf("ValidateParams() err=%v", err)
	}
	if !reflect.DeepEqual(got, raw) {
		t.Fatalf("expected pass-through, got %v", got)
	}

	// The result is a copy; mutating it must not touch the input.
	got["anything"] = "changed"
	if raw["anything"] != "goes" {
		t.Fatalf("input params mutated through the result")
	}
}

func TestValidateParamsCoercionAndDefaults(t *testing.T) {
	got, err := ValidateParams(newsQueryMeta(), domain.Params{
		"QUERY": "climate",
		"START": "2026-01-05",
	}, "")
	if err != nil {
		t.Fatalf("ValidateParams() err=%v", err)
	}
	if got["QUERY"] != "climate" || got["START"] != "2026-01-05" {
		t.Fatalf("unexpected coerced values: %v", got)
	}
	if got["LIMIT"] != 100 {
		t.Fatalf("expected default LIMIT=100, got %v", got["LIMIT"])
	}
}

func TestValidateParamsStringPromotions(t *testing.T) {
	meta := Meta{Name: "promote", Schema: Schema{
		"N":     {Type: TypeInt},
		"RATIO": {Type: TypeFloat},
		"FLAG":  {Type: TypeBool},
		"TAGS":  {Type: TypeList},
	}}
	got, err := ValidateParams(meta, domain.Params{
		"N":     "42",
		"RATIO": "0.5",
		"FLAG":  "true",
		"TAGS":  "solo",
	}, "")
	if err != nil {
		t.Fatalf("ValidateParams() err=%v", err)
	}
	if got["N"] != 42 || got["RATIO"] != 0.5 || got["FLAG"] != true {
		t.Fatalf("unexpected promoted values: %v", got)
	}
	if !reflect.DeepEqual(got["TAGS"], []string{"solo"}) {
		t.Fatalf("single value must promote to a one-element list, got %v", got["TAGS"])
	}
}

func TestValidateParamsIntegralFloat(t *testing.T) {
	meta := Meta{Name: "ints", Schema: Schema{"N": {Type: TypeInt}}}

	got, err := ValidateParams(meta, domain.Params{"N": float64(7)}, "")
	if err != nil {
		t.Fatalf("integral float must coerce: %v", err)
	}
	if got["N"] != 7 {
		t.Fatalf("expected 7, got %v", got["N"])
	}

	if _, err := ValidateParams(meta, domain.Params{"N": 7.5}, ""); err == nil {
		t.Fatalf("fractional float must be rejected")
	}
}

func TestValidateParamsAccumulatesFailures(t *testing.T) {
	_, err := ValidateParams(newsQueryMeta(), domain.Params{
		"START":   "not-a-date",
		"UNKNOWN": 1,
	}, "")

	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected *domain.ValidationError, got %v", err)
	}
	for _, field := range []string{"QUERY", "START", "UNKNOWN"} {
		if _, ok := validation.Fields[field]; !ok {
			t.Fatalf("expected failure for %q, got %v", field, validation.Fields)
		}
	}
	if validation.Fields["QUERY"] != "field required" {
		t.Fatalf("missing required field message: %q", validation.Fields["QUERY"])
	}
	if validation.Fields["UNKNOWN"] != "unknown parameter" {
		t.Fatalf("unknown parameter message: %q", validation.Fields["UNKNOWN"])
	}
	if len(validation.Schema) == 0 {
		t.Fatalf("validation error must carry the expected schema")
	}
}

func TestValidateParamsAppendsRequesterEmail(t *testing.T) {
	got, err := ValidateParams(newsQueryMeta(), domain.Params{
		"QUERY":    "climate",
		"START":    "2026-01-05",
		"EMAIL_TO": []string{"other@example.com"},
	}, "paige@mediacloud.org")
	if err != nil {
		t.Fatalf("ValidateParams() err=%v", err)
	}
	want := []string{"other@example.com", "paige@mediacloud.org"}
	if !reflect.DeepEqual(got["EMAIL_TO"], want) {
		t.Fatalf("EMAIL_TO = %v, want %v", got["EMAIL_TO"], want)
	}
}

func TestValidateParamsEmailAppendIdempotent(t *testing.T) {
	got, err := ValidateParams(newsQueryMeta(), domain.Params{
		"QUERY":    "climate",
		"START":    "2026-01-05",
		"EMAIL_TO": []string{"paige@mediacloud.org"},
	}, "paige@mediacloud.org")
	if err != nil {
		t.Fatalf("ValidateParams() err=%v", err)
	}
	want := []string{"paige@mediacloud.org"}
	if !reflect.DeepEqual(got["EMAIL_TO"], want) {
		t.Fatalf("requester must not be appended twice: %v", got["EMAIL_TO"])
	}
}

func TestValidateParamsListDefaultCoerced(t *testing.T) {
	// A list default loaded from YAML arrives as []any; it must normalize to
	// []string so the requester is appended rather than replacing the list.
	meta := newsQueryMeta()
	field := meta.Schema["EMAIL_TO"]
	field.Default = []any{"team@mediacloud.org"}
	meta.Schema["EMAIL_TO"] = field

	got, err := ValidateParams(meta, domain.Params{
		"QUERY": "climate",
		"START": "2026-01-05",
	}, "paige@mediacloud.org")
	if err != nil {
		t.Fatalf("ValidateParams() err=%v", err)
	}
	want := []string{"team@mediacloud.org", "paige@mediacloud.org"}
	if !reflect.DeepEqual(got["EMAIL_TO"], want) {
		t.Fatalf("EMAIL_TO = %v, want %v", got["EMAIL_TO"], want)
	}
}

func TestValidateParamsDefaultAlreadyContainsRequester(t *testing.T) {
	meta := newsQueryMeta()
	field := meta.Schema["EMAIL_TO"]
	field.Default = []any{"paige@mediacloud.org"}
	meta.Schema["EMAIL_TO"] = field

	got, err := ValidateParams(meta, domain.Params{
		"QUERY": "climate",
		"START": "2026-01-05",
	}, "paige@mediacloud.org")
	if err != nil {
		t.Fatalf("ValidateParams() err=%v", err)
	}
	want := []string{"paige@mediacloud.org"}
	if !reflect.DeepEqual(got["EMAIL_TO"], want) {
		t.Fatalf("requester must not be appended twice: %v", got["EMAIL_TO"])
	}
}

func TestValidateParamsBadDefaultReported(t *testing.T) {
	meta := Meta{Name: "broken", Schema: Schema{
		"N": {Type: TypeInt, Default: "not-a-number"},
	}}

	_, err := ValidateParams(meta, nil, "")
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected *domain.ValidationError, got %v", err)
	}
	if _, ok := validation.Fields["N"]; !ok {
		t.Fatalf("expected failure for N, got %v", validation.Fields)
	}
}

func TestValidateParamsDateNormalized(t *testing.T) {
	meta := Meta{Name: "dates", Schema: Schema{"DAY": {Type: TypeDate}}}
	got, err := ValidateParams(meta, domain.Params{"DAY": " 2026-08-31 "}, "")
	if err != nil {
		t.Fatalf("ValidateParams() err=%v", err)
	}
	if got["DAY"] != "2026-08-31" {
		t.Fatalf("date must round-trip trimmed, got %v", got["DAY"])
	}
}
