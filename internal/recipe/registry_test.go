package recipe

import (
	"context"
	"testing"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
)

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(
		Meta{Name: "echo"},
		Meta{Name: "echo"},
	)
	if err == nil {
		t.Fatalf("expected duplicate recipe error")
	}
}

func TestNewRegistryRejectsInvalidMeta(t *testing.T) {
	if _, err := NewRegistry(Meta{Name: ""}); err == nil {
		t.Fatalf("expected validation error for unnamed recipe")
	}
}

func TestListHidesAdminRecipes(t *testing.T) {
	registry, err := NewRegistry(
		Meta{Name: "echo"},
		Meta{Name: "smoke-test", AdminOnly: true},
	)
	if err != nil {
		t.Fatalf("NewRegistry() err=%v", err)
	}

	visible := registry.List(false)
	if len(visible) != 1 || visible[0].Name != "echo" {
		t.Fatalf("non-admin listing = %v", visible)
	}

	all := registry.List(true)
	if len(all) != 2 {
		t.Fatalf("admin listing = %v", all)
	}
	if all[0].Name != "echo" || all[1].Name != "smoke-test" {
		t.Fatalf("listing must be sorted by name: %v", all)
	}
}

func TestBindAttachesExecutable(t *testing.T) {
	registry, err := NewRegistry(Meta{Name: "echo"})
	if err != nil {
		t.Fatalf("NewRegistry() err=%v", err)
	}

	if err := registry.Bind("unknown", func(context.Context, domain.Params) (any, error) {
		return nil, nil
	}); err == nil {
		t.Fatalf("binding an unknown recipe must fail")
	}
	if err := registry.Bind("echo", nil); err == nil {
		t.Fatalf("binding a nil executable must fail")
	}

	called := false
	err = registry.Bind("echo", func(context.Context, domain.Params) (any, error) {
		called = true
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Bind() err=%v", err)
	}

	meta, ok := registry.Get("echo")
	if !ok || meta.Executable == nil {
		t.Fatalf("bound executable not visible through Get()")
	}
	if _, err := meta.Executable(context.Background(), nil); err != nil || !called {
		t.Fatalf("executable did not run")
	}
}

func TestParseBook(t *testing.T) {
	raw := []byte(`
recipes:
  - name: online-news-query
    description: Query online news collections
    restricted_fields:
      full_text: true
    params:
      QUERY: {type: string, title: Search query, required: true}
      EMAIL_TO: {type: list, title: Email notification list}
  - name: smoke-test
    admin_only: true
`)
	registry, err := ParseBook(raw)
	if err != nil {
		t.Fatalf("ParseBook() err=%v", err)
	}

	meta, ok := registry.Get("online-news-query")
	if !ok {
		t.Fatalf("recipe missing from book")
	}
	if !meta.RestrictedFields["full_text"] {
		t.Fatalf("restricted fields not loaded: %v", meta.RestrictedFields)
	}
	if spec := meta.Schema["QUERY"]; spec.Type != TypeString || !spec.Required {
		t.Fatalf("unexpected QUERY spec: %+v", spec)
	}

	smoke, ok := registry.Get("smoke-test")
	if !ok || !smoke.AdminOnly {
		t.Fatalf("admin recipe not loaded: %+v", smoke)
	}
}

func TestParseBookRejectsBadSchema(t *testing.T) {
	raw := []byte(`
recipes:
  - name: broken
    params:
      X: {type: tensor}
`)
	if _, err := ParseBook(raw); err == nil {
		t.Fatalf("expected unknown field type error")
	}
}
