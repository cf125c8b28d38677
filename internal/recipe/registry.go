package recipe

import (
	"fmt"
	"sort"
)

// Registry is the explicit recipe table built at process start. There is no
// import-time registration; callers construct it from the recipe book and,
// in workers, bind executables before serving.
type Registry struct {
	recipes map[string]Meta
}

func NewRegistry(metas ...Meta) (*Registry, error) {
	recipes := make(map[string]Meta, len(metas))
	for _, meta := range metas {
		if err := meta.Validate(); err != nil {
			return nil, err
		}
		if _, exists := recipes[meta.Name]; exists {
			return nil, fmt.Errorf("duplicate recipe %q", meta.Name)
		}
		recipes[meta.Name] = meta
	}
	return &Registry{recipes: recipes}, nil
}

func (r *Registry) Get(name string) (Meta, bool) {
	meta, ok := r.recipes[name]
	return meta, ok
}

// List returns recipe metadata visible to the caller, sorted by name.
// Admin-only recipes are omitted for non-admin callers so their existence is
// not leaked through the catalogue.
func (r *Registry) List(admin bool) []Meta {
	out := make([]Meta, 0, len(r.recipes))
	for _, meta := range r.recipes {
		if meta.AdminOnly && !admin {
			continue
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Bind attaches an executable to a named recipe. Worker processes call this
// for every recipe compiled into the binary.
func (r *Registry) Bind(name string, fn Executable) error {
	meta, ok := r.recipes[name]
	if !ok {
		return fmt.Errorf("cannot bind executable: unknown recipe %q", name)
	}
	if fn == nil {
		return fmt.Errorf("cannot bind nil executable to recipe %q", name)
	}
	meta.Executable = fn
	r.recipes[name] = meta
	return nil
}
