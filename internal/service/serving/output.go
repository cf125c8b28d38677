// Package serving normalizes recipe output, strips restricted entries, and
// materializes the survivors as table artifacts. It runs inside the worker
// after a recipe executable returns; nothing here can abort the run itself.
package serving

import (
	"github.com/mediacloud/sous-chef-kitchen/internal/recipe"
)

// Entry is one named output of a recipe run.
type Entry struct {
	Data       any  `json:"data"`
	Restricted bool `json:"restricted"`
}

// Output is a recipe's normalized return value.
type Output map[string]Entry

// Normalize maps a raw recipe return value into Output form:
//
//   - already an Output: passed through unchanged;
//   - a generic mapping: each value wrapped, restricted taken from the
//     recipe's restricted-field map (default false);
//   - anything else: wrapped as the single entry "result", unrestricted.
//
// Generic mapping values are wrapped whole. A value that happens to carry
// "data" or "restricted" keys is not unpacked; the only way for an entry to
// carry an inline restriction flag is to return Output or map[string]Entry.
// Restriction for plain mappings is declared in the recipe book, not the
// payload, so a recipe cannot loosen it at runtime.
func Normalize(raw any, meta recipe.Meta) Output {
	switch v := raw.(type) {
	case Output:
		return v
	case map[string]Entry:
		return Output(v)
	case map[string]any:
		formatted := make(Output, len(v))
		for key, value := range v {
			formatted[key] = Entry{
				Data:       value,
				Restricted: meta.RestrictedFields[key],
			}
		}
		return formatted
	}
	return Output{"result": {Data: raw}}
}

// FilterRestricted drops restricted entries unless the requester holds the
// full-text grant. The filter is mandatory: it runs in the worker, after the
// recipe body, so a recipe cannot bypass it.
func FilterRestricted(out Output, returnRestricted bool) Output {
	if returnRestricted {
		return out
	}
	filtered := make(Output, len(out))
	for name, entry := range out {
		if entry.Restricted {
			continue
		}
		filtered[name] = entry
	}
	return filtered
}
