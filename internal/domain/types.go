package domain

// Params is an opaque recipe parameter set.
type Params map[string]any

func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	copied := make(Params, len(p))
	for k, v := range p {
		copied[k] = v
	}
	return copied
}
