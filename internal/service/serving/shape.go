package serving

// The heterogeneous values recipes return are classified exactly once, here,
// into a closed set of shapes. Nothing deeper in the pipeline inspects
// runtime types.

// Tabular is implemented by result objects that carry their own table
// representation.
type Tabular interface {
	ArtifactKind() string
	Table() []map[string]any
}

// Pair is a recipe result with an attached side artifact, the two-element
// return. Either half may be nil.
type Pair struct {
	Result any
	Side   Tabular
}

type shape interface {
	rows() []map[string]any
}

type rowsShape struct{ table []map[string]any }

func (s rowsShape) rows() []map[string]any { return s.table }

type mappingShape struct{ row map[string]any }

func (s mappingShape) rows() []map[string]any { return []map[string]any{s.row} }

type scalarShape struct{ value any }

func (s scalarShape) rows() []map[string]any {
	return []map[string]any{{"value": s.value}}
}

// classify decides the table shape for one entry's data. Pair is handled by
// the publisher before this point.
func classify(data any) shape {
	switch v := data.(type) {
	case Tabular:
		return rowsShape{table: v.Table()}
	case []map[string]any:
		return rowsShape{table: v}
	case []any:
		table := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if row, ok := item.(map[string]any); ok {
				table = append(table, row)
				continue
			}
			table = append(table, map[string]any{"value": item})
		}
		return rowsShape{table: table}
	case map[string]any:
		return mappingShape{row: v}
	}
	return scalarShape{value: data}
}
