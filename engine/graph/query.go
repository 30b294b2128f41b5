package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Query runs an arbitrary Cypher statement and returns its rows as plain
// maps. Nodes and relationships are flattened to their properties and
// temporal values to their string form.
func (g *GraphStore) Query(ctx context.Context, cypher string, params map[string]any, opts QueryOptions) ([]map[string]any, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	collect := func(tx CypherRunner) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var rows []map[string]any
		for result.Next(ctx) {
			if opts.Limit > 0 && len(rows) >= opts.Limit {
				break
			}
			rec := result.Record()
			row := make(map[string]any, len(rec.Keys))
			for i, k := range rec.Keys {
				row[k] = plainValue(rec.Values[i])
			}
			rows = append(rows, row)
		}
		return rows, result.Err()
	}

	var (
		out any
		err error
	)
	if opts.ReadOnly {
		out, err = sess.ExecuteRead(ctx, collect)
	} else {
		out, err = collect(sess)
	}
	if err != nil {
		return nil, fmt.Errorf("graph: query: %w", err)
	}
	rows, _ := out.([]map[string]any)
	return rows, nil
}

func plainValue(v any) any {
	switch x := v.(type) {
	case dbtype.Node:
		return plainMap(x.Props)
	case dbtype.Relationship:
		return plainMap(x.Props)
	case dbtype.Path:
		out := make([]any, 0, len(x.Nodes)+len(x.Relationships))
		for i, n := range x.Nodes {
			out = append(out, plainMap(n.Props))
			if i < len(x.Relationships) {
				out = append(out, x.Relationships[i].Type)
			}
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainValue(e)
		}
		return out
	case map[string]any:
		return plainMap(x)
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}

func plainMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}
