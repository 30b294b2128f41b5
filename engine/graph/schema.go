package graph

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sanjuz-cas/llm-kg-project/pkg/fn"
)

const (
	cypherNodeProps = `CALL db.schema.nodeTypeProperties()
YIELD nodeLabels, propertyName, propertyTypes
RETURN nodeLabels, propertyName, propertyTypes`

	cypherRelPatterns = `MATCH (a)-[r]->(b)
WITH DISTINCT labels(a)[0] AS from, type(r) AS type, labels(b)[0] AS to
RETURN from, type, to
ORDER BY from, type, to`
)

// NodeType is a label together with the property keys seen on it.
type NodeType struct {
	Label      string     `json:"label"`
	Properties []Property `json:"properties"`
}

// Schema describes the labels, property keys and relationship patterns
// present in the database.
type Schema struct {
	Nodes         []NodeType   `json:"nodes"`
	Relationships []RelPattern `json:"relationships"`
}

// String renders the schema in the text form the Cypher generation prompt
// expects.
func (s Schema) String() string {
	var b strings.Builder
	b.WriteString("Node properties:\n")
	for _, n := range s.Nodes {
		props := make([]string, 0, len(n.Properties))
		for _, p := range n.Properties {
			props = append(props, p.Name+": "+p.Type)
		}
		fmt.Fprintf(&b, "%s {%s}\n", n.Label, strings.Join(props, ", "))
	}
	b.WriteString("Relationship properties:\n\n")
	b.WriteString("The relationships:\n")
	for i, r := range s.Relationships {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "(:%s)-[:%s]->(:%s)", r.From, r.Type, r.To)
	}
	return b.String()
}

// Schema introspects the database. It uses built-in procedures only, so no
// plugin is required on the server.
func (g *GraphStore) Schema(ctx context.Context) (Schema, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	var s Schema

	result, err := sess.Run(ctx, cypherNodeProps, nil)
	if err != nil {
		return s, fmt.Errorf("graph: schema: %w", err)
	}
	byLabel := map[string]*NodeType{}
	for result.Next(ctx) {
		rec := result.Record()
		labelsVal, _ := rec.Get("nodeLabels")
		labels, _ := labelsVal.([]any)
		if len(labels) == 0 {
			continue
		}
		label, _ := labels[0].(string)
		if label == "" {
			continue
		}
		nt, ok := byLabel[label]
		if !ok {
			nt = &NodeType{Label: label}
			byLabel[label] = nt
		}
		name, _ := rec.Get("propertyName")
		pname, ok := name.(string)
		if !ok || pname == "" {
			continue
		}
		typesVal, _ := rec.Get("propertyTypes")
		types, _ := typesVal.([]any)
		nt.Properties = append(nt.Properties, Property{Name: pname, Type: propertyType(types)})
	}
	if err := result.Err(); err != nil {
		return s, fmt.Errorf("graph: schema: %w", err)
	}
	for _, l := range fn.SortedKeys(byLabel) {
		nt := byLabel[l]
		slices.SortFunc(nt.Properties, func(a, b Property) int { return strings.Compare(a.Name, b.Name) })
		s.Nodes = append(s.Nodes, *nt)
	}

	result, err = sess.Run(ctx, cypherRelPatterns, nil)
	if err != nil {
		return s, fmt.Errorf("graph: schema: %w", err)
	}
	for result.Next(ctx) {
		rec := result.Record()
		from, _ := rec.Get("from")
		typ, _ := rec.Get("type")
		to, _ := rec.Get("to")
		p := RelPattern{}
		p.From, _ = from.(string)
		p.Type, _ = typ.(string)
		p.To, _ = to.(string)
		s.Relationships = append(s.Relationships, p)
	}
	if err := result.Err(); err != nil {
		return s, fmt.Errorf("graph: schema: %w", err)
	}
	return s, nil
}

// propertyType maps the procedure's type names onto Cypher type names. A
// property stored with mixed types reports the first one.
func propertyType(types []any) string {
	if len(types) == 0 {
		return "ANY"
	}
	t, _ := types[0].(string)
	switch {
	case t == "String":
		return "STRING"
	case t == "Long" || t == "Integer":
		return "INTEGER"
	case t == "Double" || t == "Float":
		return "FLOAT"
	case t == "Boolean":
		return "BOOLEAN"
	case strings.HasSuffix(t, "Array"):
		return "LIST"
	case t == "":
		return "ANY"
	default:
		return strings.ToUpper(t)
	}
}
