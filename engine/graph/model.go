// Package graph provides the Neo4j knowledge graph operations for the
// antibiotic resistance data: constraints, per-record upserts, wipe,
// counts, schema introspection and query execution.
package graph

import "github.com/sanjuz-cas/llm-kg-project/pkg/repo"

// Session plumbing is shared with pkg/repo.
type (
	CypherResult  = repo.Result
	CypherRunner  = repo.Runner
	CypherSession = repo.Session
	SessionOpener = repo.Opener
)

// Property describes one property key observed on a node label.
type Property struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// RelPattern is a (:From)-[:Type]->(:To) pattern present in the graph.
type RelPattern struct {
	From string `json:"from"`
	Type string `json:"type"`
	To   string `json:"to"`
}

// QueryOptions controls Query.
type QueryOptions struct {
	// Limit caps the number of returned rows; 0 means no cap.
	Limit int
	// ReadOnly runs the statement in a read transaction.
	ReadOnly bool
}
