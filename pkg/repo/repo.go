// Package repo holds the Neo4j session plumbing and a small repository for
// nodes of one label identified by a unique key property.
package repo

// PropsFunc maps a value to node properties. The result must include the
// key property; nil values are not stored by Neo4j.
type PropsFunc[T any] func(T) map[string]any
