package repo

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NodeRepo counts and creates nodes with one label. Writes are create-only:
// properties are set when the node is first created and never overwritten.
type NodeRepo[T any] struct {
	opener Opener
	label  string
	key    string
	props  PropsFunc[T]
}

// NewNodeRepo returns a repository for label keyed by the key property.
func NewNodeRepo[T any](opener Opener, label, key string, props PropsFunc[T]) *NodeRepo[T] {
	return &NodeRepo[T]{opener: opener, label: label, key: key, props: props}
}

// Count returns the number of nodes with the label.
func (r *NodeRepo[T]) Count(ctx context.Context) (int64, error) {
	sess := r.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	n, err := sess.ExecuteRead(ctx, func(tx Runner) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS count", r.label), nil)
		if err != nil {
			return int64(0), err
		}
		if !res.Next(ctx) {
			return int64(0), res.Err()
		}
		c, _, err := neo4j.GetRecordValue[int64](res.Record(), "count")
		return c, err
	})
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

// CreateIfAbsent merges v by key inside tx. An existing node is matched and
// left unchanged.
func (r *NodeRepo[T]) CreateIfAbsent(ctx context.Context, tx Runner, v T) error {
	props := r.props(v)
	id, ok := props[r.key]
	if !ok || id == nil {
		return fmt.Errorf("%s: missing key property %q", r.label, r.key)
	}
	delete(props, r.key)

	cypher := fmt.Sprintf("MERGE (n:%s {%s: $id}) ON CREATE SET n += $props", r.label, r.key)
	_, err := tx.Run(ctx, cypher, map[string]any{"id": id, "props": props})
	return err
}
