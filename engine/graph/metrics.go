package graph

import (
	"context"
)

// GeneStats holds how many patients carry a resistance gene.
type GeneStats struct {
	Gene     string `json:"gene"`
	Patients int64  `json:"patients"`
}

// NodeCounts returns node counts grouped by label.
func (g *GraphStore) NodeCounts(ctx context.Context) (map[string]int64, error) {
	return g.groupCounts(ctx, `MATCH (n) RETURN labels(n)[0] AS type, count(*) AS count`)
}

// RelationshipCounts returns relationship counts grouped by type.
func (g *GraphStore) RelationshipCounts(ctx context.Context) (map[string]int64, error) {
	return g.groupCounts(ctx, `MATCH ()-[r]->() RETURN type(r) AS type, count(*) AS count`)
}

func (g *GraphStore) groupCounts(ctx context.Context, cypher string) (map[string]int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		cnt, _ := rec.Get("count")
		if t, ok := typ.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[t] = c
			}
		}
	}
	return counts, result.Err()
}

// TopGenes returns the resistance genes carried by the most patients.
func (g *GraphStore) TopGenes(ctx context.Context, limit int) ([]GeneStats, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	if limit <= 0 {
		limit = 10
	}
	cypher := `MATCH (p:Patient)-[:HAS_GENE]->(g:Gene)
		RETURN g.name AS gene, count(DISTINCT p) AS patients
		ORDER BY patients DESC, gene LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	var stats []GeneStats
	for result.Next(ctx) {
		rec := result.Record()
		gene, _ := rec.Get("gene")
		patients, _ := rec.Get("patients")
		s := GeneStats{}
		if n, ok := gene.(string); ok {
			s.Gene = n
		}
		if p, ok := patients.(int64); ok {
			s.Patients = p
		}
		stats = append(stats, s)
	}
	return stats, result.Err()
}
