package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sanjuz-cas/llm-kg-project/engine/domain"
	"github.com/sanjuz-cas/llm-kg-project/pkg/repo"
)

// Constraints are the uniqueness constraints the upserts rely on. Without
// them MERGE can race into duplicate nodes.
var Constraints = []string{
	"CREATE CONSTRAINT IF NOT EXISTS FOR (p:Patient) REQUIRE p.id IS UNIQUE",
	"CREATE CONSTRAINT IF NOT EXISTS FOR (g:Gene) REQUIRE g.name IS UNIQUE",
	"CREATE CONSTRAINT IF NOT EXISTS FOR (s:Specimen) REQUIRE s.name IS UNIQUE",
	"CREATE CONSTRAINT IF NOT EXISTS FOR (o:Outcome) REQUIRE o.name IS UNIQUE",
}

const (
	cypherLinkSpecimen = `MATCH (p:Patient {id: $patient_id})
MERGE (s:Specimen {name: $specimen_type})
MERGE (p)-[:HAS_SPECIMEN]->(s)`

	cypherLinkOutcome = `MATCH (p:Patient {id: $patient_id})
MERGE (o:Outcome {name: $outcome})
MERGE (p)-[:HAS_OUTCOME]->(o)`

	cypherLinkGene = `MATCH (p:Patient {id: $patient_id})
MERGE (g:Gene {name: $gene_name})
MERGE (p)-[:HAS_GENE]->(g)`

	cypherWipe = `MATCH (n) DETACH DELETE n`
)

// GraphStore provides graph operations on top of the generic Neo4j repository.
type GraphStore struct {
	opener   SessionOpener
	patients *repo.NodeRepo[domain.Patient]
}

// New creates a GraphStore on a driver. An empty database selects the
// server default.
func New(driver neo4j.DriverWithContext, database string) *GraphStore {
	return NewWithOpener(repo.DriverOpener{Driver: driver, Database: database})
}

// NewWithOpener creates a GraphStore on an arbitrary session opener.
func NewWithOpener(opener SessionOpener) *GraphStore {
	return &GraphStore{
		opener:   opener,
		patients: newPatientRepo(opener),
	}
}

// EnsureConstraints declares the uniqueness constraints. Each statement is
// idempotent.
func (g *GraphStore) EnsureConstraints(ctx context.Context) (err error) {
	sess := g.opener.OpenSession(ctx)
	defer closeSession(ctx, sess, &err)

	for _, c := range Constraints {
		if err := write(ctx, sess, c); err != nil {
			return fmt.Errorf("graph: constraint: %w", err)
		}
	}
	return nil
}

// SaveResult reports which links SaveRecord wrote.
type SaveResult struct {
	Specimen bool
	Outcome  bool
	Gene     bool
}

// SaveRecord upserts one record in a single write transaction: the Patient
// (age and gender set only on creation), then its Specimen, Outcome and,
// when present, Gene links. Specimen and Outcome links are skipped when the
// cell was missing.
func (g *GraphStore) SaveRecord(ctx context.Context, rec domain.Record) (SaveResult, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	var res SaveResult
	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		res = SaveResult{}
		if err := g.patients.CreateIfAbsent(ctx, tx, domain.PatientFromRecord(rec)); err != nil {
			return nil, fmt.Errorf("patient: %w", err)
		}
		if rec.SpecimenType != "" {
			if _, err := tx.Run(ctx, cypherLinkSpecimen, map[string]any{
				"patient_id":    rec.PatientID,
				"specimen_type": rec.SpecimenType,
			}); err != nil {
				return nil, fmt.Errorf("specimen: %w", err)
			}
			res.Specimen = true
		}
		if rec.Outcome != "" {
			if _, err := tx.Run(ctx, cypherLinkOutcome, map[string]any{
				"patient_id": rec.PatientID,
				"outcome":    rec.Outcome,
			}); err != nil {
				return nil, fmt.Errorf("outcome: %w", err)
			}
			res.Outcome = true
		}
		if rec.HasGene() {
			if _, err := tx.Run(ctx, cypherLinkGene, map[string]any{
				"patient_id": rec.PatientID,
				"gene_name":  rec.ResistanceGenes,
			}); err != nil {
				return nil, fmt.Errorf("gene: %w", err)
			}
			res.Gene = true
		}
		return nil, nil
	})
	if err != nil {
		return SaveResult{}, fmt.Errorf("graph: save %s: %w", rec.PatientID, err)
	}
	return res, nil
}

// Wipe deletes every node and relationship in the database.
func (g *GraphStore) Wipe(ctx context.Context) (err error) {
	sess := g.opener.OpenSession(ctx)
	defer closeSession(ctx, sess, &err)

	if err := write(ctx, sess, cypherWipe); err != nil {
		return fmt.Errorf("graph: wipe: %w", err)
	}
	return nil
}

// CountPatients returns the number of Patient nodes.
func (g *GraphStore) CountPatients(ctx context.Context) (int64, error) {
	return g.patients.Count(ctx)
}

// write runs one statement in its own write transaction and drains the
// result so errors raised while streaming are returned.
func write(ctx context.Context, sess CypherSession, cypher string) error {
	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		res, err := tx.Run(ctx, cypher, nil)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
		}
		return nil, res.Err()
	})
	return err
}

func closeSession(ctx context.Context, sess CypherSession, err *error) {
	if cerr := sess.Close(ctx); cerr != nil && *err == nil {
		*err = fmt.Errorf("graph: close session: %w", cerr)
	}
}
