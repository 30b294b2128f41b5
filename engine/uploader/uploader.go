// Package uploader loads ingested records into the knowledge graph: it
// declares the uniqueness constraints, then writes each record in its own
// transaction and stops at the first failure.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sanjuz-cas/llm-kg-project/engine/audit"
	"github.com/sanjuz-cas/llm-kg-project/engine/domain"
	"github.com/sanjuz-cas/llm-kg-project/engine/graph"
	"github.com/sanjuz-cas/llm-kg-project/pkg/fn"
	"github.com/sanjuz-cas/llm-kg-project/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/sanjuz-cas/llm-kg-project/engine/uploader"

// Store is the graph surface the uploader writes through.
type Store interface {
	EnsureConstraints(ctx context.Context) error
	SaveRecord(ctx context.Context, rec domain.Record) (graph.SaveResult, error)
	Wipe(ctx context.Context) error
	NodeCounts(ctx context.Context) (map[string]int64, error)
	RelationshipCounts(ctx context.Context) (map[string]int64, error)
	CountPatients(ctx context.Context) (int64, error)
	TopGenes(ctx context.Context, limit int) ([]graph.GeneStats, error)
}

// summaryGenes is how many of the most common genes a Summary lists.
const summaryGenes = 5

// RecordSource yields records until io.EOF. *tabular.Reader implements it.
type RecordSource interface {
	Next() (domain.Record, error)
	Skipped() int
}

// Options configures an Uploader. Every field is optional.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Events  *audit.Publisher
	// RunID tags logs and events. A random UUID is used when empty.
	RunID string
}

// Summary describes a finished (or aborted) load.
type Summary struct {
	RunID         string
	Rows          int
	Skipped       int
	Genes         int
	Duration      time.Duration
	Nodes         map[string]int64
	Relationships map[string]int64
	// Patients is the number of Patient nodes in the graph after the load,
	// including those from earlier runs.
	Patients int64
	TopGenes []graph.GeneStats
}

type savedRow struct {
	rec domain.Record
	res graph.SaveResult
}

// Uploader writes records into a Store.
type Uploader struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	events  *audit.Publisher
	runID   string
	row     fn.Stage[domain.Record, savedRow]
}

// New creates an Uploader.
func New(store Store, opts Options) *Uploader {
	u := &Uploader{
		store:   store,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		events:  opts.Events,
		runID:   opts.RunID,
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	if u.runID == "" {
		u.runID = uuid.NewString()
	}
	u.logger = u.logger.With("run_id", u.runID)

	u.row = fn.Traced("upload.row",
		fn.Then(
			fn.Then(fn.Guard(domain.ValidateRecord), fn.Lift(u.save)),
			fn.Tap(u.publish),
		),
	)
	return u
}

// RunID returns the identifier attached to this uploader's logs and events.
func (u *Uploader) RunID() string { return u.runID }

// Wipe deletes the whole graph. It refuses unless confirm is true.
func (u *Uploader) Wipe(ctx context.Context, confirm bool) error {
	if !confirm {
		return domain.ErrWipeNotConfirmed
	}
	u.logger.Info("clearing the database")
	return u.store.Wipe(ctx)
}

// Upload declares constraints and writes every record from src. The first
// failing record aborts the run; records already written stay committed.
// The returned Summary reflects the work done so far even on error.
func (u *Uploader) Upload(ctx context.Context, src RecordSource) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: u.runID}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "upload")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", u.runID))

	fail := func(err error) (Summary, error) {
		sum.Skipped = src.Skipped()
		sum.Duration = time.Since(start)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		u.logger.Error("load aborted", "rows", sum.Rows, "err", err)
		return sum, err
	}

	if err := u.store.EnsureConstraints(ctx); err != nil {
		return fail(fmt.Errorf("uploader: %w", err))
	}

	u.logger.Info("processing rows")
	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(fmt.Errorf("uploader: read: %w", err))
		}

		rowStart := time.Now()
		row, err := u.row(ctx, rec).Unwrap()
		if err != nil {
			if u.metrics != nil {
				u.metrics.RowErrors.Inc()
			}
			return fail(fmt.Errorf("uploader: line %d: %w", rec.Line, err))
		}
		sum.Rows++
		if row.res.Gene {
			sum.Genes++
		}
		if u.metrics != nil {
			u.metrics.RowDuration.Observe(time.Since(rowStart).Seconds())
		}
	}

	sum.Skipped = src.Skipped()
	if u.metrics != nil {
		u.metrics.RowsSkipped.Add(float64(sum.Skipped))
	}
	u.counts(ctx, &sum)
	sum.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("rows", sum.Rows),
		attribute.Int("skipped", sum.Skipped),
		attribute.Int("genes", sum.Genes),
	)
	u.logger.Info("data loaded",
		"rows", sum.Rows,
		"patients", sum.Patients,
		"skipped", sum.Skipped,
		"genes", sum.Genes,
		"duration", sum.Duration,
	)
	return sum, nil
}

func (u *Uploader) save(ctx context.Context, rec domain.Record) (savedRow, error) {
	res, err := u.store.SaveRecord(ctx, rec)
	if err != nil {
		return savedRow{}, err
	}
	if !res.Specimen {
		u.logger.Warn("missing specimen type, link skipped", "line", rec.Line, "patient_id", rec.PatientID)
	}
	if !res.Outcome {
		u.logger.Warn("missing outcome, link skipped", "line", rec.Line, "patient_id", rec.PatientID)
	}
	return savedRow{rec: rec, res: res}, nil
}

func (u *Uploader) publish(ctx context.Context, row savedRow) {
	if u.metrics != nil {
		u.metrics.RowsLoaded.Inc()
		if row.res.Gene {
			u.metrics.GenesLinked.Inc()
		}
	}
	ev := audit.RowLoaded{RunID: u.runID, Line: row.rec.Line, PatientID: row.rec.PatientID}
	if row.res.Gene {
		ev.Gene = row.rec.ResistanceGenes
	}
	u.events.RowLoaded(ctx, ev)
}

// counts fills the graph totals. They are informational, so a failure is
// only logged.
func (u *Uploader) counts(ctx context.Context, sum *Summary) {
	if nodes, err := u.store.NodeCounts(ctx); err != nil {
		u.logger.Warn("node counts unavailable", "err", err)
	} else {
		sum.Nodes = nodes
	}
	if rels, err := u.store.RelationshipCounts(ctx); err != nil {
		u.logger.Warn("relationship counts unavailable", "err", err)
	} else {
		sum.Relationships = rels
	}
	if n, err := u.store.CountPatients(ctx); err != nil {
		u.logger.Warn("patient count unavailable", "err", err)
	} else {
		sum.Patients = n
	}
	if genes, err := u.store.TopGenes(ctx, summaryGenes); err != nil {
		u.logger.Warn("gene ranking unavailable", "err", err)
	} else {
		sum.TopGenes = genes
	}
}

// SliceSource serves records from memory. Dropped is reported as the
// skipped count.
type SliceSource struct {
	Records []domain.Record
	Dropped int
	pos     int
}

// Next returns the next record, or io.EOF once all have been served.
func (s *SliceSource) Next() (domain.Record, error) {
	if s.pos >= len(s.Records) {
		return domain.Record{}, io.EOF
	}
	s.pos++
	return s.Records[s.pos-1], nil
}

// Skipped returns Dropped.
func (s *SliceSource) Skipped() int { return s.Dropped }
