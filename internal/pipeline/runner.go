// Package pipeline wires extract, transform and load into one batch run.
//
// A run is strictly sequential. Fatal errors carry the phase they happened
// in (see core.PhaseError); rejected rows never fail a run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/personetl/internal/artifact"
	"github.com/JonMunkholm/personetl/internal/config"
	"github.com/JonMunkholm/personetl/internal/core"
	"github.com/JonMunkholm/personetl/internal/extract"
	"github.com/JonMunkholm/personetl/internal/loader"
	"github.com/JonMunkholm/personetl/internal/logging"
	"github.com/JonMunkholm/personetl/internal/store"
)

// Store is what a run needs from the document store.
type Store interface {
	HasCollection(ctx context.Context, database, collection string) (bool, error)
	Target(database, collection string) loader.Inserter
	Close(ctx context.Context) error
}

// ConnectFunc opens a reachable Store.
type ConnectFunc func(ctx context.Context, opts store.Options) (Store, error)

// MongoConnect connects to MongoDB.
func MongoConnect(ctx context.Context, opts store.Options) (Store, error) {
	m, err := store.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return mongoStore{m}, nil
}

type mongoStore struct {
	*store.Mongo
}

func (s mongoStore) Target(database, collection string) loader.Inserter {
	return s.Collection(database, collection)
}

// Report summarizes a run.
type Report struct {
	RunID       string
	Rows        int
	Documents   int
	Quarantined int
	Inserted    int
	Output      string
	Quarantine  string
	Duration    time.Duration
}

// Runner executes pipeline runs against one configuration.
type Runner struct {
	cfg     *config.Config
	connect ConnectFunc
}

// NewRunner returns a runner. A nil connect uses MongoConnect.
func NewRunner(cfg *config.Config, connect ConnectFunc) *Runner {
	if connect == nil {
		connect = MongoConnect
	}
	return &Runner{cfg: cfg, connect: connect}
}

// Run extracts, transforms, writes the output artifact and loads it.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	ctx = withRunID(ctx)
	start := time.Now()

	rep, docs, err := r.transform(ctx)
	if err != nil {
		return rep, err
	}

	if rep.Inserted, err = r.load(ctx, docs); err != nil {
		return rep, err
	}

	rep.Duration = time.Since(start)
	logging.FromContext(ctx).Info("run complete",
		"rows", rep.Rows,
		"documents", rep.Documents,
		"quarantined", rep.Quarantined,
		"inserted", rep.Inserted,
		"duration", rep.Duration,
	)
	return rep, nil
}

// Transform runs extract and transform and writes the artifacts, without loading.
func (r *Runner) Transform(ctx context.Context) (*Report, error) {
	ctx = withRunID(ctx)
	start := time.Now()

	rep, _, err := r.transform(ctx)
	if err != nil {
		return rep, err
	}
	rep.Duration = time.Since(start)
	return rep, nil
}

// Load inserts the documents of an existing output artifact.
func (r *Runner) Load(ctx context.Context) (*Report, error) {
	ctx = withRunID(ctx)
	start := time.Now()
	rep := &Report{RunID: logging.RunIDFromContext(ctx), Output: r.cfg.File.Output}

	docs, err := artifact.ReadDocuments(r.cfg.File.Output)
	if err != nil {
		return rep, core.NewPhaseError(core.PhaseLoad, r.cfg.File.Output, err)
	}
	rep.Documents = len(docs)

	for i, doc := range docs {
		if rowErr := core.ValidateDocument(doc); rowErr != nil {
			return rep, core.NewPhaseError(core.PhaseLoad, r.cfg.File.Output,
				fmt.Errorf("document %d: %w", i, *rowErr))
		}
	}

	if rep.Inserted, err = r.load(ctx, docs); err != nil {
		return rep, err
	}
	rep.Duration = time.Since(start)
	return rep, nil
}

func (r *Runner) transform(ctx context.Context) (*Report, []core.PersonDocument, error) {
	rep := &Report{
		RunID:  logging.RunIDFromContext(ctx),
		Output: r.cfg.File.Output,
	}

	records, err := extract.New(r.cfg.DelimiterRune()).ExtractFile(ctx, r.cfg.File.Input)
	if err != nil {
		return rep, nil, err
	}
	rep.Rows = len(records)

	quarantine, err := artifact.NewQuarantineWriter(r.cfg.File.Quarantine, core.PersonSchema)
	if err != nil {
		return rep, nil, core.NewPhaseError(core.PhaseTransform, r.cfg.File.Quarantine, err)
	}
	defer quarantine.Close()
	rep.Quarantine = quarantine.Path()

	result, err := core.NewTransformer(r.cfg.ReferenceDate(), quarantine).Transform(ctx, records)
	if err != nil {
		return rep, nil, core.NewPhaseError(core.PhaseTransform, r.cfg.File.Quarantine, err)
	}
	if err := quarantine.Close(); err != nil {
		return rep, nil, core.NewPhaseError(core.PhaseTransform, r.cfg.File.Quarantine, err)
	}
	rep.Documents = len(result.Documents)
	rep.Quarantined = len(result.Rejected)

	if err := artifact.WriteDocuments(r.cfg.File.Output, result.Documents); err != nil {
		return rep, nil, core.NewPhaseError(core.PhaseTransform, r.cfg.File.Output, err)
	}

	logging.WithFields(ctx, "phase", core.PhaseTransform).Info("artifacts written",
		"output", r.cfg.File.Output,
		"quarantine", r.cfg.File.Quarantine,
	)
	return rep, result.Documents, nil
}

// load connects, inserts and disconnects. Nothing is dialed for an empty batch.
func (r *Runner) load(ctx context.Context, docs []core.PersonDocument) (int, error) {
	if len(docs) == 0 {
		logging.WithFields(ctx, "phase", core.PhaseLoad).Info("nothing to load")
		return 0, nil
	}

	target := r.cfg.Database.Name + "." + r.cfg.Database.Collection

	logging.WithFields(ctx, "phase", core.PhaseLoad).Info("loading documents",
		"target", target,
		"documents", len(docs),
		"authenticated", r.cfg.Mongo.HasCredentials(),
	)
	s, err := r.connect(ctx, storeOptions(r.cfg))
	if err != nil {
		return 0, ensurePhase(core.PhaseLoad, target, err)
	}
	defer s.Close(context.WithoutCancel(ctx))

	l := loader.New(s.Target(r.cfg.Database.Name, r.cfg.Database.Collection), target)
	return l.Load(ctx, docs)
}

func storeOptions(cfg *config.Config) store.Options {
	return store.Options{
		URL:      cfg.Mongo.URL,
		Username: cfg.Mongo.Username,
		Password: cfg.Mongo.Password,
		Timeout:  cfg.Mongo.Timeout,
	}
}

// ensurePhase tags err with phase unless it already carries one.
func ensurePhase(phase core.Phase, resource string, err error) error {
	if core.PhaseOf(err) != "" {
		return err
	}
	return core.NewPhaseError(phase, resource, err)
}

func withRunID(ctx context.Context) context.Context {
	if logging.RunIDFromContext(ctx) != "" {
		return ctx
	}
	return logging.ContextWithRunID(ctx, logging.NewRunID())
}
