// Package loader persists a batch of documents with a single insert call.
package loader

import (
	"context"

	"github.com/JonMunkholm/personetl/internal/core"
	"github.com/JonMunkholm/personetl/internal/logging"
)

// Inserter is the insert surface of a document store collection.
type Inserter interface {
	InsertOne(ctx context.Context, doc any) error
	InsertMany(ctx context.Context, docs []any) (int, error)
}

// Loader writes documents to one collection.
type Loader struct {
	target Inserter
	name   string
}

// New returns a loader writing to target. name is used in logs and errors.
func New(target Inserter, name string) *Loader {
	return &Loader{target: target, name: name}
}

// Load inserts docs and returns how many were inserted.
// Zero documents is a no-op; one document uses InsertOne; more use one InsertMany.
// Insert failures are returned as load-phase errors wrapping core.ErrInsert.
func (l *Loader) Load(ctx context.Context, docs []core.PersonDocument) (int, error) {
	logger := logging.WithFields(ctx, "phase", core.PhaseLoad, "collection", l.name)

	switch len(docs) {
	case 0:
		logger.Info("nothing to load")
		return 0, nil

	case 1:
		if err := l.target.InsertOne(ctx, docs[0]); err != nil {
			return 0, core.NewPhaseError(core.PhaseLoad, l.name, err)
		}
		logger.Info("loaded documents", "inserted", 1)
		return 1, nil

	default:
		batch := make([]any, len(docs))
		for i := range docs {
			batch[i] = docs[i]
		}
		n, err := l.target.InsertMany(ctx, batch)
		if err != nil {
			logger.Error("insert failed", "inserted", n, "requested", len(docs), "error", err)
			return n, core.NewPhaseError(core.PhaseLoad, l.name, err)
		}
		logger.Info("loaded documents", "inserted", n)
		return n, nil
	}
}
