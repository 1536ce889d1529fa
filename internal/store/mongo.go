// Package store wraps the MongoDB client used as the load target.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/JonMunkholm/personetl/internal/core"
	"github.com/JonMunkholm/personetl/internal/logging"
)

// Default timeouts.
const (
	DefaultTimeout      = 5 * time.Second
	DefaultWriteTimeout = 60 * time.Second
)

// Options configures a connection.
type Options struct {
	URL      string
	Username string
	Password string

	// Timeout bounds server selection and every ping.
	Timeout time.Duration

	// WriteTimeout bounds a single insert call.
	WriteTimeout time.Duration
}

// HasCredentials reports whether both username and password are set.
func (o Options) HasCredentials() bool {
	return o.Username != "" && o.Password != ""
}

// Mongo is a connected, reachable document store.
type Mongo struct {
	client       *mongo.Client
	timeout      time.Duration
	writeTimeout time.Duration
}

// Connect opens a client and verifies the server answers a ping within
// opts.Timeout. Credentials must be both set or both empty.
func Connect(ctx context.Context, opts Options) (*Mongo, error) {
	clientOpts, err := clientOptions(opts)
	if err != nil {
		return nil, err
	}

	logger := logging.WithFields(ctx, "phase", core.PhaseLoad)
	logger.Debug("connecting to document store", "authenticated", opts.HasCredentials())

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", core.ErrConnection, err)
	}

	m := &Mongo{
		client:       client,
		timeout:      clientTimeout(opts.Timeout, DefaultTimeout),
		writeTimeout: clientTimeout(opts.WriteTimeout, DefaultWriteTimeout),
	}
	if err := m.Ping(ctx); err != nil {
		m.Close(context.Background())
		return nil, err
	}

	logger.Info("document store reachable")
	return m, nil
}

// clientOptions builds driver options. Exactly one credential is a config error.
func clientOptions(opts Options) (*options.ClientOptions, error) {
	if !opts.HasCredentials() && (opts.Username != "" || opts.Password != "") {
		return nil, core.NewPhaseError(core.PhaseConfig, "mongo",
			fmt.Errorf("%w: mongo.username and mongo.password must be set together", core.ErrConfig))
	}

	timeout := clientTimeout(opts.Timeout, DefaultTimeout)
	clientOpts := options.Client().
		ApplyURI(opts.URL).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)

	if opts.HasCredentials() {
		clientOpts.SetAuth(options.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}
	return clientOpts, nil
}

func clientTimeout(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Ping checks the server answers within the configured timeout.
func (m *Mongo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: ping: %v", core.ErrConnection, err)
	}
	return nil
}

// HasCollection reports whether the named collection exists in database.
func (m *Mongo) HasCollection(ctx context.Context, database, collection string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	names, err := m.client.Database(database).ListCollectionNames(ctx, bson.D{{Key: "name", Value: collection}})
	if err != nil {
		return false, fmt.Errorf("%w: list collections: %v", core.ErrConnection, err)
	}
	for _, n := range names {
		if n == collection {
			return true, nil
		}
	}
	return false, nil
}

// Collection returns a handle for inserting into database.collection.
func (m *Mongo) Collection(database, collection string) *Collection {
	return &Collection{
		coll:    m.client.Database(database).Collection(collection),
		timeout: m.writeTimeout,
	}
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Collection is an insert target.
type Collection struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// InsertOne inserts a single document.
func (c *Collection) InsertOne(ctx context.Context, doc any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%w: insert one: %v", core.ErrInsert, err)
	}
	return nil
}

// InsertMany inserts docs in one call and returns how many were inserted.
func (c *Collection) InsertMany(ctx context.Context, docs []any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.coll.InsertMany(ctx, docs)
	if err != nil {
		inserted := 0
		if res != nil {
			inserted = len(res.InsertedIDs)
		}
		return inserted, fmt.Errorf("%w: insert many: %v", core.ErrInsert, err)
	}
	return len(res.InsertedIDs), nil
}
