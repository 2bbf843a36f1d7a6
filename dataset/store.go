package dataset

import (
	"context"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
	"github.com/YuminosukeSato/dtreegen/pkg/log"
)

// StoreConfig は MongoDB 接続に必要な設定
type StoreConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// CommandObserver receives every finished driver command.
type CommandObserver interface {
	ObserveCommand(command string, succeeded bool, d time.Duration)
}

// Store reads training documents from one MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     log.Logger
}

// StoreOption configures Open.
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger   log.Logger
	observer CommandObserver
}

// WithLogger logs driver commands at debug level.
func WithLogger(logger log.Logger) StoreOption {
	return func(o *storeOptions) { o.logger = logger }
}

// WithCommandObserver reports driver command outcomes, e.g. to a metrics recorder.
func WithCommandObserver(observer CommandObserver) StoreOption {
	return func(o *storeOptions) { o.observer = observer }
}

// Open creates a client for cfg.URI using Stable API version 1.
// The driver connects lazily; use Ping to verify reachability.
func Open(ctx context.Context, cfg StoreConfig, opts ...StoreOption) (*Store, error) {
	o := storeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = log.NewZerologLogger(io.Discard, log.LevelError, "json")
	}
	logger = logger.With(log.ComponentKey, "dataset",
		log.DatabaseKey, cfg.Database,
		log.CollectionKey, cfg.Collection,
	)

	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMonitor(commandMonitor(logger, o.observer))
	if cfg.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(cfg.ConnectTimeout).
			SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongodb")
	}

	return &Store{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logger,
	}, nil
}

func commandMonitor(logger log.Logger, observer CommandObserver) *event.CommandMonitor {
	return &event.CommandMonitor{
		Started: func(_ context.Context, evt *event.CommandStartedEvent) {
			logger.Debug("mongodb command started",
				log.CommandKey, evt.CommandName,
				"request_id", evt.RequestID,
			)
		},
		Succeeded: func(_ context.Context, evt *event.CommandSucceededEvent) {
			logger.Debug("mongodb command succeeded",
				log.CommandKey, evt.CommandName,
				log.DurationMsKey, evt.Duration.Milliseconds(),
			)
			if observer != nil {
				observer.ObserveCommand(evt.CommandName, true, evt.Duration)
			}
		},
		Failed: func(_ context.Context, evt *event.CommandFailedEvent) {
			logger.Debug("mongodb command failed",
				log.CommandKey, evt.CommandName,
				log.DurationMsKey, evt.Duration.Milliseconds(),
				"failure", evt.Failure,
			)
			if observer != nil {
				observer.ObserveCommand(evt.CommandName, false, evt.Duration)
			}
		},
	}
}

// Ping runs the administrative ping command.
func (s *Store) Ping(ctx context.Context) error {
	err := s.client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
	if err != nil {
		return errors.Wrap(errors.Mark(err, errors.ErrUnreachable), "ping")
	}
	return nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, errors.Wrap(err, "count documents")
	}
	return n, nil
}

// Records fetches every document projected to features and type.
// No order is imposed; label codes follow the store's iteration order.
func (s *Store) Records(ctx context.Context) ([]Record, error) {
	projection := bson.D{
		{Key: featuresField, Value: 1},
		{Key: labelField, Value: 1},
	}
	cursor, err := s.collection.Find(ctx, bson.D{}, options.Find().SetProjection(projection))
	if err != nil {
		return nil, errors.Wrap(err, "find documents")
	}

	records, err := DecodeRecords(ctx, cursor)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("documents fetched", log.SamplesKey, len(records))
	return records, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return errors.Wrap(err, "disconnect from mongodb")
	}
	return nil
}
