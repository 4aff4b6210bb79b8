package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemyke/node-backend-sub000/data/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoClient is returned when the manager has no connected client
var ErrNoClient = errors.New("mongodb client is not connected")

// Manager owns a MongoDB client and the database the services write to
type Manager struct {
	client   *mongo.Client
	database string
}

// NewManager connects and pings the configured MongoDB deployment
func NewManager(ctx context.Context, conf *config.MongoDB) (*Manager, error) {
	client, err := newMongoClient(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &Manager{client: client, database: conf.Database}, nil
}

// NewManagerWithClient wraps an existing client
func NewManagerWithClient(client *mongo.Client, database string) *Manager {
	return &Manager{client: client, database: database}
}

// Client returns the underlying client
func (m *Manager) Client() *mongo.Client {
	if m == nil {
		return nil
	}
	return m.client
}

// Database returns the configured database
func (m *Manager) Database() *mongo.Database {
	return m.client.Database(m.database)
}

// Collection returns a collection of the configured database
func (m *Manager) Collection(name string) *mongo.Collection {
	return m.Database().Collection(name)
}

// Bucket returns a GridFS bucket of the configured database
func (m *Manager) Bucket(name string) (*gridfs.Bucket, error) {
	opts := options.GridFSBucket()
	if name != "" {
		opts.SetName(name)
	}
	bucket, err := gridfs.NewBucket(m.Database(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket %q: %w", name, err)
	}
	return bucket, nil
}

// Health pings the deployment
func (m *Manager) Health(ctx context.Context) error {
	if m == nil || m.client == nil {
		return ErrNoClient
	}
	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

// Close disconnects the client
func (m *Manager) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("error closing mongodb connection: %w", err)
	}
	return nil
}

// newMongoClient creates a new MongoDB client
func newMongoClient(ctx context.Context, conf *config.MongoDB) (*mongo.Client, error) {
	if conf == nil || conf.URI == "" {
		return nil, errors.New("mongodb configuration is nil or empty")
	}

	clientOptions := options.Client().ApplyURI(conf.URI)
	if conf.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(conf.MaxPoolSize)
	}
	if conf.ConnectTimeout > 0 {
		clientOptions.SetConnectTimeout(conf.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("MongoDB connect error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, conf.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("MongoDB ping error: %w", err)
	}

	return client, nil
}
