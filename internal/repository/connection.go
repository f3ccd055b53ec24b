package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
	usersCollection    = "users"
)

// ErrNotReplicaSet is returned when the server can not run multi-document
// transactions or change streams.
var ErrNotReplicaSet = errors.New("mongodb deployment is not a replica set")

// helloReply holds the parts of the hello command reply that identify the
// deployment topology.
type helloReply struct {
	SetName string `bson:"setName"`
	Msg     string `bson:"msg"`
}

// supportsTransactions accepts replica set members and mongos routers.
func (h helloReply) supportsTransactions() bool {
	return h.SetName != "" || h.Msg == "isdbgrid"
}

// ConnectMongoDB connects to a replica set and fails fast on a standalone
// server. Order placement and ratings use multi-document transactions and
// the order feed uses change streams.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetRetryReads(true).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	var hello helloReply
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to run hello against MongoDB: %w", err)
	}
	if !hello.supportsTransactions() {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: start mongod with --replSet", ErrNotReplicaSet)
	}

	return client.Database(database), nil
}

// CreateIndexes creates the indexes of every collection in db.
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	if err := NewMongoProductRepository(db).CreateIndexes(ctx); err != nil {
		return err
	}
	if err := NewMongoOrderRepository(db).CreateIndexes(ctx); err != nil {
		return err
	}
	return NewMongoUserRepository(db).CreateIndexes(ctx)
}
