package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hema22923/AgriConnect/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoProductRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *mongoProductRepository {
	return &mongoProductRepository{
		client:     db.Client(),
		collection: db.Collection(productsCollection),
	}
}

func (m *mongoProductRepository) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return m.find(ctx, bson.M{})
}

func (m *mongoProductRepository) ListProductsByFarmer(ctx context.Context, farmerID string) ([]*domain.Product, error) {
	return m.find(ctx, bson.M{"uid": farmerID})
}

func (m *mongoProductRepository) find(ctx context.Context, filter bson.M) ([]*domain.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]*domain.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (m *mongoProductRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var doc productDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.toDomain()
}

func (m *mongoProductRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	_, err := m.collection.InsertOne(ctx, newProductDocument(p))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (m *mongoProductRepository) UpdateProduct(ctx context.Context, p *domain.Product) error {
	doc := newProductDocument(p)
	update := bson.M{
		"$set": bson.M{
			"name":        doc.Name,
			"description": doc.Description,
			"price":       doc.Price,
			"stock":       doc.Stock,
			"image":       doc.Image,
			"aiHint":      doc.AIHint,
			"seller":      doc.Seller,
		},
	}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (m *mongoProductRepository) DeleteProduct(ctx context.Context, id string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (m *mongoProductRepository) ApplyRating(ctx context.Context, productID string, rating int) (*domain.Product, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return nil, err
	}

	session, err := m.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	// Concurrent raters conflict on the same document; WithTransaction
	// retries the loser so no rating is lost.
	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var doc productDocument
		if err := m.collection.FindOne(sc, bson.M{"_id": productID}).Decode(&doc); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, domain.ErrProductNotFound
			}
			return nil, fmt.Errorf("failed to read product: %w", err)
		}

		p, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		if err := p.ApplyRating(rating); err != nil {
			return nil, err
		}

		update := bson.M{"$set": bson.M{"rating": p.Rating, "reviewCount": p.ReviewCount}}
		if _, err := m.collection.UpdateOne(sc, bson.M{"_id": productID}, update); err != nil {
			return nil, fmt.Errorf("failed to write rating: %w", err)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Product), nil
}

func (m *mongoProductRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "uid", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}
