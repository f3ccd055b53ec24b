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

type mongoOrderRepository struct {
	client   *mongo.Client
	orders   *mongo.Collection
	products *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *mongoOrderRepository {
	return &mongoOrderRepository{
		client:   db.Client(),
		orders:   db.Collection(ordersCollection),
		products: db.Collection(productsCollection),
	}
}

func (m *mongoOrderRepository) PlaceOrder(ctx context.Context, order *domain.Order) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, d := range order.Decrements() {
			filter := bson.M{"_id": d.ProductID, "stock": bson.M{"$gte": toDecimal128(d.Quantity)}}
			update := bson.M{"$inc": bson.M{"stock": toDecimal128(d.Quantity.Neg())}}

			result, err := m.products.UpdateOne(sc, filter, update)
			if err != nil {
				return nil, fmt.Errorf("failed to decrement stock of %s: %w", d.ProductID, err)
			}
			if result.MatchedCount == 0 {
				return nil, m.decrementFailure(sc, d.ProductID)
			}
		}

		if _, err := m.orders.InsertOne(sc, newOrderDocument(order)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, domain.ErrAlreadyExists
			}
			return nil, fmt.Errorf("failed to insert order: %w", err)
		}
		return nil, nil
	})
	return err
}

// decrementFailure tells a missing product apart from one without enough stock.
func (m *mongoOrderRepository) decrementFailure(ctx context.Context, productID string) error {
	n, err := m.products.CountDocuments(ctx, bson.M{"_id": productID})
	if err != nil {
		return fmt.Errorf("failed to check product %s: %w", productID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	return fmt.Errorf("%w: %s", domain.ErrInsufficientStock, productID)
}

func (m *mongoOrderRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var doc orderDocument
	err := m.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.toDomain()
}

func (m *mongoOrderRepository) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	return m.find(ctx, bson.M{"userId": buyerID})
}

func (m *mongoOrderRepository) ListOrdersBySeller(ctx context.Context, sellerID string) ([]*domain.Order, error) {
	return m.find(ctx, bson.M{"sellerIds": sellerID})
}

func (m *mongoOrderRepository) find(ctx context.Context, filter bson.M) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := m.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]*domain.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (m *mongoOrderRepository) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	filter := bson.M{"_id": id, "status": string(from)}
	update := bson.M{"$set": bson.M{"status": string(to)}}

	result, err := m.orders.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	n, err := m.orders.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if n == 0 {
		return domain.ErrOrderNotFound
	}
	return domain.ErrIllegalTransition
}

func (m *mongoOrderRepository) MarkItemRated(ctx context.Context, orderID, productID string) error {
	filter := bson.M{"_id": orderID, "items.productId": productID}
	update := bson.M{"$set": bson.M{"items.$[elem].isRated": true}}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.productId": productID},
		},
	})

	result, err := m.orders.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to mark item rated: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (m *mongoOrderRepository) WatchOrders(ctx context.Context) (<-chan struct{}, error) {
	stream, err := m.orders.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("failed to watch orders: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()
	return ch, nil
}

func (m *mongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
		// multikey: one entry per seller of the order
		{Keys: bson.D{{Key: "sellerIds", Value: 1}, {Key: "date", Value: -1}}},
	}

	_, err := m.orders.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}
