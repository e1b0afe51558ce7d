package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const collectionName = "orders"

// MongoRepository stores orders in the "orders" collection.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(collectionName), now: time.Now}
}

// EnsureIndexes creates the index backing ListPendingPayments.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "payment.status", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("payment_status_created_at"),
	})
	if err != nil {
		return fmt.Errorf("create orders index: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, o *Order) error {
	now := r.now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if o.Payment.Status == "" {
		o.Payment.Status = PaymentPending
	}
	if _, err := r.coll.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("insert order %q: %w", o.ID, err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order %q: %w", id, err)
	}
	return &o, nil
}

// SettlePayment sets the whole payment sub-document with a filter on the
// pending status, so the check and the write are one atomic operation.
func (r *MongoRepository) SettlePayment(ctx context.Context, id string, payment Payment) (*Order, error) {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "payment.status", Value: PaymentPending},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "payment", Value: payment},
		{Key: "updated_at", Value: r.now().UTC()},
	}}}

	var o Order
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&o)
	if err == nil {
		return &o, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("settle payment of order %q: %w", id, err)
	}

	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, fmt.Errorf("settle payment of order %q: %w", id, err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrPaymentSettled
}

func (r *MongoRepository) ListPendingPayments(ctx context.Context, createdBefore time.Time, limit int) ([]*Order, error) {
	filter := bson.D{
		{Key: "payment.status", Value: PaymentPending},
		{Key: "created_at", Value: bson.D{{Key: "$lt", Value: createdBefore.UTC()}}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	var out []*Order
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode pending orders: %w", err)
	}
	return out, nil
}

var (
	_ Repository = (*MongoRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
