package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const collectionName = "posts"

// MongoRepository stores posts in the "posts" collection.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(collectionName), now: time.Now}
}

func (r *MongoRepository) Create(ctx context.Context, p *Post) error {
	now := r.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Platforms == nil {
		p.Platforms = []PlatformMetadata{}
	}
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert post %q: %w", p.ID, err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Post, error) {
	var p Post
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find post %q: %w", id, err)
	}
	return &p, nil
}

func (r *MongoRepository) UpdatePlatforms(ctx context.Context, id string, platforms []PlatformMetadata) (*Post, error) {
	return r.set(ctx, id, bson.D{
		{Key: "platforms", Value: nonNil(platforms)},
	})
}

func (r *MongoRepository) UpdateSchedule(ctx context.Context, id string, scheduledAt *time.Time, platforms []PlatformMetadata) (*Post, error) {
	if scheduledAt == nil {
		return r.update(ctx, id, bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "platforms", Value: nonNil(platforms)},
				{Key: "updated_at", Value: r.now().UTC()},
			}},
			{Key: "$unset", Value: bson.D{{Key: "scheduled_at", Value: ""}}},
		})
	}
	return r.set(ctx, id, bson.D{
		{Key: "scheduled_at", Value: scheduledAt.UTC()},
		{Key: "platforms", Value: nonNil(platforms)},
	})
}

func (r *MongoRepository) set(ctx context.Context, id string, fields bson.D) (*Post, error) {
	fields = append(fields, bson.E{Key: "updated_at", Value: r.now().UTC()})
	return r.update(ctx, id, bson.D{{Key: "$set", Value: fields}})
}

func (r *MongoRepository) update(ctx context.Context, id string, update bson.D) (*Post, error) {
	var p Post
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update post %q: %w", id, err)
	}
	return &p, nil
}

func nonNil(platforms []PlatformMetadata) []PlatformMetadata {
	if platforms == nil {
		return []PlatformMetadata{}
	}
	return platforms
}

var (
	_ Repository = (*MongoRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
