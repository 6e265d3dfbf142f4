package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zumerkk/entas-sub001/models"
)

type AttributeSetRepository struct {
	collection *mongo.Collection
}

func NewAttributeSetRepository(db *mongo.Database) *AttributeSetRepository {
	return &AttributeSetRepository{collection: db.Collection(AttributeSetsCollection)}
}

func (r *AttributeSetRepository) EnsureIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, r.collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName(indexAttributeSetName).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetName("idx_active_name"),
		},
	})
}

func (r *AttributeSetRepository) Create(ctx context.Context, set *models.AttributeSet) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	ts := now()
	set.ID = primitive.NewObjectID()
	set.CreatedAt = ts
	set.UpdatedAt = ts

	_, err := r.collection.InsertOne(ctx, set)
	return translateWriteError(err, "insert attribute set")
}

func (r *AttributeSetRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.AttributeSet, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var set models.AttributeSet
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&set); err != nil {
		return nil, translateFindError(err, "find attribute set")
	}
	return &set, nil
}

func (r *AttributeSetRepository) Find(ctx context.Context, filter AttributeSetFilter, page Page) ([]models.AttributeSet, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	lifecycleFilter(query, filter.Lifecycle)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count attribute sets: %w", err)
	}

	cursor, err := r.collection.Find(ctx, query, findPage(page).SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("find attribute sets: %w", err)
	}
	defer cursor.Close(ctx)

	sets := []models.AttributeSet{}
	if err := cursor.All(ctx, &sets); err != nil {
		return nil, 0, fmt.Errorf("decode attribute sets: %w", err)
	}
	return sets, total, nil
}

func (r *AttributeSetRepository) Update(ctx context.Context, set *models.AttributeSet) (*models.AttributeSet, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"name":        set.Name,
		"description": set.Description,
		"attributes":  set.Attributes,
		"updatedAt":   now(),
	}}

	var updated models.AttributeSet
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": set.ID}, update, afterUpdate()).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, translateWriteError(err, "update attribute set")
	}
	return &updated, nil
}

func (r *AttributeSetRepository) SetLifecycle(ctx context.Context, id primitive.ObjectID, state models.Lifecycle) (*models.AttributeSet, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"isActive": state.IsActive(), "updatedAt": now()}}

	var updated models.AttributeSet
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).Decode(&updated); err != nil {
		return nil, translateFindError(err, "set attribute set lifecycle")
	}
	return &updated, nil
}
