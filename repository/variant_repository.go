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

type VariantRepository struct {
	collection *mongo.Collection
}

func NewVariantRepository(db *mongo.Database) *VariantRepository {
	return &VariantRepository{collection: db.Collection(ProductVariantsCollection)}
}

// EnsureIndexes creates the unique sku index, the sparse unique barcode index and the
// (productId, isActive) listing index.
func (r *VariantRepository) EnsureIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, r.collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sku", Value: 1}},
			Options: options.Index().SetName(indexVariantSKU).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "barcode", Value: 1}},
			Options: options.Index().SetName(indexVariantBarcode).SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "productId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index().SetName("idx_product_active"),
		},
	})
}

func (r *VariantRepository) Create(ctx context.Context, variant *models.ProductVariant) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	ts := now()
	variant.ID = primitive.NewObjectID()
	variant.CreatedAt = ts
	variant.UpdatedAt = ts

	_, err := r.collection.InsertOne(ctx, variant)
	return translateWriteError(err, "insert variant")
}

func (r *VariantRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ProductVariant, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *VariantRepository) FindBySKU(ctx context.Context, sku string) (*models.ProductVariant, error) {
	return r.findOne(ctx, bson.M{"sku": sku})
}

func (r *VariantRepository) findOne(ctx context.Context, filter bson.M) (*models.ProductVariant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var v models.ProductVariant
	if err := r.collection.FindOne(ctx, filter).Decode(&v); err != nil {
		return nil, translateFindError(err, "find variant")
	}
	return &v, nil
}

func (r *VariantRepository) FindByProduct(ctx context.Context, productID primitive.ObjectID, state *models.Lifecycle) ([]models.ProductVariant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"productId": productID}
	lifecycleFilter(filter, state)

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "sku", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find variants: %w", err)
	}
	defer cursor.Close(ctx)

	variants := []models.ProductVariant{}
	if err := cursor.All(ctx, &variants); err != nil {
		return nil, fmt.Errorf("decode variants: %w", err)
	}
	return variants, nil
}

func (r *VariantRepository) Update(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{
		"title":         variant.Title,
		"attributes":    variant.Attributes,
		"priceModifier": variant.PriceModifier,
		"updatedAt":     now(),
	}
	unset := bson.M{}
	if variant.Barcode != nil {
		set["barcode"] = *variant.Barcode
	} else {
		unset["barcode"] = ""
	}
	if variant.AttributeSetID != nil {
		set["attributeSetId"] = *variant.AttributeSetID
	} else {
		unset["attributeSetId"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var updated models.ProductVariant
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": variant.ID}, update, afterUpdate()).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, translateWriteError(err, "update variant")
	}
	return &updated, nil
}

func (r *VariantRepository) SetLifecycle(ctx context.Context, id primitive.ObjectID, state models.Lifecycle) (*models.ProductVariant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"isActive": state.IsActive(), "updatedAt": now()}}

	var updated models.ProductVariant
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).Decode(&updated); err != nil {
		return nil, translateFindError(err, "set variant lifecycle")
	}
	return &updated, nil
}
