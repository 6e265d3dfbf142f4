package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zumerkk/entas-sub001/models"
)

type PaymentRepository struct {
	collection *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{collection: db.Collection(PaymentsCollection)}
}

func (r *PaymentRepository) EnsureIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, r.collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetName("idx_order"),
		},
		{
			Keys:    bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_customer_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
		{
			Keys:    bson.D{{Key: "idempotencyKey", Value: 1}},
			Options: options.Index().SetName(indexPaymentIdempotencyKey).SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "transactionId", Value: 1}},
			Options: options.Index().SetName("idx_transaction_sparse").SetSparse(true),
		},
	})
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	ts := now()
	payment.ID = primitive.NewObjectID()
	payment.CreatedAt = ts
	payment.UpdatedAt = ts

	_, err := r.collection.InsertOne(ctx, payment)
	return translateWriteError(err, "insert payment")
}

func (r *PaymentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *PaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"idempotencyKey": key})
}

func (r *PaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"transactionId": transactionID})
}

func (r *PaymentRepository) findOne(ctx context.Context, filter bson.M) (*models.Payment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var p models.Payment
	if err := r.collection.FindOne(ctx, filter).Decode(&p); err != nil {
		return nil, translateFindError(err, "find payment")
	}
	return &p, nil
}

// Find lists newest first, which is the order the (customerId, createdAt desc) index serves.
func (r *PaymentRepository) Find(ctx context.Context, filter PaymentFilter, page Page) ([]models.Payment, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if filter.OrderID != nil {
		query["orderId"] = *filter.OrderID
	}
	if filter.CustomerID != nil {
		query["customerId"] = *filter.CustomerID
	}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	cursor, err := r.collection.Find(ctx, query, findPage(page).SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("find payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := []models.Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, 0, fmt.Errorf("decode payments: %w", err)
	}
	return payments, total, nil
}

// ApplyTransition is a compare-and-set on the current status. When nothing matches it
// distinguishes a missing payment from one whose status moved underneath the caller.
func (r *PaymentRepository) ApplyTransition(ctx context.Context, id primitive.ObjectID, t *models.PaymentTransition) (*models.Payment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{
		"status":    t.To,
		"updatedAt": t.Change.At,
	}
	if t.PaidAt != nil {
		set["paidAt"] = *t.PaidAt
	}
	if t.TransactionID != nil {
		set["transactionId"] = *t.TransactionID
	}
	if t.GatewayResponse != nil {
		set["gatewayResponse"] = *t.GatewayResponse
	}

	update := bson.M{
		"$set":  set,
		"$push": bson.M{"statusHistory": t.Change},
	}

	var updated models.Payment
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": t.From}, update, afterUpdate()).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("apply payment transition: %w", err)
	}

	n, cerr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if cerr != nil {
		return nil, fmt.Errorf("apply payment transition: %w", cerr)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrStatusConflict
}

func (r *PaymentRepository) UpdateNotes(ctx context.Context, id primitive.ObjectID, notes string) (*models.Payment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"notes": notes, "updatedAt": now()}}

	var updated models.Payment
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).Decode(&updated); err != nil {
		return nil, translateFindError(err, "update payment notes")
	}
	return &updated, nil
}

// MarkNotified records that an event for status was published. It is a no-op when the
// payment has since moved to another status, so a stale publish never hides a newer one.
func (r *PaymentRepository) MarkNotified(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": status},
		bson.M{"$set": bson.M{"notifiedStatus": status}},
	)
	if err != nil {
		return fmt.Errorf("mark payment notified: %w", err)
	}
	return nil
}

func (r *PaymentRepository) FindUnnotified(ctx context.Context, olderThan time.Time, limit int) ([]models.Payment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"$expr":     bson.M{"$ne": bson.A{"$notifiedStatus", "$status"}},
		"updatedAt": bson.M{"$lt": olderThan},
	}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find unnotified payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := []models.Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("decode unnotified payments: %w", err)
	}
	return payments, nil
}
