package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zumerkk/entas-sub001/models"
)

// opTimeout bounds every single Mongo round trip.
const opTimeout = 5 * time.Second

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

// now truncates to milliseconds, the precision BSON dates keep, so values returned to callers
// equal what a later read returns.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func lifecycleFilter(filter bson.M, state *models.Lifecycle) {
	if state != nil {
		filter["isActive"] = state.IsActive()
	}
}

func findPage(p Page) *options.FindOptions {
	opts := options.Find().SetSkip(p.skip())
	if p.Limit > 0 {
		opts.SetLimit(int64(p.Limit))
	}
	return opts
}

func ensureIndexes(ctx context.Context, coll *mongo.Collection, indexes []mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
