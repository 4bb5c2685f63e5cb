package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"glowbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the booking store relies on. The partial
// unique index on (expert_id, slot_key) is the storage-level guarantee behind
// the conflict check: only bookings still in pending_payment or confirmed
// participate, so released slots can be re-claimed.
func (repo *MongoBookingRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys: bson.D{{Key: "expert_id", Value: 1}, {Key: "slot_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("unique_active_slot").
				SetPartialFilterExpression(bson.M{
					"slot_key": bson.M{"$exists": true},
					"status": bson.M{"$in": bson.A{
						models.BookingStatusPendingPayment,
						models.BookingStatusConfirmed,
					}},
				}),
		},
		{
			Keys:    bson.D{{Key: "expert_id", Value: 1}, {Key: "date", Value: 1}, {Key: "start", Value: 1}, {Key: "end", Value: 1}},
			Options: options.Index().SetName("expert_date_start_end_idx"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "held_at", Value: 1}},
			Options: options.Index().SetName("status_held_at_idx"),
		},
	}

	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}
