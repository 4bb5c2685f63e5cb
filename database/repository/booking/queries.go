package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"glowbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// activeFilter matches bookings that still occupy their slot: confirmed ones
// and pending holds newer than holdCutoff. Expired holds fall out of the
// filter even before the reclaimer touches them.
func activeFilter(holdCutoff time.Time) bson.A {
	return bson.A{
		bson.M{"status": bson.M{"$in": bson.A{models.BookingStatusConfirmed, models.BookingStatusCompleted}}},
		bson.M{
			"status":  models.BookingStatusPendingPayment,
			"held_at": bson.M{"$gt": holdCutoff},
		},
	}
}

// ActiveForExpertDate returns the occupying bookings for an expert on a date,
// sorted by start time.
func (repo *MongoBookingRepo) ActiveForExpertDate(ctx context.Context, expertID, date string, holdCutoff time.Time) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"expert_id": expertID,
		"date":      date,
		"$or":       activeFilter(holdCutoff),
	}
	cursor, err := repo.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error finding active bookings for expert %s on %s: %w", expertID, date, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding active bookings: %w", err)
	}
	return bookings, nil
}

// countOverlapping counts active bookings of the expert whose interval
// intersects [start, end) on the date, excluding the claiming booking itself.
func (repo *MongoBookingRepo) countOverlapping(ctx context.Context, claim SlotClaim) (int64, error) {
	filter := bson.M{
		"expert_id": claim.ExpertID,
		"date":      claim.Date,
		"id":        bson.M{"$ne": claim.BookingID},
		"start":     bson.M{"$lt": claim.End},
		"end":       bson.M{"$gt": claim.Start},
		"$or":       activeFilter(claim.HoldCutoff),
	}
	count, err := repo.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("error counting overlapping bookings: %w", err)
	}
	return count, nil
}
