package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"glowbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ClaimSlot performs the conflict check and the claim as one storage-layer
// operation: a session transaction counts overlapping active bookings and
// conditionally writes the slot fields onto the pending booking. The unique
// partial index on (expert_id, slot_key) backstops the transaction, so two
// concurrent claims for the identical slot cannot both commit.
func (repo *MongoBookingRepo) ClaimSlot(ctx context.Context, claim SlotClaim) error {
	err := repo.claimOnce(ctx, claim)
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}

	// A duplicate key against the partial index means some booking still in
	// pending_payment or confirmed carries the same slot key. If it is an
	// expired hold, release it and retry once.
	released, relErr := repo.releaseExpiredBlocker(ctx, claim)
	if relErr != nil {
		return relErr
	}
	if !released {
		return ErrSlotConflict
	}
	return claimRetryErr(repo.claimOnce(ctx, claim))
}

// claimRetryErr maps the outcome of the single post-release retry. A second
// duplicate key means a concurrent claimant took the slot between the
// release and the retry, which is a conflict, not a fault.
func claimRetryErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrSlotConflict
	}
	return err
}

func (repo *MongoBookingRepo) claimOnce(ctx context.Context, claim SlotClaim) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := repo.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		count, err := repo.countOverlapping(sc, claim)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSlotConflict
		}

		filter := bson.M{
			"id":     claim.BookingID,
			"status": models.BookingStatusPendingPayment,
		}
		update := bson.M{"$set": bson.M{
			"date":     claim.Date,
			"start":    claim.Start,
			"end":      claim.End,
			"slot_key": claim.SlotKey,
			"held_at":  claim.HeldAt,
		}}
		res, err := repo.coll.UpdateOne(sc, filter, update)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrPrecondition
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		if err == ErrSlotConflict || err == ErrPrecondition || mongo.IsDuplicateKeyError(err) {
			return err
		}
		return fmt.Errorf("slot claim transaction failed: %w", err)
	}
	return nil
}

// releaseExpiredBlocker cancels the booking holding the claim's slot key if
// it is a pending hold past the cutoff. Returns false when the blocker is
// live (confirmed, or a hold still within its TTL).
func (repo *MongoBookingRepo) releaseExpiredBlocker(ctx context.Context, claim SlotClaim) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"expert_id": claim.ExpertID,
		"slot_key":  claim.SlotKey,
		"status":    models.BookingStatusPendingPayment,
		"held_at":   bson.M{"$lte": claim.HoldCutoff},
	}
	update := bson.M{"$set": bson.M{
		"status":      models.BookingStatusCancelled,
		"fail_reason": "hold expired",
	}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error releasing expired hold for slot %s: %w", claim.SlotKey, err)
	}
	return res.ModifiedCount > 0, nil
}
