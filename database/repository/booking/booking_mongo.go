package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"glowbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a booking repository over the given database.
func NewMongoBookingRepo(db *mongo.Database) *MongoBookingRepo {
	return &MongoBookingRepo{coll: db.Collection("bookings")}
}

// Create inserts a new booking document.
func (repo *MongoBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.coll.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking document by its id.
func (repo *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Booking
	if err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking with id %s: %w", id, err)
	}
	return &b, nil
}

// SetPaymentLink records the gateway order id and redirect URL on a booking.
func (repo *MongoBookingRepo) SetPaymentLink(ctx context.Context, id, gatewayOrderID, paymentURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"payment_order_id": gatewayOrderID,
		"payment_url":      paymentURL,
	}}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("error setting payment link for booking %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkConfirmed transitions pending_payment -> confirmed, stamping paid_at
// and the gateway payment reference. The status filter makes the update a
// no-op unless the booking is still pending; callers decide how to treat
// ErrPrecondition (duplicate callback vs. illegal transition).
func (repo *MongoBookingRepo) MarkConfirmed(ctx context.Context, id, paymentID string, paidAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": models.BookingStatusPendingPayment}
	update := bson.M{"$set": bson.M{
		"status":     models.BookingStatusConfirmed,
		"payment_id": paymentID,
		"paid_at":    paidAt,
	}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error confirming booking %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrPrecondition
	}
	return nil
}

// MarkFailed transitions pending_payment -> failed.
func (repo *MongoBookingRepo) MarkFailed(ctx context.Context, id, reason string) error {
	return repo.finalize(ctx, id, models.BookingStatusFailed, reason)
}

// MarkCancelled transitions pending_payment -> cancelled.
func (repo *MongoBookingRepo) MarkCancelled(ctx context.Context, id, reason string) error {
	return repo.finalize(ctx, id, models.BookingStatusCancelled, reason)
}

func (repo *MongoBookingRepo) finalize(ctx context.Context, id string, status models.BookingStatus, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": models.BookingStatusPendingPayment}
	update := bson.M{"$set": bson.M{
		"status":      status,
		"fail_reason": reason,
	}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error finalizing booking %s as %s: %w", id, status, err)
	}
	if res.MatchedCount == 0 {
		return ErrPrecondition
	}
	return nil
}
