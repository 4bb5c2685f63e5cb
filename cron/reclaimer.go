package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"glowbook/config"
	"glowbook/services/booking"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeBookingExpire = "booking:expire"

type expirePayload struct {
	BookingID string `json:"bookingId"`
}

// Reclaimer releases unpaid slot holds once their TTL lapses. Each hold gets
// its own delayed task enqueued at attach time, so release happens close to
// the deadline instead of on a polling sweep.
type Reclaimer struct {
	client *asynq.Client
	server *asynq.Server
	logger *zap.Logger
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

func NewReclaimer(logger *zap.Logger) *Reclaimer {
	return &Reclaimer{
		client: asynq.NewClient(redisOpts()),
		logger: logger,
	}
}

// ScheduleExpiry enqueues the delayed release task for a hold.
func (r *Reclaimer) ScheduleExpiry(bookingID string, delay time.Duration) error {
	b, err := json.Marshal(expirePayload{BookingID: bookingID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeBookingExpire, b)
	_, err = r.client.Enqueue(task, asynq.ProcessIn(delay))
	return err
}

// Start runs the async worker in background.
func (r *Reclaimer) Start(svc booking.BookingService) {
	r.server = asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBookingExpire, r.handleExpire(svc))

	go func() {
		r.logger.Info("hold reclaimer starting")
		if err := r.server.Run(mux); err != nil {
			log.Fatalf("hold reclaimer failed to start: %v", err)
		}
	}()
}

func (r *Reclaimer) handleExpire(svc booking.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p expirePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			r.logger.Error("invalid expire payload", zap.Error(err))
			return err
		}
		released, err := svc.ReleaseExpiredHold(ctx, p.BookingID)
		if err != nil {
			r.logger.Error("hold release failed", zap.String("bookingID", p.BookingID), zap.Error(err))
			return err
		}
		if released {
			r.logger.Info("expired hold reclaimed", zap.String("bookingID", p.BookingID))
		}
		return nil
	}
}

// Shutdown stops the worker and flushes the enqueue client.
func (r *Reclaimer) Shutdown() {
	if r.server != nil {
		r.server.Shutdown()
	}
	if r.client != nil {
		_ = r.client.Close()
	}
}
