package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/reservations"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/property"
	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/config"
	mongodb "staybook/internal/infra/db/mongo"
	"staybook/internal/infra/locks"
	infraoutbox "staybook/internal/infra/outbox"
	"staybook/internal/infra/storage/memory"
)

// storage bundles the repository and outbox implementations selected by
// configuration: Mongo when MONGO_URI is set, in-memory otherwise.
type storage struct {
	bookings    booking.Repository
	properties  property.Repository
	outbox      appoutbox.Outbox
	outboxStore *infraoutbox.Store
	ready       func() error
	close       func()
}

func buildStorage(ctx context.Context, cfg config.Config) (*storage, error) {
	if cfg.MongoURI == "" {
		return &storage{
			bookings:   memory.NewBookingRepository(),
			properties: memory.NewPropertyRepository(),
			outbox:     memory.NewOutbox(),
			ready:      func() error { return nil },
			close:      func() {},
		}, nil
	}

	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	bookings := mongodb.NewBookingRepository(client.DB)
	if err := bookings.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	store := infraoutbox.NewStore(client.DB)
	return &storage{
		bookings:    bookings,
		properties:  mongodb.NewPropertyRepository(client.DB),
		outbox:      store,
		outboxStore: store,
		ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		},
		close: func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Close(closeCtx)
		},
	}, nil
}

// lockerFor satisfies both the reservations and ratings locker ports.
type locker interface {
	Lock(ctx context.Context, id property.PropertyID) (func(), error)
}

func buildLocker(cfg config.Config, logger *slog.Logger) locker {
	if cfg.RedisAddr == "" {
		return locks.NewLocal()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	logger.Info("using redis property locks", "addr", cfg.RedisAddr)
	return locks.NewRedis(client)
}

// startKafka launches the outbox worker and the payment-updates consumer
// when brokers are configured. Without brokers, recorded events stay in the
// configured outbox and payments go unrecorded, which is the dev posture.
func startKafka(ctx context.Context, cfg config.Config, st *storage, svc *reservations.Service, logger *slog.Logger) {
	if len(cfg.KafkaBrokers) == 0 || st.outboxStore == nil {
		logger.Info("kafka disabled, events remain in outbox")
		return
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Error("kafka producer init failed", "error", err)
		return
	}
	worker := &infraoutbox.Worker{
		Store:       st.outboxStore,
		Producer:    producer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}
	go func() {
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("outbox worker stopped", "error", err)
		}
		_ = producer.Close()
	}()

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.PaymentsGroup, nil, kafka.PaymentUpdates(svc, logger))
	if err != nil {
		logger.Error("kafka consumer init failed", "error", err)
		return
	}
	go func() {
		topic := cfg.KafkaTopicPrefix + cfg.PaymentsTopic
		if err := consumer.Run(ctx, []string{topic}); err != nil && ctx.Err() == nil {
			logger.Error("payments consumer stopped", "error", err)
		}
		_ = consumer.Close()
	}()
}
