// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/pkg/constants"
)

// natsConnectTimeout bounds the initial NATS connection attempt.
const natsConnectTimeout = 10 * time.Second

// setupNATS connects to the NATS server and wires the connection into the
// graceful shutdown path.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup) (*nats.Conn, error) {
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.Timeout(natsConnectTimeout),
		nats.DrainTimeout(constants.ShutdownTimeout),
		nats.ConnectHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection established", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				slog.ErrorContext(ctx, "NATS subscription error", logging.ErrKey, err, "subject", sub.Subject)
				return
			}
			slog.ErrorContext(ctx, "NATS connection error", logging.ErrKey, err)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection closed")
			gracefulCloseWG.Done()
		}),
	)
	if err != nil {
		return nil, err
	}

	// Matched by Done in the ClosedHandler above.
	gracefulCloseWG.Add(1)
	return natsConn, nil
}

// setupLockBucket creates or updates the idempotency-lock KV bucket. The
// bucket TTL backstops the per-grant expiry so abandoned keys age out even
// if no worker ever inspects them.
func setupLockBucket(ctx context.Context, natsConn *nats.Conn, lockTTL time.Duration) (jetstream.KeyValue, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, err
	}
	return js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: constants.LockBucketName,
		TTL:    2 * lockTTL,
	})
}

// setupStore opens the database pool and applies pending migrations.
func setupStore(ctx context.Context, env environment) (*pgxpool.Pool, error) {
	pool, err := store.NewPool(ctx, env.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.ApplyMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// natsMessage adapts *nats.Msg to the transport-agnostic domain.Message.
type natsMessage struct {
	msg *nats.Msg
}

func (m natsMessage) Subject() string {
	return m.msg.Subject
}

func (m natsMessage) Data() []byte {
	return m.msg.Data
}

func (m natsMessage) Respond(data []byte) error {
	return m.msg.Respond(data)
}

func (m natsMessage) HasReply() bool {
	return m.msg.Reply != ""
}

// createNatsSubscriptions subscribes the handler on the worker queue group
// so concurrent workers share the message stream.
func createNatsSubscriptions(ctx context.Context, handler domain.MessageHandler, natsConn *nats.Conn) error {
	subjects := []string{
		constants.ProcessMessageSubject,
	}
	for _, subject := range subjects {
		_, err := natsConn.QueueSubscribe(subject, constants.ProcessMessageQueue, func(m *nats.Msg) {
			handler.HandleMessage(ctx, natsMessage{msg: m})
		})
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "subscribed to NATS subject", "subject", subject, "queue", constants.ProcessMessageQueue)
	}
	return nil
}

// gracefulShutdown drains the NATS connection, closes the database pool,
// and waits for in-flight work to finish.
func gracefulShutdown(natsConn *nats.Conn, pool *pgxpool.Pool, gracefulCloseWG *sync.WaitGroup, cancel context.CancelFunc) {
	slog.Info("shutting down assistant worker")
	cancel()

	if natsConn != nil && !natsConn.IsClosed() {
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
			gracefulCloseWG.Done()
		}
	}
	gracefulCloseWG.Wait()

	if pool != nil {
		pool.Close()
	}
	slog.Info("assistant worker stopped")
}
