package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/foodonbus/pkg/models"
	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds a store request when the caller's context has
// no deadline.
const DefaultRequestTimeout = 30 * time.Second

// SerializedStore routes every store call through a single actor, so appends
// from concurrent requests in this process are applied one after another.
type SerializedStore struct {
	inner  OrderStore
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

func NewSerializedStore(inner OrderStore, logger *zap.Logger) *SerializedStore {
	system := actor.NewActorSystem()
	named := logger.Named("store-actor")

	props := actor.PropsFromProducer(func() actor.Actor {
		return &storeActor{store: inner, logger: named}
	})

	return &SerializedStore{
		inner:  inner,
		system: system,
		pid:    system.Root.Spawn(props),
		logger: named,
	}
}

// Messages
type loadAllRequest struct {
	ctx context.Context
}

type loadAllResponse struct {
	orders []models.Order
}

type appendRequest struct {
	ctx   context.Context
	order *models.Order
}

type appendResponse struct {
	err error
}

type storeActor struct {
	store  OrderStore
	logger *zap.Logger
}

func (a *storeActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *loadAllRequest:
		ctx.Respond(&loadAllResponse{orders: a.store.LoadAll(msg.ctx)})

	case *appendRequest:
		// Skip requests whose caller has stopped waiting.
		if err := msg.ctx.Err(); err != nil {
			a.logger.Warn("Dropping append for abandoned request",
				zap.String("order_id", msg.order.OrderID), zap.Error(err))
			ctx.Respond(&appendResponse{err: err})
			return
		}
		err := a.store.Append(msg.ctx, msg.order)
		if err != nil {
			a.logger.Error("Failed to append order",
				zap.String("order_id", msg.order.OrderID), zap.Error(err))
		}
		ctx.Respond(&appendResponse{err: err})

	case *actor.Started:
		a.logger.Debug("Store actor started")

	case *actor.Stopped:
		a.logger.Debug("Store actor stopped")
	}
}

func requestTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			return d
		}
		return time.Millisecond
	}
	return DefaultRequestTimeout
}

// LoadAll reads through the actor; a timed out request reads as empty.
func (s *SerializedStore) LoadAll(ctx context.Context) []models.Order {
	res, err := s.system.Root.RequestFuture(s.pid, &loadAllRequest{ctx: ctx}, requestTimeout(ctx)).Result()
	if err != nil {
		s.logger.Warn("Order load request failed, treating as empty", zap.Error(err))
		return []models.Order{}
	}
	return res.(*loadAllResponse).orders
}

// Append waits at most until ctx's deadline, or DefaultRequestTimeout without
// one. A request still queued when the wait ends is dropped, not applied.
func (s *SerializedStore) Append(ctx context.Context, order *models.Order) error {
	timeout := requestTimeout(ctx)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := s.system.Root.RequestFuture(s.pid, &appendRequest{ctx: ctx, order: order}, timeout).Result()
	if err != nil {
		return fmt.Errorf("failed to reach order store: %w", err)
	}
	return res.(*appendResponse).err
}

// Close stops the actor after queued requests drain, then closes the backend.
func (s *SerializedStore) Close(ctx context.Context) error {
	if err := s.system.Root.PoisonFuture(s.pid).Wait(); err != nil {
		s.logger.Warn("Store actor did not stop cleanly", zap.Error(err))
	}
	return s.inner.Close(ctx)
}
