package realtime

import (
	"fmt"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
)

// DeliverFunc hands an event to its destination: the local hub or the relay.
type DeliverFunc func(evt model.RealtimeEvent)

// PoolEmitter emits events fire-and-forget through a bounded goroutine pool.
// Callers never block on delivery; a saturated pool drops the event.
type PoolEmitter struct {
	pool *ants.PoolWithFunc
}

// NewPoolEmitter creates an emitter whose workers call deliver.
func NewPoolEmitter(cfg config.WorkerPoolConfig, deliver DeliverFunc) (*PoolEmitter, error) {
	size := cfg.PoolSize
	if size <= 0 {
		size = 16
	}

	pool, err := ants.NewPoolWithFunc(size, func(arg interface{}) {
		evt, ok := arg.(model.RealtimeEvent)
		if !ok {
			return
		}
		deliver(evt)
	},
		ants.WithNonblocking(true),
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithPanicHandler(func(p interface{}) {
			logger.Log.Error("Panic while delivering realtime event", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create realtime emitter pool: %w", err)
	}

	return &PoolEmitter{pool: pool}, nil
}

// Emit submits the event. It never blocks.
func (e *PoolEmitter) Emit(evt model.RealtimeEvent) {
	if err := e.pool.Invoke(evt); err != nil {
		logger.Log.Warn("Dropping realtime event",
			zap.String("company_id", evt.CompanyID),
			zap.String("type", string(evt.Type)),
			zap.Error(err))
		observer.IncRealtimeEvent(string(evt.Type), "dropped")
	}
}

// Release stops the pool workers.
func (e *PoolEmitter) Release() {
	e.pool.Release()
}
