package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

const relayPublishTimeout = 3 * time.Second

// relayEnvelope is the pub/sub wire form; unlike the client envelope it keeps the tenant.
type relayEnvelope struct {
	CompanyID string                  `json:"companyId"`
	Type      model.RealtimeEventType `json:"type"`
	Data      json.RawMessage         `json:"data"`
}

func encodeRelay(evt model.RealtimeEvent) ([]byte, error) {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(relayEnvelope{CompanyID: evt.CompanyID, Type: evt.Type, Data: data})
}

func decodeRelay(payload []byte) (model.RealtimeEvent, error) {
	var env relayEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return model.RealtimeEvent{}, err
	}
	if env.CompanyID == "" || env.Type == "" {
		return model.RealtimeEvent{}, errors.New("relay envelope without companyId or type")
	}
	return model.RealtimeEvent{CompanyID: env.CompanyID, Type: env.Type, Data: env.Data}, nil
}

// RedisRelay shares events between instances: Publish sends to the channel and
// Run delivers every channel message, including our own, to the local hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

// NewRedisRelay connects to Redis and verifies the connection.
func NewRedisRelay(ctx context.Context, cfg config.RedisConfig, hub *Hub) (*RedisRelay, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis relay connection test failed: %w", err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = "wa-crm:realtime"
	}
	return &RedisRelay{client: client, channel: channel, hub: hub}, nil
}

// Publish sends the event to every instance. Used as the emitter's DeliverFunc.
func (r *RedisRelay) Publish(evt model.RealtimeEvent) {
	payload, err := encodeRelay(evt)
	if err != nil {
		logger.Log.Error("Failed to encode relay event", zap.String("type", string(evt.Type)), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		logger.Log.Warn("Relay publish failed, delivering locally only",
			zap.String("company_id", evt.CompanyID), zap.Error(err))
		observer.IncRealtimeEvent(string(evt.Type), "relay_error")
		r.hub.Broadcast(evt)
	}
}

// Run subscribes to the channel until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) {
	defer utils.RecoverWithLog(ctx, "realtime relay")

	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	logger.Log.Info("Realtime relay subscribed", zap.String("channel", r.channel))
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			evt, err := decodeRelay([]byte(msg.Payload))
			if err != nil {
				logger.Log.Warn("Discarding malformed relay message", zap.Error(err))
				continue
			}
			r.hub.Broadcast(evt)
		}
	}
}

// Ping checks the Redis connection for readiness probes.
func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *RedisRelay) Close() error {
	return r.client.Close()
}
