package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-task-service/internal/core"
)

const defaultTriggerChannel = "task:triggers"

// TriggerBusOptions configures a TriggerBus.
type TriggerBusOptions struct {
	Client  redis.UniversalClient
	Channel string
	Logger  *slog.Logger
}

// TriggerBus carries manual "run now" requests between processes over Redis pub/sub.
// Delivery is at-most-once: triggers published while no scheduler is subscribed are lost.
type TriggerBus struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

var (
	_ core.TriggerPublisher  = (*TriggerBus)(nil)
	_ core.TriggerSubscriber = (*TriggerBus)(nil)
)

type triggerMessage struct {
	JobID       string    `json:"job_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewTriggerBus creates a TriggerBus.
func NewTriggerBus(opts TriggerBusOptions) (*TriggerBus, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	channel := strings.TrimSpace(opts.Channel)
	if channel == "" {
		channel = defaultTriggerChannel
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TriggerBus{
		client:  opts.Client,
		channel: channel,
		logger:  logger.With("component", "trigger_bus", "channel", channel),
	}, nil
}

// PublishTrigger announces that jobID should run now. Delivery is at most once:
// a trigger published while no scheduler is listening is lost.
func (b *TriggerBus) PublishTrigger(ctx context.Context, jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return errors.New("job id is required")
	}
	payload, err := json.Marshal(triggerMessage{JobID: jobID, RequestedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal trigger: %w", err)
	}
	receivers, err := b.client.Publish(ctx, b.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish trigger: %w", err)
	}
	if receivers == 0 {
		b.logger.WarnContext(ctx, "trigger published with no scheduler subscribed; it will be dropped",
			"job_id", jobID,
		)
	}
	return nil
}

// Subscribe delivers triggers to handler until ctx is cancelled. The
// subscription is confirmed before Subscribe starts consuming.
func (b *TriggerBus) Subscribe(ctx context.Context, handler core.TriggerHandler) error {
	if handler == nil {
		return errors.New("trigger handler is required")
	}

	pubsub := b.client.Subscribe(ctx, b.channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			b.logger.Warn("close trigger subscription", "error", err)
		}
	}()
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.logger.InfoContext(ctx, "listening for manual triggers")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("trigger subscription closed")
			}
			b.dispatch(ctx, msg.Payload, handler)
		}
	}
}

func (b *TriggerBus) dispatch(ctx context.Context, payload string, handler core.TriggerHandler) {
	var msg triggerMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil || msg.JobID == "" {
		b.logger.WarnContext(ctx, "ignoring malformed trigger", "payload", payload, "error", err)
		return
	}
	handler(ctx, msg.JobID)
}
