package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/farhan-ashraf/simpledex-analytics/internal/constants"
	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

// PubSubManager fans swap records and metric snapshots out over Redis
// Pub/Sub for live UI subscribers.
type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// PublishSwaps pushes each record to the live swap channel.
func (p *PubSubManager) PublishSwaps(ctx context.Context, records []SwapRecord) error {
	if len(records) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal swap record: %w", err)
		}
		pipe.Publish(ctx, constants.PubSubChannelSwaps, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// PublishMetrics pushes a fresh metrics snapshot to the live metrics
// channel.
func (p *PubSubManager) PublishMetrics(ctx context.Context, metrics models.PoolMetrics) error {
	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	return p.client.Publish(ctx, constants.PubSubChannelMetrics, data).Err()
}

// SubscribeSwaps blocks consuming the live swap channel until ctx is
// cancelled, invoking handler per record.
func (p *PubSubManager) SubscribeSwaps(ctx context.Context, handler func(SwapRecord)) error {
	pubsub := p.client.Subscribe(ctx, constants.PubSubChannelSwaps)
	defer pubsub.Close()

	p.logger.WithField("channel", constants.PubSubChannelSwaps).Info("subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var rec SwapRecord
			if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
				p.logger.WithError(err).Warn("bad swap payload, skipping")
				continue
			}
			handler(rec)
		}
	}
}

// SubscribeMetrics blocks consuming the live metrics channel until ctx is
// cancelled.
func (p *PubSubManager) SubscribeMetrics(ctx context.Context, handler func(models.PoolMetrics)) error {
	pubsub := p.client.Subscribe(ctx, constants.PubSubChannelMetrics)
	defer pubsub.Close()

	p.logger.WithField("channel", constants.PubSubChannelMetrics).Info("subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m models.PoolMetrics
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				p.logger.WithError(err).Warn("bad metrics payload, skipping")
				continue
			}
			handler(m)
		}
	}
}
