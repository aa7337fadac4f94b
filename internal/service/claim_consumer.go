package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/event"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/mq"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/cache"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/monitor"

	"go.uber.org/zap"
)

// ClaimEventConsumer 消费领取成功事件
// 投递是 at-least-once，按 request_id 去重
type ClaimEventConsumer struct {
	consumer mq.Consumer
	seen     cache.Cache
	seenTTL  time.Duration
	log      *zap.Logger
}

func NewClaimEventConsumer(consumer mq.Consumer, seen cache.Cache) *ClaimEventConsumer {
	return &ClaimEventConsumer{
		consumer: consumer,
		seen:     seen,
		seenTTL:  24 * time.Hour,
		log:      logger.Named("claim-consumer"),
	}
}

// Start 阻塞直到 ctx 取消
func (c *ClaimEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Subscribe(ctx, event.TopicClaimMinted, func(msg *mq.Message) error {
		return c.handle(ctx, msg)
	})
}

func (c *ClaimEventConsumer) handle(ctx context.Context, msg *mq.Message) error {
	var evt event.ClaimMintedEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil || evt.RequestID == "" {
		// 格式错误的消息重试也没用，直接确认
		c.log.Warn("无法解析领取事件", zap.String("id", msg.ID), zap.Error(err))
		monitor.Business.IncConsumed("invalid")
		return nil
	}

	key := "claim_minted:" + evt.RequestID
	var dummy bool
	err := c.seen.Get(ctx, key, &dummy)
	if err == nil {
		monitor.Business.IncConsumed("duplicate")
		return nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.log.Warn("去重缓存不可用", zap.Error(err))
	}

	c.log.Info("出勤证明已铸造",
		zap.String("request_id", evt.RequestID),
		zap.String("address", evt.Address),
		zap.String("event_id", evt.EventID),
		zap.String("tx_hash", evt.TxHash),
		zap.Uint64("block", evt.BlockNumber),
		zap.Uint64("fid", evt.FID))
	monitor.Business.IncConsumed("ok")

	if err := c.seen.Set(ctx, key, true, c.seenTTL); err != nil {
		c.log.Warn("写入去重缓存失败", zap.Error(err))
	}
	return nil
}

func (c *ClaimEventConsumer) Close() error {
	return c.consumer.Close()
}
