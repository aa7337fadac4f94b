package service

import (
	"context"
	"fmt"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/model"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/mq"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OutboxStore 本地消息表读写
type OutboxStore interface {
	ListPending(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkSent(ctx context.Context, id uint64) error
	IncAttempts(ctx context.Context, id uint64) error
}

type GormOutboxStore struct {
	db *gorm.DB
}

func NewGormOutboxStore(db *gorm.DB) *GormOutboxStore {
	return &GormOutboxStore{db: db}
}

func (s *GormOutboxStore) ListPending(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	var messages []model.OutboxMessage
	err := s.db.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	return messages, nil
}

func (s *GormOutboxStore) MarkSent(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}

func (s *GormOutboxStore) IncAttempts(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
}

// RelayService 负责将本地消息表的消息搬运到 MQ
type RelayService struct {
	store     OutboxStore
	producer  mq.Producer
	interval  time.Duration
	batchSize int
	log       *zap.Logger
}

func NewRelayService(store OutboxStore, producer mq.Producer) *RelayService {
	return &RelayService{
		store:     store,
		producer:  producer,
		interval:  500 * time.Millisecond, // 500ms 轮询一次
		batchSize: 50,                     // 每次取 50 条，避免内存爆炸
		log:       logger.Named("relay"),
	}
}

// Start 阻塞直到 ctx 取消
func (s *RelayService) Start(ctx context.Context) {
	s.log.Info("启动消息中继服务")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("停止消息中继服务")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

// processPendingMessages 返回成功投递的条数
func (s *RelayService) processPendingMessages(ctx context.Context) int {
	messages, err := s.store.ListPending(ctx, s.batchSize)
	if err != nil {
		s.log.Error("查询消息失败", zap.Error(err))
		return 0
	}
	if len(messages) == 0 {
		return 0
	}

	s.log.Debug("发现待发送消息", zap.Int("count", len(messages)))

	sent := 0
	for _, msg := range messages {
		if err := s.producer.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			s.log.Warn("发送消息失败", zap.Uint64("id", msg.ID), zap.Error(err))
			if err := s.store.IncAttempts(ctx, msg.ID); err != nil {
				s.log.Warn("更新重试次数失败", zap.Uint64("id", msg.ID), zap.Error(err))
			}
			continue
		}

		// 只有发送成功了才更新状态 => At-least-once
		// 如果这里更新失败，下次还会发，Consumer 需做好幂等
		if err := s.store.MarkSent(ctx, msg.ID); err != nil {
			s.log.Warn("更新状态失败", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}
