package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisProducer 实现 Producer 接口 (Redis Streams)
type RedisProducer struct {
	client *redis.Client
	maxLen int64
}

func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{
		client: client,
		maxLen: 100000,
	}
}

// Publish XADD 到与 topic 同名的 Stream
func (p *RedisProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"key":     key,
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd error: %w", err)
	}
	return nil
}

// Close client 由调用方管理
func (p *RedisProducer) Close() error {
	return nil
}

// RedisConsumer 实现 Consumer 接口
type RedisConsumer struct {
	client *redis.Client
	group  string
	name   string
}

func NewRedisConsumer(client *redis.Client, group, name string) *RedisConsumer {
	return &RedisConsumer{
		client: client,
		group:  group,
		name:   name,
	}
}

// Subscribe 订阅 Redis Stream
func (c *RedisConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	// XGROUP CREATE <stream> <group> $ MKSTREAM
	err := c.client.XGroupCreateMkStream(ctx, topic, c.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("创建消费者组失败: %w", err)
	}

	log := logger.Named("redis-mq")
	log.Info("开始监听主题", zap.String("topic", topic), zap.String("group", c.group))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{topic, ">"},
			Count:    10,
			Block:    2 * time.Second,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue // 超时无消息
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("读取消息错误", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, xMessage := range stream.Messages {
				msg, ok := decodeStreamMessage(topic, xMessage)
				if !ok {
					log.Warn("消息格式错误: payload 缺失", zap.String("id", xMessage.ID))
					c.ack(ctx, topic, xMessage.ID)
					continue
				}

				if err := handler(msg); err != nil {
					log.Error("消息处理失败", zap.String("id", msg.ID), zap.Error(err))
					continue
				}
				c.ack(ctx, topic, xMessage.ID)
			}
		}
	}
}

func decodeStreamMessage(topic string, x redis.XMessage) (*Message, bool) {
	val, ok := x.Values["payload"].(string)
	if !ok {
		return nil, false
	}
	key, _ := x.Values["key"].(string)
	return &Message{
		ID:      x.ID,
		Topic:   topic,
		Key:     key,
		Payload: []byte(val),
	}, true
}

func (c *RedisConsumer) ack(ctx context.Context, topic, id string) {
	if err := c.client.XAck(ctx, topic, c.group, id).Err(); err != nil {
		logger.Warn("XACK 失败", zap.String("id", id), zap.Error(err))
	}
}

// Close client 由调用方管理
func (c *RedisConsumer) Close() error {
	return nil
}
