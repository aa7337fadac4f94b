package mq

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaProducer 实现 Producer 接口
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer 创建 Kafka 生产者
// Writer 不绑定 Topic，每条消息自带 Topic，同一个 Producer 可以服务多个主题
func NewKafkaProducer(brokers []string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},    // 按 Key 哈希，同一地址的消息有序
		AllowAutoTopicCreation: true,             // 开发环境允许自动创建 Topic
		RequiredAcks:           kafka.RequireAll, // 等待所有 ISR 副本确认
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
	}

	return &KafkaProducer{
		writer: writer,
	}
}

// Publish 发送消息到 Kafka
func (p *KafkaProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write error: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer 实现 Consumer 接口
type KafkaConsumer struct {
	brokers []string
	groupID string
	reader  *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		brokers: brokers,
		groupID: groupID,
	}
}

// Subscribe 订阅 Kafka 主题
// 处理成功后手动提交 Offset; 处理失败的消息不提交，下次重启后重新投递
func (c *KafkaConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.brokers,
		GroupID:     c.groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		StartOffset: kafka.FirstOffset,
	})
	defer c.reader.Close()

	log := logger.Named("kafka")
	log.Info("开始监听主题", zap.String("topic", topic), zap.String("group", c.groupID))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("读取消息错误", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		msg := &Message{
			ID:      strconv.Itoa(m.Partition) + "-" + strconv.FormatInt(m.Offset, 10),
			Topic:   m.Topic,
			Key:     string(m.Key),
			Payload: m.Value,
		}

		if err := handler(msg); err != nil {
			log.Error("业务处理失败", zap.String("id", msg.ID), zap.Error(err))
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Warn("提交 Offset 失败", zap.Error(err))
		}
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
