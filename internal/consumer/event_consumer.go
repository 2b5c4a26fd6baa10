package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/barjr/ResQ/internal/config"
	"github.com/barjr/ResQ/internal/models"
	redisutil "github.com/barjr/ResQ/internal/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Orchestrator 通知编排接口
type Orchestrator interface {
	// OnNewEvent 处理一条新的紧急求助事件，失败被吸收为 NoOp 汇总
	OnNewEvent(ctx context.Context, req *models.EmergencyRequest) *models.DispatchSummary
}

// EventConsumer 紧急事件消费者（Redis Streams 消费者组）
// 上游事件源在事件记录落库后向流中发布一条消息；消费者组保证
// 正常情况下每条记录只触发一次通知流程
type EventConsumer struct {
	config       *config.Config
	redisClient  *redis.Client
	orchestrator Orchestrator
	logger       *zap.Logger

	batchSize int64
	block     time.Duration
}

// NewEventConsumer 创建紧急事件消费者
func NewEventConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	orchestrator Orchestrator,
	logger *zap.Logger,
) *EventConsumer {
	return &EventConsumer{
		config:       cfg,
		redisClient:  redisClient,
		orchestrator: orchestrator,
		logger:       logger,
		batchSize:    10,
		block:        5 * time.Second,
	}
}

// Start 启动消费者（阻塞直到 ctx 取消）
func (c *EventConsumer) Start(ctx context.Context) error {
	stream := c.config.Notify.Stream.Name
	group := c.config.Notify.Stream.Group

	// 1. 确保消费者组存在
	if err := redisutil.CreateConsumerGroup(ctx, c.redisClient, stream, group); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Event consumer started",
		zap.String("stream", stream),
		zap.String("group", group),
		zap.String("consumer", c.config.Notify.Stream.Consumer),
	)

	// 2. 消费循环
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Event consumer stopped")
			return nil
		default:
		}

		if err := c.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Event consumer stopped")
				return nil
			}
			c.logger.Error("Failed to read from event stream",
				zap.Error(err),
			)
			// 继续执行，不中断
			time.Sleep(time.Second)
		}
	}
}

// pollOnce 读取并处理一批消息
func (c *EventConsumer) pollOnce(ctx context.Context) error {
	messages, err := redisutil.ReadFromStream(
		ctx,
		c.redisClient,
		c.config.Notify.Stream.Name,
		c.config.Notify.Stream.Group,
		c.config.Notify.Stream.Consumer,
		c.batchSize,
		c.block,
	)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		c.handleMessage(ctx, msg)
	}

	return nil
}

// handleMessage 处理单条流消息
// 通知是尽力而为的旁路，无论流程结果如何都确认消息：事件记录
// 本身在上游已持久化，失效的令牌会在之后的事件中被清除
func (c *EventConsumer) handleMessage(ctx context.Context, msg redisutil.StreamMessage) {
	defer c.ack(ctx, msg.ID)

	raw, ok := msg.Values["data"].(string)
	if !ok {
		c.logger.Warn("Stream message without data field, discarding",
			zap.String("message_id", msg.ID),
		)
		return
	}

	var req models.EmergencyRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		c.logger.Warn("Malformed emergency event, discarding",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return
	}

	if req.RequestID == "" {
		c.logger.Warn("Emergency event without request_id, discarding",
			zap.String("message_id", msg.ID),
		)
		return
	}

	c.orchestrator.OnNewEvent(ctx, &req)
}

func (c *EventConsumer) ack(ctx context.Context, messageID string) {
	if err := redisutil.AckMessage(ctx, c.redisClient, c.config.Notify.Stream.Name, c.config.Notify.Stream.Group, messageID); err != nil {
		c.logger.Error("Failed to ack stream message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
