package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/barjr/ResQ/internal/config"
	"github.com/barjr/ResQ/internal/models"
	"github.com/barjr/ResQ/internal/mqtt"

	"go.uber.org/zap"
)

// MQTTConsumer 设备端紧急事件消费者
// 紧急按钮等设备直接通过 MQTT 上报求助事件，作为流触发之外的第二来源
type MQTTConsumer struct {
	client       *mqtt.Client
	config       *config.Config
	orchestrator Orchestrator
	logger       *zap.Logger
}

// NewMQTTConsumer 创建MQTT紧急事件消费者
func NewMQTTConsumer(
	client *mqtt.Client,
	cfg *config.Config,
	orchestrator Orchestrator,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		client:       client,
		config:       cfg,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Start 订阅紧急事件主题
func (c *MQTTConsumer) Start(ctx context.Context) error {
	topic := c.config.Notify.MQTTTrigger.Topic

	err := c.client.Subscribe(topic, c.config.MQTT.QoS, func(topic string, payload []byte) error {
		return c.handleMessage(ctx, payload)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe emergency topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", topic),
	)

	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop() {
	if err := c.client.Unsubscribe(c.config.Notify.MQTTTrigger.Topic); err != nil {
		c.logger.Error("Failed to unsubscribe emergency topic",
			zap.Error(err),
		)
	}
}

// handleMessage 处理单条设备上报
func (c *MQTTConsumer) handleMessage(ctx context.Context, payload []byte) error {
	var req models.EmergencyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("malformed emergency report: %w", err)
	}

	if req.RequestID == "" {
		return fmt.Errorf("emergency report without request_id")
	}

	c.orchestrator.OnNewEvent(ctx, &req)
	return nil
}
