package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/barjr/ResQ/internal/config"
	"github.com/barjr/ResQ/internal/consumer"
	"github.com/barjr/ResQ/internal/database"
	"github.com/barjr/ResQ/internal/mqtt"
	"github.com/barjr/ResQ/internal/notifier"
	redisutil "github.com/barjr/ResQ/internal/redis"
	"github.com/barjr/ResQ/internal/repository"
	"github.com/barjr/ResQ/internal/roles"
	"github.com/barjr/ResQ/internal/transport"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// NotifyService 通知服务（整合各层）
// 所有后端连接在这里显式创建并注入各组件，进程退出时统一关闭
type NotifyService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqtt.Client
	logger      *zap.Logger

	// 各层组件
	recipientRepo *repository.RecipientRepository
	identityRepo  *repository.IdentityRepository
	orchestrator  *notifier.Orchestrator
	eventConsumer *consumer.EventConsumer
	mqttConsumer  *consumer.MQTTConsumer
}

// NewNotifyService 创建通知服务
func NewNotifyService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*NotifyService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := redisutil.NewRedisClient(&cfg.Redis)
	if err := redisutil.Ping(ctx, redisClient); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 创建推送传输
	fcmTransport, err := transport.NewFCMTransport(ctx, &cfg.FCM, logger)
	if err != nil {
		redisutil.Close(redisClient)
		database.Close(db)
		return nil, fmt.Errorf("failed to init push transport: %w", err)
	}

	// 4. 创建 Repository 层
	recipientRepo := repository.NewRecipientRepository(db, logger)
	identityRepo := repository.NewIdentityRepository(db, logger)

	// 5. 创建角色来源
	roleProvider, err := roles.NewProvider(cfg.Notify.Eligibility.Mode, identityRepo, logger)
	if err != nil {
		redisutil.Close(redisClient)
		database.Close(db)
		return nil, fmt.Errorf("failed to init role provider: %w", err)
	}

	// 6. 创建通知流水线
	rule := notifier.EligibilityRule{
		Roles:         cfg.Notify.Eligibility.Roles,
		RequireActive: cfg.Notify.Eligibility.RequireActive,
	}
	limits := notifier.MessageLimits{
		Body: cfg.Notify.Message.BodyLimit,
		Data: cfg.Notify.Message.DataLimit,
	}

	resolver := notifier.NewResolver(recipientRepo, roleProvider, rule, logger)
	dispatcher := notifier.NewDispatcher(fcmTransport, cfg.Notify.DispatchTimeout, logger)
	reconciler := notifier.NewReconciler(recipientRepo, logger)
	orchestrator := notifier.NewOrchestrator(resolver, dispatcher, reconciler, limits, cfg.Notify.RegistryTimeout, logger)

	// 7. 创建 Consumer 层
	eventConsumer := consumer.NewEventConsumer(cfg, redisClient, orchestrator, logger)

	svc := &NotifyService{
		config:        cfg,
		db:            db,
		redisClient:   redisClient,
		logger:        logger,
		recipientRepo: recipientRepo,
		identityRepo:  identityRepo,
		orchestrator:  orchestrator,
		eventConsumer: eventConsumer,
	}

	// 8. 可选的 MQTT 触发源
	if cfg.Notify.MQTTTrigger.Enabled {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			svc.Stop()
			return nil, fmt.Errorf("failed to connect MQTT broker: %w", err)
		}
		svc.mqttClient = mqttClient
		svc.mqttConsumer = consumer.NewMQTTConsumer(mqttClient, cfg, orchestrator, logger)
	}

	return svc, nil
}

// Start 启动服务（阻塞直到 ctx 取消）
func (s *NotifyService) Start(ctx context.Context) error {
	s.logger.Info("Notify service starting",
		zap.String("eligibility_mode", s.config.Notify.Eligibility.Mode),
		zap.Strings("eligible_roles", s.config.Notify.Eligibility.Roles),
	)

	if s.mqttConsumer != nil {
		if err := s.mqttConsumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start MQTT consumer: %w", err)
		}
	}

	return s.eventConsumer.Start(ctx)
}

// Stop 停止服务并关闭全部连接
func (s *NotifyService) Stop() {
	if s.mqttConsumer != nil {
		s.mqttConsumer.Stop()
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redisClient != nil {
		if err := redisutil.Close(s.redisClient); err != nil {
			s.logger.Error("Failed to close redis client",
				zap.Error(err),
			)
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Failed to close database",
				zap.Error(err),
			)
		}
	}
}
