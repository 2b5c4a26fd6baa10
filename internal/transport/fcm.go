package transport

import (
	"context"
	"fmt"

	"github.com/barjr/ResQ/internal/config"
	"github.com/barjr/ResQ/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FCMTransport FCM 推送传输（实现 notifier.Transport）
// 客户端在进程启动时显式创建并注入，不使用任何隐式全局初始化
type FCMTransport struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewFCMTransport 创建FCM推送传输
func NewFCMTransport(ctx context.Context, cfg *config.FCMConfig, logger *zap.Logger) (*FCMTransport, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	fbConfig := &firebase.Config{}
	if cfg.ProjectID != "" {
		fbConfig.ProjectID = cfg.ProjectID
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init messaging client: %w", err)
	}

	return &FCMTransport{
		client: client,
		logger: logger,
	}, nil
}

// SendMulticast 一次批量调用将载荷投递给全部令牌
// 返回的结果序列与输入等长且按下标对齐（FCM 保证 Responses 与 Tokens 对齐）
func (t *FCMTransport) SendMulticast(ctx context.Context, tokens []string, payload *models.NotificationPayload) ([]models.DispatchOutcome, error) {
	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "default_channel",
				Priority:  messaging.PriorityMax,
				Sound:     "default",
			},
		},
	}

	resp, err := t.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("fcm multicast failed: %w", err)
	}

	outcomes := make([]models.DispatchOutcome, len(resp.Responses))
	for i, r := range resp.Responses {
		if r.Success {
			outcomes[i] = models.DispatchOutcome{Success: true}
			continue
		}

		kind := classify(r.Error)
		outcomes[i] = models.DispatchOutcome{
			Success: false,
			Kind:    &kind,
			Message: errMessage(r.Error),
		}
	}

	t.logger.Debug("FCM multicast completed",
		zap.Int("success", resp.SuccessCount),
		zap.Int("failure", resp.FailureCount),
	)

	return outcomes, nil
}

// classify 将FCM的单条错误映射到失败分类
// 只有 unregistered 和 invalid-token 是永久失败，其余保守视为瞬时
func classify(err error) models.ErrorKind {
	switch {
	case err == nil:
		return models.ErrorKindUnknown
	case messaging.IsUnregistered(err):
		return models.ErrorKindUnregistered
	case errorutils.IsInvalidArgument(err):
		return models.ErrorKindInvalidToken
	case errorutils.IsResourceExhausted(err):
		return models.ErrorKindRateLimited
	case errorutils.IsUnavailable(err), errorutils.IsInternal(err), errorutils.IsDeadlineExceeded(err):
		return models.ErrorKindTransient
	default:
		return models.ErrorKindUnknown
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
