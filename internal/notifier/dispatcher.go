package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/barjr/ResQ/internal/models"

	"go.uber.org/zap"
)

// Transport 推送传输接口（由 transport.FCMTransport 实现）
// 约定：返回的结果序列与输入令牌序列等长且按下标对齐
type Transport interface {
	SendMulticast(ctx context.Context, tokens []string, payload *models.NotificationPayload) ([]models.DispatchOutcome, error)
}

// Dispatcher 批量投递器
// 一次投递只发起一次批量调用；不对单个失败做重试（重试属于传输层或调用方）
type Dispatcher struct {
	transport Transport
	timeout   time.Duration
	logger    *zap.Logger
}

// NewDispatcher 创建批量投递器
func NewDispatcher(transport Transport, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		timeout:   timeout,
		logger:    logger,
	}
}

// DispatchAll 将载荷投递给全部令牌
// 空令牌序列直接返回 ErrNothingToSend，不触碰传输层
// 返回的结果序列与输入等长，outcomes[i] 对应 tokens[i]
func (d *Dispatcher) DispatchAll(ctx context.Context, tokens []string, payload *models.NotificationPayload) ([]models.DispatchOutcome, error) {
	if len(tokens) == 0 {
		return nil, ErrNothingToSend
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	outcomes, err := d.transport.SendMulticast(ctx, tokens, payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTransportTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	if len(outcomes) != len(tokens) {
		return nil, fmt.Errorf("%w: got %d outcomes for %d tokens", ErrOutcomeMisaligned, len(outcomes), len(tokens))
	}

	// 立即将令牌与结果按下标配对，消除后续的下标漂移问题
	succeeded := 0
	for i := range outcomes {
		outcomes[i].Token = tokens[i]
		if outcomes[i].Success {
			succeeded++
		}
	}

	d.logger.Info("Multicast dispatched",
		zap.Int("requested", len(tokens)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", len(tokens)-succeeded),
	)

	return outcomes, nil
}
