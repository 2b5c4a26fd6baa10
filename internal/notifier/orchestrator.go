package notifier

import (
	"context"
	"time"

	"github.com/barjr/ResQ/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Orchestrator 通知编排器
// 一次调用对应一个新事件：解析 → 构建 → 投递 → 核对，严格顺序执行
// 任何阶段的失败都被吸收并记录，绝不向事件管道传播：
// 通知是尽力而为的旁路，事件记录本身才是持久化的事实来源
type Orchestrator struct {
	resolver        *Resolver
	dispatcher      *Dispatcher
	reconciler      *Reconciler
	limits          MessageLimits
	registryTimeout time.Duration
	logger          *zap.Logger
}

// NewOrchestrator 创建通知编排器
// registryTimeout 限制解析与核对阶段的注册表访问，<= 0 时不限时
func NewOrchestrator(
	resolver *Resolver,
	dispatcher *Dispatcher,
	reconciler *Reconciler,
	limits MessageLimits,
	registryTimeout time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		resolver:        resolver,
		dispatcher:      dispatcher,
		reconciler:      reconciler,
		limits:          limits,
		registryTimeout: registryTimeout,
		logger:          logger,
	}
}

// registryContext 为注册表访问附加独立超时，数据库挂起时不拖垮消费循环
func (o *Orchestrator) registryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.registryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.registryTimeout)
}

// OnNewEvent 处理一条新的紧急求助事件
// 永远返回汇总结果而不是错误：失败被吸收为 NoOp 汇总，供日志与测试观察
// 同一事件重复调用是安全的（构建是纯函数，核对是幂等的）
func (o *Orchestrator) OnNewEvent(ctx context.Context, req *models.EmergencyRequest) *models.DispatchSummary {
	summary := &models.DispatchSummary{
		DispatchID: uuid.New().String(),
		RequestID:  req.RequestID,
		NoOp:       true,
	}

	log := o.logger.With(
		zap.String("request_id", req.RequestID),
		zap.String("dispatch_id", summary.DispatchID),
	)

	log.Info("New emergency request received",
		zap.String("reporter", req.ReporterName),
		zap.String("severity", req.Severity),
		zap.String("location", req.Location),
	)

	// 1. 解析接收者
	resolveCtx, cancelResolve := o.registryContext(ctx)
	candidates, withoutToken, err := o.resolver.Resolve(resolveCtx)
	cancelResolve()
	if err != nil {
		log.Error("Notification aborted",
			zap.String("stage", "resolve"),
			zap.Error(err),
		)
		return summary
	}
	summary.EligibleWithoutToken = len(withoutToken)

	// 2. 零令牌短路：不触碰推送平台
	if len(candidates) == 0 {
		log.Warn("No eligible recipients with delivery tokens",
			zap.Int("eligible_without_token", len(withoutToken)),
		)
		return summary
	}

	// 3. 构建载荷（纯函数，不会失败）
	payload := BuildPayload(req, o.limits)

	tokens := make([]string, len(candidates))
	for i, c := range candidates {
		tokens[i] = c.Token
	}

	// 4. 批量投递
	outcomes, err := o.dispatcher.DispatchAll(ctx, tokens, payload)
	if err != nil {
		log.Error("Notification aborted",
			zap.String("stage", "dispatch"),
			zap.Error(err),
		)
		return summary
	}

	summary.NoOp = false
	summary.Requested = len(outcomes)
	for i, out := range outcomes {
		if out.Success {
			summary.Succeeded++
			continue
		}
		summary.Failed++

		kind := models.ErrorKindUnknown
		if out.Kind != nil {
			kind = *out.Kind
		}
		log.Warn("Delivery failed",
			zap.String("user_id", candidates[i].UserID),
			zap.String("name", candidates[i].Name),
			zap.String("role", candidates[i].Role),
			zap.String("kind", string(kind)),
			zap.String("error", out.Message),
		)
	}

	// 5. 核对注册表（失败不回滚投递：消息已经发出，清理是尽力而为、最终一致的）
	reconcileCtx, cancelReconcile := o.registryContext(ctx)
	result, err := o.reconciler.Reconcile(reconcileCtx, outcomes)
	cancelReconcile()
	if err != nil {
		log.Error("Reconciliation failed, stale tokens will be pruned on a future event",
			zap.String("stage", "reconcile"),
			zap.Error(err),
		)
	} else {
		summary.Pruned = len(result.Removed)
		summary.Unresolved = len(result.Unresolved)
	}

	log.Info("Notification dispatch finished",
		zap.Int("requested", summary.Requested),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("pruned", summary.Pruned),
		zap.Int("unresolved", summary.Unresolved),
		zap.Int("eligible_without_token", summary.EligibleWithoutToken),
	)

	return summary
}
