package notifier

import (
	"context"
	"fmt"

	"github.com/barjr/ResQ/internal/models"

	"go.uber.org/zap"
)

// TokenRegistry 注册表的令牌核对接口（由 repository.RecipientRepository 实现）
type TokenRegistry interface {
	FindIDsByToken(ctx context.Context, token string) ([]string, error)
	ClearTokens(ctx context.Context, userIDs []string) error
}

// Reconciler 结果核对器
// 根据投递结果清除永久失效的令牌，使注册表与推送平台上报的现实保持一致
type Reconciler struct {
	registry TokenRegistry
	logger   *zap.Logger
}

// NewReconciler 创建结果核对器
func NewReconciler(registry TokenRegistry, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		registry: registry,
		logger:   logger,
	}
}

// Reconcile 核对投递结果并清除永久失效的令牌
// 规则：
//   - 只有永久失败（invalid-token / unregistered）触发清除，
//     其余失败保留令牌，下次事件自然重试
//   - 令牌匹配到 0 条或多条记录时跳过该令牌并计入 Unresolved，不使整体失败
//   - 本次全部清除在一个原子批量写中提交
//   - 幂等：对已清除的令牌重复核对是空操作（匹配 0 条，跳过）
func (r *Reconciler) Reconcile(ctx context.Context, outcomes []models.DispatchOutcome) (*models.ReconcileResult, error) {
	result := &models.ReconcileResult{}

	// 1. 挑出永久失败的令牌（去重，同一令牌只处理一次）
	seen := make(map[string]bool)
	var permanents []models.DispatchOutcome
	for _, o := range outcomes {
		if o.Success || o.Kind == nil || !o.Kind.IsPermanent() {
			continue
		}
		if o.Token == "" || seen[o.Token] {
			continue
		}
		seen[o.Token] = true
		permanents = append(permanents, o)
	}

	if len(permanents) == 0 {
		return result, nil
	}

	r.logger.Info("Reconciling invalid delivery tokens",
		zap.Int("count", len(permanents)),
	)

	// 2. 通过令牌反查持有者（令牌是此时唯一可靠的关联键）
	var userIDs []string
	for _, o := range permanents {
		ids, err := r.registry.FindIDsByToken(ctx, o.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to look up token owner: %w", err)
		}

		if len(ids) != 1 {
			// 0 条：已被清除或已重新注册；多条：脏数据，误删可能波及无关接收者
			r.logger.Warn("Token reconciliation conflict, skipping",
				zap.Int("matches", len(ids)),
				zap.String("kind", string(*o.Kind)),
			)
			result.Unresolved = append(result.Unresolved, o.Token)
			continue
		}

		userIDs = append(userIDs, ids[0])
		result.Removed = append(result.Removed, o.Token)
	}

	// 3. 单次原子批量清除：要么全部生效，要么全部不生效
	if len(userIDs) > 0 {
		if err := r.registry.ClearTokens(ctx, userIDs); err != nil {
			return nil, fmt.Errorf("failed to clear tokens: %w", err)
		}
	}

	return result, nil
}
