package notifier

import (
	"context"
	"fmt"

	"github.com/barjr/ResQ/internal/models"
	"github.com/barjr/ResQ/internal/roles"

	"go.uber.org/zap"
)

// Registry 接收者注册表读取接口（由 repository.RecipientRepository 实现）
type Registry interface {
	ListRecipients(ctx context.Context) ([]models.Recipient, error)
}

// EligibilityRule 接收者筛选规则
// 两种已知策略均可表达：
//   - claims 模式：Roles = {admin, helper}，RequireActive = false
//   - registry 模式：Roles = {helper}，RequireActive = true
type EligibilityRule struct {
	Roles         []string
	RequireActive bool
}

// Matches 判断角色与激活状态是否符合规则
func (r EligibilityRule) Matches(role string, active bool) bool {
	if r.RequireActive && !active {
		return false
	}
	for _, allowed := range r.Roles {
		if role == allowed {
			return true
		}
	}
	return false
}

// Candidate 一个待通知的接收者
// 下标位置在整个投递流程中保持不变，结果按下标关联
type Candidate struct {
	UserID string
	Name   string
	Role   string
	Token  string
}

// Resolver 接收者解析器
// 读取全部接收者，按规则筛选，提取投递令牌；无副作用
type Resolver struct {
	registry Registry
	roles    roles.Provider
	rule     EligibilityRule
	logger   *zap.Logger
}

// NewResolver 创建接收者解析器
func NewResolver(registry Registry, roleProvider roles.Provider, rule EligibilityRule, logger *zap.Logger) *Resolver {
	return &Resolver{
		registry: registry,
		roles:    roleProvider,
		rule:     rule,
		logger:   logger,
	}
}

// Resolve 解析当前符合条件的接收者
// 返回值：
//   - 有令牌的候选序列（顺序与注册表读取顺序一致）
//   - 符合条件但没有令牌的接收者（仅用于可观测性，不参与投递）
func (r *Resolver) Resolve(ctx context.Context) ([]Candidate, []Candidate, error) {
	recipients, err := r.registry.ListRecipients(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list recipients: %w", err)
	}

	r.logger.Debug("Resolving recipients",
		zap.Int("total", len(recipients)),
	)

	var candidates []Candidate
	var withoutToken []Candidate

	for i := range recipients {
		rec := &recipients[i]

		role := r.roles.RoleOf(ctx, rec)
		if !r.rule.Matches(role, rec.Active) {
			continue
		}

		c := Candidate{
			UserID: rec.UserID,
			Name:   rec.Name(),
			Role:   role,
		}

		if !rec.HasToken() {
			r.logger.Debug("Eligible recipient without delivery token",
				zap.String("user_id", rec.UserID),
				zap.String("role", role),
			)
			withoutToken = append(withoutToken, c)
			continue
		}

		c.Token = *rec.FCMToken
		candidates = append(candidates, c)
	}

	return candidates, withoutToken, nil
}
