package roles

import (
	"context"
	"fmt"

	"github.com/barjr/ResQ/internal/models"

	"go.uber.org/zap"
)

// Provider 角色来源能力
// 两种实现：角色声明（身份系统）或注册表记录字段，由配置选择
type Provider interface {
	// RoleOf 返回接收者的角色，无法确定时返回空字符串
	RoleOf(ctx context.Context, rec *models.Recipient) string
}

// ClaimStore 角色声明读取接口（由 repository.IdentityRepository 实现）
type ClaimStore interface {
	GetRole(ctx context.Context, userID string) (string, error)
}

// ClaimProvider 从身份系统的角色声明读取角色
type ClaimProvider struct {
	claims ClaimStore
	logger *zap.Logger
}

// NewClaimProvider 创建声明角色来源
func NewClaimProvider(claims ClaimStore, logger *zap.Logger) *ClaimProvider {
	return &ClaimProvider{
		claims: claims,
		logger: logger,
	}
}

// RoleOf 查询角色声明
// 单个接收者的查询失败不中断整体筛选：该接收者视为无角色，记录日志后跳过
func (p *ClaimProvider) RoleOf(ctx context.Context, rec *models.Recipient) string {
	role, err := p.claims.GetRole(ctx, rec.UserID)
	if err != nil {
		p.logger.Warn("Failed to get role claim, skipping recipient",
			zap.String("user_id", rec.UserID),
			zap.Error(err),
		)
		return ""
	}
	return role
}

// RegistryProvider 从接收者记录自身的 role 字段读取角色
type RegistryProvider struct{}

// NewRegistryProvider 创建注册表角色来源
func NewRegistryProvider() *RegistryProvider {
	return &RegistryProvider{}
}

// RoleOf 直接返回记录字段
func (p *RegistryProvider) RoleOf(ctx context.Context, rec *models.Recipient) string {
	return rec.Role
}

// NewProvider 按配置模式创建角色来源
func NewProvider(mode string, claims ClaimStore, logger *zap.Logger) (Provider, error) {
	switch mode {
	case "claims":
		return NewClaimProvider(claims, logger), nil
	case "registry":
		return NewRegistryProvider(), nil
	default:
		return nil, fmt.Errorf("unknown role provider mode: %s", mode)
	}
}
