package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/barjr/ResQ/internal/models"

	"go.uber.org/zap"
)

// IdentityRepository 身份声明仓库（外部身份系统的接口边界）
// 角色以声明（claim）形式存放在 auth_claims 表中，claims 模式的
// 接收者筛选从这里读取角色
type IdentityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIdentityRepository 创建身份声明仓库
func NewIdentityRepository(db *sql.DB, logger *zap.Logger) *IdentityRepository {
	return &IdentityRepository{
		db:     db,
		logger: logger,
	}
}

// GetRole 读取指定用户的角色声明
// 用户没有角色声明时返回空字符串，不视为错误
func (r *IdentityRepository) GetRole(ctx context.Context, userID string) (string, error) {
	query := `
		SELECT role
		FROM auth_claims
		WHERE user_id = $1
	`

	var role string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&role)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to query role claim: %w", err)
	}

	return role, nil
}

// SetRole 设置用户的角色声明（管理员操作）
func (r *IdentityRepository) SetRole(ctx context.Context, userID, role string) error {
	if !models.IsValidRole(role) {
		return fmt.Errorf("invalid role: %s", role)
	}

	return r.upsertRole(ctx, userID, role)
}

// SetRoleSelf 用户自行设置角色（注册流程）
// 只允许非管理角色，admin 永远不能自行授予
func (r *IdentityRepository) SetRoleSelf(ctx context.Context, userID, role string) error {
	if !models.IsSelfAssignableRole(role) {
		return fmt.Errorf("role not self-assignable: %s", role)
	}

	return r.upsertRole(ctx, userID, role)
}

// ClearRole 清除用户的角色声明
func (r *IdentityRepository) ClearRole(ctx context.Context, userID string) error {
	query := `
		DELETE FROM auth_claims
		WHERE user_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear role claim: %w", err)
	}

	return nil
}

func (r *IdentityRepository) upsertRole(ctx context.Context, userID, role string) error {
	query := `
		INSERT INTO auth_claims (user_id, role, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, userID, role); err != nil {
		return fmt.Errorf("failed to set role claim: %w", err)
	}

	r.logger.Info("Role claim updated",
		zap.String("user_id", userID),
		zap.String("role", role),
	)

	return nil
}
