package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/barjr/ResQ/internal/models"

	"go.uber.org/zap"
)

// ErrRegistryUnavailable 注册表读写失败
// 调用方可在之后的事件中整体重试，本层不做内部重试
var ErrRegistryUnavailable = errors.New("recipient registry unavailable")

// RecipientRepository 接收者注册表仓库
// 接收者记录归身份系统所有，本仓库对 fcm_token 之外的字段只读
type RecipientRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecipientRepository 创建接收者注册表仓库
func NewRecipientRepository(db *sql.DB, logger *zap.Logger) *RecipientRepository {
	return &RecipientRepository{
		db:     db,
		logger: logger,
	}
}

// ListRecipients 获取全部接收者
// 顺序稳定（按 user_id 排序），后续的结果下标关联依赖此顺序
func (r *RecipientRepository) ListRecipients(ctx context.Context) ([]models.Recipient, error) {
	query := `
		SELECT
			user_id,
			display_name,
			role,
			active,
			fcm_token,
			created_at,
			updated_at,
			token_set_at
		FROM recipients
		ORDER BY user_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query recipients: %v", ErrRegistryUnavailable, err)
	}
	defer rows.Close()

	var recipients []models.Recipient
	for rows.Next() {
		var rec models.Recipient
		var displayName, fcmToken sql.NullString
		var tokenSetAt sql.NullTime

		if err := rows.Scan(
			&rec.UserID,
			&displayName,
			&rec.Role,
			&rec.Active,
			&fcmToken,
			&rec.CreatedAt,
			&rec.UpdatedAt,
			&tokenSetAt,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan recipient: %v", ErrRegistryUnavailable, err)
		}

		if displayName.Valid {
			rec.DisplayName = displayName.String
		}
		if fcmToken.Valid && fcmToken.String != "" {
			rec.FCMToken = &fcmToken.String
		}
		if tokenSetAt.Valid {
			rec.TokenSetAt = &tokenSetAt.Time
		}

		recipients = append(recipients, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate recipients: %v", ErrRegistryUnavailable, err)
	}

	return recipients, nil
}

// FindIDsByToken 根据令牌查找持有者
// 令牌是核对阶段唯一可靠的关联键（解析阶段缓存的 user_id 此时可能已过期）
func (r *RecipientRepository) FindIDsByToken(ctx context.Context, token string) ([]string, error) {
	query := `
		SELECT user_id
		FROM recipients
		WHERE fcm_token = $1
		ORDER BY user_id
	`

	rows, err := r.db.QueryContext(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query recipients by token: %v", ErrRegistryUnavailable, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: failed to scan user_id: %v", ErrRegistryUnavailable, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate user_ids: %v", ErrRegistryUnavailable, err)
	}

	return ids, nil
}

// ClearTokens 批量清除指定接收者的投递令牌
// 一次核对的全部清除在同一事务中提交：要么全部生效，要么全部不生效
// 只清除字段，绝不删除接收者记录本身；对已为空的字段清除是幂等的
func (r *RecipientRepository) ClearTokens(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ErrRegistryUnavailable, err)
	}

	query := `
		UPDATE recipients
		SET fcm_token = NULL,
		    token_set_at = NULL,
		    updated_at = NOW()
		WHERE user_id = $1
	`

	for _, id := range userIDs {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: failed to clear token for %s: %v", ErrRegistryUnavailable, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit token clearing: %v", ErrRegistryUnavailable, err)
	}

	r.logger.Info("Cleared delivery tokens",
		zap.Int("count", len(userIDs)),
	)

	return nil
}

// SetToken 注册（或重新注册）接收者的投递令牌
// 同一令牌同一时刻只属于一条记录：先从其他记录上摘除，再写入目标记录，同一事务完成
func (r *RecipientRepository) SetToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ErrRegistryUnavailable, err)
	}

	detach := `
		UPDATE recipients
		SET fcm_token = NULL,
		    token_set_at = NULL,
		    updated_at = NOW()
		WHERE fcm_token = $1 AND user_id <> $2
	`
	if _, err := tx.ExecContext(ctx, detach, token, userID); err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: failed to detach token: %v", ErrRegistryUnavailable, err)
	}

	attach := `
		UPDATE recipients
		SET fcm_token = $1,
		    token_set_at = NOW(),
		    updated_at = NOW()
		WHERE user_id = $2
	`
	res, err := tx.ExecContext(ctx, attach, token, userID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: failed to set token: %v", ErrRegistryUnavailable, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: failed to check affected rows: %v", ErrRegistryUnavailable, err)
	}
	if affected == 0 {
		tx.Rollback()
		return fmt.Errorf("recipient not found: %s", userID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit token registration: %v", ErrRegistryUnavailable, err)
	}

	return nil
}

// RemoveToken 接收者主动注销投递令牌
func (r *RecipientRepository) RemoveToken(ctx context.Context, userID string) error {
	query := `
		UPDATE recipients
		SET fcm_token = NULL,
		    token_set_at = NULL,
		    updated_at = NOW()
		WHERE user_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("%w: failed to remove token for %s: %v", ErrRegistryUnavailable, userID, err)
	}

	return nil
}
