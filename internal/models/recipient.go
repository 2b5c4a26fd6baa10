package models

import (
	"time"
)

// 角色常量
// 只有 admin 和 helper 可以接收紧急通知
const (
	RoleAdmin  = "admin"
	RoleHelper = "helper"
	RoleUser   = "user"
)

// AllowedRoles 身份系统支持的全部角色
var AllowedRoles = []string{RoleAdmin, RoleHelper, RoleUser}

// SelfAssignableRoles 用户注册时可自行选择的角色（不含 admin）
var SelfAssignableRoles = []string{RoleHelper, RoleUser}

// Recipient 通知接收者（对应 recipients 表）
// 记录本身由身份系统拥有，本服务只读取，并且只对 fcm_token 字段做清除
type Recipient struct {
	UserID      string     `json:"user_id" db:"user_id"`
	DisplayName string     `json:"display_name" db:"display_name"`
	Role        string     `json:"role" db:"role"` // admin, helper, user（registry 模式下使用）
	Active      bool       `json:"active" db:"active"`
	FCMToken    *string    `json:"fcm_token,omitempty" db:"fcm_token"` // 为空表示没有可投递目标
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	TokenSetAt  *time.Time `json:"token_set_at,omitempty" db:"token_set_at"`
}

// Name 显示名称，缺失时回退到 UserID
func (r *Recipient) Name() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.UserID
}

// HasToken 是否有可投递目标
func (r *Recipient) HasToken() bool {
	return r.FCMToken != nil && *r.FCMToken != ""
}

// IsValidRole 校验角色是否合法
func IsValidRole(role string) bool {
	for _, r := range AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsSelfAssignableRole 校验角色是否允许用户自行设置
func IsSelfAssignableRole(role string) bool {
	for _, r := range SelfAssignableRoles {
		if r == role {
			return true
		}
	}
	return false
}
