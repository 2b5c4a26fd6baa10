package models

import (
	"time"
)

// EmergencyRequest 紧急求助事件（触发通知的领域实体）
// 对本服务只读：事件记录由上游事件源持久化，本服务永不修改
type EmergencyRequest struct {
	RequestID    string    `json:"request_id"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	ReporterName string    `json:"reporter_name"`
	Severity     string    `json:"severity"` // critical, high, medium, low, unknown
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// SeverityCritical 触发升级标题的严重级别
const SeverityCritical = "critical"
