package notifier

import (
	"github.com/barjr/ResQ/internal/models"
)

// 缺失字段的确定性默认值
const (
	defaultDescription = "Emergency assistance needed"
	defaultLocation    = "Location not specified"
	defaultReporter    = "Unknown"
	defaultSeverity    = "unknown"

	titleAlert    = "Emergency Alert"
	titleCritical = "CRITICAL Emergency Alert"

	ellipsis = "..."
)

// MessageLimits 正文截断配置
// Body 和 Data 是相互独立的截断预算
type MessageLimits struct {
	Body int // 通知正文最大长度（默认 100）
	Data int // data.description 最大长度（默认 200）
}

// DefaultMessageLimits 默认截断配置
func DefaultMessageLimits() MessageLimits {
	return MessageLimits{Body: 100, Data: 200}
}

// BuildPayload 由紧急事件构建通知载荷
// 纯函数：无 I/O，缺失字段只做默认填充，永不失败
func BuildPayload(req *models.EmergencyRequest, limits MessageLimits) *models.NotificationPayload {
	description := req.Description
	if description == "" {
		description = defaultDescription
	}
	location := req.Location
	if location == "" {
		location = defaultLocation
	}
	reporter := req.ReporterName
	if reporter == "" {
		reporter = defaultReporter
	}
	severity := req.Severity
	if severity == "" {
		severity = defaultSeverity
	}

	title := titleAlert
	if severity == models.SeverityCritical {
		title = titleCritical
	}

	return &models.NotificationPayload{
		Title: title,
		Body:  truncate(description, limits.Body),
		Data: map[string]string{
			"requestId":    req.RequestID,
			"location":     location,
			"description":  truncate(description, limits.Data),
			"reporterName": reporter,
			"severity":     severity,
			"type":         "emergency",
			"click_action": "FLUTTER_NOTIFICATION_CLICK",
		},
	}
}

// truncate 截断到 limit 个字符，仅在确实截断时追加省略标记
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}
