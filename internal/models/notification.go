package models

// ErrorKind 单个投递目标的失败分类
type ErrorKind string

const (
	// ErrorKindInvalidToken 令牌格式非法（永久失败，触发清除）
	ErrorKindInvalidToken ErrorKind = "invalid-token"
	// ErrorKindUnregistered 令牌已不在推送平台注册（永久失败，触发清除）
	ErrorKindUnregistered ErrorKind = "unregistered"
	// ErrorKindRateLimited 被限流（瞬时失败，下次事件重试）
	ErrorKindRateLimited ErrorKind = "rate-limited"
	// ErrorKindTransient 其他瞬时失败（网络、超时等）
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindUnknown 无法分类的失败，保守处理为瞬时
	ErrorKindUnknown ErrorKind = "unknown"
)

// IsPermanent 是否为永久失败
// 只有永久失败才允许清除投递目标
func (k ErrorKind) IsPermanent() bool {
	return k == ErrorKindInvalidToken || k == ErrorKindUnregistered
}

// NotificationPayload 通知载荷（派生数据，不持久化）
type NotificationPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// DispatchOutcome 单个投递目标的结果
// 与投递时的令牌序列按下标对齐
type DispatchOutcome struct {
	Token   string     `json:"token"`
	Success bool       `json:"success"`
	Kind    *ErrorKind `json:"kind,omitempty"`
	Message string     `json:"message,omitempty"` // 推送平台返回的错误描述
}

// DispatchSummary 一次通知流程的汇总结果
// NoOp = true 表示流程未产生任何投递（无接收者或某阶段失败被吸收）
type DispatchSummary struct {
	DispatchID string `json:"dispatch_id"`
	RequestID  string `json:"request_id"`
	NoOp       bool   `json:"noop"`
	Requested  int    `json:"requested"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Pruned     int    `json:"pruned"`
	Unresolved int    `json:"unresolved"`
	// EligibleWithoutToken 符合条件但没有投递目标的接收者数量（可观测性）
	EligibleWithoutToken int `json:"eligible_without_token"`
}

// ReconcileResult 一次注册表核对的结果
type ReconcileResult struct {
	// Removed 本次成功清除的令牌
	Removed []string `json:"removed"`
	// Unresolved 匹配到 0 条或多条记录而被跳过的令牌
	Unresolved []string `json:"unresolved"`
}
