package notifier

import (
	"errors"
)

var (
	// ErrNothingToSend 没有任何可投递目标，推送平台未被调用
	// 区别于"空的成功批次"：零接收者的批量调用会被部分推送平台拒绝
	ErrNothingToSend = errors.New("no delivery targets")

	// ErrTransportUnavailable 推送调用整体失败，本批次无任何投递成功
	ErrTransportUnavailable = errors.New("push transport unavailable")

	// ErrTransportTimeout 推送调用超时
	// 超时是模糊结果：本批次所有令牌按失败处理，但不做任何清除
	ErrTransportTimeout = errors.New("push transport timed out")

	// ErrOutcomeMisaligned 推送平台返回的结果数量与令牌数量不一致
	// 下标对齐是结果关联的前提，不一致时整批结果不可信
	ErrOutcomeMisaligned = errors.New("transport outcome count does not match token count")
)
