package notifier

import (
	"context"
	"time"

	"github.com/barjr/ResQ/internal/models"
)

// fakeRegistry 内存注册表，同时实现 Registry 和 TokenRegistry
type fakeRegistry struct {
	recipients []models.Recipient
	listErr    error
	findErr    error
	clearErr   error
	// listDelay 模拟挂起的数据库：读取阻塞直到超时或 ctx 取消
	listDelay time.Duration

	clearCalls [][]string
}

func (f *fakeRegistry) ListRecipients(ctx context.Context) ([]models.Recipient, error) {
	if f.listDelay > 0 {
		select {
		case <-time.After(f.listDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Recipient, len(f.recipients))
	copy(out, f.recipients)
	return out, nil
}

func (f *fakeRegistry) FindIDsByToken(ctx context.Context, token string) ([]string, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var ids []string
	for i := range f.recipients {
		if f.recipients[i].FCMToken != nil && *f.recipients[i].FCMToken == token {
			ids = append(ids, f.recipients[i].UserID)
		}
	}
	return ids, nil
}

func (f *fakeRegistry) ClearTokens(ctx context.Context, userIDs []string) error {
	f.clearCalls = append(f.clearCalls, userIDs)
	if f.clearErr != nil {
		// 模拟事务回滚：整批失败时不产生任何变更
		return f.clearErr
	}
	for _, id := range userIDs {
		for i := range f.recipients {
			if f.recipients[i].UserID == id {
				f.recipients[i].FCMToken = nil
			}
		}
	}
	return nil
}

func (f *fakeRegistry) tokenOf(userID string) *string {
	for i := range f.recipients {
		if f.recipients[i].UserID == userID {
			return f.recipients[i].FCMToken
		}
	}
	return nil
}

// fakeTransport 脚本化的推送传输
type fakeTransport struct {
	// outcomes 按令牌取结果；未命中时视为成功
	outcomes map[string]models.DispatchOutcome
	err      error
	// misalign 刻意返回错误数量的结果，验证对齐检查
	misalign bool

	calls [][]string
}

func (f *fakeTransport) SendMulticast(ctx context.Context, tokens []string, payload *models.NotificationPayload) ([]models.DispatchOutcome, error) {
	f.calls = append(f.calls, tokens)
	if f.err != nil {
		return nil, f.err
	}
	if f.misalign {
		return []models.DispatchOutcome{}, nil
	}
	outcomes := make([]models.DispatchOutcome, len(tokens))
	for i, token := range tokens {
		if o, ok := f.outcomes[token]; ok {
			outcomes[i] = o
		} else {
			outcomes[i] = models.DispatchOutcome{Success: true}
		}
	}
	return outcomes, nil
}

func kindPtr(k models.ErrorKind) *models.ErrorKind {
	return &k
}

func strPtr(s string) *string {
	return &s
}

func failedOutcome(kind models.ErrorKind, msg string) models.DispatchOutcome {
	return models.DispatchOutcome{Success: false, Kind: kindPtr(kind), Message: msg}
}
