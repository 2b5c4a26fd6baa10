package notifier

import (
	"strings"
	"testing"

	"github.com/barjr/ResQ/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildPayload_Complete(t *testing.T) {
	req := &models.EmergencyRequest{
		RequestID:    "req-123",
		Description:  "Person collapsed near the entrance",
		Location:     "Main lobby",
		ReporterName: "Alice",
		Severity:     "high",
	}

	payload := BuildPayload(req, DefaultMessageLimits())

	assert.Equal(t, "Emergency Alert", payload.Title)
	assert.Equal(t, "Person collapsed near the entrance", payload.Body)

	assert.Equal(t, "req-123", payload.Data["requestId"])
	assert.Equal(t, "Main lobby", payload.Data["location"])
	assert.Equal(t, "Person collapsed near the entrance", payload.Data["description"])
	assert.Equal(t, "Alice", payload.Data["reporterName"])
	assert.Equal(t, "high", payload.Data["severity"])
	assert.Equal(t, "emergency", payload.Data["type"])
	assert.Equal(t, "FLUTTER_NOTIFICATION_CLICK", payload.Data["click_action"])
}

func TestBuildPayload_CriticalTitle(t *testing.T) {
	req := &models.EmergencyRequest{
		RequestID: "req-123",
		Severity:  "critical",
	}

	payload := BuildPayload(req, DefaultMessageLimits())

	assert.Equal(t, "CRITICAL Emergency Alert", payload.Title)
}

func TestBuildPayload_SparseEventDefaults(t *testing.T) {
	// 所有可选字段缺失时载荷仍然完整
	req := &models.EmergencyRequest{RequestID: "req-123"}

	payload := BuildPayload(req, DefaultMessageLimits())

	assert.Equal(t, "Emergency Alert", payload.Title)
	assert.Equal(t, "Emergency assistance needed", payload.Body)
	assert.Equal(t, "Location not specified", payload.Data["location"])
	assert.Equal(t, "Unknown", payload.Data["reporterName"])
	assert.Equal(t, "unknown", payload.Data["severity"])
}

func TestBuildPayload_BodyTruncation(t *testing.T) {
	req := &models.EmergencyRequest{
		RequestID:   "req-123",
		Description: strings.Repeat("x", 150),
	}

	payload := BuildPayload(req, DefaultMessageLimits())

	// 正文截断到 100 字符并追加省略标记
	assert.Equal(t, strings.Repeat("x", 100)+"...", payload.Body)
	assert.Len(t, payload.Body, 103)

	// data.description 的预算是独立的 200，150 字符不截断
	assert.Equal(t, strings.Repeat("x", 150), payload.Data["description"])
}

func TestBuildPayload_DataTruncation(t *testing.T) {
	req := &models.EmergencyRequest{
		RequestID:   "req-123",
		Description: strings.Repeat("y", 250),
	}

	payload := BuildPayload(req, DefaultMessageLimits())

	assert.Equal(t, strings.Repeat("y", 100)+"...", payload.Body)
	assert.Equal(t, strings.Repeat("y", 200)+"...", payload.Data["description"])
	assert.Len(t, payload.Data["description"], 203)
}

func TestBuildPayload_NoMarkerAtExactLimit(t *testing.T) {
	// 恰好等于预算时不追加省略标记
	req := &models.EmergencyRequest{
		RequestID:   "req-123",
		Description: strings.Repeat("z", 100),
	}

	payload := BuildPayload(req, DefaultMessageLimits())

	assert.Equal(t, strings.Repeat("z", 100), payload.Body)
	assert.Len(t, payload.Body, 100)
}

func TestBuildPayload_TruncationLengthBounds(t *testing.T) {
	// 任意长度的描述都满足长度上界
	limits := DefaultMessageLimits()
	for _, n := range []int{0, 1, 50, 99, 100, 101, 150, 200, 201, 500} {
		req := &models.EmergencyRequest{
			RequestID:   "req-123",
			Description: strings.Repeat("a", n),
		}

		payload := BuildPayload(req, limits)

		assert.LessOrEqual(t, len([]rune(payload.Body)), 103, "length %d", n)
		assert.LessOrEqual(t, len([]rune(payload.Data["description"])), 203, "length %d", n)
	}
}

func TestBuildPayload_MultibyteTruncation(t *testing.T) {
	// 截断按字符计数，不会切断多字节字符
	req := &models.EmergencyRequest{
		RequestID:   "req-123",
		Description: strings.Repeat("紧", 120),
	}

	payload := BuildPayload(req, DefaultMessageLimits())

	assert.Equal(t, strings.Repeat("紧", 100)+"...", payload.Body)
}
