package service

import (
	"context"

	"carshare-settlement/internal/logger"
)

// logSmsService records outbound SMS events without a provider attached.
// Wiring a real provider only requires swapping this implementation; callers
// already treat SMS as fire-and-forget.
type logSmsService struct{}

func NewLogSmsService() SmsService {
	return &logSmsService{}
}

func (s *logSmsService) Send(ctx context.Context, phone, event string, data map[string]string) error {
	logger.Info("SMS dispatched", "phone", maskPhone(phone), "event", event, "data", data)
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
