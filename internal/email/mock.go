package email

import (
	"context"
	"fmt"
	"strings"
)

// MockSender records messages instead of sending them.
type MockSender struct {
	// SendFunc allows customizing send behavior
	SendFunc func(ctx context.Context, email *Email) (string, error)

	// Sent holds every message passed to Send
	Sent []*Email

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockSender creates a new mock sender.
func NewMockSender() *MockSender {
	return &MockSender{CallLog: []string{}}
}

// Send records email and delegates to SendFunc when set.
func (m *MockSender) Send(ctx context.Context, email *Email) (string, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("Send(%s, %s)", strings.Join(email.To, ","), email.Subject))
	m.Sent = append(m.Sent, email)

	if m.SendFunc != nil {
		return m.SendFunc(ctx, email)
	}
	return fmt.Sprintf("mock-%d", len(m.Sent)), nil
}
