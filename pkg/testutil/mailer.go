package testutil

import "context"

type MockMailer struct {
	SendTemplatedFunc func(ctx context.Context, to, template string, data map[string]any) error
}

func (m *MockMailer) SendTemplated(
	ctx context.Context, to, template string, data map[string]any,
) error {
	if m.SendTemplatedFunc != nil {
		return m.SendTemplatedFunc(ctx, to, template, data)
	}

	return nil
}
