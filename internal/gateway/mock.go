package gateway

import (
	"context"
	"fmt"
	"sync"
)

// MockGateway is an in-memory gateway for local development and tests.
// It mimics the intent lifecycle without talking to a processor, the same way
// the platform runs against mock storage when no cloud bucket is configured.
type MockGateway struct {
	mu      sync.Mutex
	nextID  int
	intents map[string]*IntentStatus
}

func NewMockGateway() *MockGateway {
	return &MockGateway{intents: make(map[string]*IntentStatus)}
}

func (g *MockGateway) Authorize(ctx context.Context, customerRef, methodRef string, amountCents int64, metadata map[string]string) (string, error) {
	if customerRef == "" || methodRef == "" {
		return "", fmt.Errorf("customer and payment method references are required")
	}
	if amountCents <= 0 {
		return "", fmt.Errorf("authorization amount must be positive, got %d", amountCents)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	ref := fmt.Sprintf("mock_pi_%d", g.nextID)
	g.intents[ref] = &IntentStatus{State: IntentRequiresCapture, AuthorizedCents: amountCents}
	return ref, nil
}

func (g *MockGateway) RetrieveStatus(ctx context.Context, intentRef string) (*IntentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.intents[intentRef]
	if !ok {
		return nil, fmt.Errorf("unknown intent %q", intentRef)
	}
	copied := *st
	return &copied, nil
}

func (g *MockGateway) Capture(ctx context.Context, intentRef string, amountCents int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.intents[intentRef]
	if !ok {
		return fmt.Errorf("unknown intent %q", intentRef)
	}
	if st.State != IntentRequiresCapture {
		return fmt.Errorf("intent %q is %s, cannot capture", intentRef, st.State)
	}
	if amountCents == 0 || amountCents > st.AuthorizedCents {
		amountCents = st.AuthorizedCents
	}
	st.State = IntentSucceeded
	st.CapturedCents = amountCents
	return nil
}

func (g *MockGateway) Cancel(ctx context.Context, intentRef, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.intents[intentRef]
	if !ok {
		return fmt.Errorf("unknown intent %q", intentRef)
	}
	if st.State == IntentSucceeded {
		return fmt.Errorf("intent %q already captured, refund instead", intentRef)
	}
	st.State = IntentCanceled
	return nil
}

func (g *MockGateway) Refund(ctx context.Context, intentRef string, amountCents int64, metadata map[string]string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.intents[intentRef]
	if !ok {
		return "", fmt.Errorf("unknown intent %q", intentRef)
	}
	if st.State != IntentSucceeded {
		return "", fmt.Errorf("intent %q is %s, nothing to refund", intentRef, st.State)
	}
	if amountCents > st.CapturedCents {
		return "", fmt.Errorf("refund %d exceeds captured %d", amountCents, st.CapturedCents)
	}
	g.nextID++
	return fmt.Sprintf("mock_re_%d", g.nextID), nil
}
