package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"order-reconciler/internal/domain"
)

// MockProvider is an in-memory provider for local runs, the simulation and
// tests. Sessions start pending until Settle decides them.
type MockProvider struct {
	mu       sync.RWMutex
	sessions map[string]*mockSession

	unavailable bool
	latency     time.Duration
	checkoutURL string
}

type mockSession struct {
	req      InitializeRequest
	status   VerifyStatus
	chargeID string
	reason   string
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		sessions:    make(map[string]*mockSession),
		checkoutURL: "https://checkout.mock.local/pay/",
	}
}

// SetUnavailable makes every call fail the way a provider outage does.
func (m *MockProvider) SetUnavailable(down bool) {
	m.mu.Lock()
	m.unavailable = down
	m.mu.Unlock()
}

// SetLatency delays every call, honouring ctx cancellation.
func (m *MockProvider) SetLatency(d time.Duration) {
	m.mu.Lock()
	m.latency = d
	m.mu.Unlock()
}

func (m *MockProvider) Initialize(ctx context.Context, req InitializeRequest) (*Session, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, &domain.ProviderError{Message: "Invalid Amount Sent"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(req.Reference)
	if _, exists := m.sessions[key]; exists {
		return nil, &domain.ProviderError{Message: "Duplicate Transaction Reference"}
	}
	m.sessions[key] = &mockSession{req: req, status: VerifyPending}

	return &Session{
		Reference:        req.Reference,
		AuthorizationURL: m.checkoutURL + req.Reference,
		AccessCode:       uuid.NewString()[:12],
	}, nil
}

func (m *MockProvider) Verify(ctx context.Context, reference string) (*Verification, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[strings.ToLower(reference)]
	if !exists {
		return nil, &domain.ProviderError{Message: "Transaction reference not found"}
	}
	return &Verification{
		Status:          s.status,
		ChargeID:        s.chargeID,
		Reference:       s.req.Reference,
		GatewayResponse: s.reason,
	}, nil
}

// Settle decides a session the way the customer's payment attempt would,
// and returns the webhook event the provider would push for it.
func (m *MockProvider) Settle(reference string, paid bool, reason string) (WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.sessions[strings.ToLower(reference)]
	if !exists {
		return WebhookEvent{}, fmt.Errorf("unknown reference %q", reference)
	}

	ev := WebhookEvent{Data: WebhookData{Reference: s.req.Reference}}
	if paid {
		if s.chargeID == "" {
			s.chargeID = fmt.Sprintf("%d", time.Now().UnixNano())
		}
		s.status = VerifySuccess
		s.reason = "Approved"
		ev.Event = EventChargeSuccess
		ev.Data.ID = ChargeID(s.chargeID)
		ev.Data.Status = string(VerifySuccess)
	} else {
		s.status = VerifyFailed
		s.reason = reason
		ev.Event = EventChargeFail
		ev.Data.Status = string(VerifyFailed)
	}
	ev.Data.GatewayResponse = s.reason
	return ev, nil
}

func (m *MockProvider) wait(ctx context.Context) error {
	m.mu.RLock()
	down, latency := m.unavailable, m.latency
	m.mu.RUnlock()

	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, ctx.Err())
		case <-t.C:
		}
	}
	if down {
		return fmt.Errorf("%w: connection timeout", domain.ErrProviderUnavailable)
	}
	return nil
}
