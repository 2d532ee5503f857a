package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"order-reconciler/internal/domain"
)

type httpProvider struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewHTTPProvider talks to a Paystack-style REST API. timeout bounds every
// call, including reading the body.
func NewHTTPProvider(baseURL, secretKey string, timeout time.Duration) Provider {
	return &httpProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type initializeBody struct {
	Email       string   `json:"email"`
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency,omitempty"`
	Reference   string   `json:"reference"`
	CallbackURL string   `json:"callback_url"`
	Metadata    Metadata `json:"metadata"`
}

type initializeData struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

type verifyData struct {
	ID              ChargeID `json:"id"`
	Status          string   `json:"status"`
	Reference       string   `json:"reference"`
	GatewayResponse string   `json:"gateway_response"`
}

func (p *httpProvider) Initialize(ctx context.Context, req InitializeRequest) (*Session, error) {
	body, err := json.Marshal(initializeBody{
		Email:       req.Email,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	var out envelope[initializeData]
	if err := p.do(ctx, http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}
	if !out.Status || out.Data.AuthorizationURL == "" {
		return nil, &domain.ProviderError{Message: out.Message}
	}

	ref := out.Data.Reference
	if ref == "" {
		ref = req.Reference
	}
	return &Session{
		Reference:        ref,
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
	}, nil
}

func (p *httpProvider) Verify(ctx context.Context, reference string) (*Verification, error) {
	var out envelope[verifyData]
	if err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, &domain.ProviderError{Message: out.Message}
	}
	return &Verification{
		Status:          normalizeStatus(out.Data.Status),
		ChargeID:        string(out.Data.ID),
		Reference:       out.Data.Reference,
		GatewayResponse: out.Data.GatewayResponse,
	}, nil
}

// do sends the request and decodes the JSON envelope into out. Transport
// failures and 5xx map to ErrProviderUnavailable, other non-2xx to a
// ProviderError carrying the provider's message.
func (p *httpProvider) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", domain.ErrProviderUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var e envelope[json.RawMessage]
		if json.Unmarshal(raw, &e) == nil && e.Message != "" {
			return &domain.ProviderError{Message: e.Message}
		}
		return &domain.ProviderError{Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrProviderUnavailable, err)
	}
	return nil
}
