package payment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-reconciler/internal/domain"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"ORD-1"}}`)
	sig := Sign("whsec", body)

	assert.Len(t, sig, 128)
	assert.True(t, VerifySignature("whsec", body, sig))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("whsec", append(body, ' '), sig))
	assert.False(t, VerifySignature("whsec", body, ""))
	assert.False(t, VerifySignature("whsec", body, "not-hex"))
	assert.False(t, VerifySignature("", body, Sign("", body)))
}

func TestChargeIDAcceptsNumberAndString(t *testing.T) {
	var ev WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(`{"event":"charge.success","data":{"id":302961,"reference":"r"}}`), &ev))
	assert.Equal(t, ChargeID("302961"), ev.Data.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"data":{"id":"ch_abc"}}`), &ev))
	assert.Equal(t, ChargeID("ch_abc"), ev.Data.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"data":{"id":null}}`), &ev))
	assert.Equal(t, ChargeID(""), ev.Data.ID)
}

func TestMockProviderLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMockProvider()

	sess, err := m.Initialize(ctx, InitializeRequest{Amount: 500, Reference: "ORD-9"})
	require.NoError(t, err)
	assert.Contains(t, sess.AuthorizationURL, "ORD-9")

	_, err = m.Initialize(ctx, InitializeRequest{Amount: 500, Reference: "ord-9"})
	assert.ErrorIs(t, err, domain.ErrProviderRejected)

	v, err := m.Verify(ctx, "ORD-9")
	require.NoError(t, err)
	assert.Equal(t, VerifyPending, v.Status)

	ev, err := m.Settle("ORD-9", true, "")
	require.NoError(t, err)
	assert.Equal(t, EventChargeSuccess, ev.Event)
	assert.NotEmpty(t, ev.Data.ID)

	v, err = m.Verify(ctx, "ORD-9")
	require.NoError(t, err)
	assert.Equal(t, VerifySuccess, v.Status)
	assert.Equal(t, string(ev.Data.ID), v.ChargeID)

	m.SetUnavailable(true)
	_, err = m.Verify(ctx, "ORD-9")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
