package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"
)

const SignatureHeader = "X-Provider-Signature"

const (
	EventChargeSuccess = "charge.success"
	EventChargeFail    = "charge.fail"
	EventChargeFailed  = "charge.failed"
)

// ChargeID accepts the provider's charge id as either a JSON number or string.
type ChargeID string

func (c *ChargeID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = ChargeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = ChargeID(n.String())
	return nil
}

type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	ID              ChargeID `json:"id"`
	Reference       string   `json:"reference"`
	Status          string   `json:"status"`
	GatewayResponse string   `json:"gateway_response"`
}

// Sign returns hex(HMAC-SHA512(secret, body)).
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature against the body's HMAC in constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
