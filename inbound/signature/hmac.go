package signature

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/marcelsud/inbound-processor/inbound"
)

/* HMAC is the default signature validator
 * The signature header carries hex(HMAC-SHA256(secret, raw body))
 */
type HMAC struct{}

// IsValid reports whether the call signature matches its raw body.
// A missing header is an ordinary rejection; an unset secret is a configuration error.
func (HMAC) IsValid(_ context.Context, call inbound.Call, cfg *inbound.EndpointConfig) (bool, error) {
	sig := call.Header.Get(cfg.SignatureHeaderName())
	if strings.TrimSpace(sig) == "" {
		return false, nil
	}

	secret := cfg.SigningSecret()
	if secret == "" {
		return false, &inbound.ConfigurationError{
			Key:   inbound.KeySigningSecret,
			Value: cfg.Name(),
			Err:   inbound.ErrMissingSigningSecret,
		}
	}

	expected := ComputeHMAC([]byte(secret), call.Body)

	// constant time, exact bytes
	return hmac.Equal([]byte(expected), []byte(sig)), nil
}

// ComputeHMAC returns hex(HMAC-SHA256(secret, body)) over the exact body bytes
func ComputeHMAC(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
