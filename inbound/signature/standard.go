package signature

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marcelsud/inbound-processor/inbound"
)

const (
	// SecretPrefix is the prefix for Standard Webhooks symmetric secrets
	SecretPrefix = "whsec_"

	// SignatureVersion is the version identifier for symmetric signatures
	SignatureVersion = "v1"

	// MinSecretBytes is the minimum recommended secret size (192 bits)
	MinSecretBytes = 24

	// MaxSecretBytes is the maximum recommended secret size (512 bits)
	MaxSecretBytes = 64

	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"

	// DefaultTolerance is how far a webhook-timestamp may drift from now
	DefaultTolerance = 5 * time.Minute
)

// Secret represents a Standard Webhooks signing secret
type Secret struct {
	raw    []byte
	base64 string
}

// GenerateSecret creates a new cryptographically secure signing secret
// between MinSecretBytes and MaxSecretBytes in size.
func GenerateSecret(size int) (Secret, error) {
	if size < MinSecretBytes || size > MaxSecretBytes {
		return Secret{}, fmt.Errorf("secret size must be between %d and %d bytes", MinSecretBytes, MaxSecretBytes)
	}

	bytes := make([]byte, size)
	if _, err := rand.Read(bytes); err != nil {
		return Secret{}, fmt.Errorf("generating random bytes: %w", err)
	}

	return Secret{
		raw:    bytes,
		base64: SecretPrefix + base64.StdEncoding.EncodeToString(bytes),
	}, nil
}

// ParseSecret parses a base64-encoded secret with the whsec_ prefix
func ParseSecret(encoded string) (Secret, error) {
	if !strings.HasPrefix(encoded, SecretPrefix) {
		return Secret{}, fmt.Errorf("secret must start with %s prefix", SecretPrefix)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encoded, SecretPrefix))
	if err != nil {
		return Secret{}, fmt.Errorf("decoding base64 secret: %w", err)
	}

	if len(raw) < MinSecretBytes || len(raw) > MaxSecretBytes {
		return Secret{}, fmt.Errorf("secret size must be between %d and %d bytes", MinSecretBytes, MaxSecretBytes)
	}

	return Secret{raw: raw, base64: encoded}, nil
}

// String returns the base64-encoded secret with prefix
func (s Secret) String() string {
	return s.base64
}

// Bytes returns the raw secret bytes
func (s Secret) Bytes() []byte {
	return s.raw
}

// Signature is one entry of a webhook-signature header
type Signature struct {
	Version   string
	Signature string
}

// String returns the signature in the format: v1,<base64_signature>
func (s Signature) String() string {
	return fmt.Sprintf("%s,%s", s.Version, s.Signature)
}

// ParseSignature parses a signature string in the format: v1,<base64_signature>
func ParseSignature(sig string) (Signature, error) {
	parts := strings.SplitN(sig, ",", 2)
	if len(parts) != 2 {
		return Signature{}, fmt.Errorf("invalid signature format, expected 'version,signature'")
	}
	return Signature{Version: parts[0], Signature: parts[1]}, nil
}

// Sign creates a Standard Webhooks signature.
// The signed content is: {msgID}.{timestamp}.{payload}
func Sign(secret Secret, msgID string, timestamp time.Time, payload []byte) (Signature, error) {
	if strings.Contains(msgID, ".") {
		return Signature{}, fmt.Errorf("message ID must not contain '.'")
	}

	mac := hmac.New(sha256.New, secret.Bytes())
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(strconv.FormatInt(timestamp.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)

	return Signature{
		Version:   SignatureVersion,
		Signature: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
	}, nil
}

// Verify verifies a signature using constant-time comparison
func Verify(secret Secret, msgID string, timestamp time.Time, payload []byte, expectedSig Signature) (bool, error) {
	if expectedSig.Version != SignatureVersion {
		return false, fmt.Errorf("unsupported signature version: %s", expectedSig.Version)
	}

	calculatedSig, err := Sign(secret, msgID, timestamp, payload)
	if err != nil {
		return false, fmt.Errorf("calculating signature: %w", err)
	}

	expected, err := base64.StdEncoding.DecodeString(expectedSig.Signature)
	if err != nil {
		return false, fmt.Errorf("decoding expected signature: %w", err)
	}

	calculated, err := base64.StdEncoding.DecodeString(calculatedSig.Signature)
	if err != nil {
		return false, fmt.Errorf("decoding calculated signature: %w", err)
	}

	return hmac.Equal(expected, calculated), nil
}

// VerifyMultiple reports whether any of the signatures is valid for any of the secrets (rotation)
func VerifyMultiple(secrets []Secret, msgID string, timestamp time.Time, payload []byte, signatures []Signature) (bool, error) {
	if len(secrets) == 0 || len(signatures) == 0 {
		return false, fmt.Errorf("must provide at least one secret and one signature")
	}

	for _, sig := range signatures {
		for _, secret := range secrets {
			valid, err := Verify(secret, msgID, timestamp, payload, sig)
			if err != nil {
				continue
			}
			if valid {
				return true, nil
			}
		}
	}

	return false, nil
}

// ParseSignatureHeader parses space-delimited signatures: "v1,sig1 v1,sig2"
func ParseSignatureHeader(header string) ([]Signature, error) {
	if header == "" {
		return nil, fmt.Errorf("signature header is empty")
	}

	parts := strings.Split(header, " ")
	signatures := make([]Signature, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		sig, err := ParseSignature(part)
		if err != nil {
			return nil, fmt.Errorf("parsing signature '%s': %w", part, err)
		}
		signatures = append(signatures, sig)
	}

	if len(signatures) == 0 {
		return nil, fmt.Errorf("no valid signatures found in header")
	}

	return signatures, nil
}

// BuildSignatureHeader builds the webhook-signature header value
func BuildSignatureHeader(signatures []Signature) string {
	parts := make([]string, len(signatures))
	for i, sig := range signatures {
		parts[i] = sig.String()
	}
	return strings.Join(parts, " ")
}

/* StandardWebhooks validates calls signed per the Standard Webhooks scheme
 * The endpoint secret must be a whsec_ secret. The signature header defaults
 * to webhook-signature when the endpoint does not name one.
 */
type StandardWebhooks struct {
	Tolerance time.Duration
	Now       func() time.Time
}

func (v StandardWebhooks) IsValid(_ context.Context, call inbound.Call, cfg *inbound.EndpointConfig) (bool, error) {
	headerName := cfg.SignatureHeaderName()
	if headerName == "" {
		headerName = HeaderSignature
	}

	header := call.Header.Get(headerName)
	if header == "" {
		return false, nil
	}

	if cfg.SigningSecret() == "" {
		return false, &inbound.ConfigurationError{
			Key:   inbound.KeySigningSecret,
			Value: cfg.Name(),
			Err:   inbound.ErrMissingSigningSecret,
		}
	}

	secret, err := ParseSecret(cfg.SigningSecret())
	if err != nil {
		return false, &inbound.ConfigurationError{Key: inbound.KeySigningSecret, Value: cfg.Name(), Err: err}
	}

	msgID := call.Header.Get(HeaderID)
	unix, err := strconv.ParseInt(call.Header.Get(HeaderTimestamp), 10, 64)
	if msgID == "" || err != nil {
		return false, nil
	}

	timestamp := time.Unix(unix, 0)
	if !v.withinTolerance(timestamp) {
		return false, nil
	}

	signatures, err := ParseSignatureHeader(header)
	if err != nil {
		return false, nil
	}

	valid, err := VerifyMultiple([]Secret{secret}, msgID, timestamp, call.Body, signatures)
	if err != nil {
		return false, nil
	}
	return valid, nil
}

func (v StandardWebhooks) withinTolerance(ts time.Time) bool {
	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	drift := now().Sub(ts)
	if drift < 0 {
		drift = -drift
	}
	return drift <= tolerance
}
