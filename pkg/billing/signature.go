package billing

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignatureHeader carries the provider's hex-encoded HMAC-SHA512 of the raw
// request body.
const SignatureHeader = "X-Paystack-Signature"

// VerifySignature authenticates a raw webhook body against the shared secret.
// It computes HMAC-SHA512 over the body and compares it in constant time
// against the hex-decoded header value. It returns false, never an error,
// for empty inputs, malformed hex, or a length mismatch, so forged or
// mangled deliveries short-circuit the pipeline with zero side effects.
func VerifySignature(secret string, body []byte, signatureHeader string) bool {
	if secret == "" || len(body) == 0 || signatureHeader == "" {
		return false
	}

	provided, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	// hmac.Equal rejects length mismatches before the constant-time compare.
	return hmac.Equal(expected, provided)
}

// SignPayload computes the hex-encoded HMAC-SHA512 signature the provider
// would attach to body. Used by tests and the local replay tooling.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
