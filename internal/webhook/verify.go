package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Verify checks the X-Shopify-Hmac-Sha256 signature against the raw request
// body. The body must be the exact bytes received on the wire; re-serialized
// JSON is not byte-identical and will not verify. A signature whose decoded
// length differs from the digest length is rejected before comparison.
func Verify(secret string, body []byte, providedBase64 string) bool {
	if secret == "" || providedBase64 == "" {
		return false
	}
	provided, err := base64.StdEncoding.DecodeString(providedBase64)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	computed := mac.Sum(nil)
	if len(provided) != len(computed) {
		return false
	}
	return hmac.Equal(provided, computed)
}

// Sign computes the base64 HMAC-SHA256 signature Shopify would send for the
// given body. Used by tests and the mock webhook tool.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
