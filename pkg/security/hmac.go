package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidSignature signals a missing or mismatched webhook signature.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// SignWebhook returns the base64 HMAC-SHA256 of body keyed by secret, the
// value the platform sends in X-Shopify-Hmac-Sha256.
func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook compares the provided signature with the expected one in
// constant time.
func VerifyWebhook(body []byte, signature, secret string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" || secret == "" {
		return ErrInvalidSignature
	}
	provided, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
