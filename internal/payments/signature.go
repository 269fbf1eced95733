package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signature computes the hex HMAC-SHA256 of "orderID|paymentID" with
// the gateway key secret. This is the scheme the gateway signs its
// payment callbacks with.
func Signature(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether the provided signature matches the
// expected one. Comparison is constant-time: order and payment ids are
// guessable, so the signature is the only thing standing between a
// forged callback and a paid registration.
func VerifySignature(orderID, paymentID, providedSignature, secret string) bool {
	expected := Signature(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(providedSignature))
}
