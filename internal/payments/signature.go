package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignWebhook returns the hex HMAC-SHA256 of body.
func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayment signs "<orderID>|<paymentID>", the value a checkout client
// receives after a capture.
func SignPayment(orderID, paymentID, secret string) string {
	return SignWebhook([]byte(orderID+"|"+paymentID), secret)
}

func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return verifyHex(SignWebhook(body, secret), signature)
}

func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	if secret == "" || signature == "" || orderID == "" || paymentID == "" {
		return false
	}
	return verifyHex(SignPayment(orderID, paymentID, secret), signature)
}

func verifyHex(expected, got string) bool {
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(got))))
}
