package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature checks the checkout callback signature, which is an
// HMAC-SHA256 of "<order_id>|<payment_id>" keyed with the API key secret.
func VerifyPaymentSignature(orderID, paymentID, signature, keySecret string) bool {
	return verify([]byte(orderID+"|"+paymentID), signature, keySecret)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header, an
// HMAC-SHA256 of the raw request body keyed with the webhook secret.
func VerifyWebhookSignature(body []byte, signature, webhookSecret string) bool {
	return verify(body, signature, webhookSecret)
}

func verify(message []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
