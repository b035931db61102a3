package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// Notification is the asynchronous webhook payload the gateway posts when a
// transaction changes state.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status,omitempty"`
}

// Signature computes the expected signature for a notification:
// SHA512(order_id + status_code + gross_amount + serverKey).
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks the notification's signature against the shared
// server key. This is the sole authentication for inbound webhooks.
func (n Notification) VerifySignature(serverKey string) bool {
	expected := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}
