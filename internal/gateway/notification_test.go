package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	const serverKey = "sk-test-1234"

	n := Notification{
		OrderID:           "order-1",
		TransactionStatus: "settlement",
		StatusCode:        "200",
		GrossAmount:       "204000.00",
	}
	n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)

	assert.True(t, n.VerifySignature(serverKey))

	t.Run("wrong server key", func(t *testing.T) {
		assert.False(t, n.VerifySignature("sk-other"))
	})

	t.Run("tampered amount", func(t *testing.T) {
		forged := n
		forged.GrossAmount = "1.00"
		assert.False(t, forged.VerifySignature(serverKey))
	})

	t.Run("tampered order", func(t *testing.T) {
		forged := n
		forged.OrderID = "order-2"
		assert.False(t, forged.VerifySignature(serverKey))
	})

	t.Run("empty signature", func(t *testing.T) {
		forged := n
		forged.SignatureKey = ""
		assert.False(t, forged.VerifySignature(serverKey))
	})
}
