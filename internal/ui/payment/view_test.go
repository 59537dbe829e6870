package payment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/lnemail-client/internal/model"
)

func TestViewNil(t *testing.T) {
	assert.Empty(t, View(nil, 80))
}

func TestViewShowsInvoice(t *testing.T) {
	invoice := "lnbc" + strings.Repeat("q", 150)
	p := &model.PendingPayment{Invoice: model.SendResult{
		Recipient:      "bob@x.io",
		Subject:        "hi",
		PriceSats:      21,
		PaymentHash:    "abc123",
		PaymentRequest: invoice,
	}}

	out := View(p, 60)

	assert.Contains(t, out, "Payment Required")
	assert.Contains(t, out, "21 sats")
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "lnbc")
}

func TestWrapHard(t *testing.T) {
	assert.Equal(t, "abc\ndef\ng", wrapHard("abcdefg", 3))
	assert.Equal(t, "ab", wrapHard("ab", 3))
}
