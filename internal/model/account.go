package model

import "time"

// AccountInfo describes the mailbox the access token belongs to.
type AccountInfo struct {
	EmailAddress string    `json:"email_address"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the account has not yet expired at now.
func (a AccountInfo) Valid(now time.Time) bool {
	return a.ExpiresAt.After(now)
}

// HealthData is the payload of a successful health check.
type HealthData struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// HealthResult is the outcome of a health check. It never carries a Go
// error; failures are described by Error.
type HealthResult struct {
	Success   bool        `json:"success"`
	Data      *HealthData `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	CheckedAt time.Time   `json:"-"`
}

// Healthy reports whether the check succeeded with a payload.
func (h HealthResult) Healthy() bool {
	return h.Success && h.Data != nil
}

// SendResult is the response to a send request. When the service wants to
// be paid first it returns a Lightning invoice.
type SendResult struct {
	PaymentHash    string `json:"payment_hash,omitempty"`
	PaymentRequest string `json:"payment_request,omitempty"`
	PriceSats      int64  `json:"price_sats,omitempty"`
	Recipient      string `json:"recipient,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Message        string `json:"message,omitempty"`
}

// PaymentStatus is the state of an invoice being polled.
type PaymentStatus struct {
	PaymentHash string `json:"payment_hash"`
	Status      string `json:"status"`
	Paid        bool   `json:"paid"`
}

// Settled reports whether the invoice has been paid.
func (p PaymentStatus) Settled() bool {
	if p.Paid {
		return true
	}
	switch p.Status {
	case "paid", "settled", "success", "completed", "confirmed":
		return true
	}
	return false
}

// Failed reports whether the invoice can no longer be paid.
func (p PaymentStatus) Failed() bool {
	switch p.Status {
	case "expired", "failed", "cancelled", "canceled":
		return true
	}
	return false
}

// PendingPayment tracks an invoice returned by a send request.
type PendingPayment struct {
	Invoice SendResult
	Status  PaymentStatus
}

// DeleteResult is the outcome of a batch delete.
type DeleteResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
