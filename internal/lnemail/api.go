package lnemail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nhle/lnemail-client/internal/model"
)

// GetAccount validates the current token by fetching the account. Any
// failure, including transport errors, is reported as an
// *AuthorizationError.
func (c *Client) GetAccount(ctx context.Context) (*model.AccountInfo, error) {
	p, err := c.do(ctx, http.MethodGet, "/account", nil)
	if err != nil {
		return nil, &AuthorizationError{Reason: "account lookup failed", Err: err}
	}
	if !p.isJSON() {
		return nil, &AuthorizationError{Reason: "account response is not JSON"}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(p.JSON, &obj); err != nil || obj == nil {
		return nil, &AuthorizationError{Reason: "account response is not an object"}
	}

	address, ok := jsonString(obj["email_address"])
	if !ok || address == "" {
		return nil, &AuthorizationError{Reason: "account has no email_address"}
	}
	rawExpiry, ok := jsonString(obj["expires_at"])
	if !ok || rawExpiry == "" {
		return nil, &AuthorizationError{Reason: "account has no expires_at"}
	}
	expiresAt, ok := model.ParseTime(rawExpiry)
	if !ok {
		return nil, &AuthorizationError{Reason: fmt.Sprintf("unparseable expires_at %q", rawExpiry)}
	}

	info := &model.AccountInfo{EmailAddress: address, ExpiresAt: expiresAt}
	if !info.Valid(c.now()) {
		return nil, &AuthorizationError{
			Reason: "account expired at " + expiresAt.Format(time.RFC3339),
			Err:    ErrTokenExpired,
		}
	}
	return info, nil
}

// ListEmails fetches the inbox summaries in API order.
func (c *Client) ListEmails(ctx context.Context) ([]model.Email, error) {
	p, err := c.do(ctx, http.MethodGet, "/emails", nil)
	if err != nil {
		return nil, fmt.Errorf("listing emails: %w", err)
	}
	return normalizeEmailList(p), nil
}

// GetEmailDetail fetches one email. It returns nil on any failure so the
// caller can fall back to the summary.
func (c *Client) GetEmailDetail(ctx context.Context, id string) *model.Email {
	p, err := c.do(ctx, http.MethodGet, "/emails/"+url.PathEscape(id), nil)
	if err != nil {
		c.log.Warn().Err(err).Str("email_id", id).Msg("Fetching email detail failed")
		return nil
	}
	if !p.isJSON() || !bytes.HasPrefix(p.JSON, []byte("{")) {
		c.log.Warn().Str("email_id", id).Msg("Email detail is not an object")
		return nil
	}

	var e model.Email
	if err := json.Unmarshal(p.JSON, &e); err != nil {
		c.log.Warn().Err(err).Str("email_id", id).Msg("Decoding email detail failed")
		return nil
	}
	return &e
}

type sendRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// SendEmail submits an outgoing email. The service may answer with a
// Lightning invoice that must be paid before delivery.
func (c *Client) SendEmail(ctx context.Context, recipient, subject, body string) (*model.SendResult, error) {
	req := sendRequest{Recipient: recipient, Subject: subject, Body: body}
	p, err := c.do(ctx, http.MethodPost, "/email/send", req)
	if err != nil {
		return nil, &SendError{Err: err}
	}

	result := &model.SendResult{}
	if p.isJSON() {
		// A non-object body still means the send was accepted.
		_ = json.Unmarshal(p.JSON, result)
	} else if p.Text != "" {
		result.Message = p.Text
	}
	return result, nil
}

type deleteRequest struct {
	EmailIDs []string `json:"email_ids"`
}

// DeleteEmails removes emails in one batch. It never returns an error
// value; failures are described by the result.
func (c *Client) DeleteEmails(ctx context.Context, ids []string) model.DeleteResult {
	p, err := c.do(ctx, http.MethodDelete, "/emails", deleteRequest{EmailIDs: ids})
	if err != nil {
		c.log.Warn().Err(err).Int("count", len(ids)).Msg("Deleting emails failed")
		return model.DeleteResult{Success: false, Error: err.Error()}
	}

	if p.isJSON() {
		var body struct {
			Success *bool  `json:"success"`
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(p.JSON, &body); err == nil && body.Success != nil && !*body.Success {
			msg := body.Error
			if msg == "" {
				msg = body.Message
			}
			if msg == "" {
				msg = "delete rejected by server"
			}
			return model.DeleteResult{Success: false, Error: msg}
		}
	}
	return model.DeleteResult{Success: true}
}

// CheckHealth probes the API. It never fails; errors are reported in the
// result.
func (c *Client) CheckHealth(ctx context.Context) model.HealthResult {
	now := c.now()
	p, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return model.HealthResult{Success: false, Error: err.Error(), CheckedAt: now}
	}

	data, ok := normalizeHealth(p)
	if !ok {
		return model.HealthResult{Success: false, Error: "unexpected health response", CheckedAt: now}
	}
	return model.HealthResult{Success: true, Data: data, CheckedAt: now}
}

// CheckPayment fetches the status of a send invoice.
func (c *Client) CheckPayment(ctx context.Context, hash string) (*model.PaymentStatus, error) {
	if hash == "" {
		return nil, errors.New("checking payment: empty payment hash")
	}

	p, err := c.do(ctx, http.MethodGet, "/payment/"+url.PathEscape(hash), nil)
	if err != nil {
		return nil, fmt.Errorf("checking payment %s: %w", hash, err)
	}
	if !p.isJSON() {
		return nil, fmt.Errorf("checking payment %s: response is not JSON", hash)
	}

	status := &model.PaymentStatus{}
	if err := json.Unmarshal(p.JSON, status); err != nil {
		return nil, fmt.Errorf("decoding payment status: %w", err)
	}
	if status.PaymentHash == "" {
		status.PaymentHash = hash
	}
	return status, nil
}

func jsonString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
