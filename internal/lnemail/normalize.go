package lnemail

import (
	"bytes"
	"encoding/json"

	"github.com/nhle/lnemail-client/internal/model"
)

// listRule extracts the email array from one known response shape. ok is
// false when the shape does not match.
type listRule func(raw json.RawMessage) (items json.RawMessage, ok bool)

// listRules are tried in order; the first match wins.
var listRules = []listRule{
	bareArray,
	wrappedArray("emails"),
	wrappedArray("data"),
}

func bareArray(raw json.RawMessage) (json.RawMessage, bool) {
	if bytes.HasPrefix(raw, []byte("[")) {
		return raw, true
	}
	return nil, false
}

func wrappedArray(field string) listRule {
	return func(raw json.RawMessage) (json.RawMessage, bool) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false
		}
		inner := bytes.TrimSpace(obj[field])
		if !bytes.HasPrefix(inner, []byte("[")) {
			return nil, false
		}
		return inner, true
	}
}

// normalizeEmailList maps any of the accepted list shapes to a slice.
// Unrecognized shapes and undecodable entries yield an empty list.
func normalizeEmailList(p payload) []model.Email {
	if !p.isJSON() {
		return []model.Email{}
	}

	for _, rule := range listRules {
		items, ok := rule(p.JSON)
		if !ok {
			continue
		}
		return decodeEmails(items)
	}
	return []model.Email{}
}

// decodeEmails decodes each element on its own so one malformed entry does
// not drop the rest.
func decodeEmails(items json.RawMessage) []model.Email {
	var raws []json.RawMessage
	if err := json.Unmarshal(items, &raws); err != nil {
		return []model.Email{}
	}

	emails := make([]model.Email, 0, len(raws))
	for _, raw := range raws {
		if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
			continue
		}
		var e model.Email
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		emails = append(emails, e)
	}
	return emails
}

// normalizeHealth accepts {data:{...}} or a bare health object.
func normalizeHealth(p payload) (*model.HealthData, bool) {
	if !p.isJSON() {
		return nil, false
	}

	var wrapped struct {
		Data *model.HealthData `json:"data"`
	}
	if err := json.Unmarshal(p.JSON, &wrapped); err == nil && wrapped.Data != nil {
		return wrapped.Data, true
	}

	var bare model.HealthData
	if err := json.Unmarshal(p.JSON, &bare); err == nil && bare.Status != "" {
		return &bare, true
	}
	return nil, false
}
