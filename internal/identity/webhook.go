package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const webhookTolerance = 5 * time.Minute

var (
	ErrWebhookHeaders   = errors.New("missing webhook signature headers")
	ErrWebhookTimestamp = errors.New("webhook timestamp outside tolerance")
	ErrWebhookSignature = errors.New("webhook signature mismatch")
)

// WebhookHeaders are the signature headers sent with every webhook delivery.
type WebhookHeaders struct {
	ID        string
	Timestamp string
	Signature string
}

// WebhookVerifier checks webhook signatures (HMAC-SHA256 over "id.timestamp.body").
type WebhookVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewWebhookVerifier decodes a "whsec_"-prefixed base64 signing secret.
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}
	return &WebhookVerifier{secret: raw, now: time.Now}, nil
}

// Verify returns nil when body was signed with the configured secret.
func (v *WebhookVerifier) Verify(h WebhookHeaders, body []byte) error {
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return ErrWebhookHeaders
	}

	ts, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return ErrWebhookTimestamp
	}
	sent := time.Unix(ts, 0)
	if d := v.now().Sub(sent); d > webhookTolerance || d < -webhookTolerance {
		return ErrWebhookTimestamp
	}

	expected := v.Sign(h.ID, sent, body)
	for _, candidate := range strings.Fields(h.Signature) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrWebhookSignature
}

// Sign computes the base64 signature for a delivery.
func (v *WebhookVerifier) Sign(id string, ts time.Time, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(id + "." + strconv.FormatInt(ts.Unix(), 10) + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Event types handled by the webhook receiver.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// WebhookEvent is the envelope of a webhook delivery.
type WebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// UserPayload is the user object carried by user.* events.
type UserPayload struct {
	ID                    string         `json:"id"`
	Username              string         `json:"username"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	PublicMetadata        map[string]any `json:"public_metadata"`
	Deleted               bool           `json:"deleted"`
}

// EmailAddress is one address attached to a user.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// PrimaryEmail returns the primary address, or the first one when none is marked primary.
func (u UserPayload) PrimaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

// DisplayName joins first and last name.
func (u UserPayload) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
