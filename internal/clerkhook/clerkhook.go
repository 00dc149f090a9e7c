// Package clerkhook decodes Clerk user webhooks and checks their svix signatures.
package clerkhook

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

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Tolerance bounds how far the svix timestamp may drift from the server clock.
const Tolerance = 5 * time.Minute

var (
	ErrMissingHeaders   = errors.New("missing svix signature headers")
	ErrInvalidSecret    = errors.New("webhook secret is not a valid whsec_ key")
	ErrInvalidTimestamp = errors.New("svix timestamp is malformed or outside tolerance")
	ErrNoMatch          = errors.New("no svix signature matched")
)

type ClerkWebhookEvent struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	Verification struct {
		Status string `json:"status"`
	} `json:"verification"`
}

type ClerkUserData struct {
	ID                    string         `json:"id"`
	Username              string         `json:"username"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	ProfileImageURL       string         `json:"profile_image_url"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
}

// PrimaryEmail returns the primary address, falling back to the first one.
func (u ClerkUserData) PrimaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID != "" && e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

// DisplayName picks the username, then the joined names, then the email's local part.
func (u ClerkUserData) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.PrimaryEmail(), "@")
	return local
}

func (u ClerkUserData) Image() string {
	if u.ImageURL != "" {
		return u.ImageURL
	}
	return u.ProfileImageURL
}

func decodeSecret(secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil || len(key) == 0 {
		return nil, ErrInvalidSecret
	}
	return key, nil
}

// Sign computes the v1 signature svix sends for a message.
func Sign(secret, msgID string, timestamp time.Time, body []byte) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return "v1," + sign(key, msgID, strconv.FormatInt(timestamp.Unix(), 10), body), nil
}

func sign(key []byte, msgID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks the svix-id, svix-timestamp and svix-signature header values
// against the raw body. The signature header may carry several
// space-separated "v1,<base64>" entries; any match is accepted.
func Verify(secret, msgID, timestamp, signatures string, body []byte, now time.Time) error {
	if msgID == "" || timestamp == "" || signatures == "" {
		return ErrMissingHeaders
	}
	key, err := decodeSecret(secret)
	if err != nil {
		return err
	}

	sec, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	sent := time.Unix(sec, 0)
	if now.Sub(sent) > Tolerance || sent.Sub(now) > Tolerance {
		return fmt.Errorf("%w: sent at %s", ErrInvalidTimestamp, sent.UTC().Format(time.RFC3339))
	}

	expected := []byte(sign(key, msgID, timestamp, body))
	for _, candidate := range strings.Fields(signatures) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal(expected, []byte(sig)) {
			return nil
		}
	}
	return ErrNoMatch
}
