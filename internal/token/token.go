// Package token implements the signed, time-limited auth tokens that the
// API issues in the "token" cookie after login.
//
// Wire format: CBOR-encoded claims followed by a 32-byte HMAC-SHA256
// trailer over the claims, base64url-encoded for cookie transport. The
// verifier owns the secret, so a keyed MAC is sufficient; there is no
// second party that needs to verify without the ability to mint.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// macSize is the fixed size of the HMAC-SHA256 trailer.
const macSize = sha256.Size

// Claims is the CBOR-encoded payload of an auth token.
type Claims struct {
	// ID is a unique token identifier.
	ID string `cbor:"1,keyasint"`

	// Subject is the authenticated user's ID.
	Subject string `cbor:"2,keyasint"`

	// IssuedAt is a Unix timestamp (seconds) of when the token was minted.
	IssuedAt int64 `cbor:"3,keyasint"`

	// ExpiresAt is a Unix timestamp (seconds) after which the token is
	// no longer valid.
	ExpiresAt int64 `cbor:"4,keyasint"`
}

// Errors returned by Verify.
var (
	ErrTokenTooShort    = errors.New("token: too short for signature")
	ErrInvalidSignature = errors.New("token: invalid signature")
	ErrTokenExpired     = errors.New("token: expired")
)

// Mint signs claims for userID and returns the cookie value.
func Mint(secret []byte, userID string, ttl time.Duration) (string, error) {
	return MintAt(secret, userID, ttl, time.Now())
}

// MintAt is like Mint but accepts an explicit issue time. This supports
// deterministic testing.
func MintAt(secret []byte, userID string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		ID:        uuid.NewString(),
		Subject:   userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}

	payload, err := cbor.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("token: encoding claims: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)

	raw := make([]byte, 0, len(payload)+macSize)
	raw = append(raw, payload...)
	raw = mac.Sum(raw)

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Verify decodes a cookie value, checks the HMAC trailer and expiry, and
// returns the claims.
func Verify(secret []byte, value string) (*Claims, error) {
	return VerifyAt(secret, value, time.Now())
}

// VerifyAt is like Verify but accepts an explicit time for the expiry
// check.
func VerifyAt(secret []byte, value string, now time.Time) (*Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("token: decoding: %w", err)
	}
	if len(raw) <= macSize {
		return nil, ErrTokenTooShort
	}

	splitPoint := len(raw) - macSize
	payload := raw[:splitPoint]
	trailer := raw[splitPoint:]

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	if !hmac.Equal(trailer, mac.Sum(nil)) {
		return nil, ErrInvalidSignature
	}

	var claims Claims
	if err := cbor.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("token: decoding claims: %w", err)
	}

	if now.Unix() >= claims.ExpiresAt {
		return nil, ErrTokenExpired
	}

	return &claims, nil
}
