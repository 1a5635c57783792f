package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	SignatureHeader = "X-Signature-256"
	signaturePrefix = "sha256="
)

var (
	ErrMissingAuth      = errors.New("missing authentication")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")
)

// Sign: значение заголовка X-Signature-256 для тела.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Authenticate: подпись в заголовке важнее токена в query.
func Authenticate(secret string, body []byte, signature, token string) error {
	switch {
	case signature != "":
		if secret == "" || !hmac.Equal([]byte(Sign(secret, body)), []byte(strings.TrimSpace(signature))) {
			return ErrInvalidSignature
		}
		return nil
	case token != "":
		if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(token)) != 1 {
			return ErrInvalidToken
		}
		return nil
	default:
		return ErrMissingAuth
	}
}
