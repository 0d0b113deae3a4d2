// Package session remembers the latest insight per browser in a signed cookie.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// CookieName holds the latest insight ID.
const CookieName = "finsight_insight"

// Signer signs and verifies cookie values with HMAC-SHA256.
type Signer struct {
	secret []byte
	maxAge time.Duration
	secure bool
}

// NewSigner creates a signer. maxAge bounds the cookie lifetime.
func NewSigner(secret string, maxAge time.Duration, secure bool) *Signer {
	return &Signer{secret: []byte(secret), maxAge: maxAge, secure: secure}
}

// Sign returns value.signature.
func (s *Signer) Sign(value string) string {
	return value + "." + s.mac(value)
}

// Verify returns the original value if signed carries a valid signature.
func (s *Signer) Verify(signed string) (string, bool) {
	i := strings.LastIndexByte(signed, '.')
	if i <= 0 {
		return "", false
	}
	value, sig := signed[:i], signed[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(value))) {
		return "", false
	}
	return value, true
}

// SetInsight stores id in the response cookie.
func (s *Signer) SetInsight(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.Sign(id),
		Path:     "/",
		MaxAge:   int(s.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Insight returns the insight ID from the request cookie.
func (s *Signer) Insight(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return s.Verify(c.Value)
}

func (s *Signer) mac(value string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
