package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner("secret", time.Hour, false)

	value, ok := s.Verify(s.Sign("123e4567-e89b-12d3-a456-426614174000"))
	require.True(t, ok)
	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", value)
}

func TestSigner_RejectsTampering(t *testing.T) {
	s := NewSigner("secret", time.Hour, false)
	signed := s.Sign("abc")

	_, ok := s.Verify("abd" + signed[3:])
	assert.False(t, ok)

	_, ok = NewSigner("other", time.Hour, false).Verify(signed)
	assert.False(t, ok)

	_, ok = s.Verify("no-signature")
	assert.False(t, ok)
}

func TestSigner_Cookie(t *testing.T) {
	s := NewSigner("secret", time.Hour, false)

	w := httptest.NewRecorder()
	s.SetInsight(w, "id-1")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/insight_summary", nil)
	req.AddCookie(cookies[0])
	id, ok := s.Insight(req)
	require.True(t, ok)
	assert.Equal(t, "id-1", id)

	_, ok = s.Insight(httptest.NewRequest(http.MethodGet, "/insight_summary", nil))
	assert.False(t, ok)
}
