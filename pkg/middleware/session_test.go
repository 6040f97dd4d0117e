package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureSession(t *testing.T, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var got string
	handler := Session(SessionConfig{CookieName: "cart_session", TTL: time.Hour})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = SessionIDFromRequest(r)
		}),
	)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return got, rec
}

func TestSession_IssuesCookie(t *testing.T) {
	id, rec := captureSession(t, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	_, err := uuid.Parse(id)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "cart_session", cookies[0].Name)
	assert.Equal(t, id, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)
}

func TestSession_ReusesValidCookie(t *testing.T) {
	existing := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "cart_session", Value: existing})

	id, rec := captureSession(t, req)

	assert.Equal(t, existing, id)
	assert.Empty(t, rec.Result().Cookies())
}

func TestSession_ReplacesMalformedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "cart_session", Value: "../../etc"})

	id, rec := captureSession(t, req)

	assert.NotEqual(t, "../../etc", id)
	assert.Len(t, rec.Result().Cookies(), 1)
}
