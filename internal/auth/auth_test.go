package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)

	guest, token, expires, err := iss.NewGuest()
	require.NoError(t, err)
	assert.NotEmpty(t, guest)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	got, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, guest, got)
}

func TestParse_Rejects(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)
	other, err := NewIssuer("different", time.Hour)
	require.NoError(t, err)

	foreign, _, err := other.Issue("guest-1")
	require.NoError(t, err)

	expired, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := expired.Issue("guest-1")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.StandardClaims{Subject: "guest-1", Issuer: issuerName})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{Issuer: issuerName}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":       "not-a-token",
		"wrong secret":  foreign,
		"expired":       stale,
		"alg none":      unsigned,
		"missing guest": noSubject,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewIssuer_EphemeralSecret(t *testing.T) {
	a, err := NewIssuer("", time.Hour)
	require.NoError(t, err)
	b, err := NewIssuer("", time.Hour)
	require.NoError(t, err)

	token, _, err := a.Issue("guest")
	require.NoError(t, err)
	_, err = b.Parse(token)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)
	token, _, err := iss.Issue("guest-42")
	require.NoError(t, err)

	router := gin.New()
	router.Use(Middleware(iss))
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GuestID(c))
	})

	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{name: "bearer header", header: "Bearer " + token, status: http.StatusOK, body: "guest-42"},
		{name: "lowercase scheme", header: "bearer " + token, status: http.StatusOK, body: "guest-42"},
		{name: "query token", query: "?token=" + token, status: http.StatusOK, body: "guest-42"},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/whoami"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}
