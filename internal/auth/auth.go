// Package auth issues and checks the anonymous guest tokens that scope
// reservations, carts and chats to one visitor.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	issuerName = "taverna"
	// GuestKey is the gin context key holding the guest id
	GuestKey = "guest_id"
)

var ErrInvalidToken = errors.New("invalid token")

// Issuer signs and verifies HS256 guest tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer. An empty secret is replaced by a random one,
// which invalidates tokens on restart.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		log.Printf("auth: no jwt secret configured, using an ephemeral key")
	}
	return &Issuer{secret: key, ttl: ttl, now: time.Now}, nil
}

// NewGuest creates a guest id and a token for it
func (i *Issuer) NewGuest() (guest, token string, expires time.Time, err error) {
	guest = uuid.NewString()
	token, expires, err = i.Issue(guest)
	return guest, token, expires, err
}

// Issue signs a token for guest
func (i *Issuer) Issue(guest string) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := jwt.StandardClaims{
		Subject:   guest,
		Issuer:    issuerName,
		IssuedAt:  now.Unix(),
		ExpiresAt: expires.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a token and returns its guest id
func (i *Issuer) Parse(tokenString string) (string, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.Issuer != issuerName {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid guest token. The token is read
// from the Authorization header or, for websocket upgrades, the token query
// parameter.
func Middleware(i *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearer(c.GetHeader("Authorization"))
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			c.Abort()
			return
		}

		guest, err := i.Parse(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set(GuestKey, guest)
		c.Next()
	}
}

// GuestID returns the guest id set by Middleware
func GuestID(c *gin.Context) string {
	return c.GetString(GuestKey)
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
