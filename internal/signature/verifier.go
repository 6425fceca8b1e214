// Package signature authenticates signed provider webhooks.
//
// The provider signs each webhook with an HS256 JWT carried as a bearer
// token. The token is signed with the account's signature secret and, for
// requests with a body, carries a payload_hash claim holding the SHA-256 of
// that body.
package signature

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrMissingHeader   = errors.New("missing authorization header")
	ErrMalformedHeader = errors.New("invalid authorization header format")
	ErrNoSecret        = errors.New("no signature secret configured")
	ErrPayloadMismatch = errors.New("payload hash mismatch")
	ErrBadPayloadHash  = errors.New("payload_hash claim is not a hex string")
)

// maxBody bounds how much of a request body is read for payload hashing.
const maxBody = 1 << 20

type Verifier struct {
	secret []byte
	verify func(token string, body []byte) error
}

func NewVerifier(secret string) *Verifier {
	v := &Verifier{secret: []byte(secret)}
	v.verify = v.Verify
	return v
}

// BearerToken returns the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingHeader
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMalformedHeader
	}
	return parts[1], nil
}

// Verify checks that token is a valid HMAC-signed JWT for the configured
// secret. When the token carries a payload_hash claim it must match body.
func (v *Verifier) Verify(token string, body []byte) error {
	if len(v.secret) == 0 {
		return ErrNoSecret
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	raw, present := claims["payload_hash"]
	if !present {
		return nil
	}
	want, ok := raw.(string)
	if !ok || want == "" {
		return ErrBadPayloadHash
	}
	sum := sha256.Sum256(body)
	got := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(want)), []byte(got)) != 1 {
		return ErrPayloadMismatch
	}
	return nil
}

// Middleware rejects requests without a valid signature with 401 and
// otherwise calls next with the request body intact.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			log.Printf("[signature] %s %s rejected: %v", r.Method, r.URL.Path, err)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		var body []byte
		if r.Body != nil {
			body, err = io.ReadAll(io.LimitReader(r.Body, maxBody+1))
			r.Body.Close()
			if err != nil {
				log.Printf("[signature] %s %s rejected: read body: %v", r.Method, r.URL.Path, err)
				http.Error(w, "invalid signature", http.StatusUnauthorized)
				return
			}
			if len(body) > maxBody {
				log.Printf("[signature] %s %s rejected: body exceeds %d bytes", r.Method, r.URL.Path, maxBody)
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		if err := v.safeVerify(token, body); err != nil {
			log.Printf("[signature] %s %s rejected: %v", r.Method, r.URL.Path, err)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (v *Verifier) safeVerify(token string, body []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during verification: %v", rec)
		}
	}()
	return v.verify(token, body)
}
