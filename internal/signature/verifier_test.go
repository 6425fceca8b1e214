package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "s3cr3t-signature"

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iat":     time.Now().Add(-time.Minute).Unix(),
		"jti":     "b9c1d8f0-0000-4000-8000-000000000000",
		"api_key": "abcd1234",
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"", "", ErrMissingHeader},
		{"Bearer abc", "abc", nil},
		{"bearer abc", "abc", nil},
		{"BEARER   abc", "abc", nil},
		{"Bearer", "", ErrMalformedHeader},
		{"abc", "", ErrMalformedHeader},
		{"Bearer a b", "", ErrMalformedHeader},
		{"Basic abc", "", ErrMalformedHeader},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("BearerToken(%q) err = %v, want %v", tt.header, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestVerify(t *testing.T) {
	v := NewVerifier(testSecret)

	if err := v.Verify(sign(t, testSecret, validClaims()), nil); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
	if err := v.Verify(sign(t, "other-secret", validClaims()), nil); err == nil {
		t.Error("token signed with wrong secret accepted")
	}
	if err := v.Verify("not.a.jwt", nil); err == nil {
		t.Error("garbage token accepted")
	}

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	if err := v.Verify(sign(t, testSecret, expired), nil); err == nil {
		t.Error("expired token accepted")
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Verify(none, nil); err == nil {
		t.Error("alg=none token accepted")
	}
}

func TestVerifyEmptySecret(t *testing.T) {
	v := NewVerifier("")
	if err := v.Verify(sign(t, "anything", validClaims()), nil); !errors.Is(err, ErrNoSecret) {
		t.Errorf("err = %v, want ErrNoSecret", err)
	}
}

func TestVerifyPayloadHash(t *testing.T) {
	v := NewVerifier(testSecret)
	body := []byte(`{"status":"answered","uuid":"abc"}`)
	sum := sha256.Sum256(body)

	claims := validClaims()
	claims["payload_hash"] = hex.EncodeToString(sum[:])
	tok := sign(t, testSecret, claims)

	if err := v.Verify(tok, body); err != nil {
		t.Errorf("matching payload rejected: %v", err)
	}
	if err := v.Verify(tok, []byte(`{"status":"tampered"}`)); !errors.Is(err, ErrPayloadMismatch) {
		t.Errorf("err = %v, want ErrPayloadMismatch", err)
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(testSecret)
	var called bool
	var gotBody string
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
		wantCalled bool
	}{
		{"missing", "", http.StatusUnauthorized, "missing authorization header", false},
		{"one part", "Bearer", http.StatusUnauthorized, "invalid authorization header format", false},
		{"three parts", "Bearer a b", http.StatusUnauthorized, "invalid authorization header format", false},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "invalid signature", false},
		{"wrong secret", "Bearer " + sign(t, "wrong", validClaims()), http.StatusUnauthorized, "invalid signature", false},
		{"valid", "Bearer " + sign(t, testSecret, validClaims()), http.StatusOK, "", true},
		{"valid lowercase scheme", "bearer " + sign(t, testSecret, validClaims()), http.StatusOK, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			gotBody = ""
			req := httptest.NewRequest(http.MethodPost, "/api/event", strings.NewReader("status=answered"))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", w.Body.String(), tt.wantBody)
			}
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if tt.wantCalled && gotBody != "status=answered" {
				t.Errorf("handler saw body %q, want original body", gotBody)
			}
		})
	}
}

func TestVerifyRejectsNonStringPayloadHash(t *testing.T) {
	v := NewVerifier(testSecret)
	for name, hash := range map[string]any{
		"number": 12345,
		"empty":  "",
		"object": map[string]string{"sha256": "abc"},
	} {
		t.Run(name, func(t *testing.T) {
			claims := validClaims()
			claims["payload_hash"] = hash
			if err := v.Verify(sign(t, testSecret, claims), []byte("status=answered")); !errors.Is(err, ErrBadPayloadHash) {
				t.Errorf("err = %v, want ErrBadPayloadHash", err)
			}
		})
	}
}

func TestMiddlewareRejectsOversizedBody(t *testing.T) {
	v := NewVerifier(testSecret)
	called := false
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/event", strings.NewReader(strings.Repeat("a", maxBody+1)))
	req.Header.Set("Authorization", "Bearer "+sign(t, testSecret, validClaims()))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
	if called {
		t.Error("handler should not run for an oversized body")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/event", strings.NewReader(strings.Repeat("a", maxBody)))
	req.Header.Set("Authorization", "Bearer "+sign(t, testSecret, validClaims()))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !called {
		t.Errorf("body at the limit: status = %d, called = %v", w.Code, called)
	}
}

func TestMiddlewareRecoversVerificationPanic(t *testing.T) {
	v := NewVerifier(testSecret)
	v.verify = func(string, []byte) error { panic("hmac backend blew up") }
	called := false
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/answer?from=Alice", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, testSecret, validClaims()))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid signature") {
		t.Errorf("body = %q", w.Body.String())
	}
	if called {
		t.Error("handler should not run when verification panics")
	}
}
