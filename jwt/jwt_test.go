package jwt

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

const testIssuer = "https://cognito-idp.ap-south-1.amazonaws.com/pool"

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		TTL:        time.Hour,
		PrivateKey: []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "fitfob",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestManagerIssueParse(t *testing.T) {
	m := newHSManager(t)

	tok, err := m.Issue(42)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !m.Owns(tok) {
		t.Fatal("expected manager to own its own token")
	}

	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.ID != 42 || claims.Subject != "42" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestManagerRejectsForeignSecret(t *testing.T) {
	m := newHSManager(t)
	other, err := NewManager(Config{TTL: time.Hour, PrivateKey: []byte("ffffffffffffffffffffffffffffffff"), Issuer: "fitfob"})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	tok, _ := other.Issue(1)
	if _, err := m.Parse(tok); err == nil {
		t.Fatal("expected signature failure")
	}
}

func TestManagerRejectsExpired(t *testing.T) {
	m := newHSManager(t)
	claims := SessionClaims{
		ID: 7,
		RegisteredClaims: gjwt.RegisteredClaims{
			Issuer:    "fitfob",
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := m.Parse(tok); !errors.Is(err, gjwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestManagerEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub, KeyID: "k1"})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	tok, err := m.Issue(9)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if c, err := m.Parse(tok); err != nil || c.ID != 9 {
		t.Fatalf("Parse returned %+v, %v", c, err)
	}
	if newHSManager(t).Owns(tok) {
		t.Fatal("hs256 manager should not own an EdDSA token")
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{TTL: time.Hour, PrivateKey: []byte("short")}); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
	if _, err := NewManager(Config{PrivateKey: []byte("0123456789abcdef")}); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
}

type jwksServer struct {
	key  *rsa.PrivateKey
	hits atomic.Int32
	srv  *httptest.Server
}

func newJWKSServer(t *testing.T, kid string) *jwksServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa keygen failed: %v", err)
	}
	s := &jwksServer{key: key}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		_ = json.NewEncoder(w).Encode(jwkDocument{Keys: []jwk{{
			Kid: kid,
			Kty: "RSA",
			Alg: "RS256",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *jwksServer) sign(t *testing.T, kid, issuer, subject string, exp time.Time) string {
	t.Helper()
	tok := gjwt.NewWithClaims(gjwt.SigningMethodRS256, ProviderClaims{
		TokenUse: "access",
		RegisteredClaims: gjwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: gjwt.NewNumericDate(exp),
		},
	})
	tok.Header["kid"] = kid
	out, err := tok.SignedString(s.key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return out
}

func TestProviderVerifierAcceptsValidToken(t *testing.T) {
	s := newJWKSServer(t, "kid-1")
	v := NewProviderVerifier(NewKeySet(s.srv.URL, nil), testIssuer, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		claims, err := v.Verify(ctx, s.sign(t, "kid-1", testIssuer, "sub-123", time.Now().Add(time.Hour)))
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if claims.Subject != "sub-123" || claims.TokenUse != "access" {
			t.Fatalf("unexpected claims %+v", claims)
		}
	}
	if got := s.hits.Load(); got != 1 {
		t.Fatalf("expected key set fetched once, got %d", got)
	}
}

func TestProviderVerifierRejects(t *testing.T) {
	s := newJWKSServer(t, "kid-1")
	v := NewProviderVerifier(NewKeySet(s.srv.URL, nil), testIssuer, 0)
	ctx := context.Background()

	cases := map[string]string{
		"wrong issuer": s.sign(t, "kid-1", "https://evil.example", "sub", time.Now().Add(time.Hour)),
		"unknown kid":  s.sign(t, "kid-2", testIssuer, "sub", time.Now().Add(time.Hour)),
		"expired":      s.sign(t, "kid-1", testIssuer, "sub", time.Now().Add(-time.Hour)),
		"no subject":   s.sign(t, "kid-1", testIssuer, "", time.Now().Add(time.Hour)),
		"garbage":      "not-a-token",
	}
	for name, tok := range cases {
		if _, err := v.Verify(ctx, tok); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}

	// An unknown kid does not trigger a refetch.
	if got := s.hits.Load(); got != 1 {
		t.Fatalf("expected a single key set fetch, got %d", got)
	}
}

func TestKeySetRetriesAfterFailedFetch(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	s := newJWKSServer(t, "kid-1")
	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		s.srv.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(flaky.Close)

	ks := NewKeySet(flaky.URL, nil)
	if _, err := ks.Key(context.Background(), "kid-1"); !errors.Is(err, ErrKeySetUnavailable) {
		t.Fatalf("expected ErrKeySetUnavailable, got %v", err)
	}

	fail.Store(false)
	if _, err := ks.Key(context.Background(), "kid-1"); err != nil {
		t.Fatalf("expected key after recovery, got %v", err)
	}
}
