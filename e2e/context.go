// Package e2e drives a running shadow server through its public HTTP API.
// Scenarios live in features/ and run with `go test` from this module when
// E2E_BASE_URL points at a server.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestContext carries one scenario's client state.
type TestContext struct {
	BaseURL    string
	SigningKey string
	Issuer     string
	AdminToken string

	client       *http.Client
	wallet       string
	token        string
	lastStatus   int
	lastHeader   http.Header
	lastBody     []byte
	lastDecoded  map[string]any
	decodeFailed bool
}

func NewTestContext(baseURL, signingKey, issuer, adminToken string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SigningKey: signingKey,
		Issuer:     issuer,
		AdminToken: adminToken,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.wallet, tc.token = "", ""
	tc.lastStatus, tc.lastHeader, tc.lastBody = 0, nil, nil
	tc.lastDecoded, tc.decodeFailed = nil, false
}

// SignIn mints a session token for wallet with the server's signing key.
func (tc *TestContext) SignIn(wallet string) error {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"wallet": wallet,
		"sub":    wallet,
		"iss":    tc.Issuer,
		"iat":    now.Unix(),
		"exp":    now.Add(time.Hour).Unix(),
		"jti":    fmt.Sprintf("e2e-%d", now.UnixNano()),
	})
	signed, err := tok.SignedString([]byte(tc.SigningKey))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	tc.wallet, tc.token = wallet, signed
	return nil
}

func (tc *TestContext) SignOut() {
	tc.wallet, tc.token = "", ""
}

func (tc *TestContext) Wallet() string { return tc.wallet }

func (tc *TestContext) GET(path string) error {
	return tc.Do(http.MethodGet, path, nil, nil)
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.Do(http.MethodPost, path, body, nil)
}

func (tc *TestContext) PUT(path string, body any) error {
	return tc.Do(http.MethodPut, path, body, nil)
}

// Admin sends an operator request carrying the admin token.
func (tc *TestContext) Admin(method, path string) error {
	return tc.Do(method, path, nil, map[string]string{"X-Admin-Token": tc.AdminToken})
}

func (tc *TestContext) Do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastDecoded = nil
	tc.decodeFailed = json.Unmarshal(tc.lastBody, &tc.lastDecoded) != nil
	return nil
}

func (tc *TestContext) LastStatus() int { return tc.lastStatus }

func (tc *TestContext) LastHeader(name string) string {
	if tc.lastHeader == nil {
		return ""
	}
	return tc.lastHeader.Get(name)
}

func (tc *TestContext) LastBody() []byte { return tc.lastBody }

// Field resolves a dotted path like "domain.verified" in the last JSON object.
func (tc *TestContext) Field(path string) (any, error) {
	if tc.decodeFailed || tc.lastDecoded == nil {
		return nil, fmt.Errorf("last response is not a JSON object: %s", tc.lastBody)
	}
	var cur any = tc.lastDecoded
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", path, part)
		}
		if cur, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %q missing in %s", path, tc.lastBody)
		}
	}
	return cur, nil
}
