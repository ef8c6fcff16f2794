// Package testutil provides httptest-backed fakes for the two external
// endpoints this system depends on, so the rest of the suite can exercise
// real HTTP round-trips instead of mocking the client. Modeled on
// original_source/examples/fake_token_info_server.rs, extended to also fake
// the token-provider endpoint (planb_client.rs's counterpart).
package testutil

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FakeTokenProvider serves the OAuth2 password-grant token endpoint (C3's
// counterparty). Each call to EnqueueSuccess or EnqueueStatus enqueues one
// response; the server serves them in order, falling back to a default
// success once the queue is empty.
type FakeTokenProvider struct {
	Server *httptest.Server

	mu    sync.Mutex
	queue []fakeTokenResponse
	seq   int
}

type fakeTokenResponse struct {
	status int
	body   string
}

// NewFakeTokenProvider starts an httptest server implementing the token
// endpoint contract from spec.md §6.
func NewFakeTokenProvider() *FakeTokenProvider {
	f := &FakeTokenProvider{}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *FakeTokenProvider) URL() string { return f.Server.URL }
func (f *FakeTokenProvider) Close()      { f.Server.Close() }

// EnqueueSuccess arranges for the next request to receive a freshly minted
// JWT valid for validFor, subject "test-subject-<n>", realm "/services".
func (f *FakeTokenProvider) EnqueueSuccess(validFor time.Duration, scopes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	jwt := buildPlanbJWT(f.seq, validFor, scopes)
	body, _ := json.Marshal(map[string]interface{}{
		"access_token": jwt,
		"expires_in":   int64(validFor.Seconds()),
	})
	f.queue = append(f.queue, fakeTokenResponse{status: http.StatusOK, body: string(body)})
}

// EnqueueStatus arranges for the next request to receive the given status and
// raw body (used to simulate 401/500/connection-adjacent failures).
func (f *FakeTokenProvider) EnqueueStatus(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeTokenResponse{status: status, body: body})
}

func (f *FakeTokenProvider) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	var resp fakeTokenResponse
	if len(f.queue) > 0 {
		resp = f.queue[0]
		f.queue = f.queue[1:]
	} else {
		f.seq++
		jwt := buildPlanbJWT(f.seq, time.Hour, []string{"uid"})
		body, _ := json.Marshal(map[string]interface{}{"access_token": jwt, "expires_in": 3600})
		resp = fakeTokenResponse{status: http.StatusOK, body: string(body)}
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	w.Write([]byte(resp.body))
}

func buildPlanbJWT(seq int, validFor time.Duration, scopes []string) string {
	now := time.Now().UTC()
	header := map[string]interface{}{"kid": "testkey-es256", "alg": "ES256"}
	payload := map[string]interface{}{
		"sub":   fmt.Sprintf("test-subject-%d", seq),
		"scope": scopes,
		"iss":   "fake-token-provider",
		"realm": "/services",
		"exp":   now.Add(validFor).Unix(),
		"iat":   now.Unix(),
	}
	return b64JSON(header) + "." + b64JSON(payload) + "." + b64("signature-not-verified")
}

func b64JSON(v interface{}) string {
	raw, _ := json.Marshal(v)
	return b64(string(raw))
}

func b64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

// FakeTokenInfo serves the resource-server's token-info endpoint (C6's
// counterparty), mirroring fake_token_info_server.rs's fixed payload shape
// but made configurable per test.
type FakeTokenInfo struct {
	Server *httptest.Server

	mu     sync.Mutex
	uid    string
	scopes []string
	status int
}

// NewFakeTokenInfo starts an httptest server that, by default, authenticates
// any token as {uid: uid, scope: scopes}; an empty uid is sent as null.
func NewFakeTokenInfo(uid string, scopes []string) *FakeTokenInfo {
	f := &FakeTokenInfo{uid: uid, scopes: scopes, status: http.StatusOK}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *FakeTokenInfo) URL() string { return f.Server.URL }
func (f *FakeTokenInfo) Close()      { f.Server.Close() }

// SetStatus forces every subsequent response to the given status.
func (f *FakeTokenInfo) SetStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *FakeTokenInfo) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status := f.status
	uid := f.uid
	scopes := f.scopes
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		w.Write([]byte(`{"error":"status ` + strconv.Itoa(status) + `"}`))
		return
	}

	body := map[string]interface{}{"scope": scopes, "expires_in": 28653, "realm": "/services"}
	if uid != "" {
		body["uid"] = uid
	} else {
		body["uid"] = nil
	}
	raw, _ := json.Marshal(body)
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// RandomID returns a short random identifier, suitable for keeping test
// fixture names (cache keys, request ids) from colliding across parallel test
// cases; no test in this module calls it.
func RandomID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return strings.ToLower(base64.RawURLEncoding.EncodeToString(b))
}
