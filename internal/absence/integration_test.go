package absence_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jredh-dev/absence-sms/internal/absence"
	"github.com/jredh-dev/absence-sms/internal/auth"
	"github.com/jredh-dev/absence-sms/internal/callable"
	"github.com/jredh-dev/absence-sms/internal/gohttp"
	"github.com/jredh-dev/absence-sms/internal/metrics"
	"github.com/jredh-dev/absence-sms/internal/secrets"
	"github.com/jredh-dev/absence-sms/internal/sms"
)

const apiKey = "fast2sms-test-key"

type stack struct {
	server    *httptest.Server
	verifier  *auth.JWTVerifier
	providerN *int32
	lastBody  *atomic.Value
}

// testStack wires the service the way cmd/server does, with Fast2SMS
// replaced by a stub that answers with providerStatus and providerBody.
func testStack(t *testing.T, providerStatus int, providerBody string) *stack {
	t.Helper()

	var calls int32
	last := &atomic.Value{}
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("authorization") != apiKey {
			t.Errorf("provider got authorization %q", r.Header.Get("authorization"))
		}
		raw, _ := io.ReadAll(r.Body)
		last.Store(string(raw))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(providerStatus)
		_, _ = w.Write([]byte(providerBody))
	}))
	t.Cleanup(provider.Close)

	verifier, err := auth.NewJWTVerifier("test-signing-key", "absence-sms.local")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	env := secrets.EnvResolver{Lookup: func(k string) (string, bool) {
		if k == "FAST2SMS_KEY" {
			return apiKey, true
		}
		return "", false
	}}
	sender := sms.NewFast2SMSSender(secrets.Define("FAST2SMS_KEY", env), sms.WithEndpoint(provider.URL))
	m := metrics.New()
	notifier := absence.New(sender, zerolog.Nop(), m)

	srv := gohttp.New(zerolog.Nop())
	srv.Router.Handle("/"+absence.FunctionName,
		callable.NewHandler(absence.FunctionName, notifier.Notify, verifier, zerolog.Nop(), m))

	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)

	return &stack{server: ts, verifier: verifier, providerN: &calls, lastBody: last}
}

func (s *stack) token(t *testing.T) string {
	t.Helper()
	tok, err := s.verifier.Issue("staff-1", "staff@school.in", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (s *stack) invoke(t *testing.T, token, data string) (int, string) {
	t.Helper()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost,
		s.server.URL+"/"+absence.FunctionName, strings.NewReader(`{"data":`+data+`}`))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(raw))
}

const ashaPayload = `{"mobile":"9999999999","studentName":"Asha","date":"2024-05-01"}`

func TestScenarioSuccess(t *testing.T) {
	s := testStack(t, http.StatusOK, `{"return":true,"request_id":"abc123"}`)

	code, body := s.invoke(t, s.token(t), ashaPayload)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", code, body)
	}
	if body != `{"result":{"success":true,"fast2sms":{"return":true,"request_id":"abc123"}}}` {
		t.Errorf("body = %s", body)
	}

	if n := atomic.LoadInt32(s.providerN); n != 1 {
		t.Fatalf("expected 1 provider call, got %d", n)
	}
	var sent map[string]string
	if err := json.Unmarshal([]byte(s.lastBody.Load().(string)), &sent); err != nil {
		t.Fatalf("provider body: %v", err)
	}
	want := map[string]string{
		"route":    "dlt",
		"message":  "Dear Parent, your child Asha was absent on 2024-05-01.",
		"language": "english",
		"numbers":  "9999999999",
	}
	for k, v := range want {
		if sent[k] != v {
			t.Errorf("provider %s = %q, want %q", k, sent[k], v)
		}
	}
}

func TestScenarioUnauthenticated(t *testing.T) {
	s := testStack(t, http.StatusOK, `{"return":true}`)

	code, body := s.invoke(t, "", ashaPayload)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if body != `{"error":{"status":"UNAUTHENTICATED","message":"Authentication required"}}` {
		t.Errorf("body = %s", body)
	}
	if n := atomic.LoadInt32(s.providerN); n != 0 {
		t.Errorf("provider called %d times", n)
	}
}

func TestScenarioInvalidToken(t *testing.T) {
	s := testStack(t, http.StatusOK, `{"return":true}`)

	code, _ := s.invoke(t, "forged.token.value", ashaPayload)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if n := atomic.LoadInt32(s.providerN); n != 0 {
		t.Errorf("provider called %d times", n)
	}
}

func TestScenarioMissingMobile(t *testing.T) {
	s := testStack(t, http.StatusOK, `{"return":true}`)

	code, body := s.invoke(t, s.token(t), `{"mobile":"","studentName":"Asha","date":"2024-05-01"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if body != `{"error":{"status":"INVALID_ARGUMENT","message":"Missing required fields"}}` {
		t.Errorf("body = %s", body)
	}
}

func TestScenarioProviderFailure(t *testing.T) {
	s := testStack(t, http.StatusInternalServerError, `{"return":false,"message":"upstream exploded"}`)

	code, body := s.invoke(t, s.token(t), ashaPayload)
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if body != `{"error":{"status":"INTERNAL","message":"SMS sending failed"}}` {
		t.Errorf("body = %s", body)
	}
	if strings.Contains(body, "upstream exploded") || strings.Contains(body, apiKey) {
		t.Error("provider detail leaked to caller")
	}
}
