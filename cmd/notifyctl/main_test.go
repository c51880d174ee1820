package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jredh-dev/absence-sms/internal/absence"
	"github.com/jredh-dev/absence-sms/internal/auth"
)

func TestTokenCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--uid", "staff-1", "--signing-key", "k", "--ttl", "5m"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}

	v, _ := auth.NewJWTVerifier("k", "absence-sms.local")
	id, err := v.Verify(context.Background(), strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("minted token does not verify: %v", err)
	}
	if id.UID != "staff-1" {
		t.Errorf("UID = %q", id.UID)
	}
}

func TestTokenCommandRequiresKey(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token", "--uid", "staff-1"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without signing key")
	}
}

func TestClientInvoke(t *testing.T) {
	var gotAuth string
	var gotBody map[string]map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"success":true,"fast2sms":{"return":true}}}` + "\n"))
	}))
	defer srv.Close()

	c := newClient(srv.URL+"/", 5*time.Second)
	status, body, err := c.invoke(context.Background(), "tok", absence.Request{
		Mobile: "9999999999", StudentName: "Asha", Date: "2024-05-01",
	})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if string(body) != `{"result":{"success":true,"fast2sms":{"return":true}}}` {
		t.Errorf("body = %s", body)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["data"]["studentName"] != "Asha" || gotBody["data"]["mobile"] != "9999999999" {
		t.Errorf("data = %v", gotBody["data"])
	}
}

func TestSendCommandFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"status":"UNAUTHENTICATED","message":"Authentication required"}}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"send", "--url", srv.URL, "--token", "", "--mobile", "9999999999", "--student", "Asha", "--date", "2024-05-01"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(out.String(), "Authentication required") {
		t.Errorf("response body should be printed, got %q", out.String())
	}
}
