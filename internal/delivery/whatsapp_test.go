package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestWhatsAppDispatcherSend(t *testing.T) {
	var mu sync.Mutex
	var gotAuth string
	var gotPayload map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewWhatsAppDispatcher(srv.URL, "token-1", 2*time.Second)
	if err := d.Send(context.Background(), "11987654321", "resumo da ligação"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotAuth != "Bearer token-1" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotPayload["to"] != "+5511987654321" {
		t.Fatalf("to = %q, want the normalized E.164 number", gotPayload["to"])
	}
	if gotPayload["text"] != "resumo da ligação" {
		t.Fatalf("text = %q", gotPayload["text"])
	}
}

func TestWhatsAppDispatcherRejectsBadDestination(t *testing.T) {
	d := NewWhatsAppDispatcher("http://unused.invalid", "", time.Second)
	if err := d.Send(context.Background(), "123", "body"); err == nil {
		t.Fatal("invalid destination accepted")
	}
}

func TestWhatsAppDispatcherReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewWhatsAppDispatcher(srv.URL, "", 2*time.Second)
	err := d.Send(context.Background(), "+5511987654321", "body")
	if err == nil {
		t.Fatal("API error not surfaced")
	}
}

func TestWhatsAppDispatcherUnconfigured(t *testing.T) {
	d := NewWhatsAppDispatcher("", "", time.Second)
	if err := d.Send(context.Background(), "+5511987654321", "body"); err == nil {
		t.Fatal("unconfigured dispatcher accepted a send")
	}
}
