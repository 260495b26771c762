package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/glamhair/patglam-agent/internal/dialog"
	"github.com/glamhair/patglam-agent/internal/store"
	"github.com/glamhair/patglam-agent/pkg/env"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	sent  []string
	dests []string
	done  chan struct{}
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{done: make(chan struct{}, 8)}
}

func (d *recordingDispatcher) Name() string { return "recording" }

func (d *recordingDispatcher) Send(_ context.Context, destination, body string) error {
	d.mu.Lock()
	d.sent = append(d.sent, body)
	d.dests = append(d.dests, destination)
	d.mu.Unlock()
	d.done <- struct{}{}
	return nil
}

func (d *recordingDispatcher) sentCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func newTestHandler(t *testing.T, cfg *env.Config) (*Handler, store.Store, *recordingDispatcher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if cfg == nil {
		cfg = &env.Config{
			MaxClarifyTries:   3,
			DeliveryTimeoutMs: 1000,
		}
	}

	sessionStore := store.NewMemoryStore()
	dispatcher := newRecordingDispatcher()
	planner := dialog.NewPlanner(cfg.MaxClarifyTries)

	h := NewHandler(
		cfg,
		sessionStore,
		planner,
		nil, // scripted mode
		dialog.NewSummarizer(nil, zap.NewNop()),
		dispatcher,
		nil, // no archive
		NewHub(zap.NewNop()),
		zap.NewNop(),
	)
	return h, sessionStore, dispatcher
}

func newTestRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.POST("/voice/turn", h.HandleTurn)
	router.POST("/voice/status", h.HandleStatus)
	return router
}

func postForm(router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeTurn(t *testing.T, w *httptest.ResponseRecorder) turnResponse {
	t.Helper()
	var resp turnResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return resp
}

func TestHandleTurnFirstContactGreets(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)
	router := newTestRouter(h)

	w := postForm(router, "/voice/turn", url.Values{"CallSid": {"CA1"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeTurn(t, w)
	if resp.Say != dialog.Greeting {
		t.Fatalf("say = %q, want the greeting", resp.Say)
	}
	if resp.Action != actionListen {
		t.Fatalf("action = %q, want listen", resp.Action)
	}
}

func TestHandleTurnRequiresCallSid(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)
	router := newTestRouter(h)

	w := postForm(router, "/voice/turn", url.Values{"SpeechResult": {"oi"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleTurnRejectsBadSignature(t *testing.T) {
	h, _, _ := newTestHandler(t, &env.Config{
		VoiceWebhookSecret: "secret",
		MaxClarifyTries:    3,
		DeliveryTimeoutMs:  1000,
	})
	router := newTestRouter(h)

	w := postForm(router, "/voice/turn", url.Values{"CallSid": {"CA2"}})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestHandleTurnFullProfessionalFlow(t *testing.T) {
	h, sessionStore, dispatcher := newTestHandler(t, nil)
	h.cfg.WhatsAppDestination = "+5511999990000"
	router := newTestRouter(h)

	steps := []struct {
		form       url.Values
		wantAction string
	}{
		{url.Values{"CallSid": {"CA3"}}, actionListen},                                 // greeting
		{url.Values{"CallSid": {"CA3"}, "Digits": {"1"}}, actionListen},                // professional
		{url.Values{"CallSid": {"CA3"}, "SpeechResult": {"Campinas"}}, actionListen},   // city
		{url.Values{"CallSid": {"CA3"}, "SpeechResult": {"dez anos"}}, actionListen},   // experience
		{url.Values{"CallSid": {"CA3"}, "SpeechResult": {"arroba pat"}}, actionListen}, // handle
		{url.Values{"CallSid": {"CA3"}, "SpeechResult": {"sim"}}, actionHangup},        // consent
	}
	for i, step := range steps {
		w := postForm(router, "/voice/turn", step.form)
		if w.Code != http.StatusOK {
			t.Fatalf("step %d status = %d, body %s", i, w.Code, w.Body.String())
		}
		if resp := decodeTurn(t, w); resp.Action != step.wantAction {
			t.Fatalf("step %d action = %q, want %q", i, resp.Action, step.wantAction)
		}
	}

	session, err := sessionStore.Get(context.Background(), "CA3")
	if err != nil {
		t.Fatalf("session after flow: %v", err)
	}
	if session.Slots.City != "Campinas" || session.Slots.Handle != "@pat" || session.Slots.Consent != dialog.ConsentYes {
		t.Fatalf("slots = %+v", session.Slots)
	}
	if !session.Dispatched {
		t.Fatal("consent should trigger the materials dispatch")
	}

	select {
	case <-dispatcher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("materials message was never dispatched")
	}

	turns, _ := sessionStore.Turns(context.Background(), "CA3")
	if len(turns) < 10 {
		t.Fatalf("transcript has %d turns, want user and agent turns recorded", len(turns))
	}
}

func TestHandleTurnConsumerHangsUp(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)
	router := newTestRouter(h)

	w := postForm(router, "/voice/turn", url.Values{"CallSid": {"CA4"}, "Digits": {"2"}})
	resp := decodeTurn(t, w)
	if resp.Action != actionHangup {
		t.Fatalf("action = %q, want hangup for a consumer", resp.Action)
	}
}

func TestHandleStatusFinalizesOnce(t *testing.T) {
	h, sessionStore, dispatcher := newTestHandler(t, nil)
	h.cfg.WhatsAppDestination = "+5511999990000"
	router := newTestRouter(h)

	// Seed a finished call.
	session := dialog.NewCallSession("CA5")
	session.Stage = dialog.StageWrap
	sessionStore.Put(context.Background(), session)
	sessionStore.AppendTurn(context.Background(), "CA5", dialog.Turn{Role: dialog.RoleUser, Content: "oi"})

	form := url.Values{
		"CallSid":      {"CA5"},
		"CallStatus":   {"completed"},
		"CallDuration": {"42"},
	}

	w := postForm(router, "/voice/status", form)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := dispatcher.sentCount(); got != 1 {
		t.Fatalf("dispatched briefs = %d, want 1", got)
	}
	if !strings.Contains(dispatcher.sent[0], "Resumo da ligação CA5") {
		t.Fatalf("brief text = %q", dispatcher.sent[0])
	}

	// Session state is cleared.
	if _, err := sessionStore.Get(context.Background(), "CA5"); err != store.ErrNotFound {
		t.Fatalf("session survived finalize: err = %v", err)
	}

	// A duplicate completion report must not dispatch again.
	w = postForm(router, "/voice/status", form)
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d", w.Code)
	}
	if got := dispatcher.sentCount(); got != 1 {
		t.Fatalf("dispatched briefs after duplicate = %d, want 1", got)
	}
}

func TestHandleStatusIgnoresNonTerminal(t *testing.T) {
	h, sessionStore, dispatcher := newTestHandler(t, nil)
	h.cfg.WhatsAppDestination = "+5511999990000"
	router := newTestRouter(h)

	sessionStore.Put(context.Background(), dialog.NewCallSession("CA6"))

	w := postForm(router, "/voice/status", url.Values{
		"CallSid":    {"CA6"},
		"CallStatus": {"in-progress"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if dispatcher.sentCount() != 0 {
		t.Fatal("non-terminal status must not dispatch")
	}
	if _, err := sessionStore.Get(context.Background(), "CA6"); err != nil {
		t.Fatalf("session should survive a non-terminal status: %v", err)
	}
}

func TestHandleStatusUnknownCallStillIdempotent(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)
	router := newTestRouter(h)

	form := url.Values{"CallSid": {"CA7"}, "CallStatus": {"completed"}}

	w := postForm(router, "/voice/status", form)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["message"] != "processed" {
		t.Fatalf("message = %q", resp["message"])
	}

	w = postForm(router, "/voice/status", form)
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["message"] != "already processed" {
		t.Fatalf("duplicate message = %q", resp["message"])
	}
}

func TestHandleTurnLogsRecognitionConfidence(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	cfg := &env.Config{MaxClarifyTries: 3, DeliveryTimeoutMs: 1000}
	h := NewHandler(
		cfg,
		store.NewMemoryStore(),
		dialog.NewPlanner(cfg.MaxClarifyTries),
		nil,
		dialog.NewSummarizer(nil, zap.NewNop()),
		newRecordingDispatcher(),
		nil,
		NewHub(zap.NewNop()),
		zap.New(core),
	)
	router := newTestRouter(h)

	w := postForm(router, "/voice/turn", url.Values{
		"CallSid":      {"CA-conf"},
		"SpeechResult": {"sou cabeleireira"},
		"Confidence":   {"0.87"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	entries := logs.FilterMessage("Turn processed").All()
	if len(entries) != 1 {
		t.Fatalf("got %d 'Turn processed' entries, want 1", len(entries))
	}
	conf, ok := entries[0].ContextMap()["confidence"].(float64)
	if !ok || conf != 0.87 {
		t.Fatalf("confidence field = %v, want 0.87", entries[0].ContextMap()["confidence"])
	}
}
