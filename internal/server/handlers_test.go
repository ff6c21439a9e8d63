package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/aiushlabs/aiush-gateway/internal/auth"
	"github.com/aiushlabs/aiush-gateway/internal/health"
	"github.com/aiushlabs/aiush-gateway/internal/history"
	"github.com/aiushlabs/aiush-gateway/internal/normalize"
	"github.com/aiushlabs/aiush-gateway/internal/observe"
	"github.com/aiushlabs/aiush-gateway/internal/server"
	"github.com/aiushlabs/aiush-gateway/internal/turn"
	"github.com/aiushlabs/aiush-gateway/pkg/provider"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/llm"
	llmmock "github.com/aiushlabs/aiush-gateway/pkg/provider/llm/mock"
	sttmock "github.com/aiushlabs/aiush-gateway/pkg/provider/stt/mock"
	ttsmock "github.com/aiushlabs/aiush-gateway/pkg/provider/tts/mock"
)

// memStore is an in-memory Historian plus sink Writer.
type memStore struct {
	mu      sync.Mutex
	records map[string][]history.Record
	listErr error
	nextID  int64
}

func newMemStore() *memStore {
	return &memStore{records: map[string][]history.Record{}}
}

func (m *memStore) EnsureOwner(context.Context, string) error { return nil }

func (m *memStore) Append(_ context.Context, entry history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.records[entry.OwnerID] = append(m.records[entry.OwnerID], history.Record{
		ID:           m.nextID,
		OwnerID:      entry.OwnerID,
		InputSummary: entry.InputSummary,
		Response:     entry.Response,
		Kind:         entry.Kind,
		CreatedAt:    time.Now(),
	})
	return nil
}

func (m *memStore) ListByOwner(_ context.Context, ownerID string) ([]history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]history.Record(nil), m.records[ownerID]...), nil
}

func (m *memStore) ClearOwner(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, ownerID)
	return nil
}

type env struct {
	srv   *server.Server
	gen   *llmmock.Generator
	stt   *sttmock.Transcriber
	tts   *ttsmock.Synthesizer
	store *memStore
	sink  *history.Sink
}

func newEnv(t *testing.T) *env {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	e := &env{
		gen:   &llmmock.Generator{Result: &llm.GenerateResult{Text: `{"reply":"ok"}`}},
		stt:   &sttmock.Transcriber{},
		tts:   &ttsmock.Synthesizer{},
		store: newMemStore(),
	}
	e.sink = history.NewSink(e.store)
	orch := turn.New(e.gen, e.stt, e.tts, e.sink, m)
	verifier := &auth.StaticVerifier{Tokens: map[string]string{"good-token": "uid-1"}}
	e.srv = server.New(orch, verifier, e.store, m, health.Checker{
		Name:  "noop",
		Check: func(context.Context) error { return nil },
	})
	return e
}

func (e *env) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, r)
	return rec
}

func TestMessage_EndToEnd(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.gen.Result = &llm.GenerateResult{Text: `{"reply":"Drink water.","lang":"en","tone":"friendly","action":null,"medical_safety":"General info only."}`}

	rec := e.do(t, http.MethodPost, "/aiush/message", "good-token", `{"message":"I have a headache","history":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp normalize.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Reply != "Drink water." {
		t.Errorf("reply = %q", resp.Reply)
	}
	if resp.Lang != normalize.LangEnglish || resp.Tone != normalize.ToneFriendly {
		t.Errorf("lang/tone = %q/%q", resp.Lang, resp.Tone)
	}

	e.sink.Drain()
	records, _ := e.store.ListByOwner(context.Background(), "uid-1")
	if len(records) != 1 || records[0].Kind != history.KindChat {
		t.Errorf("records = %+v, want one chat record", records)
	}
}

func TestMessage_MissingToken(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/aiush/message", "", `{"message":"hi"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Missing Token") {
		t.Errorf("body = %s", rec.Body)
	}
	if e.gen.CallCount() != 0 {
		t.Errorf("generator called %d times without a token", e.gen.CallCount())
	}
}

func TestMessage_InvalidToken(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/aiush/message", "bad-token", `{"message":"hi"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid Token") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestMessage_EmptyMessage(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/aiush/message", "good-token", `{"message":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e.gen.CallCount() != 0 {
		t.Errorf("generator called %d times for an empty message", e.gen.CallCount())
	}
}

func TestMessage_MalformedBody(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/aiush/message", "good-token", `{"message": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMessage_UpstreamDownIs502(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.gen.Err = provider.ErrUnavailable

	rec := e.do(t, http.MethodPost, "/aiush/message", "good-token", `{"message":"hi"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Upstream Failed") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestOCR_MissingImage(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/aiush/ocr", "good-token", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e.gen.CallCount() != 0 {
		t.Errorf("generator called %d times without an image", e.gen.CallCount())
	}
}

func TestVoice_Transcript(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.stt.Transcript = "my head hurts"

	rec := e.do(t, http.MethodPost, "/aiush/voice", "good-token", `{"audio":"d2F2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp["transcript"] != "my head hurts" {
		t.Errorf("transcript = %q", resp["transcript"])
	}
}

func TestTTS_AudioURL(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.tts.AudioURL = "https://murf.ai/audio/clip.mp3"

	rec := e.do(t, http.MethodPost, "/aiush/tts", "good-token", `{"text":"Take rest."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp["audioUrl"] != "https://murf.ai/audio/clip.mp3" {
		t.Errorf("audioUrl = %q", resp["audioUrl"])
	}
}

func TestHistory_ListAndClear(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.store.Append(context.Background(), history.Entry{
		OwnerID:      "uid-1",
		InputSummary: "hello",
		Response:     &normalize.Response{Reply: "hi", Lang: normalize.LangEnglish, Tone: normalize.ToneFriendly, MedicalSafety: "General info only."},
		Kind:         history.KindChat,
	})
	e.store.Append(context.Background(), history.Entry{
		OwnerID:      "uid-other",
		InputSummary: "secret",
		Kind:         history.KindChat,
	})

	rec := e.do(t, http.MethodGet, "/aiush/history", "good-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var list struct {
		Records []struct {
			Message string `json:"message"`
			Kind    string `json:"kind"`
		} `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(list.Records) != 1 {
		t.Fatalf("records = %d, want only the caller's record", len(list.Records))
	}
	if list.Records[0].Message != "hello" || list.Records[0].Kind != "chat" {
		t.Errorf("record = %+v", list.Records[0])
	}

	rec = e.do(t, http.MethodDelete, "/aiush/history", "good-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = e.do(t, http.MethodGet, "/aiush/history", "good-token", "")
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Records) != 0 {
		t.Errorf("records after clear = %d, want 0", len(list.Records))
	}

	// Another owner's history must be untouched by the clear.
	other, _ := e.store.ListByOwner(context.Background(), "uid-other")
	if len(other) != 1 {
		t.Errorf("other owner's records = %d, want 1", len(other))
	}
}

func TestHistory_ListFailureIs500(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.store.listErr = errors.New("pool closed")

	rec := e.do(t, http.MethodGet, "/aiush/history", "good-token", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "pool closed") {
		t.Error("internal error detail leaked to the client")
	}
}

func TestHealthBanner_Unauthenticated(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "online" || body["service"] != "Aiush Gateway" {
		t.Errorf("banner = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/aiush/unknown", "good-token", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
